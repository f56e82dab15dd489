package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"longmail-backend/internal/model"
	"longmail-backend/internal/store"
)

type putSubscriptionRequest struct {
	Endpoint string `json:"endpoint" binding:"required,url"`
	P256DH   string `json:"p256dh" binding:"required"`
	Auth     string `json:"auth" binding:"required"`
}

// PutSubscription creates or replaces the caller's subscription for an endpoint.
func (h *Handler) PutSubscription(c *gin.Context) {
	var req putSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	sub := model.PushSubscription{
		Endpoint: req.Endpoint,
		UserID:   caller(c).UserID,
		P256DH:   req.P256DH,
		Auth:     req.Auth,
	}
	if err := h.store.SaveSubscription(c.Request.Context(), &sub); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusCreated)
}

// GetSubscriptions lists the endpoints the caller receives notifications on.
func (h *Handler) GetSubscriptions(c *gin.Context) {
	subs, err := h.store.ListSubscriptions(c.Request.Context(), caller(c).UserID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	endpoints := make([]string, 0, len(subs))
	for _, s := range subs {
		endpoints = append(endpoints, s.Endpoint)
	}
	c.JSON(http.StatusOK, gin.H{"endpoints": endpoints})
}

type deleteSubscriptionRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
}

// DeleteSubscription removes one of the caller's subscriptions.
func (h *Handler) DeleteSubscription(c *gin.Context) {
	var req deleteSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	ctx := c.Request.Context()
	subs, err := h.store.ListSubscriptions(ctx, caller(c).UserID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	owned := false
	for _, s := range subs {
		if s.Endpoint == req.Endpoint {
			owned = true
			break
		}
	}
	if !owned {
		abortWithError(c, store.ErrNotFound)
		return
	}

	if err := h.store.DeleteSubscription(ctx, req.Endpoint); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetVAPIDPublicKey returns the key browsers need to subscribe.
func (h *Handler) GetVAPIDPublicKey(c *gin.Context) {
	if h.webpush == nil || h.webpush.VAPIDPublicKey == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "push notifications are not configured"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"public_key": h.webpush.VAPIDPublicKey})
}
