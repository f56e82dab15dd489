package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"longmail-backend/internal/model"
	"longmail-backend/internal/parse"
)

type createParcelRequest struct {
	Weight      float64 `json:"weight" binding:"gte=0"`
	Volume      float64 `json:"volume" binding:"gte=0"`
	Destination string  `json:"destination" binding:"required"`
}

// CreateParcel adds a parcel to the unassigned pool.
func (h *Handler) CreateParcel(c *gin.Context) {
	var req createParcelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	dest, err := parse.Destination(req.Destination)
	if err != nil {
		badRequest(c, err)
		return
	}

	parcel := model.NewParcel(caller(c).UserID, req.Weight, req.Volume, dest)
	if err := h.store.CreateParcel(c.Request.Context(), parcel); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, parcel)
}

// ListParcels lists the caller's active parcels.
func (h *Handler) ListParcels(c *gin.Context) {
	parcels, err := h.store.ListParcelsForOwner(c.Request.Context(), caller(c).UserID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if parcels == nil {
		parcels = []model.Parcel{}
	}
	c.JSON(http.StatusOK, parcels)
}

// WithdrawParcel takes an unassigned parcel out of the pool.
func (h *Handler) WithdrawParcel(c *gin.Context) {
	id := c.Param("id")
	if err := h.store.WithdrawParcel(c.Request.Context(), id, caller(c).UserID); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "parcel " + id + " has been withdrawn"})
}

// ParcelStatus reports whether a parcel has shipped and on which train.
func (h *Handler) ParcelStatus(c *gin.Context) {
	parcel, err := h.store.FindParcelForOwner(c.Request.Context(), c.Param("id"), caller(c).UserID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"parcel_id":   parcel.ID,
		"has_shipped": parcel.HasShipped,
		"train_id":    parcel.TrainID,
	})
}

// ParcelCost quotes the cheapest available train for a parcel.
func (h *Handler) ParcelCost(c *gin.Context) {
	ctx := c.Request.Context()
	parcel, err := h.store.FindParcelForOwner(ctx, c.Param("id"), caller(c).UserID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	quote, err := h.engine.QuoteParcel(ctx, *parcel)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, quote)
}
