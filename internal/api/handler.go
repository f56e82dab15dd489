package api

import (
	"errors"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"longmail-backend/internal/auth"
	"longmail-backend/internal/engine"
	"longmail-backend/internal/logger"
	"longmail-backend/internal/notification"
	"longmail-backend/internal/parse"
	"longmail-backend/internal/store"
)

// Notifier queues push notifications.
type Notifier interface {
	Dispatch(job notification.Job) bool
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store    store.Store
	engine   *engine.Engine
	issuer   *auth.Issuer
	notifier Notifier
	webpush  *webpush.Options
}

// NewHandler creates a new API handler. notifier and webpushOptions may be nil.
func NewHandler(s store.Store, e *engine.Engine, issuer *auth.Issuer, notifier Notifier, webpushOptions *webpush.Options) *Handler {
	return &Handler{
		store:    s,
		engine:   e,
		issuer:   issuer,
		notifier: notifier,
		webpush:  webpushOptions,
	}
}

// statusFor maps domain errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrNoViableTrain):
		return http.StatusUnprocessableEntity
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, store.ErrParcelAssigned),
		errors.Is(err, store.ErrTrainNotWithdrawable),
		errors.Is(err, store.ErrTrainNotDispatchable),
		errors.Is(err, store.ErrUsernameTaken),
		errors.Is(err, engine.ErrTrainNotAssignable),
		errors.Is(err, engine.ErrNothingToShip),
		errors.Is(err, engine.ErrLineNotServed),
		errors.Is(err, parse.ErrNoRoutes):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// abortWithError writes err as {"error": ...}. Unexpected errors are logged
// and replaced by a generic message.
func abortWithError(c *gin.Context, err error) {
	status := statusFor(err)
	_ = c.Error(err)
	if status == http.StatusInternalServerError {
		logger.Get().Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.AbortWithStatusJSON(status, gin.H{"error": "internal server error"})
		return
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// caller returns the identity put in place by mw.Auth.
func caller(c *gin.Context) auth.Identity {
	id, _ := auth.FromContext(c.Request.Context())
	return id
}
