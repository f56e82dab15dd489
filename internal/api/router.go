package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"longmail-backend/internal/model"
	"longmail-backend/internal/mw"
)

// RouterOptions tunes the shared middleware.
type RouterOptions struct {
	RateLimit rate.Limit
	RateBurst int
	// CacheTTL of zero turns response caching off. Ignored when Cache is set.
	CacheTTL time.Duration
	// Cache is shared with writers outside the router; created from CacheTTL when nil.
	Cache *mw.ResponseCache
	// Gatherer backs GET /metrics; nil leaves the endpoint out.
	Gatherer prometheus.Gatherer
	// Limiter is created from RateLimit and RateBurst when nil.
	Limiter *mw.IPRateLimiter
}

// NewRouter creates and configures a new Gin router.
func NewRouter(h *Handler, opts RouterOptions) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), mw.RequestLogger())

	limiter := opts.Limiter
	if limiter == nil {
		limiter = mw.NewIPRateLimiter(opts.RateLimit, opts.RateBurst)
	}

	r.GET("/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"message": "pong"}) })
	if opts.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	v1 := r.Group("/api/v1")
	v1.Use(mw.RateLimiter(limiter))
	{
		v1.POST("/users/signup", h.Signup)
		v1.POST("/users/login", h.Login)
		v1.GET("/vapid_public_key", h.GetVAPIDPublicKey)
	}

	authed := v1.Group("")
	authed.Use(mw.Auth(h.issuer))
	responses := opts.Cache
	if responses == nil && opts.CacheTTL > 0 {
		responses = mw.NewResponseCache(opts.CacheTTL)
	}
	if responses != nil {
		authed.Use(mw.Cache(responses))
	}
	{
		authed.GET("/users", h.Me)

		authed.GET("/subscriptions", h.GetSubscriptions)
		authed.PUT("/subscriptions", h.PutSubscription)
		authed.DELETE("/subscriptions", h.DeleteSubscription)

		authed.GET("/trains/:id", h.GetTrain)
	}

	owners := authed.Group("/parcels", mw.RequireRole(model.RoleParcelOwner))
	{
		owners.POST("", h.CreateParcel)
		owners.GET("", h.ListParcels)
		owners.DELETE("/:id", h.WithdrawParcel)
		owners.GET("/:id/status", h.ParcelStatus)
		owners.POST("/:id/cost", h.ParcelCost)
	}

	operators := authed.Group("/trains", mw.RequireRole(model.RoleTrainOperator))
	{
		operators.POST("/offer", h.OfferTrain)
		operators.GET("/available", h.ListOwnAvailableTrains)
		operators.GET("/rail-lines", h.RailLines)
		operators.GET("/:id/status", h.TrainStatus)
		operators.GET("/:id/capacity-cost", h.TrainCapacityCost)
		operators.DELETE("/:id", h.WithdrawTrain)
	}

	postMasters := authed.Group("/trains", mw.RequireRole(model.RolePostMaster))
	{
		postMasters.GET("/all", h.ListAllAvailableTrains)
		postMasters.POST("/:id/book-fill-send", h.BookFillSend)
	}

	return r
}
