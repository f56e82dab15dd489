package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"longmail-backend/internal/logger"
	"longmail-backend/internal/model"
	"longmail-backend/internal/notification"
	"longmail-backend/internal/parse"
	"longmail-backend/internal/store"
)

type offerTrainRequest struct {
	WeightCostFactor float64  `json:"weight_cost_factor" binding:"gte=0"`
	VolumeCostFactor float64  `json:"volume_cost_factor" binding:"gte=0"`
	MaxWeight        float64  `json:"max_weight" binding:"gt=0"`
	MaxVolume        float64  `json:"max_volume" binding:"gt=0"`
	AvailableLines   []string `json:"available_lines" binding:"required,min=1"`
}

// OfferTrain posts a new Available train for the calling operator.
func (h *Handler) OfferTrain(c *gin.Context) {
	var req offerTrainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	lines, err := parse.RouteList(req.AvailableLines)
	if err != nil {
		badRequest(c, err)
		return
	}

	train := model.NewTrain(caller(c).UserID, req.WeightCostFactor, req.VolumeCostFactor, req.MaxWeight, req.MaxVolume, lines)
	if err := h.store.CreateTrain(c.Request.Context(), train); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, train)
}

// ListOwnAvailableTrains lists the caller's Available trains. Booked trains are left out.
func (h *Handler) ListOwnAvailableTrains(c *gin.Context) {
	trains, err := h.store.ListTrainsForOperator(c.Request.Context(), caller(c).UserID, model.TrainAvailable)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(trains))
}

// ListAllAvailableTrains lists every Available train, optionally only those serving ?route=.
func (h *Handler) ListAllAvailableTrains(c *gin.Context) {
	route := c.Query("route")
	if route != "" {
		normalised, err := parse.Destination(route)
		if err != nil {
			badRequest(c, err)
			return
		}
		route = normalised
	}

	trains, err := h.store.FindAvailableTrains(c.Request.Context(), route)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(trains))
}

// RailLines lists the distinct lines served by the caller's active trains.
func (h *Handler) RailLines(c *gin.Context) {
	trains, err := h.store.ListTrainsForOperator(c.Request.Context(), caller(c).UserID, "")
	if err != nil {
		abortWithError(c, err)
		return
	}

	var labels []string
	for _, t := range trains {
		labels = append(labels, t.Routes()...)
	}
	lines, err := parse.RouteList(labels)
	if err != nil {
		// No trains, no lines.
		lines = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"operable_lines": lines})
}

// ownTrain loads a train operated by the caller.
func (h *Handler) ownTrain(c *gin.Context) (*model.Train, bool) {
	train, err := h.store.FindTrainByID(c.Request.Context(), c.Param("id"))
	if err == nil && train.OperatorID != caller(c).UserID {
		err = store.ErrNotFound
	}
	if err != nil {
		abortWithError(c, err)
		return nil, false
	}
	return train, true
}

// TrainCapacityCost reports how full an owned train is and what it has earned.
func (h *Handler) TrainCapacityCost(c *gin.Context) {
	train, ok := h.ownTrain(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"train_id": train.ID,
		"current_capacity": gin.H{
			"current_weight":   train.CurrentWeight,
			"current_volume":   train.CurrentVolume,
			"max_weight":       train.MaxWeight,
			"max_volume":       train.MaxVolume,
			"remaining_weight": train.MaxWeight - train.CurrentWeight,
			"remaining_volume": train.MaxVolume - train.CurrentVolume,
		},
		"current_cost": train.Cost,
	})
}

type parcelSummary struct {
	ID          string  `json:"parcel_id"`
	Weight      float64 `json:"weight"`
	Volume      float64 `json:"volume"`
	Destination string  `json:"destination"`
}

// TrainStatus reports an owned train's state and the parcels on it.
func (h *Handler) TrainStatus(c *gin.Context) {
	train, ok := h.ownTrain(c)
	if !ok {
		return
	}
	parcels, err := h.store.ListParcelsForTrain(c.Request.Context(), train.ID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	summaries := make([]parcelSummary, 0, len(parcels))
	for _, p := range parcels {
		summaries = append(summaries, parcelSummary{ID: p.ID, Weight: p.Weight, Volume: p.Volume, Destination: p.Destination})
	}
	c.JSON(http.StatusOK, gin.H{
		"status":         train.Status,
		"assigned_line":  train.AssignedLine,
		"departure_time": train.DepartureTime,
		"parcels":        summaries,
	})
}

// GetTrain returns any train by id.
func (h *Handler) GetTrain(c *gin.Context) {
	train, err := h.store.FindTrainByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, train)
}

// WithdrawTrain takes an owned Available train off the market.
func (h *Handler) WithdrawTrain(c *gin.Context) {
	id := c.Param("id")
	if err := h.store.WithdrawTrain(c.Request.Context(), id, caller(c).UserID); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "train " + id + " has been withdrawn"})
}

type bookFillSendRequest struct {
	Line string `json:"line"`
}

// BookFillSend fills a train from the pool and sends it, then tells the
// owners of the shipped parcels.
func (h *Handler) BookFillSend(c *gin.Context) {
	var req bookFillSendRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}
	line := ""
	if req.Line != "" {
		normalised, err := parse.Destination(req.Line)
		if err != nil {
			badRequest(c, err)
			return
		}
		line = normalised
	}

	d, err := h.engine.BookFillSend(c.Request.Context(), c.Param("id"), caller(c).UserID, line)
	if err != nil {
		abortWithError(c, err)
		return
	}

	if h.notifier != nil {
		for _, job := range notification.ShipmentJobs(d.Train, d.Parcels) {
			h.notifier.Dispatch(job)
		}
	}
	logger.Get().Debug("shipment notifications queued", zap.String("train_id", d.Train.ID), zap.Int("parcels", len(d.Parcels)))

	c.JSON(http.StatusCreated, d)
}

func nonNil(trains []model.Train) []model.Train {
	if trains == nil {
		return []model.Train{}
	}
	return trains
}
