package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"longmail-backend/internal/logger"
	"longmail-backend/internal/model"
	"longmail-backend/internal/store"
)

// Dispatch is the outcome of BookFillSend.
type Dispatch struct {
	Train      *model.Train   `json:"train"`
	Parcels    []model.Parcel `json:"parcels"`
	Assignment *Result        `json:"assignment"`
}

// BookFillSend books a train for a post master, fills it with an assignment
// pass and sends it. line, when set, must be one of the train's routes. A
// train left empty by the pass is not sent.
func (e *Engine) BookFillSend(ctx context.Context, trainID, postMasterID, line string) (d *Dispatch, err error) {
	defer logger.Time("book_fill_send", zap.String("train_id", trainID))(&err)

	start := time.Now()
	unlock, err := e.locker.Lock(ctx, trainLockKey(trainID))
	if err != nil {
		return nil, fmt.Errorf("lock train %s: %w", trainID, err)
	}
	defer unlock()

	train, err := e.trains.FindTrainByID(ctx, trainID)
	if err != nil {
		return nil, err
	}
	// A post master cannot book a train they operate themselves.
	if !train.IsActive || train.OperatorID == postMasterID {
		return nil, store.ErrNotFound
	}
	if !assignable(train) {
		return nil, ErrTrainNotAssignable
	}

	var linePtr *string
	if line != "" {
		if !train.ServesRoute(line) {
			return nil, ErrLineNotServed
		}
		linePtr = &line
	}

	res, err := e.assignLocked(ctx, train, start)
	if err != nil {
		return nil, err
	}
	if train.Status != model.TrainBooked {
		return nil, ErrNothingToShip
	}

	sent, parcels, err := e.trains.DispatchTrain(ctx, train.ID, linePtr, e.now())
	if err != nil {
		return nil, fmt.Errorf("dispatch train %s: %w", train.ID, err)
	}

	logger.Get().Info("train sent",
		zap.String("train_id", sent.ID),
		zap.String("post_master_id", postMasterID),
		zap.Int("parcels", len(parcels)),
		zap.Float64("cost", sent.Cost),
	)
	return &Dispatch{Train: sent, Parcels: parcels, Assignment: res}, nil
}
