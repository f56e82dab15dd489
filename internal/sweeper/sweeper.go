// Package sweeper runs assignment passes over every open train on a timer.
package sweeper

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"longmail-backend/internal/engine"
	"longmail-backend/internal/logger"
	"longmail-backend/internal/model"
	"longmail-backend/internal/store"
)

// Assigner runs one assignment pass for a train.
type Assigner interface {
	AssignParcelsToTrain(ctx context.Context, train *model.Train) (*engine.Result, error)
}

// Service keeps open trains topped up between book-fill-send calls.
type Service struct {
	interval time.Duration
	trains   store.TrainStore
	assigner Assigner
	onChange func()
}

// NewService creates a sweeper. A non-positive interval makes Run return at once.
func NewService(interval time.Duration, trains store.TrainStore, assigner Assigner) *Service {
	return &Service{interval: interval, trains: trains, assigner: assigner}
}

// OnChange registers fn to run after a sweep that admitted at least one
// parcel. It is how cached reads learn about writes made outside HTTP.
func (s *Service) OnChange(fn func()) *Service {
	s.onChange = fn
	return s
}

// Run sweeps once, then again every interval until ctx is done.
func (s *Service) Run(ctx context.Context) {
	log := logger.Get()
	if s.interval <= 0 {
		log.Info("assignment sweeper is disabled")
		return
	}
	log.Info("starting assignment sweeper", zap.Duration("interval", s.interval))

	s.SweepOnce(ctx)

	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("assignment sweeper shutting down")
			return
		case <-timer.C:
			s.SweepOnce(ctx)
			timer.Reset(s.interval)
		}
	}
}

// SweepOnce runs a pass for every open train, oldest first, and returns how
// many parcels were admitted. A failing train is logged and skipped.
func (s *Service) SweepOnce(ctx context.Context) int {
	log := logger.Get()

	trains, err := s.trains.ListAssignableTrains(ctx)
	if err != nil {
		log.Error("sweep aborted, could not list trains", zap.Error(err))
		return 0
	}

	admitted := 0
	for i := range trains {
		if ctx.Err() != nil {
			break
		}
		res, err := s.assigner.AssignParcelsToTrain(ctx, &trains[i])
		if res != nil {
			admitted += len(res.Admitted)
		}
		switch {
		case errors.Is(err, engine.ErrTrainNotAssignable):
			// Sent or withdrawn since the listing.
		case err != nil:
			log.Warn("sweep pass failed", zap.String("train_id", trains[i].ID), zap.Error(err))
		}
	}

	if admitted > 0 && s.onChange != nil {
		s.onChange()
	}

	log.Debug("sweep finished", zap.Int("trains", len(trains)), zap.Int("admitted", admitted))
	return admitted
}
