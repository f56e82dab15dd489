package engine

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"longmail-backend/internal/lock"
	"longmail-backend/internal/logger"
	"longmail-backend/internal/metrics"
	"longmail-backend/internal/model"
	"longmail-backend/internal/store"
)

var (
	ErrTrainNotAssignable = errors.New("train no longer takes parcels")
	ErrNothingToShip      = errors.New("train holds no parcels")
	ErrLineNotServed      = errors.New("train does not serve the requested line")
)

// Options tunes the assignment pass.
type Options struct {
	// EnforceDestination drops candidates whose destination is not one of the
	// train's routes. Off, every unassigned parcel is a candidate.
	EnforceDestination bool
}

// Engine loads unassigned parcels onto trains and prices shipments.
type Engine struct {
	parcels store.ParcelStore
	trains  store.TrainStore
	locker  lock.Locker
	metrics *metrics.Assignment
	opts    Options
	now     func() time.Time
}

// New creates an Engine. m may be nil.
func New(parcels store.ParcelStore, trains store.TrainStore, locker lock.Locker, m *metrics.Assignment, opts Options) *Engine {
	return &Engine{
		parcels: parcels,
		trains:  trains,
		locker:  locker,
		metrics: m,
		opts:    opts,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Result summarises one assignment pass.
type Result struct {
	Admitted           []string `json:"admitted"`
	Cost               float64  `json:"cost"`
	SkippedCapacity    int      `json:"skipped_capacity"`
	SkippedClaimed     int      `json:"skipped_claimed"`
	SkippedDestination int      `json:"skipped_destination"`
}

type candidate struct {
	parcel model.Parcel
	cost   float64
}

func trainLockKey(trainID string) string {
	return "train:" + trainID
}

// AssignParcelsToTrain runs one greedy pass: every unassigned parcel is priced
// for train, the candidates are walked once in ascending cost, and each parcel
// that still fits is admitted. Rejected parcels stay in the pool for other
// trains. Each admission commits on its own, so an error part way leaves the
// earlier admissions in place.
//
// train is reloaded under the train lock and updated in place as parcels are admitted.
func (e *Engine) AssignParcelsToTrain(ctx context.Context, train *model.Train) (res *Result, err error) {
	defer logger.Time("assign_parcels", zap.String("train_id", train.ID))(&err)

	start := time.Now()
	unlock, err := e.locker.Lock(ctx, trainLockKey(train.ID))
	if err != nil {
		return nil, fmt.Errorf("lock train %s: %w", train.ID, err)
	}
	defer unlock()

	return e.assignLocked(ctx, train, start)
}

// assignLocked runs the pass with the train lock held. start is taken before
// the lock was requested, so the recorded duration includes the wait.
func (e *Engine) assignLocked(ctx context.Context, train *model.Train, start time.Time) (*Result, error) {
	res := &Result{}

	err := e.pass(ctx, train, res)

	result := metrics.ResultOK
	if err != nil {
		result = metrics.ResultError
	}
	e.metrics.ObservePass(result, time.Since(start))

	logger.Get().Info("assignment pass finished",
		zap.String("train_id", train.ID),
		zap.Int("admitted", len(res.Admitted)),
		zap.Float64("cost", res.Cost),
		zap.Int("skipped_capacity", res.SkippedCapacity),
		zap.Int("skipped_claimed", res.SkippedClaimed),
		zap.Int("skipped_destination", res.SkippedDestination),
		zap.Error(err),
	)
	return res, err
}

func (e *Engine) pass(ctx context.Context, train *model.Train, res *Result) error {
	fresh, err := e.trains.FindTrainByID(ctx, train.ID)
	if err != nil {
		return fmt.Errorf("reload train %s: %w", train.ID, err)
	}
	*train = *fresh
	if !assignable(train) {
		return ErrTrainNotAssignable
	}

	pool, err := e.parcels.FindUnassignedActiveParcels(ctx)
	if err != nil {
		return fmt.Errorf("fetch unassigned parcels: %w", err)
	}

	candidates, wrongRoute := e.rank(pool, *train)
	res.SkippedDestination = wrongRoute
	for range wrongRoute {
		e.metrics.Skipped(metrics.SkipDestination)
	}

	// The order fixed above holds for the whole pass.
	for _, c := range candidates {
		if !train.Fits(c.parcel.Weight, c.parcel.Volume) {
			res.SkippedCapacity++
			e.metrics.Skipped(metrics.SkipCapacity)
			continue
		}

		now := e.now()
		err := e.trains.AdmitParcel(ctx, train.ID, c.parcel, c.cost, now)
		switch {
		case errors.Is(err, store.ErrParcelClaimed):
			res.SkippedClaimed++
			e.metrics.Skipped(metrics.SkipClaimed)
			continue
		case errors.Is(err, store.ErrCapacityExceeded):
			res.SkippedCapacity++
			e.metrics.Skipped(metrics.SkipCapacity)
			continue
		case err != nil:
			return fmt.Errorf("admit parcel %s onto train %s: %w", c.parcel.ID, train.ID, err)
		}

		train.CurrentWeight += c.parcel.Weight
		train.CurrentVolume += c.parcel.Volume
		train.Cost += c.cost
		train.Status = model.TrainBooked
		train.UpdatedAt = now

		res.Admitted = append(res.Admitted, c.parcel.ID)
		res.Cost += c.cost
		e.metrics.Admitted(c.cost)
	}
	return nil
}

// rank prices the pool for train and orders it cheapest first. Equal costs
// fall back to parcel age, then parcel id.
func (e *Engine) rank(pool []model.Parcel, train model.Train) ([]candidate, int) {
	candidates := make([]candidate, 0, len(pool))
	wrongRoute := 0
	for _, p := range pool {
		if e.opts.EnforceDestination && !train.ServesRoute(p.Destination) {
			wrongRoute++
			continue
		}
		candidates = append(candidates, candidate{parcel: p, cost: ShippingCost(p, train)})
	}

	slices.SortStableFunc(candidates, func(a, b candidate) int {
		if c := cmp.Compare(a.cost, b.cost); c != 0 {
			return c
		}
		if c := a.parcel.CreatedAt.Compare(b.parcel.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.parcel.ID, b.parcel.ID)
	})
	return candidates, wrongRoute
}

func assignable(t *model.Train) bool {
	return t.IsActive && (t.Status == model.TrainAvailable || t.Status == model.TrainBooked)
}

// QuoteParcel finds the cheapest Available train for parcel.
func (e *Engine) QuoteParcel(ctx context.Context, parcel model.Parcel) (Quote, error) {
	trains, err := e.trains.FindAvailableTrains(ctx, parcel.Destination)
	if err != nil {
		return Quote{}, err
	}
	return MinimalCostForParcel(parcel, trains)
}
