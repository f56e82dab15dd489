package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"longmail-backend/internal/model"
)

var (
	ErrNotFound             = errors.New("record not found")
	ErrParcelClaimed        = errors.New("parcel already claimed by a train")
	ErrCapacityExceeded     = errors.New("train capacity exceeded")
	ErrParcelAssigned       = errors.New("parcel is already assigned to a train")
	ErrTrainNotWithdrawable = errors.New("only an available train can be withdrawn")
	ErrTrainNotDispatchable = errors.New("only a booked train can be dispatched")
	ErrUsernameTaken        = errors.New("username already registered")
)

// UserStore persists user accounts.
type UserStore interface {
	CreateUser(ctx context.Context, u *model.User) error
	FindUserByUsername(ctx context.Context, username string) (*model.User, error)
	FindUserByID(ctx context.Context, id string) (*model.User, error)
}

// ParcelStore persists parcels. Every query except by-train lookups skips withdrawn parcels.
type ParcelStore interface {
	CreateParcel(ctx context.Context, p *model.Parcel) error
	UpdateParcel(ctx context.Context, p *model.Parcel) error
	FindParcelForOwner(ctx context.Context, id, ownerID string) (*model.Parcel, error)
	ListParcelsForOwner(ctx context.Context, ownerID string) ([]model.Parcel, error)
	ListParcelsForTrain(ctx context.Context, trainID string) ([]model.Parcel, error)
	FindUnassignedActiveParcels(ctx context.Context) ([]model.Parcel, error)
	WithdrawParcel(ctx context.Context, id, ownerID string) error
}

// TrainStore persists train offers.
type TrainStore interface {
	CreateTrain(ctx context.Context, t *model.Train) error
	UpdateTrain(ctx context.Context, t *model.Train) error
	FindTrainByID(ctx context.Context, id string) (*model.Train, error)
	// FindAvailableTrains lists active Available trains; a non-empty route keeps
	// only trains serving it.
	FindAvailableTrains(ctx context.Context, route string) ([]model.Train, error)
	// ListAssignableTrains lists active trains that still take parcels, oldest first.
	ListAssignableTrains(ctx context.Context) ([]model.Train, error)
	// ListTrainsForOperator lists the operator's active trains; an empty status matches all.
	ListTrainsForOperator(ctx context.Context, operatorID string, status model.TrainStatus) ([]model.Train, error)
	// AdmitParcel claims parcel for the train and adds its size and cost to the
	// train in a single transaction.
	AdmitParcel(ctx context.Context, trainID string, parcel model.Parcel, cost float64, now time.Time) error
	DispatchTrain(ctx context.Context, trainID string, line *string, now time.Time) (*model.Train, []model.Parcel, error)
	WithdrawTrain(ctx context.Context, id, operatorID string) error
}

// SubscriptionStore persists web push subscriptions.
type SubscriptionStore interface {
	SaveSubscription(ctx context.Context, sub *model.PushSubscription) error
	ListSubscriptions(ctx context.Context, userID string) ([]model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, endpoint string) error
}

// Store defines the interface for all database operations.
type Store interface {
	UserStore
	ParcelStore
	TrainStore
	SubscriptionStore
	DB() *gorm.DB
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// DB exposes the underlying connection for migrations and tests.
func (s *gormStore) DB() *gorm.DB {
	return s.db
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
