package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"longmail-backend/internal/model"
)

// assignableStatuses are the states in which a train still takes parcels.
var assignableStatuses = []string{string(model.TrainAvailable), string(model.TrainBooked)}

func (s *gormStore) CreateTrain(ctx context.Context, t *model.Train) error {
	if err := s.db.WithContext(ctx).Create(t).Error; err != nil {
		return fmt.Errorf("failed to create train: %w", err)
	}
	return nil
}

func (s *gormStore) UpdateTrain(ctx context.Context, t *model.Train) error {
	if err := s.db.WithContext(ctx).Save(t).Error; err != nil {
		return fmt.Errorf("failed to update train %s: %w", t.ID, err)
	}
	return nil
}

func (s *gormStore) FindTrainByID(ctx context.Context, id string) (*model.Train, error) {
	var t model.Train
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&t).Error; err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

func (s *gormStore) FindAvailableTrains(ctx context.Context, route string) ([]model.Train, error) {
	var trains []model.Train
	err := s.db.WithContext(ctx).
		Where("status = ? AND is_active = ?", string(model.TrainAvailable), true).
		Order("created_at ASC, id ASC").
		Find(&trains).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch available trains: %w", err)
	}
	if route == "" {
		return trains, nil
	}

	serving := trains[:0]
	for _, t := range trains {
		if t.ServesRoute(route) {
			serving = append(serving, t)
		}
	}
	return serving, nil
}

func (s *gormStore) ListAssignableTrains(ctx context.Context) ([]model.Train, error) {
	var trains []model.Train
	err := s.db.WithContext(ctx).
		Where("is_active = ? AND status IN ?", true, assignableStatuses).
		Order("created_at ASC, id ASC").
		Find(&trains).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list assignable trains: %w", err)
	}
	return trains, nil
}

func (s *gormStore) ListTrainsForOperator(ctx context.Context, operatorID string, status model.TrainStatus) ([]model.Train, error) {
	q := s.db.WithContext(ctx).Where("operator_id = ? AND is_active = ?", operatorID, true)
	if status != "" {
		q = q.Where("status = ?", string(status))
	}

	var trains []model.Train
	if err := q.Order("created_at ASC, id ASC").Find(&trains).Error; err != nil {
		return nil, fmt.Errorf("failed to list trains for operator %s: %w", operatorID, err)
	}
	return trains, nil
}

// AdmitParcel is one admission step of an assignment pass. The parcel claim is a
// compare-and-set on train_id, and the train increment is guarded by the capacity
// check, so concurrent passes can neither double-claim a parcel nor overfill a train.
func (s *gormStore) AdmitParcel(ctx context.Context, trainID string, parcel model.Parcel, cost float64, now time.Time) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		claim := tx.Model(&model.Parcel{}).
			Where("id = ? AND train_id IS NULL AND is_active = ?", parcel.ID, true).
			Updates(map[string]any{"train_id": trainID, "updated_at": now})
		if claim.Error != nil {
			return fmt.Errorf("failed to claim parcel %s: %w", parcel.ID, claim.Error)
		}
		if claim.RowsAffected == 0 {
			return ErrParcelClaimed
		}

		load := tx.Model(&model.Train{}).
			Where("id = ? AND is_active = ? AND status IN ?", trainID, true, assignableStatuses).
			Where("current_weight + ? <= max_weight AND current_volume + ? <= max_volume", parcel.Weight, parcel.Volume).
			Updates(map[string]any{
				"current_weight": gorm.Expr("current_weight + ?", parcel.Weight),
				"current_volume": gorm.Expr("current_volume + ?", parcel.Volume),
				"cost":           gorm.Expr("cost + ?", cost),
				"status":         string(model.TrainBooked),
				"updated_at":     now,
			})
		if load.Error != nil {
			return fmt.Errorf("failed to load parcel %s onto train %s: %w", parcel.ID, trainID, load.Error)
		}
		if load.RowsAffected == 0 {
			return ErrCapacityExceeded
		}
		return nil
	})
}

// DispatchTrain marks a booked train Sent and every parcel on it shipped.
func (s *gormStore) DispatchTrain(ctx context.Context, trainID string, line *string, now time.Time) (*model.Train, []model.Parcel, error) {
	var (
		train   model.Train
		parcels []model.Parcel
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]any{
			"status":         string(model.TrainSent),
			"departure_time": now,
			"updated_at":     now,
		}
		if line != nil {
			updates["assigned_line"] = *line
		}

		res := tx.Model(&model.Train{}).
			Where("id = ? AND is_active = ? AND status = ?", trainID, true, string(model.TrainBooked)).
			Updates(updates)
		if res.Error != nil {
			return fmt.Errorf("failed to dispatch train %s: %w", trainID, res.Error)
		}
		if res.RowsAffected == 0 {
			if err := tx.Where("id = ?", trainID).First(&train).Error; err != nil {
				return notFound(err)
			}
			return ErrTrainNotDispatchable
		}

		if err := tx.Model(&model.Parcel{}).
			Where("train_id = ?", trainID).
			Updates(map[string]any{"has_shipped": true, "updated_at": now}).Error; err != nil {
			return fmt.Errorf("failed to mark parcels shipped on train %s: %w", trainID, err)
		}

		if err := tx.Where("id = ?", trainID).First(&train).Error; err != nil {
			return notFound(err)
		}
		return tx.Where("train_id = ?", trainID).Order("created_at ASC, id ASC").Find(&parcels).Error
	})
	if err != nil {
		return nil, nil, err
	}
	return &train, parcels, nil
}

// WithdrawTrain takes an Available offer off the market. Trains in any other
// state are left untouched.
func (s *gormStore) WithdrawTrain(ctx context.Context, id, operatorID string) error {
	res := s.db.WithContext(ctx).
		Model(&model.Train{}).
		Where("id = ? AND operator_id = ? AND is_active = ? AND status = ?", id, operatorID, true, string(model.TrainAvailable)).
		Updates(map[string]any{"is_active": false, "status": string(model.TrainUnavailable)})
	if res.Error != nil {
		return fmt.Errorf("failed to withdraw train %s: %w", id, res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}

	var t model.Train
	err := s.db.WithContext(ctx).Where("id = ? AND operator_id = ?", id, operatorID).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to look up train %s: %w", id, err)
	}
	return ErrTrainNotWithdrawable
}
