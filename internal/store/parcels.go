package store

import (
	"context"
	"fmt"

	"longmail-backend/internal/model"
)

func (s *gormStore) CreateParcel(ctx context.Context, p *model.Parcel) error {
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("failed to create parcel: %w", err)
	}
	return nil
}

func (s *gormStore) UpdateParcel(ctx context.Context, p *model.Parcel) error {
	if err := s.db.WithContext(ctx).Save(p).Error; err != nil {
		return fmt.Errorf("failed to update parcel %s: %w", p.ID, err)
	}
	return nil
}

func (s *gormStore) FindParcelForOwner(ctx context.Context, id, ownerID string) (*model.Parcel, error) {
	var p model.Parcel
	err := s.db.WithContext(ctx).
		Where("id = ? AND owner_id = ? AND is_active = ?", id, ownerID, true).
		First(&p).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (s *gormStore) ListParcelsForOwner(ctx context.Context, ownerID string) ([]model.Parcel, error) {
	var parcels []model.Parcel
	err := s.db.WithContext(ctx).
		Where("owner_id = ? AND is_active = ?", ownerID, true).
		Order("created_at ASC, id ASC").
		Find(&parcels).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list parcels for owner %s: %w", ownerID, err)
	}
	return parcels, nil
}

func (s *gormStore) ListParcelsForTrain(ctx context.Context, trainID string) ([]model.Parcel, error) {
	var parcels []model.Parcel
	err := s.db.WithContext(ctx).
		Where("train_id = ?", trainID).
		Order("created_at ASC, id ASC").
		Find(&parcels).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list parcels for train %s: %w", trainID, err)
	}
	return parcels, nil
}

// FindUnassignedActiveParcels returns the global pool of parcels no train has claimed.
func (s *gormStore) FindUnassignedActiveParcels(ctx context.Context) ([]model.Parcel, error) {
	var parcels []model.Parcel
	err := s.db.WithContext(ctx).
		Where("train_id IS NULL AND is_active = ?", true).
		Order("created_at ASC, id ASC").
		Find(&parcels).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch unassigned parcels: %w", err)
	}
	return parcels, nil
}

// WithdrawParcel soft-deletes a parcel that no train has claimed yet.
func (s *gormStore) WithdrawParcel(ctx context.Context, id, ownerID string) error {
	res := s.db.WithContext(ctx).
		Model(&model.Parcel{}).
		Where("id = ? AND owner_id = ? AND is_active = ? AND train_id IS NULL", id, ownerID, true).
		Update("is_active", false)
	if res.Error != nil {
		return fmt.Errorf("failed to withdraw parcel %s: %w", id, res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}

	// Nothing changed: tell a missing parcel apart from an assigned one.
	p, err := s.FindParcelForOwner(ctx, id, ownerID)
	if err != nil {
		return err
	}
	if p.Assigned() {
		return ErrParcelAssigned
	}
	return fmt.Errorf("failed to withdraw parcel %s: no rows updated", id)
}
