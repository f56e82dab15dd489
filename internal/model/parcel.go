package model

// Parcel is a shipment request submitted by its owner.
type Parcel struct {
	Base
	OwnerID     string  `gorm:"size:36;not null;index" json:"owner_id"`
	Weight      float64 `gorm:"not null" json:"weight"`
	Volume      float64 `gorm:"not null" json:"volume"`
	Destination string  `gorm:"size:128;not null" json:"destination"`
	HasShipped  bool    `gorm:"not null" json:"has_shipped"`
	TrainID     *string `gorm:"size:36;index" json:"train_id"`
}

// NewParcel returns an active, unassigned parcel.
func NewParcel(ownerID string, weight, volume float64, destination string) *Parcel {
	return &Parcel{
		Base:        Base{IsActive: true},
		OwnerID:     ownerID,
		Weight:      weight,
		Volume:      volume,
		Destination: destination,
	}
}

// Assigned reports whether a train has claimed the parcel.
func (p *Parcel) Assigned() bool {
	return p.TrainID != nil && *p.TrainID != ""
}
