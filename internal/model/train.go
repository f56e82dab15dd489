package model

import (
	"slices"
	"strings"
	"time"
)

// TrainStatus is the booking state of a train offer.
type TrainStatus string

const (
	TrainAvailable   TrainStatus = "Available"
	TrainBooked      TrainStatus = "Booked"
	TrainSent        TrainStatus = "Sent"
	TrainUnavailable TrainStatus = "Unavailable"
)

// Train is a transport capacity offer posted by an operator.
type Train struct {
	Base
	OperatorID       string      `gorm:"size:36;not null;index" json:"operator_id"`
	WeightCostFactor float64     `gorm:"not null" json:"weight_cost_factor"`
	VolumeCostFactor float64     `gorm:"not null" json:"volume_cost_factor"`
	Cost             float64     `gorm:"not null;default:0" json:"cost"`
	MaxWeight        float64     `gorm:"not null" json:"max_weight"`
	MaxVolume        float64     `gorm:"not null" json:"max_volume"`
	CurrentWeight    float64     `gorm:"not null;default:0" json:"current_weight"`
	CurrentVolume    float64     `gorm:"not null;default:0" json:"current_volume"`
	AvailableLines   string      `gorm:"not null" json:"available_lines"`
	AssignedLine     *string     `gorm:"size:128" json:"assigned_line"`
	Status           TrainStatus `gorm:"size:16;not null;index" json:"status"`
	DepartureTime    *time.Time  `json:"departure_time"`
}

// NewTrain returns an active Available offer. lines must already be normalised.
func NewTrain(operatorID string, weightFactor, volumeFactor, maxWeight, maxVolume float64, lines []string) *Train {
	return &Train{
		Base:             Base{IsActive: true},
		OperatorID:       operatorID,
		WeightCostFactor: weightFactor,
		VolumeCostFactor: volumeFactor,
		MaxWeight:        maxWeight,
		MaxVolume:        maxVolume,
		AvailableLines:   strings.Join(lines, ","),
		Status:           TrainAvailable,
	}
}

// Routes returns the route labels the train serves.
func (t *Train) Routes() []string {
	if t.AvailableLines == "" {
		return nil
	}
	return strings.Split(t.AvailableLines, ",")
}

// ServesRoute reports whether route is one of the train's routes.
func (t *Train) ServesRoute(route string) bool {
	return slices.Contains(t.Routes(), route)
}

// Fits reports whether a parcel of the given size still fits.
func (t *Train) Fits(weight, volume float64) bool {
	return t.CurrentWeight+weight <= t.MaxWeight && t.CurrentVolume+volume <= t.MaxVolume
}
