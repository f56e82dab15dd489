package engine

import (
	"errors"

	"longmail-backend/internal/model"
)

// ErrNoViableTrain is returned when no available train serves a parcel's destination.
var ErrNoViableTrain = errors.New("no available train serves the destination")

// ShippingCost prices a parcel on a train. It is the single pricing primitive;
// every other cost figure is a sum of its results.
func ShippingCost(parcel model.Parcel, train model.Train) float64 {
	return parcel.Weight*train.WeightCostFactor + parcel.Volume*train.VolumeCostFactor
}

// Quote is the cheapest way found to ship a parcel.
type Quote struct {
	Cost    float64 `json:"minimal_shipping_cost"`
	TrainID string  `json:"by_train"`
}

// MinimalCostForParcel picks the cheapest active Available train among
// candidates whose routes include the parcel's destination. On equal cost the
// earlier candidate wins. It never mutates its inputs.
func MinimalCostForParcel(parcel model.Parcel, candidates []model.Train) (Quote, error) {
	var (
		best  Quote
		found bool
	)
	for _, t := range candidates {
		if t.Status != model.TrainAvailable || !t.IsActive || !t.ServesRoute(parcel.Destination) {
			continue
		}
		cost := ShippingCost(parcel, t)
		if !found || cost < best.Cost {
			best = Quote{Cost: cost, TrainID: t.ID}
			found = true
		}
	}
	if !found {
		return Quote{}, ErrNoViableTrain
	}
	return best, nil
}
