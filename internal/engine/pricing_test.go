package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"longmail-backend/internal/model"
)

func TestShippingCost(t *testing.T) {
	train := model.Train{WeightCostFactor: 2, VolumeCostFactor: 1}

	tests := []struct {
		name   string
		parcel model.Parcel
		want   float64
	}{
		{"weight and volume", model.Parcel{Weight: 10, Volume: 10}, 30},
		{"heavy", model.Parcel{Weight: 95, Volume: 5}, 195},
		{"small", model.Parcel{Weight: 5, Volume: 5}, 15},
		{"empty", model.Parcel{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShippingCost(tt.parcel, train))
		})
	}
}

func quoteTrain(id string, wf, vf float64, status model.TrainStatus, routes ...string) model.Train {
	tr := model.NewTrain("op", wf, vf, 100, 100, routes)
	tr.ID = id
	tr.Status = status
	return *tr
}

func TestMinimalCostForParcel(t *testing.T) {
	parcel := model.Parcel{Weight: 10, Volume: 4, Destination: "B"}

	t.Run("cheapest serving train wins", func(t *testing.T) {
		trains := []model.Train{
			quoteTrain("t1", 3, 3, model.TrainAvailable, "A", "B"),
			quoteTrain("t2", 1, 1, model.TrainAvailable, "A"),
			quoteTrain("t3", 2, 1, model.TrainAvailable, "B"),
		}
		q, err := MinimalCostForParcel(parcel, trains)
		require.NoError(t, err)
		assert.Equal(t, Quote{Cost: 24, TrainID: "t3"}, q)
	})

	t.Run("first train wins a tie", func(t *testing.T) {
		trains := []model.Train{
			quoteTrain("t1", 1, 1, model.TrainAvailable, "B"),
			quoteTrain("t2", 1, 1, model.TrainAvailable, "B"),
		}
		q, err := MinimalCostForParcel(parcel, trains)
		require.NoError(t, err)
		assert.Equal(t, "t1", q.TrainID)
	})

	t.Run("booked and inactive trains are ignored", func(t *testing.T) {
		inactive := quoteTrain("t3", 0, 0, model.TrainAvailable, "B")
		inactive.IsActive = false
		trains := []model.Train{
			quoteTrain("t1", 0, 0, model.TrainBooked, "B"),
			quoteTrain("t2", 5, 5, model.TrainAvailable, "B"),
			inactive,
		}
		q, err := MinimalCostForParcel(parcel, trains)
		require.NoError(t, err)
		assert.Equal(t, Quote{Cost: 70, TrainID: "t2"}, q)
	})

	t.Run("no train serves the destination", func(t *testing.T) {
		trains := []model.Train{quoteTrain("t1", 1, 1, model.TrainAvailable, "A")}
		_, err := MinimalCostForParcel(parcel, trains)
		assert.ErrorIs(t, err, ErrNoViableTrain)
	})

	t.Run("no trains at all", func(t *testing.T) {
		_, err := MinimalCostForParcel(parcel, nil)
		assert.ErrorIs(t, err, ErrNoViableTrain)
	})
}
