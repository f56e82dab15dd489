package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"longmail-backend/internal/model"
	"longmail-backend/internal/store"
)

func TestBookFillSend(t *testing.T) {
	ctx := context.Background()
	e, s := newTestEngine(t, Options{})

	train := createTrain(t, s, "op-1", 2, 1, 100, 100, "A", "B")
	createParcel(t, s, "p1", 10, 10, "A", 0)
	createParcel(t, s, "p2", 95, 5, "A", 1)
	createParcel(t, s, "p3", 5, 5, "B", 2)

	d, err := e.BookFillSend(ctx, train.ID, "pm-1", "B")
	require.NoError(t, err)

	assert.Equal(t, model.TrainSent, d.Train.Status)
	require.NotNil(t, d.Train.AssignedLine)
	assert.Equal(t, "B", *d.Train.AssignedLine)
	assert.NotNil(t, d.Train.DepartureTime)
	assert.Equal(t, 45.0, d.Train.Cost)
	assert.Equal(t, 15.0, d.Train.CurrentWeight)
	assert.Equal(t, []string{"p3", "p1"}, d.Assignment.Admitted)

	require.Len(t, d.Parcels, 2)
	for _, p := range d.Parcels {
		assert.True(t, p.HasShipped)
	}

	// p2 stays in the pool for the next train.
	pool, err := s.FindUnassignedActiveParcels(ctx)
	require.NoError(t, err)
	require.Len(t, pool, 1)
	assert.Equal(t, "p2", pool[0].ID)

	_, err = e.BookFillSend(ctx, train.ID, "pm-1", "")
	assert.ErrorIs(t, err, ErrTrainNotAssignable)
}

func TestBookFillSend_AlreadyBookedTrain(t *testing.T) {
	ctx := context.Background()
	e, s := newTestEngine(t, Options{})

	train := createTrain(t, s, "op-1", 1, 1, 100, 100, "A")
	createParcel(t, s, "p1", 10, 10, "A", 0)
	_, err := e.AssignParcelsToTrain(ctx, train)
	require.NoError(t, err)

	// Nothing new to load, but the train already carries p1.
	d, err := e.BookFillSend(ctx, train.ID, "pm-1", "")
	require.NoError(t, err)
	assert.Empty(t, d.Assignment.Admitted)
	assert.Equal(t, model.TrainSent, d.Train.Status)
	assert.Nil(t, d.Train.AssignedLine)
	require.Len(t, d.Parcels, 1)
	assert.True(t, d.Parcels[0].HasShipped)
}

func TestBookFillSend_NothingToShip(t *testing.T) {
	ctx := context.Background()
	e, s := newTestEngine(t, Options{})
	train := createTrain(t, s, "op-1", 1, 1, 100, 100, "A")

	_, err := e.BookFillSend(ctx, train.ID, "pm-1", "")
	assert.ErrorIs(t, err, ErrNothingToShip)

	stored, err := s.FindTrainByID(ctx, train.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TrainAvailable, stored.Status)
	assert.Nil(t, stored.DepartureTime)
}

func TestBookFillSend_Rejections(t *testing.T) {
	ctx := context.Background()
	e, s := newTestEngine(t, Options{})
	train := createTrain(t, s, "op-1", 1, 1, 100, 100, "A")
	createParcel(t, s, "p1", 1, 1, "A", 0)

	t.Run("own train", func(t *testing.T) {
		_, err := e.BookFillSend(ctx, train.ID, "op-1", "")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("unknown train", func(t *testing.T) {
		_, err := e.BookFillSend(ctx, "missing", "pm-1", "")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("line not served", func(t *testing.T) {
		_, err := e.BookFillSend(ctx, train.ID, "pm-1", "Z")
		assert.ErrorIs(t, err, ErrLineNotServed)
	})

	t.Run("withdrawn train", func(t *testing.T) {
		withdrawn := createTrain(t, s, "op-2", 1, 1, 100, 100, "A")
		require.NoError(t, s.WithdrawTrain(ctx, withdrawn.ID, "op-2"))
		_, err := e.BookFillSend(ctx, withdrawn.ID, "pm-1", "")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	// None of the rejections touched the pool.
	pool, err := s.FindUnassignedActiveParcels(ctx)
	require.NoError(t, err)
	assert.Len(t, pool, 1)
}
