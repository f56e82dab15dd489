package internal

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"longmail-backend/internal/db/dbtest"
	"longmail-backend/internal/engine"
	"longmail-backend/internal/lock"
	"longmail-backend/internal/model"
	"longmail-backend/internal/notification"
	"longmail-backend/internal/store"
	"longmail-backend/internal/sweeper"
)

// TestShipmentLifecycle drives parcels from the pool onto two trains with the
// background sweeper, sends both trains at once and checks the database at
// each step.
func TestShipmentLifecycle(t *testing.T) {
	ctx := context.Background()

	// --- Setup ---
	s := store.NewGormStore(dbtest.NewSQLite(t))

	mr := miniredis.RunT(t)
	locker, err := lock.NewRedisLocker("redis://"+mr.Addr(), 5*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { locker.Close() })

	e := engine.New(s, s, locker, nil, engine.Options{EnforceDestination: true})

	north := model.NewTrain("op-1", 1, 0, 20, 100, []string{"North"})
	south := model.NewTrain("op-2", 1, 0, 20, 100, []string{"South"})
	require.NoError(t, s.CreateTrain(ctx, north))
	require.NoError(t, s.CreateTrain(ctx, south))

	weights := map[string]float64{}
	addParcel := func(owner string, weight float64, dest string) {
		p := model.NewParcel(owner, weight, 1, dest)
		require.NoError(t, s.CreateParcel(ctx, p))
		weights[p.ID] = weight
	}
	for _, w := range []float64{5, 5, 5, 10} {
		addParcel("owner-north", w, "North")
	}
	for _, w := range []float64{8, 8, 8} {
		addParcel("owner-south", w, "South")
	}

	// --- Step 1: the sweeper pre-loads both trains ---
	admitted := sweeper.NewService(time.Minute, s, e).SweepOnce(ctx)
	assert.Equal(t, 5, admitted)

	for _, tc := range []struct {
		train  *model.Train
		weight float64
		dest   string
	}{
		{north, 15, "North"},
		{south, 16, "South"},
	} {
		stored, err := s.FindTrainByID(ctx, tc.train.ID)
		require.NoError(t, err)
		assert.Equal(t, model.TrainBooked, stored.Status)
		assert.Equal(t, tc.weight, stored.CurrentWeight)
		assert.Equal(t, tc.weight, stored.Cost)

		onTrain, err := s.ListParcelsForTrain(ctx, tc.train.ID)
		require.NoError(t, err)
		for _, p := range onTrain {
			assert.Equal(t, tc.dest, p.Destination)
		}
	}

	// --- Step 2: both trains are sent concurrently ---
	dispatches := make([]*engine.Dispatch, 2)
	var wg sync.WaitGroup
	for i, tr := range []*model.Train{north, south} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := e.BookFillSend(ctx, tr.ID, "post-master", "")
			if assert.NoError(t, err) {
				dispatches[i] = d
			}
		}()
	}
	wg.Wait()
	require.NotNil(t, dispatches[0])
	require.NotNil(t, dispatches[1])

	seen := map[string]bool{}
	var jobs []notification.Job
	for _, d := range dispatches {
		assert.Equal(t, model.TrainSent, d.Train.Status)
		assert.NotNil(t, d.Train.DepartureTime)
		assert.LessOrEqual(t, d.Train.CurrentWeight, d.Train.MaxWeight)

		var sum float64
		for _, p := range d.Parcels {
			assert.False(t, seen[p.ID], "parcel %s on two trains", p.ID)
			seen[p.ID] = true
			assert.True(t, p.HasShipped)
			sum += weights[p.ID]
		}
		assert.Equal(t, sum, d.Train.CurrentWeight)
		jobs = append(jobs, notification.ShipmentJobs(d.Train, d.Parcels)...)
	}
	assert.Len(t, seen, 5)
	assert.Len(t, jobs, 5)

	// --- Step 3: what did not fit waits for the next train ---
	pool, err := s.FindUnassignedActiveParcels(ctx)
	require.NoError(t, err)
	require.Len(t, pool, 2)
	for _, p := range pool {
		assert.False(t, p.HasShipped)
		assert.Contains(t, []float64{10, 8}, p.Weight)
	}

	assert.Zero(t, sweeper.NewService(time.Minute, s, e).SweepOnce(ctx), "sent trains take nothing more")
	assert.Empty(t, mr.Keys(), "every train lock was released")
}
