package sweeper

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"longmail-backend/internal/db/dbtest"
	"longmail-backend/internal/engine"
	"longmail-backend/internal/lock"
	"longmail-backend/internal/model"
	"longmail-backend/internal/store"
)

func seed(t *testing.T) (store.Store, *engine.Engine) {
	t.Helper()
	ctx := context.Background()
	s := store.NewGormStore(dbtest.NewSQLite(t))

	for _, tr := range []*model.Train{
		model.NewTrain("op-1", 1, 1, 10, 10, []string{"A"}),
		model.NewTrain("op-2", 1, 1, 10, 10, []string{"A"}),
	} {
		require.NoError(t, s.CreateTrain(ctx, tr))
	}
	sent := model.NewTrain("op-3", 0, 0, 100, 100, []string{"A"})
	sent.Status = model.TrainSent
	require.NoError(t, s.CreateTrain(ctx, sent))

	for range 3 {
		require.NoError(t, s.CreateParcel(ctx, model.NewParcel("owner", 6, 1, "A")))
	}
	return s, engine.New(s, s, lock.NewLocalLocker(), nil, engine.Options{})
}

func TestSweepOnce(t *testing.T) {
	ctx := context.Background()
	s, e := seed(t)

	// Each open train fits one 6kg parcel; the sent train takes none.
	admitted := NewService(time.Minute, s, e).SweepOnce(ctx)
	assert.Equal(t, 2, admitted)

	pool, err := s.FindUnassignedActiveParcels(ctx)
	require.NoError(t, err)
	assert.Len(t, pool, 1)

	assert.Zero(t, NewService(time.Minute, s, e).SweepOnce(ctx))
}

func TestSweepOnce_OnChange(t *testing.T) {
	ctx := context.Background()
	s, e := seed(t)

	changes := 0
	svc := NewService(time.Minute, s, e).OnChange(func() { changes++ })

	assert.Equal(t, 2, svc.SweepOnce(ctx))
	assert.Equal(t, 1, changes)

	// Nothing admitted, nothing to invalidate.
	assert.Zero(t, svc.SweepOnce(ctx))
	assert.Equal(t, 1, changes)
}

type flakyAssigner struct {
	calls atomic.Int32
}

func (f *flakyAssigner) AssignParcelsToTrain(ctx context.Context, train *model.Train) (*engine.Result, error) {
	if f.calls.Add(1) == 1 {
		return nil, errors.New("deadlock detected")
	}
	return &engine.Result{Admitted: []string{"p"}}, nil
}

func TestSweepOnce_ContinuesPastFailures(t *testing.T) {
	s, _ := seed(t)
	a := &flakyAssigner{}

	assert.Equal(t, 1, NewService(time.Minute, s, a).SweepOnce(context.Background()))
	assert.Equal(t, int32(2), a.calls.Load())
}

func TestRun(t *testing.T) {
	t.Run("disabled returns at once", func(t *testing.T) {
		done := make(chan struct{})
		go func() {
			NewService(0, nil, nil).Run(context.Background())
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("Run did not return")
		}
	})

	t.Run("sweeps until cancelled", func(t *testing.T) {
		s, _ := seed(t)
		a := &flakyAssigner{}
		ctx, cancel := context.WithCancel(context.Background())

		done := make(chan struct{})
		go func() {
			NewService(10*time.Millisecond, s, a).Run(ctx)
			close(done)
		}()

		assert.Eventually(t, func() bool { return a.calls.Load() >= 4 }, time.Second, 5*time.Millisecond)
		cancel()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("Run did not stop")
		}
	})
}
