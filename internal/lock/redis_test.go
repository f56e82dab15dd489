package lock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisLocker(t *testing.T, ttl time.Duration) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	locker, err := NewRedisLocker("redis://"+mr.Addr(), ttl)
	require.NoError(t, err)
	locker.retryDelay = 5 * time.Millisecond
	t.Cleanup(func() { locker.Close() })

	return locker, mr
}

func TestRedisLocker_LockUnlock(t *testing.T) {
	locker, mr := newTestRedisLocker(t, time.Minute)
	ctx := context.Background()
	require.NoError(t, locker.Ping(ctx))

	unlock, err := locker.Lock(ctx, "train-1")
	require.NoError(t, err)
	assert.True(t, mr.Exists(redisKeyPrefix+"train-1"))

	unlock()
	assert.False(t, mr.Exists(redisKeyPrefix+"train-1"))
}

func TestRedisLocker_SecondCallerWaits(t *testing.T) {
	locker, _ := newTestRedisLocker(t, time.Minute)
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "train-1")
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, 30*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(waitCtx, "train-1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	acquired := make(chan struct{})
	go func() {
		unlock2, err := locker.Lock(ctx, "train-1")
		if err == nil {
			unlock2()
		}
		close(acquired)
	}()

	unlock()
	select {
	case <-acquired:
	case <-time.After(2 * time.Second):
		t.Fatal("waiter never acquired the released lock")
	}
}

func TestRedisLocker_ExpiredHolderCannotReleaseNewHolder(t *testing.T) {
	locker, mr := newTestRedisLocker(t, time.Second)
	ctx := context.Background()

	staleUnlock, err := locker.Lock(ctx, "train-1")
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)

	freshUnlock, err := locker.Lock(ctx, "train-1")
	require.NoError(t, err)

	staleUnlock()
	assert.True(t, mr.Exists(redisKeyPrefix+"train-1"), "stale holder must not delete the new lease")

	freshUnlock()
	assert.False(t, mr.Exists(redisKeyPrefix+"train-1"))
}

func TestNewRedisLocker_BadURL(t *testing.T) {
	_, err := NewRedisLocker("not-a-url", time.Second)
	assert.Error(t, err)
}
