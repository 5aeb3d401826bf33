package redisclient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocker(t *testing.T) (Locker, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisSlotLocker(client, 5*time.Second), mr
}

func TestWithSlotLockRunsCallback(t *testing.T) {
	locker, mr := newTestLocker(t)

	ran := false
	err := locker.WithSlotLock(context.Background(), "2025-05-12", "08:00", func(ctx context.Context) error {
		ran = true
		// lock key held while the callback runs
		assert.True(t, mr.Exists("lock:agenda:2025-05-12:08:00"))
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)

	// released afterwards
	assert.False(t, mr.Exists("lock:agenda:2025-05-12:08:00"))
}

func TestWithSlotLockContended(t *testing.T) {
	locker, mr := newTestLocker(t)

	// simulate another process holding the lock
	require.NoError(t, mr.Set("lock:agenda:2025-05-12:08:00", "other-token"))

	err := locker.WithSlotLock(context.Background(), "2025-05-12", "08:00", func(ctx context.Context) error {
		t.Fatal("callback must not run while the lock is held elsewhere")
		return nil
	})
	require.ErrorIs(t, err, ErrLockNotAcquired)
}

func TestWithSlotLockDistinctSlotsIndependent(t *testing.T) {
	locker, mr := newTestLocker(t)

	require.NoError(t, mr.Set("lock:agenda:2025-05-12:08:00", "other-token"))

	err := locker.WithSlotLock(context.Background(), "2025-05-12", "08:30", func(ctx context.Context) error {
		return nil
	})
	require.NoError(t, err)
}

func TestWithSlotLockPropagatesCallbackError(t *testing.T) {
	locker, _ := newTestLocker(t)

	sentinel := errors.New("boom")
	err := locker.WithSlotLock(context.Background(), "2025-05-12", "09:00", func(ctx context.Context) error {
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)
}

func TestReleaseKeepsForeignToken(t *testing.T) {
	locker, mr := newTestLocker(t)

	// expire our lock mid-flight and let someone else take the key
	err := locker.WithSlotLock(context.Background(), "2025-05-12", "10:00", func(ctx context.Context) error {
		mr.FastForward(10 * time.Second)
		require.NoError(t, mr.Set("lock:agenda:2025-05-12:10:00", "stolen"))
		return nil
	})
	require.NoError(t, err)

	// compare-and-delete must not remove a token it does not own
	got, err := mr.Get("lock:agenda:2025-05-12:10:00")
	require.NoError(t, err)
	assert.Equal(t, "stolen", got)
}
