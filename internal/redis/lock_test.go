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

	return NewRedisSlotLocker(client, 2*time.Second), mr
}

func TestWithSlotLock_ReleasesAfterRun(t *testing.T) {
	locker, mr := newTestLocker(t)
	ctx := context.Background()

	ran := false
	err := locker.WithSlotLock(ctx, 101, func(ctx context.Context) error {
		ran = true
		assert.True(t, mr.Exists(slotLockKey(101)))
		return nil
	})

	require.NoError(t, err)
	assert.True(t, ran)
	assert.False(t, mr.Exists(slotLockKey(101)))
}

func TestWithSlotLock_SecondCallerFailsFast(t *testing.T) {
	locker, _ := newTestLocker(t)
	ctx := context.Background()

	err := locker.WithSlotLock(ctx, 7, func(ctx context.Context) error {
		inner := locker.WithSlotLock(ctx, 7, func(context.Context) error {
			t.Fatal("nested critical section must not run")
			return nil
		})
		assert.ErrorIs(t, inner, ErrLockNotAcquired)

		// Other slots are independent.
		return locker.WithSlotLock(ctx, 8, func(context.Context) error { return nil })
	})
	require.NoError(t, err)
}

func TestWithSlotLock_ReturnsCallbackErrorAndReleases(t *testing.T) {
	locker, mr := newTestLocker(t)
	boom := errors.New("boom")

	err := locker.WithSlotLock(context.Background(), 3, func(context.Context) error {
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists(slotLockKey(3)))
}

func TestWithSlotLock_DoesNotReleaseForeignToken(t *testing.T) {
	locker, mr := newTestLocker(t)

	err := locker.WithSlotLock(context.Background(), 9, func(context.Context) error {
		// Simulate the lock expiring and another holder taking it over.
		require.NoError(t, mr.Set(slotLockKey(9), "someone-else"))
		return nil
	})
	require.NoError(t, err)

	got, err := mr.Get(slotLockKey(9))
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
}
