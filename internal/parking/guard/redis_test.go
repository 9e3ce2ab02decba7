package guard_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/example/parklite/internal/parking/guard"
)

func newRedisClient(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	return client
}

func TestHoldStoreBlocksSecondSubmission(t *testing.T) {
	client := newRedisClient(t)
	store := guard.NewRedisHoldStore(client, "", time.Second)
	ctx := context.Background()
	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	held, err := store.TryHold(ctx, 1, 2, start, end)
	require.NoError(t, err)
	require.True(t, held)

	held, err = store.TryHold(ctx, 1, 2, start, end)
	require.NoError(t, err)
	require.False(t, held)

	// a different window is a different tuple
	held, err = store.TryHold(ctx, 1, 2, start, end.Add(time.Minute))
	require.NoError(t, err)
	require.True(t, held)
}

func TestHoldStoreRelease(t *testing.T) {
	client := newRedisClient(t)
	store := guard.NewRedisHoldStore(client, "", time.Second)
	ctx := context.Background()
	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	held, err := store.TryHold(ctx, 1, 2, start, end)
	require.NoError(t, err)
	require.True(t, held)

	require.NoError(t, store.Release(ctx, 1, 2, start, end))

	held, err = store.TryHold(ctx, 1, 2, start, end)
	require.NoError(t, err)
	require.True(t, held)
}
