//go:build integration

package cache_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"roombook/internal/infra/cache"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startRedis(t *testing.T) redis.UniversalClient {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = c.Terminate(context.Background())
	})

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "6379/tcp")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRangeLocker_Redis(t *testing.T) {
	client := startRedis(t)
	locker := cache.NewRangeLocker(client)
	ctx := context.Background()
	day := func(d int) time.Time { return time.Date(2026, 3, d, 0, 0, 0, 0, time.UTC) }

	t.Run("only one of many concurrent callers wins", func(t *testing.T) {
		roomID := uuid.New()
		var (
			wg   sync.WaitGroup
			wins atomic.Int32
		)
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, ok, err := locker.AcquireRange(ctx, roomID, day(1), day(4), time.Minute)
				if err == nil && ok {
					wins.Add(1)
				}
			}()
		}
		wg.Wait()
		assert.EqualValues(t, 1, wins.Load())
	})

	t.Run("partial overlap leaves no keys behind", func(t *testing.T) {
		roomID := uuid.New()
		_, ok, err := locker.AcquireRange(ctx, roomID, day(3), day(4), time.Minute)
		require.NoError(t, err)
		require.True(t, ok)

		_, ok, err = locker.AcquireRange(ctx, roomID, day(1), day(4), time.Minute)
		require.NoError(t, err)
		assert.False(t, ok)

		n, err := client.Exists(ctx,
			fmt.Sprintf("lock:room:{%s}:2026-03-01", roomID),
			fmt.Sprintf("lock:room:{%s}:2026-03-02", roomID),
		).Result()
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("release only removes keys owned by the token", func(t *testing.T) {
		roomID := uuid.New()
		token, ok, err := locker.AcquireRange(ctx, roomID, day(1), day(3), time.Minute)
		require.NoError(t, err)
		require.True(t, ok)

		n, err := locker.ReleaseRange(ctx, roomID, day(1), day(3), "not-the-owner")
		require.NoError(t, err)
		assert.Zero(t, n)

		n, err = locker.ReleaseRange(ctx, roomID, day(1), day(3), token)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		_, ok, err = locker.AcquireRange(ctx, roomID, day(1), day(3), time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("extend refreshes ttl for the owner", func(t *testing.T) {
		roomID := uuid.New()
		token, ok, err := locker.AcquireRange(ctx, roomID, day(1), day(2), time.Second)
		require.NoError(t, err)
		require.True(t, ok)

		extended, err := locker.ExtendRange(ctx, roomID, day(1), day(2), token, time.Minute)
		require.NoError(t, err)
		assert.True(t, extended)

		ttl, err := client.PTTL(ctx, fmt.Sprintf("lock:room:{%s}:2026-03-01", roomID)).Result()
		require.NoError(t, err)
		assert.Greater(t, ttl, 30*time.Second)

		extended, err = locker.ExtendRange(ctx, roomID, day(1), day(2), "stranger", time.Minute)
		require.NoError(t, err)
		assert.False(t, extended)
	})

	t.Run("lock expires on its own", func(t *testing.T) {
		roomID := uuid.New()
		_, ok, err := locker.AcquireRange(ctx, roomID, day(1), day(2), 200*time.Millisecond)
		require.NoError(t, err)
		require.True(t, ok)

		assert.Eventually(t, func() bool {
			_, ok, err := locker.AcquireRange(ctx, roomID, day(1), day(2), time.Minute)
			return err == nil && ok
		}, 3*time.Second, 100*time.Millisecond)
	})
}
