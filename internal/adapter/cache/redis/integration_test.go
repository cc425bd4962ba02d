//go:build integration

package redis_test

import (
	"context"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/vadimbarashkov/link-shortener/internal/adapter/cache/redis"
	"github.com/vadimbarashkov/link-shortener/internal/entity"
)

func setupRedis(t testing.TB) *goredis.Client {
	t.Helper()

	ctx := context.Background()

	redisCont, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Failed to start redis container: %v", err)
	}
	t.Cleanup(func() {
		if err := redisCont.Terminate(ctx); err != nil {
			t.Fatalf("Failed to terminate redis container: %v", err)
		}
	})

	endpoint, err := redisCont.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("Failed to get container endpoint: %v", err)
	}

	client, err := redis.Connect(ctx, &goredis.Options{Addr: endpoint})
	if err != nil {
		t.Fatalf("Failed to connect to redis: %v", err)
	}
	t.Cleanup(func() {
		client.Close()
	})

	return client
}

func TestCodeCache_Integration(t *testing.T) {
	client := setupRedis(t)
	cache := redis.NewCodeCache(client, time.Minute)
	ctx := context.Background()

	t.Run("miss", func(t *testing.T) {
		_, err := cache.Get(ctx, "absent")
		assert.ErrorIs(t, err, entity.ErrCacheMiss)
	})

	t.Run("round trip", func(t *testing.T) {
		m := &entity.Mapping{
			LongURL:  entity.LongURL{ID: 1, URL: "https://example.com"},
			ShortURL: entity.ShortURL{ID: 2, ShortCode: "abc123", ClickCount: 10},
		}

		require.NoError(t, cache.Set(ctx, m))

		got, err := cache.Get(ctx, "abc123")
		require.NoError(t, err)
		assert.Equal(t, int64(1), got.LongURL.ID)
		assert.Equal(t, int64(2), got.ShortURL.ID)
		assert.Equal(t, "https://example.com", got.URL)
		assert.Zero(t, got.ClickCount)

		ttl, err := client.TTL(ctx, "shortener:code:abc123").Result()
		require.NoError(t, err)
		assert.Greater(t, ttl, time.Duration(0))
	})
}
