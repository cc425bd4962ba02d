// Package redis caches resolved short code mappings in Redis.
//
// Mappings never change after creation, so entries are only evicted by TTL. Click counts
// are not cached.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vadimbarashkov/link-shortener/internal/entity"
)

const (
	keyPrefix  = "shortener:code:"
	DefaultTTL = time.Hour
)

type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

type cachedMapping struct {
	LongID         int64     `json:"long_id"`
	URL            string    `json:"url"`
	LongCreatedAt  time.Time `json:"long_created_at"`
	ShortID        int64     `json:"short_id"`
	ShortCode      string    `json:"short_code"`
	ShortCreatedAt time.Time `json:"short_created_at"`
}

// Connect opens a client and verifies the server answers PING.
func Connect(ctx context.Context, opts *redis.Options) (*redis.Client, error) {
	const op = "adapter.cache.redis.Connect"

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("%s: failed to ping redis: %w", op, err)
	}

	return client, nil
}

type CodeCache struct {
	client redisClient
	ttl    time.Duration
}

func NewCodeCache(client redisClient, ttl time.Duration) *CodeCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &CodeCache{
		client: client,
		ttl:    ttl,
	}
}

func key(code string) string {
	return keyPrefix + code
}

// Get returns the cached mapping for code or entity.ErrCacheMiss.
func (c *CodeCache) Get(ctx context.Context, code string) (*entity.Mapping, error) {
	const op = "adapter.cache.redis.CodeCache.Get"

	data, err := c.client.Get(ctx, key(code)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrCacheMiss)
		}

		return nil, fmt.Errorf("%s: failed to get key: %w", op, err)
	}

	var cm cachedMapping
	if err := json.Unmarshal(data, &cm); err != nil {
		return nil, fmt.Errorf("%s: failed to decode cached mapping: %w", op, err)
	}

	return &entity.Mapping{
		LongURL:  entity.LongURL{ID: cm.LongID, URL: cm.URL, CreatedAt: cm.LongCreatedAt},
		ShortURL: entity.ShortURL{ID: cm.ShortID, ShortCode: cm.ShortCode, CreatedAt: cm.ShortCreatedAt},
	}, nil
}

func (c *CodeCache) Set(ctx context.Context, m *entity.Mapping) error {
	const op = "adapter.cache.redis.CodeCache.Set"

	data, err := json.Marshal(cachedMapping{
		LongID:         m.LongURL.ID,
		URL:            m.URL,
		LongCreatedAt:  m.LongURL.CreatedAt,
		ShortID:        m.ShortURL.ID,
		ShortCode:      m.ShortCode,
		ShortCreatedAt: m.ShortURL.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("%s: failed to encode mapping: %w", op, err)
	}

	if err := c.client.Set(ctx, key(m.ShortCode), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("%s: failed to set key: %w", op, err)
	}

	return nil
}
