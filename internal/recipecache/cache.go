// Package recipecache caches recipe details in Redis so repeated views of
// the same recipe don't spend recipe API quota.
package recipecache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sakif/kitchi/internal/metrics"
	"github.com/sakif/kitchi/internal/model"
)

const keyPrefix = "kitchi:recipe:"

// Cache is a cache-aside store for recipe details. Redis failures are logged
// and treated as misses; the cache never fails a request.
type Cache struct {
	client  *redis.Client
	ttl     time.Duration
	metrics metrics.Recorder
	logger  *slog.Logger
}

// New connects to redisURL and verifies the connection.
func New(ctx context.Context, redisURL string, ttl time.Duration, rec metrics.Recorder, logger *slog.Logger) (*Cache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	opt.PoolSize = 10
	opt.MinIdleConns = 2
	opt.PoolTimeout = 4 * time.Second
	opt.ConnMaxIdleTime = 5 * time.Minute

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}
	return NewWithClient(client, ttl, rec, logger), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client, ttl time.Duration, rec metrics.Recorder, logger *slog.Logger) *Cache {
	if rec == nil {
		rec = metrics.Noop{}
	}
	return &Cache{client: client, ttl: ttl, metrics: rec, logger: logger}
}

// Get returns the cached detail for id, if any.
func (c *Cache) Get(ctx context.Context, id int) (*model.RecipeDetail, bool) {
	raw, err := c.client.Get(ctx, key(id)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("recipe cache get failed", slog.Int("recipe_id", id), slog.String("error", err.Error()))
		}
		c.metrics.RecordRecipeCache(false)
		return nil, false
	}

	var detail model.RecipeDetail
	if err := json.Unmarshal(raw, &detail); err != nil {
		c.logger.Warn("recipe cache entry corrupt", slog.Int("recipe_id", id), slog.String("error", err.Error()))
		c.metrics.RecordRecipeCache(false)
		return nil, false
	}
	c.metrics.RecordRecipeCache(true)
	return &detail, true
}

// Set stores detail. The per-user Bookmarked flag is never cached.
func (c *Cache) Set(ctx context.Context, detail *model.RecipeDetail) {
	entry := *detail
	entry.Bookmarked = false

	raw, err := json.Marshal(&entry)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key(detail.ID), raw, c.ttl).Err(); err != nil {
		c.logger.Warn("recipe cache set failed", slog.Int("recipe_id", detail.ID), slog.String("error", err.Error()))
	}
}

// Ping checks Redis connectivity.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (c *Cache) Close() error {
	return c.client.Close()
}

func key(id int) string {
	return keyPrefix + strconv.Itoa(id)
}
