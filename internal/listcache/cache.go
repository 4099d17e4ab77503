// Package listcache caches entry lists from the backend in Redis.
package listcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/rodstewart/modelosctl/internal/api"
	"github.com/rodstewart/modelosctl/internal/config"
	"github.com/rodstewart/modelosctl/internal/models"
)

// KeyPrefix namespaces every key written by the cache
const KeyPrefix = "modelos:list:"

// Source provides entry lists. *api.Client and *Cache both implement it.
type Source interface {
	ListEntries(ctx context.Context, q api.ListQuery) ([]models.Entry, error)
}

// NewRedis returns a connected Redis client for cfg
func NewRedis(cfg config.CacheConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
	}

	return client, nil
}

// Cache is a read-through Source backed by Redis. Redis failures are logged
// and the request falls through to the wrapped source.
type Cache struct {
	source Source
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

// New wraps source. A nil client disables caching.
func New(source Source, client *redis.Client, ttl time.Duration, log *zap.Logger) *Cache {
	if log == nil {
		log = zap.NewNop()
	}
	return &Cache{source: source, client: client, ttl: ttl, log: log}
}

// Key returns the Redis key for q
func Key(q api.ListQuery) string {
	k := q.Key()
	if k == "" {
		return KeyPrefix + "all"
	}
	return KeyPrefix + k
}

// ListEntries returns the cached list for q, fetching and storing it on miss
func (c *Cache) ListEntries(ctx context.Context, q api.ListQuery) ([]models.Entry, error) {
	if c.client == nil {
		return c.source.ListEntries(ctx, q)
	}

	key := Key(q)
	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var entries []models.Entry
		if err := json.Unmarshal(raw, &entries); err == nil {
			c.log.Debug("list cache hit", zap.String("key", key))
			return entries, nil
		}
		c.log.Warn("discarding corrupt cache value", zap.String("key", key))
	case errors.Is(err, redis.Nil):
	default:
		c.log.Warn("redis get failed", zap.String("key", key), zap.Error(err))
	}

	entries, err := c.source.ListEntries(ctx, q)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(entries)
	if err != nil {
		return entries, nil
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.log.Warn("redis set failed", zap.String("key", key), zap.Error(err))
	}
	return entries, nil
}

// Invalidate drops every cached list. Called after writes to the catalog.
func (c *Cache) Invalidate(ctx context.Context) error {
	if c.client == nil {
		return nil
	}

	iter := c.client.Scan(ctx, 0, KeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		if err := c.client.Del(ctx, key).Err(); err != nil {
			return fmt.Errorf("redis delete %s: %w", key, err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan %s: %w", KeyPrefix, err)
	}
	return nil
}

// Close releases the Redis connection if present
func (c *Cache) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}
