// Package cache provides a Redis-backed cache for company settings. Settings
// are read on almost every screen, so reads are served from Redis and the
// entry is dropped whenever settings change.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"taller_backend/internal/settings/transport"
	"taller_backend/platform/logger"

	"github.com/redis/go-redis/v9"
)

const settingsKey = "taller:settings"

const defaultTTL = time.Hour

// Cache caches the settings response in Redis.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	log    *logger.Logger
}

// New creates a settings cache. A nil client disables caching; every Get
// misses.
func New(client *redis.Client, log *logger.Logger) *Cache {
	return &Cache{client: client, ttl: defaultTTL, log: log}
}

// Get returns the cached settings, or false on a miss. Cache failures are
// treated as misses; the database remains the source of truth.
func (c *Cache) Get(ctx context.Context) (*transport.SettingsResponse, bool) {
	if c.client == nil {
		return nil, false
	}

	data, err := c.client.Get(ctx, settingsKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("settings cache read failed", "error", err.Error())
		}
		return nil, false
	}

	var resp transport.SettingsResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		c.log.Warn("settings cache entry corrupt, dropping", "error", err.Error())
		c.Invalidate(ctx)
		return nil, false
	}

	resp.Source = transport.SourceCache
	return &resp, true
}

// Set stores the settings response.
func (c *Cache) Set(ctx context.Context, resp *transport.SettingsResponse) {
	if c.client == nil {
		return
	}

	data, err := json.Marshal(resp)
	if err != nil {
		c.log.Warn("settings cache encode failed", "error", err.Error())
		return
	}
	if err := c.client.Set(ctx, settingsKey, data, c.ttl).Err(); err != nil {
		c.log.Warn("settings cache write failed", "error", err.Error())
	}
}

// Invalidate drops the cached entry.
func (c *Cache) Invalidate(ctx context.Context) {
	if c.client == nil {
		return
	}
	if err := c.client.Del(ctx, settingsKey).Err(); err != nil {
		c.log.Warn("settings cache invalidate failed", "error", err.Error())
	}
}
