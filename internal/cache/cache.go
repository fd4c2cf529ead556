/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package cache provides a Redis-based caching layer for frequently accessed data.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Default TTL values for different cache types
const (
	DefaultChannelListTTL = 5 * time.Minute
	DefaultStrategyTTL    = 1 * time.Hour
	DefaultSequenceTTL    = 1 * time.Hour
	DefaultTrackTTL       = 1 * time.Hour
)

// Key prefixes for Redis cache
const (
	KeyChannelList = "bragi:cache:channels"
	KeyStrategy    = "bragi:cache:strategy:" // + strategy_id
	KeySequence    = "bragi:cache:sequence:" // + sequence_id
	KeyTrack       = "bragi:cache:track:"    // + track_id
)

// Config contains cache configuration.
type Config struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// TTL overrides
	ChannelListTTL time.Duration
	StrategyTTL    time.Duration
	SequenceTTL    time.Duration
	TrackTTL       time.Duration

	// Fallback behavior
	DisableOnError bool // If true, disable caching on Redis errors
}

// DefaultConfig returns default cache configuration.
func DefaultConfig() Config {
	return Config{
		RedisAddr:      "localhost:6379",
		ChannelListTTL: DefaultChannelListTTL,
		StrategyTTL:    DefaultStrategyTTL,
		SequenceTTL:    DefaultSequenceTTL,
		TrackTTL:       DefaultTrackTTL,
		DisableOnError: true,
	}
}

// Cache provides Redis-backed caching with graceful fallback.
type Cache struct {
	client *redis.Client
	logger zerolog.Logger
	config Config

	mu       sync.RWMutex
	disabled bool // Circuit breaker state
}

// New creates a new cache instance.
func New(cfg Config, logger zerolog.Logger) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).Msg("Redis cache unavailable, running without caching")
		return &Cache{
			logger:   logger.With().Str("component", "cache").Logger(),
			config:   cfg,
			disabled: true,
		}, nil
	}

	logger.Info().Str("addr", cfg.RedisAddr).Msg("Redis cache initialized")

	return &Cache{
		client: client,
		logger: logger.With().Str("component", "cache").Logger(),
		config: cfg,
	}, nil
}

// Close closes the Redis connection.
func (c *Cache) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// IsAvailable returns true if the cache is operational.
func (c *Cache) IsAvailable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.disabled && c.client != nil
}

// handleError handles Redis errors with circuit breaker logic.
func (c *Cache) handleError(err error, operation string) {
	if err == nil || err == redis.Nil {
		return
	}

	c.logger.Debug().Err(err).Str("operation", operation).Msg("cache operation failed")

	if c.config.DisableOnError {
		c.mu.Lock()
		c.disabled = true
		c.mu.Unlock()
		c.logger.Warn().Msg("disabling cache due to Redis error")
	}
}

// get retrieves a value from cache and unmarshals it.
func (c *Cache) get(ctx context.Context, key string, dest any) (bool, error) {
	if !c.IsAvailable() {
		return false, nil
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		c.handleError(err, "get")
		return false, err
	}

	if err := json.Unmarshal(data, dest); err != nil {
		c.logger.Debug().Err(err).Str("key", key).Msg("failed to unmarshal cached value")
		return false, nil
	}

	return true, nil
}

// set stores a value in cache with TTL.
func (c *Cache) set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if !c.IsAvailable() {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value: %w", err)
	}

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		c.handleError(err, "set")
		return err
	}

	return nil
}

// delete removes a key from cache.
func (c *Cache) delete(ctx context.Context, key string) error {
	if !c.IsAvailable() {
		return nil
	}

	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.handleError(err, "delete")
		return err
	}

	return nil
}

// deletePattern deletes all keys matching a pattern.
func (c *Cache) deletePattern(ctx context.Context, pattern string) error {
	if !c.IsAvailable() {
		return nil
	}

	// Use SCAN to find keys (safer than KEYS for production)
	var cursor uint64
	for {
		keys, nextCursor, err := c.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			c.handleError(err, "scan")
			return err
		}

		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				c.handleError(err, "delete_batch")
				return err
			}
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}

	return nil
}

// Channel caching methods

// CachedChannel represents a cached channel record.
type CachedChannel struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// GetChannelList retrieves the cached list of channels.
func (c *Cache) GetChannelList(ctx context.Context) ([]CachedChannel, bool) {
	var channels []CachedChannel
	found, err := c.get(ctx, KeyChannelList, &channels)
	if err != nil || !found {
		return nil, false
	}
	c.logger.Debug().Int("count", len(channels)).Msg("channel list cache hit")
	return channels, true
}

// SetChannelList caches the list of channels.
func (c *Cache) SetChannelList(ctx context.Context, channels []CachedChannel) error {
	c.logger.Debug().Int("count", len(channels)).Msg("caching channel list")
	return c.set(ctx, KeyChannelList, channels, c.config.ChannelListTTL)
}

// InvalidateChannelList removes the channel list from cache.
func (c *Cache) InvalidateChannelList(ctx context.Context) error {
	c.logger.Debug().Msg("invalidating channel list cache")
	return c.delete(ctx, KeyChannelList)
}

// Strategy caching methods

// CachedStrategy represents a cached slot strategy record.
type CachedStrategy struct {
	ID                 string         `json:"id"`
	ChannelID          string         `json:"channel_id"`
	EnergyTier         string         `json:"energy_tier"`
	SlotCount          int            `json:"slot_count"`
	RepeatWindow       int            `json:"repeat_window"`
	Document           map[string]any `json:"document"`
	SourceSequenceName string         `json:"source_sequence_name"`
}

// GetStrategy retrieves a cached strategy by ID.
func (c *Cache) GetStrategy(ctx context.Context, strategyID string) (*CachedStrategy, bool) {
	var strategy CachedStrategy
	found, err := c.get(ctx, KeyStrategy+strategyID, &strategy)
	if err != nil || !found {
		return nil, false
	}
	c.logger.Debug().Str("strategy_id", strategyID).Msg("strategy cache hit")
	return &strategy, true
}

// SetStrategy caches a strategy.
func (c *Cache) SetStrategy(ctx context.Context, strategy *CachedStrategy) error {
	c.logger.Debug().Str("strategy_id", strategy.ID).Msg("caching strategy")
	return c.set(ctx, KeyStrategy+strategy.ID, strategy, c.config.StrategyTTL)
}

// InvalidateStrategy removes a strategy from cache.
func (c *Cache) InvalidateStrategy(ctx context.Context, strategyID string) error {
	c.logger.Debug().Str("strategy_id", strategyID).Msg("invalidating strategy cache")
	return c.delete(ctx, KeyStrategy+strategyID)
}

// Sequence caching methods

// CachedSequence represents a cached saved sequence snapshot.
type CachedSequence struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	ChannelID  string         `json:"channel_id"`
	EnergyTier string         `json:"energy_tier"`
	Document   map[string]any `json:"document"`
}

// GetSequence retrieves a cached saved sequence by ID.
func (c *Cache) GetSequence(ctx context.Context, sequenceID string) (*CachedSequence, bool) {
	var seq CachedSequence
	found, err := c.get(ctx, KeySequence+sequenceID, &seq)
	if err != nil || !found {
		return nil, false
	}
	c.logger.Debug().Str("sequence_id", sequenceID).Msg("sequence cache hit")
	return &seq, true
}

// SetSequence caches a saved sequence. Snapshots are immutable, so a
// cached copy never goes stale until it is deleted.
func (c *Cache) SetSequence(ctx context.Context, seq *CachedSequence) error {
	c.logger.Debug().Str("sequence_id", seq.ID).Msg("caching sequence")
	return c.set(ctx, KeySequence+seq.ID, seq, c.config.SequenceTTL)
}

// InvalidateSequence removes a saved sequence from cache.
func (c *Cache) InvalidateSequence(ctx context.Context, sequenceID string) error {
	c.logger.Debug().Str("sequence_id", sequenceID).Msg("invalidating sequence cache")
	return c.delete(ctx, KeySequence+sequenceID)
}

// Bulk invalidation methods

// InvalidateChannel removes all caches related to a channel.
func (c *Cache) InvalidateChannel(ctx context.Context, channelID string) error {
	c.logger.Debug().Str("channel_id", channelID).Msg("invalidating all channel caches")
	return c.InvalidateChannelList(ctx)
}

// FlushAll removes all cached data (use sparingly).
func (c *Cache) FlushAll(ctx context.Context) error {
	c.logger.Warn().Msg("flushing all cache data")
	return c.deletePattern(ctx, "bragi:cache:*")
}
