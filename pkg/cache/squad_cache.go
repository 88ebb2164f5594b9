package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/fpl-squad/internal/optimizer"
)

const keyPrefix = "squad:"

// ErrCacheMiss is returned when no selection is stored under a key
var ErrCacheMiss = errors.New("squad selection not found in cache")

// SquadCache stores squad selections in Redis
type SquadCache struct {
	client *redis.Client
	logger *logrus.Logger
	ttl    time.Duration
}

// NewSquadCache creates a cache whose entries expire after ttl; zero keeps them forever
func NewSquadCache(client *redis.Client, logger *logrus.Logger, ttl time.Duration) *SquadCache {
	return &SquadCache{
		client: client,
		logger: logger,
		ttl:    ttl,
	}
}

// Key hashes any JSON-encodable request description into a cache key
func Key(v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal cache key: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Set stores sel under key
func (c *SquadCache) Set(ctx context.Context, key string, sel *optimizer.SquadSelection) error {
	data, err := json.Marshal(sel)
	if err != nil {
		return fmt.Errorf("failed to marshal squad selection: %w", err)
	}

	fullKey := keyPrefix + key
	if err := c.client.Set(ctx, fullKey, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set squad selection in cache: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"cache_key":  fullKey,
		"expiration": c.ttl,
		"players":    len(sel.Players),
	}).Debug("Cached squad selection")

	return nil
}

// Get loads the selection stored under key, or ErrCacheMiss
func (c *SquadCache) Get(ctx context.Context, key string) (*optimizer.SquadSelection, error) {
	fullKey := keyPrefix + key
	data, err := c.client.Get(ctx, fullKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get squad selection from cache: %w", err)
	}

	var sel optimizer.SquadSelection
	if err := json.Unmarshal(data, &sel); err != nil {
		// Corrupt entries are dropped and reported as errors
		if delErr := c.Delete(ctx, key); delErr != nil {
			c.logger.WithError(delErr).Warn("Failed to drop corrupt squad selection")
		}
		return nil, fmt.Errorf("failed to unmarshal squad selection: %w", err)
	}

	c.logger.WithField("cache_key", fullKey).Debug("Retrieved squad selection from cache")
	return &sel, nil
}

// Delete removes the selection stored under key
func (c *SquadCache) Delete(ctx context.Context, key string) error {
	fullKey := keyPrefix + key
	if err := c.client.Del(ctx, fullKey).Err(); err != nil {
		return fmt.Errorf("failed to delete squad selection from cache: %w", err)
	}
	c.logger.WithField("cache_key", fullKey).Debug("Deleted squad selection from cache")
	return nil
}

// Flush removes every cached selection
func (c *SquadCache) Flush(ctx context.Context) (int, error) {
	var deleted int
	iter := c.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return deleted, fmt.Errorf("failed to delete %s: %w", iter.Val(), err)
		}
		deleted++
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("failed to scan squad keys: %w", err)
	}

	c.logger.WithField("deleted_keys", deleted).Info("Flushed squad cache")
	return deleted, nil
}

// Ping reports whether Redis is reachable
func (c *SquadCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
