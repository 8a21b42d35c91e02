package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/pickem-optimizer/internal/metrics"
	"github.com/yourusername/pickem-optimizer/internal/models"
)

const simulationPrefix = "simulation:"

// RedisConfig holds connection parameters for the Redis cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
	TTL      time.Duration
}

// RedisCache shares simulation results between worker processes.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logrus.Logger
}

// NewRedisClient creates a go-redis client and verifies connectivity.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

// NewRedisCache wraps a connected client.
func NewRedisCache(client *redis.Client, ttl time.Duration, logger *logrus.Logger) *RedisCache {
	return &RedisCache{client: client, ttl: ttl, logger: logger}
}

// Get retrieves a simulation result. Redis failures are logged and treated
// as a miss so the engine falls back to simulating.
func (c *RedisCache) Get(ctx context.Context, key string) (*models.SimulationResult, bool) {
	fullKey := simulationPrefix + key
	data, err := c.client.Get(ctx, fullKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.WithError(err).WithField("cache_key", fullKey).Warn("Failed to read simulation from cache")
		}
		metrics.RecordCacheLookup(false)
		return nil, false
	}

	var result models.SimulationResult
	if err := json.Unmarshal(data, &result); err != nil {
		c.logger.WithError(err).WithField("cache_key", fullKey).Warn("Discarding undecodable cached simulation")
		metrics.RecordCacheLookup(false)
		return nil, false
	}

	c.logger.WithFields(logrus.Fields{
		"cache_key":  fullKey,
		"iterations": result.Iterations,
	}).Debug("Retrieved simulation result from cache")
	metrics.RecordCacheLookup(true)
	return &result, true
}

// Set stores a simulation result as JSON.
func (c *RedisCache) Set(ctx context.Context, key string, result *models.SimulationResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal simulation result: %w", err)
	}

	fullKey := simulationPrefix + key
	if err := c.client.Set(ctx, fullKey, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set simulation result in cache: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"cache_key":  fullKey,
		"expiration": c.ttl,
		"iterations": result.Iterations,
	}).Debug("Cached simulation result")
	return nil
}

// Flush removes every cached simulation.
func (c *RedisCache) Flush(ctx context.Context) (int, error) {
	var deleted int
	iter := c.client.Scan(ctx, 0, simulationPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return deleted, fmt.Errorf("failed to delete %s: %w", iter.Val(), err)
		}
		deleted++
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("failed to scan simulation keys: %w", err)
	}

	c.logger.WithField("deleted_keys", deleted).Info("Flushed simulation cache")
	return deleted, nil
}
