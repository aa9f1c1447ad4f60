package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/warkadguard/riskwatch/internal/logger"
	"github.com/warkadguard/riskwatch/internal/models"
)

// Source is anything that can produce a weather observation.
type Source interface {
	FetchWeather(ctx context.Context, lat, lon float64) (*models.WeatherSnapshot, error)
}

// RedisCache wraps a Source with a Redis-backed TTL cache keyed by
// coordinates. Cache failures fall through to the inner source.
type RedisCache struct {
	inner Source
	redis *redis.Client
	ttl   time.Duration
}

// NewRedisCache creates a cache decorator around a weather source.
func NewRedisCache(inner Source, client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &RedisCache{inner: inner, redis: client, ttl: ttl}
}

func cacheKey(lat, lon float64) string {
	return fmt.Sprintf("weather:%.4f,%.4f", lat, lon)
}

// FetchWeather returns a cached observation when one is fresh.
func (c *RedisCache) FetchWeather(ctx context.Context, lat, lon float64) (*models.WeatherSnapshot, error) {
	key := cacheKey(lat, lon)

	data, err := c.redis.Get(ctx, key).Result()
	switch {
	case err == nil:
		var snap models.WeatherSnapshot
		if jsonErr := json.Unmarshal([]byte(data), &snap); jsonErr == nil {
			return &snap, nil
		}
		logger.Warn("Discarding corrupt weather cache entry %s", key)
	case !errors.Is(err, redis.Nil):
		logger.Warn("Weather cache read failed for %s: %v", key, err)
	}

	snap, err := c.inner.FetchWeather(ctx, lat, lon)
	if err != nil || snap == nil {
		return snap, err
	}

	// Only cache real observations so a missing signal is retried next time.
	if payload, err := json.Marshal(snap); err == nil {
		if err := c.redis.Set(ctx, key, payload, c.ttl).Err(); err != nil {
			logger.Warn("Weather cache write failed for %s: %v", key, err)
		}
	}
	return snap, nil
}
