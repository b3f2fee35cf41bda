package marketdata

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache is a BytesCache backed by a shared Redis instance, for
// deployments running more than one trader process against the same
// fetch cache. Grounded on the Finpull retrieval pack's redis_cache.go.
type RedisCache struct {
	cli *redis.Client
}

// RedisCacheConfig configures RedisCache.
type RedisCacheConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisCache creates a RedisCache from config.
func NewRedisCache(cfg RedisCacheConfig) *RedisCache {
	return &RedisCache{cli: redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})}
}

// GetBytes returns the cached value for key, or ok=false on a cache miss.
func (r *RedisCache) GetBytes(key string) ([]byte, bool, error) {
	b, err := r.cli.Get(context.Background(), key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}
		return nil, false, err
	}
	return b, true, nil
}

// SetBytes stores value under key with the given ttl.
func (r *RedisCache) SetBytes(key string, value []byte, ttl time.Duration) error {
	return r.cli.Set(context.Background(), key, value, ttl).Err()
}
