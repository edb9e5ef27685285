package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"wallet-ledger-go/internal/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// CachedValue is one global setting lookup result. Found=false caches the
// absence of a row so the hardcoded default is not re-queried every call.
type CachedValue struct {
	Value string `json:"value"`
	Found bool   `json:"found"`
}

// Cache fronts global settings reads. A nil *CachedValue with a nil error is a miss.
type Cache interface {
	Get(ctx context.Context, key string) (*CachedValue, error)
	Set(ctx context.Context, key string, value CachedValue, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// RedisCache stores settings as JSON under a key prefix.
type RedisCache struct {
	client *redis.Client
	prefix string
}

func NewRedisCache(cfg models.CacheConfig) (*RedisCache, error) {
	if cfg.RedisAddr == "" {
		return nil, fmt.Errorf("redis address cannot be empty")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDb,
	})
	return &RedisCache{client: client, prefix: "ledger:settings:"}, nil
}

// Ping verifies the connection at startup.
func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisCache) key(key string) string {
	return r.prefix + key
}

func (r *RedisCache) Get(ctx context.Context, key string) (*CachedValue, error) {
	val, err := r.client.Get(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		zap.L().Debug("Settings cache miss", zap.String("key", key))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	var cv CachedValue
	if err := json.Unmarshal([]byte(val), &cv); err != nil {
		return nil, fmt.Errorf("redis unmarshal %s: %w", key, err)
	}
	zap.L().Debug("Settings cache hit", zap.String("key", key))
	return &cv, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, value CachedValue, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("redis marshal %s: %w", key, err)
	}
	return r.client.Set(ctx, r.key(key), data, ttl).Err()
}

func (r *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = r.key(k)
	}
	return r.client.Del(ctx, full...).Err()
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}
