package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisPrefix = "resellgap:"

// Redis is a Store backed by a Redis server.
type Redis struct {
	client *redis.Client
}

// NewRedis wraps an existing client.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

// NewRedisFromURL connects using a redis:// URL.
func NewRedisFromURL(url string) (*Redis, error) {
	if url == "" {
		return nil, errors.New("cache.redis_url is required for the redis backend")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return NewRedis(redis.NewClient(opts)), nil
}

func (r *Redis) Get(ctx context.Context, key string, target any) (bool, error) {
	data, err := r.client.Get(ctx, redisPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, target); err != nil {
		return false, fmt.Errorf("unmarshal cache entry: %w", err)
	}
	return true, nil
}

func (r *Redis) Put(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal value: %w", err)
	}
	if err := r.client.Set(ctx, redisPrefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}
