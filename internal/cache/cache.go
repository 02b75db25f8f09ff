// Package cache provides the small Redis surface the service needs: JSON
// values with a TTL and expiring counters.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrMiss = errors.New("cache miss")

// Cache is implemented by Redis and by Nop.
type Cache interface {
	GetJSON(ctx context.Context, key string, dest any) error
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

type Redis struct {
	client *redis.Client
}

// NewRedis connects using a redis:// URL and pings the server.
func NewRedis(ctx context.Context, url string) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Redis{client: client}, nil
}

func (r *Redis) GetJSON(ctx context.Context, key string, dest any) error {
	val, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrMiss
	}
	if err != nil {
		return fmt.Errorf("cache get: %w", err)
	}
	if err := json.Unmarshal(val, dest); err != nil {
		return fmt.Errorf("cache unmarshal: %w", err)
	}
	return nil
}

func (r *Redis) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal: %w", err)
	}
	return r.client.Set(ctx, key, data, ttl).Err()
}

// Incr bumps key and starts its TTL on the first increment.
func (r *Redis) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	val, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("cache incr: %w", err)
	}
	if val == 1 {
		if err := r.client.Expire(ctx, key, ttl).Err(); err != nil {
			return val, fmt.Errorf("cache expire: %w", err)
		}
	}
	return val, nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}

// Nop never stores anything; every read misses and counters stay at zero.
type Nop struct{}

func (Nop) GetJSON(context.Context, string, any) error                 { return ErrMiss }
func (Nop) SetJSON(context.Context, string, any, time.Duration) error  { return nil }
func (Nop) Incr(context.Context, string, time.Duration) (int64, error) { return 0, nil }
