package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ece-marketplace/internal/domain"

	"github.com/go-redis/redis/v8"
)

// RedisCacheStore implements domain.CacheStore on plain strings, lists and
// sorted sets.
type RedisCacheStore struct {
	client *redis.Client
}

var _ domain.CacheStore = (*RedisCacheStore)(nil)

func NewRedisCacheStore(client *redis.Client) *RedisCacheStore {
	return &RedisCacheStore{client: client}
}

func (r *RedisCacheStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return val, nil
}

func (r *RedisCacheStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (r *RedisCacheStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return r.client.Del(ctx, keys...).Err()
}

// DeletePattern removes every key matching pattern. It walks the keyspace
// with SCAN so a large database is never blocked by KEYS.
func (r *RedisCacheStore) DeletePattern(ctx context.Context, pattern string) (int64, error) {
	var (
		cursor  uint64
		deleted int64
	)
	for {
		keys, next, err := r.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return deleted, fmt.Errorf("redis scan %s: %w", pattern, err)
		}
		if len(keys) > 0 {
			n, err := r.client.Del(ctx, keys...).Result()
			if err != nil {
				return deleted, fmt.Errorf("redis del: %w", err)
			}
			deleted += n
		}
		cursor = next
		if cursor == 0 {
			return deleted, nil
		}
	}
}

// PushCapped prepends value and trims the list to max entries.
func (r *RedisCacheStore) PushCapped(ctx context.Context, key string, value []byte, max int64, ttl time.Duration) error {
	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, key, value)
	pipe.LTrim(ctx, key, 0, max-1)
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis push %s: %w", key, err)
	}
	return nil
}

func (r *RedisCacheStore) Range(ctx context.Context, key string, start, stop int64) ([][]byte, error) {
	vals, err := r.client.LRange(ctx, key, start, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lrange %s: %w", key, err)
	}
	return toBytes(vals), nil
}

func (r *RedisCacheStore) AddScored(ctx context.Context, key string, score float64, member []byte, ttl time.Duration) error {
	pipe := r.client.TxPipeline()
	pipe.ZAdd(ctx, key, &redis.Z{Score: score, Member: member})
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis zadd %s: %w", key, err)
	}
	return nil
}

// TopScored returns up to limit members, highest score first.
func (r *RedisCacheStore) TopScored(ctx context.Context, key string, limit int64) ([][]byte, error) {
	vals, err := r.client.ZRevRange(ctx, key, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis zrevrange %s: %w", key, err)
	}
	return toBytes(vals), nil
}

func (r *RedisCacheStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func toBytes(vals []string) [][]byte {
	out := make([][]byte, len(vals))
	for i, v := range vals {
		out[i] = []byte(v)
	}
	return out
}
