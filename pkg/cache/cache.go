// Package cache is a thin JSON cache over Redis. Every call is a no-op (a
// miss) when Redis is not configured, so callers never branch on it.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/usgears/storefront/config"
	"github.com/usgears/storefront/pkg/metrics"
)

var RDB *redis.Client

// Connect dials REDIS_ADDR. With no address configured it leaves RDB nil and
// returns nil.
func Connect(ctx context.Context) error {
	addr := config.RedisAddr()
	if addr == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: config.RedisPassword(),
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return fmt.Errorf("cache: redis ping: %w", err)
	}
	RDB = client
	return nil
}

// Enabled reports whether a Redis client is available.
func Enabled() bool { return RDB != nil }

func Close() error {
	if RDB == nil {
		return nil
	}
	err := RDB.Close()
	RDB = nil
	return err
}

// Get unmarshals the value at key into dest and reports a hit.
func Get(ctx context.Context, key string, dest interface{}) bool {
	if RDB == nil {
		return false
	}

	val, err := RDB.Get(ctx, key).Bytes()
	if err != nil || json.Unmarshal(val, dest) != nil {
		metrics.CacheMisses.WithLabelValues(prefix(key)).Inc()
		return false
	}
	metrics.CacheHits.WithLabelValues(prefix(key)).Inc()
	return true
}

func Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if RDB == nil {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return RDB.Set(ctx, key, data, ttl).Err()
}

// Remember returns the cached value at key, or calls load, caches its result
// and returns it. Cache write errors are ignored; the loaded value wins.
func Remember[T any](ctx context.Context, key string, ttl time.Duration, load func() (T, error)) (T, error) {
	var out T
	if Get(ctx, key, &out) {
		return out, nil
	}
	out, err := load()
	if err != nil {
		return out, err
	}
	_ = Set(ctx, key, out, ttl)
	return out, nil
}

func Forget(ctx context.Context, keys ...string) error {
	if RDB == nil || len(keys) == 0 {
		return nil
	}
	return RDB.Del(ctx, keys...).Err()
}

// ForgetPrefix deletes every key starting with p.
func ForgetPrefix(ctx context.Context, p string) error {
	if RDB == nil {
		return nil
	}
	iter := RDB.Scan(ctx, 0, p+"*", 100).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 100 {
			if err := RDB.Del(ctx, batch...).Err(); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	return Forget(ctx, batch...)
}

// Incr bumps a counter and sets its TTL on first use. Used by the rate limiter.
func Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	if RDB == nil {
		return 0, fmt.Errorf("cache: redis not configured")
	}
	pipe := RDB.TxPipeline()
	pipe.SetNX(ctx, key, 0, window)
	incr := pipe.Incr(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

func prefix(key string) string {
	p, _, _ := strings.Cut(key, ":")
	return p
}
