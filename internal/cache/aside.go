package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/digitalmaniak/sidewidth/internal/middleware"
	"github.com/digitalmaniak/sidewidth/internal/observability"

	"github.com/redis/go-redis/v9"
)

// ErrMiss reports a key that is absent from the cache.
var ErrMiss = errors.New("cache miss")

// GetJSON decodes the value stored under key into dst.
func GetJSON(ctx context.Context, key string, dst any) error {
	if client == nil {
		return ErrMiss
	}
	raw, err := client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrMiss
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}

// SetJSON stores v under key for ttl.
func SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	if client == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return client.Set(ctx, key, raw, ttl).Err()
}

// Aside serves dst from the cache, or fills it with fetch and stores the
// result. Cache failures fall back to fetch and never fail the call.
func Aside(ctx context.Context, key string, dst any, ttl time.Duration, fetch func() error) error {
	err := GetJSON(ctx, key, dst)
	if err == nil {
		observability.CacheLookups.WithLabelValues("hit").Inc()
		return nil
	}
	observability.CacheLookups.WithLabelValues("miss").Inc()
	if !errors.Is(err, ErrMiss) {
		middleware.Logger.WarnContext(ctx, "cache read failed", slog.String("key", key), slog.String("error", err.Error()))
	}

	if err := fetch(); err != nil {
		return err
	}

	if err := SetJSON(ctx, key, dst, ttl); err != nil {
		middleware.Logger.WarnContext(ctx, "cache write failed", slog.String("key", key), slog.String("error", err.Error()))
	}
	return nil
}
