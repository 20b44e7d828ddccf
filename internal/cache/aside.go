package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"arcade/internal/middleware"

	"github.com/redis/go-redis/v9"
)

// Aside loads key into dest from Redis, or calls fetch to fill dest and
// stores the result with ttl. Cache failures never fail the call; only fetch
// errors are returned.
func Aside(ctx context.Context, key string, dest any, ttl time.Duration, fetch func() error) error {
	if client == nil {
		return fetch()
	}

	raw, err := client.Get(ctx, key).Bytes()
	if err == nil {
		if jsonErr := json.Unmarshal(raw, dest); jsonErr == nil {
			return nil
		}
		client.Del(ctx, key)
	} else if !errors.Is(err, redis.Nil) {
		middleware.Logger.WarnContext(ctx, "cache read failed", "key", key, "error", err)
	}

	if err := fetch(); err != nil {
		return err
	}

	Set(ctx, key, dest, ttl)
	return nil
}

// Set stores value as JSON under key. Errors are logged and dropped.
func Set(ctx context.Context, key string, value any, ttl time.Duration) {
	if client == nil {
		return
	}
	payload, err := json.Marshal(value)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "cache encode failed", "key", key, "error", err)
		return
	}
	if err := client.Set(ctx, key, payload, ttl).Err(); err != nil {
		middleware.Logger.WarnContext(ctx, "cache write failed", "key", key, "error", err)
	}
}

// GetMany decodes every present key into a fresh T. Missing or undecodable
// keys are absent from the result.
func GetMany[T any](ctx context.Context, keys []string) map[string]T {
	out := make(map[string]T, len(keys))
	if client == nil || len(keys) == 0 {
		return out
	}

	vals, err := client.MGet(ctx, keys...).Result()
	if err != nil {
		middleware.Logger.WarnContext(ctx, "cache multi-read failed", "error", err)
		return out
	}
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var item T
		if err := json.Unmarshal([]byte(s), &item); err != nil {
			continue
		}
		out[keys[i]] = item
	}
	return out
}
