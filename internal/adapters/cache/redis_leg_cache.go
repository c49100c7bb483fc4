package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
	"tripsynth/internal/domain"
	"tripsynth/internal/platform/obs"
	"tripsynth/internal/ports"

	"github.com/redis/go-redis/v9"
)

// RedisLegCache shares route results between planner instances. Each origin and
// mode is one hash keyed by destination.
type RedisLegCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

type RedisOption func(*RedisLegCache)

// WithTTL sets how long an origin's legs are kept after the last write.
func WithTTL(ttl time.Duration) RedisOption {
	return func(r *RedisLegCache) { r.ttl = ttl }
}

func WithPrefix(prefix string) RedisOption {
	return func(r *RedisLegCache) { r.prefix = prefix }
}

func NewRedisLegCache(client *redis.Client, options ...RedisOption) *RedisLegCache {
	c := &RedisLegCache{client: client, prefix: "tripsynth:legs", ttl: 7 * 24 * time.Hour}
	for _, option := range options {
		option(c)
	}
	return c
}

func (r *RedisLegCache) key(origin string, mode domain.TravelMode) string {
	return fmt.Sprintf("%s:%s:%s", r.prefix, mode, origin)
}

func (r *RedisLegCache) GetMany(
	ctx context.Context,
	origin string,
	destinations []string,
	mode domain.TravelMode,
) (_ map[string]ports.RouteResult, err error) {
	defer obs.Time(ctx, "leg.cache.redis.GetMany")(&err)

	if origin == "" {
		return nil, errors.New("get leg cache: origin must not be empty")
	}
	uniq := uniqueKeys(destinations)
	if len(uniq) == 0 {
		return map[string]ports.RouteResult{}, nil
	}

	vals, err := r.client.HMGet(ctx, r.key(origin, mode), uniq...).Result()
	if err != nil {
		return nil, fmt.Errorf("get leg cache: hmget: %w", err)
	}

	out := make(map[string]ports.RouteResult, len(uniq))
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var res ports.RouteResult
		if err := json.Unmarshal([]byte(s), &res); err != nil {
			return nil, fmt.Errorf("get leg cache: decode %q: %w", uniq[i], err)
		}
		out[uniq[i]] = res
	}
	return out, nil
}

func (r *RedisLegCache) PutMany(
	ctx context.Context,
	origin string,
	results map[string]ports.RouteResult,
	mode domain.TravelMode,
) error {
	if origin == "" {
		return errors.New("insert leg cache: origin must not be empty")
	}
	if len(results) == 0 {
		return nil
	}

	fields := make(map[string]any, len(results))
	for dest, res := range results {
		b, err := json.Marshal(res)
		if err != nil {
			return fmt.Errorf("insert leg cache: encode %q: %w", dest, err)
		}
		fields[dest] = string(b)
	}

	key := r.key(origin, mode)
	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("insert leg cache: %w", err)
	}
	return nil
}

var _ ports.LegCache = (*RedisLegCache)(nil)
