package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"kudipos/backend/internal/domain"
)

const summaryKeyPrefix = "pos:report:daily:"

// RedisCache caches daily summaries with a short TTL. Today's numbers keep
// moving, so staleness is bounded by the TTL rather than invalidation.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &RedisCache{client: client, ttl: ttl}
}

var _ Cache = (*RedisCache)(nil)

func (c *RedisCache) Get(ctx context.Context, day string) (domain.DailySummary, bool, error) {
	raw, err := c.client.Get(ctx, summaryKeyPrefix+day).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.DailySummary{}, false, nil
	}
	if err != nil {
		return domain.DailySummary{}, false, fmt.Errorf("get summary: %w", err)
	}
	var summary domain.DailySummary
	if err := json.Unmarshal(raw, &summary); err != nil {
		return domain.DailySummary{}, false, fmt.Errorf("decode summary: %w", err)
	}
	return summary, true, nil
}

func (c *RedisCache) Set(ctx context.Context, day string, summary domain.DailySummary) error {
	raw, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	if err := c.client.Set(ctx, summaryKeyPrefix+day, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("set summary: %w", err)
	}
	return nil
}
