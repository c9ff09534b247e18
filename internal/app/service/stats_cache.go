package service

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const statsCacheKeyPrefix = "stats:clicks:"

// StatsCache caches click counts keyed by provider link id.
type StatsCache interface {
	Get(ctx context.Context, providerLinkID string) (int64, bool)
	Set(ctx context.Context, providerLinkID string, clicks int64)
	Invalidate(ctx context.Context, providerLinkID string)
}

type redisStatsCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisStatsCache returns a StatsCache backed by Redis. All operations
// fail open: a Redis error just means a cache miss.
func NewRedisStatsCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) StatsCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &redisStatsCache{client: client, ttl: ttl, logger: logger}
}

func (c *redisStatsCache) Get(ctx context.Context, providerLinkID string) (int64, bool) {
	raw, err := c.client.Get(ctx, statsCacheKeyPrefix+providerLinkID).Result()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("stats cache read failed", zap.Error(err))
		}
		return 0, false
	}

	clicks, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return clicks, true
}

func (c *redisStatsCache) Set(ctx context.Context, providerLinkID string, clicks int64) {
	key := statsCacheKeyPrefix + providerLinkID
	if err := c.client.Set(ctx, key, strconv.FormatInt(clicks, 10), c.ttl).Err(); err != nil {
		c.logger.Warn("stats cache write failed", zap.Error(err))
	}
}

func (c *redisStatsCache) Invalidate(ctx context.Context, providerLinkID string) {
	if err := c.client.Del(ctx, statsCacheKeyPrefix+providerLinkID).Err(); err != nil {
		c.logger.Warn("stats cache invalidate failed", zap.Error(err))
	}
}
