package repository

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/cashflowpro/cashflowpro/internal/domain"
	infra "github.com/cashflowpro/cashflowpro/internal/infrastructure/redis"
	"github.com/cashflowpro/cashflowpro/pkg/cache"
)

const summaryKeyPrefix = "summary:"

// RedisSummaryCache caches dashboard summaries in Redis with a short
// TTL. Cache failures only cost a recompute, so errors are logged and
// swallowed.
type RedisSummaryCache struct {
	redis  *infra.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisSummaryCache creates a Redis-backed summary cache.
func NewRedisSummaryCache(client *infra.Client, ttl time.Duration, logger *slog.Logger) *RedisSummaryCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisSummaryCache{redis: client, ttl: ttl, logger: logger}
}

func (c *RedisSummaryCache) Get(ctx context.Context, ownerID string) (*domain.DashboardSummary, bool) {
	data, err := c.redis.Get(ctx, summaryKeyPrefix+ownerID)
	if err != nil {
		return nil, false
	}
	var s domain.DashboardSummary
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		c.logger.Warn("dropping unreadable cached summary", slog.String("owner_id", ownerID), slog.String("error", err.Error()))
		_ = c.redis.Delete(ctx, summaryKeyPrefix+ownerID)
		return nil, false
	}
	return &s, true
}

func (c *RedisSummaryCache) Set(ctx context.Context, ownerID string, summary *domain.DashboardSummary) {
	data, err := json.Marshal(summary)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, summaryKeyPrefix+ownerID, string(data), c.ttl); err != nil {
		c.logger.Warn("failed to cache summary", slog.String("owner_id", ownerID), slog.String("error", err.Error()))
	}
}

func (c *RedisSummaryCache) Delete(ctx context.Context, ownerID string) {
	if err := c.redis.Delete(ctx, summaryKeyPrefix+ownerID); err != nil {
		c.logger.Warn("failed to invalidate summary", slog.String("owner_id", ownerID), slog.String("error", err.Error()))
	}
}

// MemorySummaryCache is the in-process fallback used when REDIS_URL is
// not configured.
type MemorySummaryCache struct {
	cache *cache.Cache
	ttl   time.Duration
}

// NewMemorySummaryCache creates an in-process summary cache.
func NewMemorySummaryCache(ttl time.Duration) *MemorySummaryCache {
	return &MemorySummaryCache{cache: cache.New(), ttl: ttl}
}

func (c *MemorySummaryCache) Get(_ context.Context, ownerID string) (*domain.DashboardSummary, bool) {
	v, ok := c.cache.Get(summaryKeyPrefix + ownerID)
	if !ok {
		return nil, false
	}
	s, ok := v.(domain.DashboardSummary)
	if !ok {
		return nil, false
	}
	return &s, true
}

func (c *MemorySummaryCache) Set(_ context.Context, ownerID string, summary *domain.DashboardSummary) {
	c.cache.Set(summaryKeyPrefix+ownerID, *summary, c.ttl)
}

func (c *MemorySummaryCache) Delete(_ context.Context, ownerID string) {
	c.cache.Delete(summaryKeyPrefix + ownerID)
}
