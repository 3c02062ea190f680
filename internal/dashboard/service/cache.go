package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stayops/revaudit/internal/cache"
	"github.com/stayops/revaudit/internal/config"
	"github.com/stayops/revaudit/internal/dashboard/domain"
	"go.uber.org/zap"
)

// MetricsCache memoizes dashboard results for a short window. The store is
// refreshed by the sheet import on its own schedule, so briefly stale
// figures are acceptable.
type MetricsCache interface {
	Get(ctx context.Context, key string) (domain.MetricsResult, bool)
	Set(ctx context.Context, key string, result domain.MetricsResult)
}

// NewMetricsCache picks redis when configured, an in-memory TTL cache
// otherwise, and no caching at all when the TTL is zero.
func NewMetricsCache(cfg config.Config, log *zap.Logger) MetricsCache {
	ttl := time.Duration(cfg.MetricsCacheTTLSeconds) * time.Second
	if ttl <= 0 {
		return noopCache{}
	}
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		return &redisCache{client: client, ttl: ttl, log: log.Named("dashboard.cache")}
	}
	return &memoryCache{inner: cache.NewTTLCache[string, domain.MetricsResult](), ttl: ttl}
}

type noopCache struct{}

func (noopCache) Get(context.Context, string) (domain.MetricsResult, bool) { return nil, false }
func (noopCache) Set(context.Context, string, domain.MetricsResult)       {}

type memoryCache struct {
	inner cache.Cache[string, domain.MetricsResult]
	ttl   time.Duration
}

func (c *memoryCache) Get(_ context.Context, key string) (domain.MetricsResult, bool) {
	return c.inner.Get(key)
}

func (c *memoryCache) Set(_ context.Context, key string, result domain.MetricsResult) {
	c.inner.Set(key, result, c.ttl)
}

// metricsEnvelope carries the discriminated result through JSON.
type metricsEnvelope struct {
	Kind      string                   `json:"kind"`
	Aggregate *domain.AggregateMetrics `json:"aggregate,omitempty"`
	Property  *domain.PropertyMetrics  `json:"property,omitempty"`
}

type redisCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

func (c *redisCache) Get(ctx context.Context, key string) (domain.MetricsResult, bool) {
	payload, err := c.client.Get(ctx, "dashboard:metrics:"+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("cache read failed", zap.Error(err))
		}
		return nil, false
	}

	var envelope metricsEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, false
	}
	switch envelope.Kind {
	case "aggregate":
		if envelope.Aggregate != nil {
			return *envelope.Aggregate, true
		}
	case "property":
		if envelope.Property != nil {
			return *envelope.Property, true
		}
	}
	return nil, false
}

func (c *redisCache) Set(ctx context.Context, key string, result domain.MetricsResult) {
	var envelope metricsEnvelope
	switch typed := result.(type) {
	case domain.AggregateMetrics:
		envelope = metricsEnvelope{Kind: "aggregate", Aggregate: &typed}
	case domain.PropertyMetrics:
		envelope = metricsEnvelope{Kind: "property", Property: &typed}
	default:
		return
	}

	payload, err := json.Marshal(envelope)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, "dashboard:metrics:"+key, payload, c.ttl).Err(); err != nil {
		c.log.Warn("cache write failed", zap.Error(err))
	}
}
