package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/event-registration-api/pkg/errors"
)

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// ResultCache stores computed report payloads under one key namespace so a
// registration or finance write can drop all of them at once.
// A cache outage never fails a read: lookups degrade to misses.
type ResultCache struct {
	repo      CacheRepository
	metrics   *MetricsService
	namespace string
	ttl       time.Duration
	logger    *zap.Logger
	enabled   bool
}

// NewResultCache constructs a namespaced cache. A disabled cache or nil repo turns every call into a no-op.
func NewResultCache(repo CacheRepository, metrics *MetricsService, namespace string, ttl time.Duration, logger *zap.Logger, enabled bool) *ResultCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	namespace = strings.Trim(namespace, ":")
	if namespace == "" {
		namespace = "cache"
	}
	return &ResultCache{repo: repo, metrics: metrics, namespace: namespace, ttl: ttl, logger: logger, enabled: enabled}
}

// Enabled indicates whether caching is active.
func (c *ResultCache) Enabled() bool {
	return c != nil && c.enabled && c.repo != nil
}

// Key joins parts under the namespace. Empty parts are skipped and colons inside parts are escaped.
func (c *ResultCache) Key(parts ...string) string {
	var builder strings.Builder
	builder.Grow(len(parts) * 16)
	if c != nil {
		builder.WriteString(c.namespace)
	}
	for _, part := range parts {
		if part == "" {
			continue
		}
		if builder.Len() > 0 {
			builder.WriteByte(':')
		}
		builder.WriteString(strings.ReplaceAll(part, ":", "|"))
	}
	return builder.String()
}

// Lookup decodes the cached value into dest and reports whether it was found.
func (c *ResultCache) Lookup(ctx context.Context, key string, dest interface{}) bool {
	if !c.Enabled() {
		return false
	}
	start := time.Now()
	err := c.repo.Get(ctx, key, dest)
	if c.metrics != nil {
		c.metrics.RecordCacheOperation(err == nil, time.Since(start))
	}
	if err != nil {
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			c.logger.Warn("cache lookup failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	return true
}

// Store writes value with the cache TTL. Failures are logged and dropped.
func (c *ResultCache) Store(ctx context.Context, key string, value interface{}) {
	if !c.Enabled() {
		return
	}
	start := time.Now()
	err := c.repo.Set(ctx, key, value, c.ttl)
	if c.metrics != nil {
		c.metrics.ObserveCacheWrite(time.Since(start))
	}
	if err != nil {
		c.logger.Warn("cache store failed", zap.String("key", key), zap.Error(err))
	}
}

// Flush removes every entry in the namespace.
func (c *ResultCache) Flush(ctx context.Context) error {
	if !c.Enabled() {
		return nil
	}
	pattern := c.namespace + ":*"
	if err := c.repo.DeleteByPattern(ctx, pattern); err != nil {
		c.logger.Warn("cache flush failed", zap.String("pattern", pattern), zap.Error(err))
		return err
	}
	return nil
}
