package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"tenant-console-api/internal/core/cache"
	"tenant-console-api/internal/domain"
)

// EmbedURLProvider is the analytics embedding service. It consumes the
// session context built here and returns a time-boxed viewing URL; how that
// URL is produced is its business, not ours.
type EmbedURLProvider interface {
	EmbedURL(ctx context.Context, tenantID, role string, tags []domain.SessionTag) (string, time.Time, error)
}

// RLSBuilder assembles the row-level-security session context handed to the
// embedding service. The output is order-stable: tenant_id first, then one
// tag per governance dimension.
type RLSBuilder struct {
	gov   domain.GovernanceRepository
	cache *cache.Cache // nil disables caching
	ttl   time.Duration
	log   *zap.Logger
}

func NewRLSBuilder(gov domain.GovernanceRepository, c *cache.Cache, ttl time.Duration, log *zap.Logger) *RLSBuilder {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RLSBuilder{gov: gov, cache: c, ttl: ttl, log: log}
}

// SessionContext builds the tag list for (tenantID, userID). The governance
// query is tenant-scoped, so by construction no tag can carry another
// tenant's values, and tenant_id is always present.
func (b *RLSBuilder) SessionContext(ctx context.Context, tenantID, userID string) ([]domain.SessionTag, error) {
	rules, err := b.rules(ctx, tenantID, userID)
	if err != nil {
		return nil, err
	}

	tags := make([]domain.SessionTag, 0, len(rules)+1)
	tags = append(tags, domain.SessionTag{Key: "tenant_id", Value: tenantID})
	for _, r := range rules {
		tags = append(tags, domain.SessionTag{Key: r.Dimension, Value: r.Values})
	}
	return tags, nil
}

// Governance rules are mutated by tooling outside this service, so reads go
// through a short-TTL cache to bound staleness without an invalidation
// channel.
func (b *RLSBuilder) rules(ctx context.Context, tenantID, userID string) ([]domain.GovernanceRule, error) {
	if b.cache == nil {
		return b.gov.ListForUser(ctx, tenantID, userID)
	}
	key := fmt.Sprintf("rls:%s:%s", tenantID, userID)
	rules, err := cache.GetOrLoadJSON(b.cache, ctx, key, b.ttl, func(ctx context.Context) ([]domain.GovernanceRule, error) {
		return b.gov.ListForUser(ctx, tenantID, userID)
	})
	if err != nil {
		// cache trouble must not block dashboards; fall back to the store
		b.log.Warn("governance cache read failed, falling back to store", zap.Error(err))
		return b.gov.ListForUser(ctx, tenantID, userID)
	}
	return rules, nil
}
