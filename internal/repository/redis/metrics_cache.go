package redis

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"crisiswatch/internal/domain/metrics"
	"crisiswatch/pkg/errors"
)

// DefaultKeyPrefix namespaces cached metrics
const DefaultKeyPrefix = "crisiswatch:metrics:"

// MetricsCache implements metrics.Cache using Redis
type MetricsCache struct {
	client redis.Cmdable
	prefix string
}

// NewMetricsCache creates a new metrics cache
func NewMetricsCache(client redis.Cmdable, prefix string) *MetricsCache {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &MetricsCache{
		client: client,
		prefix: prefix,
	}
}

var _ metrics.Cache = (*MetricsCache)(nil)

// Get retrieves cached metrics for a company
func (r *MetricsCache) Get(ctx context.Context, company string) (*metrics.CompanyMetrics, error) {
	data, err := r.client.Get(ctx, r.key(company)).Bytes()
	if err == redis.Nil {
		return nil, errors.Wrapf(errors.ErrNotFound, "metrics not cached for company=%s", company)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get metrics from redis: company=%s", company)
	}

	var m metrics.CompanyMetrics
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal metrics: company=%s", company)
	}

	return &m, nil
}

// Set stores metrics with TTL
func (r *MetricsCache) Set(ctx context.Context, m *metrics.CompanyMetrics, ttl time.Duration) error {
	if m == nil {
		return errors.Wrap(errors.ErrInvalidInput, "nil metrics")
	}

	data, err := json.Marshal(m)
	if err != nil {
		return errors.Wrapf(err, "failed to marshal metrics: company=%s", m.CompanyName)
	}

	if err := r.client.Set(ctx, r.key(m.CompanyName), data, ttl).Err(); err != nil {
		return errors.Wrapf(err, "failed to save metrics to redis: company=%s", m.CompanyName)
	}

	return nil
}

// Delete removes cached metrics
func (r *MetricsCache) Delete(ctx context.Context, company string) error {
	if err := r.client.Del(ctx, r.key(company)).Err(); err != nil {
		return errors.Wrapf(err, "failed to delete metrics from redis: company=%s", company)
	}
	return nil
}

// Count returns the number of cached companies
func (r *MetricsCache) Count(ctx context.Context) (int, error) {
	keys, err := r.client.Keys(ctx, r.prefix+"*").Result()
	if err != nil {
		return 0, errors.Wrap(err, "failed to count cached metrics")
	}
	return len(keys), nil
}

// key normalises the company so "Kaseya" and " kaseya " share an entry
func (r *MetricsCache) key(company string) string {
	return r.prefix + strings.ToLower(strings.TrimSpace(company))
}
