package metrics

import (
	"context"
	"time"
)

// Cache stores generated metrics per company for the session.
// Get returns an error wrapping errors.ErrNotFound on a miss.
type Cache interface {
	Get(ctx context.Context, company string) (*CompanyMetrics, error)
	Set(ctx context.Context, m *CompanyMetrics, ttl time.Duration) error
	Delete(ctx context.Context, company string) error
}
