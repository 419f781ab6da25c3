package watchlist

import (
	"context"
	"time"

	"crisiswatch/internal/domain/metrics"
	"crisiswatch/internal/services/swarm"
	"crisiswatch/internal/workers"
	"crisiswatch/pkg/errors"
)

// Generator regenerates and stores a company's metrics
type Generator interface {
	Generate(ctx context.Context, company string, observer swarm.Observer) (*metrics.CompanyMetrics, error)
	Store(ctx context.Context, m *metrics.CompanyMetrics)
}

// Refresher keeps the cache warm for a fixed list of companies
type Refresher struct {
	*workers.BaseWorker
	generator Generator
	companies []string
}

// NewRefresher creates the watchlist worker
func NewRefresher(generator Generator, companies []string, interval time.Duration, enabled bool) *Refresher {
	return &Refresher{
		BaseWorker: workers.NewBaseWorker("watchlist_refresher", interval, enabled),
		generator:  generator,
		companies:  companies,
	}
}

// Run regenerates every company in order. One failing company does not stop
// the others; all failures are returned together.
func (r *Refresher) Run(ctx context.Context) error {
	var errs errors.MultiError
	refreshed := 0

	for i, company := range r.companies {
		select {
		case <-ctx.Done():
			r.Log().Infow("Watchlist refresh interrupted by shutdown",
				"refreshed", refreshed,
				"remaining", len(r.companies)-i,
			)
			return ctx.Err()
		default:
		}

		m, err := r.generator.Generate(ctx, company, nil)
		if err != nil {
			r.Log().Warnw("Failed to refresh company", "company", company, "error", err)
			errs.Add(errors.Wrapf(err, "refresh %s", company))
			continue
		}
		r.generator.Store(ctx, m)
		refreshed++
	}

	r.Log().Infow("Watchlist refresh complete",
		"companies", len(r.companies),
		"refreshed", refreshed,
	)
	return errs.ToError()
}
