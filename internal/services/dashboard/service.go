package dashboard

import (
	"context"
	"strings"
	"sync"
	"time"

	"crisiswatch/internal/domain/metrics"
	domain "crisiswatch/internal/domain/swarm"
	appmetrics "crisiswatch/internal/metrics"
	"crisiswatch/internal/services/daterange"
	"crisiswatch/internal/services/swarm"
	"crisiswatch/internal/services/synthesis"
	"crisiswatch/internal/services/validation"
	"crisiswatch/pkg/errors"
	"crisiswatch/pkg/logger"
)

// MaxCompanyNameLength bounds the company input
const MaxCompanyNameLength = 120

// DefaultCacheTTL is how long generated metrics are served from cache
const DefaultCacheTTL = 15 * time.Minute

// Publisher announces swarm lifecycle and finished metrics to other services
type Publisher interface {
	PublishSwarmStatus(ctx context.Context, s domain.AgentSwarm) error
	PublishMetricsGenerated(ctx context.Context, m *metrics.CompanyMetrics) error
}

// Config tunes the service
type Config struct {
	Mode        swarm.Mode
	CacheTTL    time.Duration
	TaskTimeout time.Duration
}

// View is the dashboard projection for one company and period.
// Error is set when the metrics failed validation; the data is still attached.
type View struct {
	*daterange.View
	Error *ErrorView `json:"error,omitempty"`
}

// ErrorView lists why metrics cannot be trusted
type ErrorView struct {
	Message  string   `json:"message"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// Option configures a Service
type Option func(*Service)

// WithCache enables the metrics cache
func WithCache(cache metrics.Cache) Option {
	return func(s *Service) { s.cache = cache }
}

// WithPublisher enables event publishing
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// Service runs the swarm for a company and serves date-range views of the result
type Service struct {
	deps      swarm.TaskDeps
	cfg       Config
	validator *validation.Validator
	cache     metrics.Cache
	publisher Publisher
	now       func() time.Time
	log       *logger.Logger
}

// NewService creates the dashboard service
func NewService(deps swarm.TaskDeps, cfg Config, log *logger.Logger, opts ...Option) *Service {
	if log == nil {
		log = logger.Get()
	}
	if cfg.Mode == "" {
		cfg.Mode = swarm.ModeSynthetic
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	if cfg.TaskTimeout <= 0 {
		cfg.TaskTimeout = swarm.DefaultTaskTimeout
	}
	deps.Mode = cfg.Mode

	s := &Service{
		deps:      deps,
		cfg:       cfg,
		validator: validation.NewValidator(log),
		now:       time.Now,
		log:       log.With("service", "dashboard"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.deps.Now = s.now
	return s
}

// Mode returns the configured data mode
func (s *Service) Mode() swarm.Mode {
	return s.cfg.Mode
}

// NormalizeCompany trims and checks a company name
func NormalizeCompany(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.Wrap(errors.ErrInvalidInput, "company name is required")
	}
	if len([]rune(name)) > MaxCompanyNameLength {
		return "", errors.Wrapf(errors.ErrInvalidInput, "company name longer than %d characters", MaxCompanyNameLength)
	}
	return name, nil
}

// Generate runs a fresh swarm for the company and validates the result.
// observer, when set, receives every swarm snapshot of the run.
func (s *Service) Generate(ctx context.Context, companyName string, observer swarm.Observer) (*metrics.CompanyMetrics, error) {
	name, err := NormalizeCompany(companyName)
	if err != nil {
		return nil, err
	}

	coordinator := swarm.NewCoordinator(
		swarm.NewTasks(s.deps),
		swarm.NewAggregator(s.cfg.Mode),
		swarm.WithMode(s.cfg.Mode),
		swarm.WithTaskTimeout(s.cfg.TaskTimeout),
		swarm.WithClock(s.now),
		swarm.WithLogger(s.log.Component("swarm_coordinator")),
	)
	if observer != nil {
		defer coordinator.Subscribe(observer)()
	}
	defer coordinator.Subscribe(s.statusWatcher(ctx))()

	coordinator.InitializeSwarm(name)
	m, err := coordinator.StartCollection(ctx)
	if err != nil {
		if !errors.Is(err, errors.ErrNoUsableMetrics) {
			return nil, errors.Wrapf(err, "generate metrics for %s", name)
		}
		s.log.Warnw("No usable metrics collected, using synthetic fallback",
			"company", name,
			"mode", s.cfg.Mode,
			"error", err,
		)
		appmetrics.FallbacksUsed.WithLabelValues("no_usable_metrics").Inc()
		m = synthesis.Generate(name, s.now())
		m.DataSource = metrics.SourceSyntheticFallback
	}

	m.Validation = s.validator.Validate(m)
	if !m.Validation.IsValid {
		s.log.Warnw("Generated metrics failed validation",
			"company", name,
			"errors", len(m.Validation.Errors),
		)
	}

	if s.publisher != nil {
		if err := s.publisher.PublishMetricsGenerated(ctx, m); err != nil {
			s.log.Warnw("Failed to publish metrics event", "company", name, "error", err)
		}
	}
	return m, nil
}

// statusWatcher leaves a breadcrumb on every swarm status change and
// forwards the snapshot to the publisher when one is configured
func (s *Service) statusWatcher(ctx context.Context) swarm.Observer {
	var (
		mu   sync.Mutex
		last domain.Status
	)
	return func(snapshot domain.AgentSwarm) {
		mu.Lock()
		changed := snapshot.Status != last
		last = snapshot.Status
		mu.Unlock()
		if !changed {
			return
		}

		s.log.Breadcrumb(ctx, "swarm status "+string(snapshot.Status), "swarm", map[string]interface{}{
			"company": snapshot.CompanyName,
		})
		if s.publisher == nil {
			return
		}
		if err := s.publisher.PublishSwarmStatus(ctx, snapshot); err != nil {
			s.log.Warnw("Failed to publish swarm status",
				"company", snapshot.CompanyName,
				"status", snapshot.Status,
				"error", err,
			)
		}
	}
}

// Metrics returns cached metrics for the company or generates and caches them
func (s *Service) Metrics(ctx context.Context, companyName string) (*metrics.CompanyMetrics, error) {
	name, err := NormalizeCompany(companyName)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, name)
		switch {
		case err == nil:
			appmetrics.RecordCacheLookup("hit")
			return cached, nil
		case errors.Is(err, errors.ErrNotFound):
			appmetrics.RecordCacheLookup("miss")
		default:
			appmetrics.RecordCacheLookup("error")
			s.log.Warnw("Metrics cache lookup failed", "company", name, "error", err)
		}
	}

	m, err := s.Generate(ctx, name, nil)
	if err != nil {
		return nil, err
	}
	s.Store(ctx, m)
	return m, nil
}

// Store caches m; failures are logged, not returned
func (s *Service) Store(ctx context.Context, m *metrics.CompanyMetrics) {
	if s.cache == nil || m == nil {
		return
	}
	if err := s.cache.Set(ctx, m, s.cfg.CacheTTL); err != nil {
		s.log.Warnw("Failed to cache metrics", "company", m.CompanyName, "error", err)
	}
}

// View projects the company's metrics onto a period
func (s *Service) View(ctx context.Context, companyName string, period daterange.Period) (*View, error) {
	if _, err := daterange.GetDateRange(period, s.now()); err != nil {
		return nil, err
	}
	m, err := s.Metrics(ctx, companyName)
	if err != nil {
		return nil, err
	}
	return s.Project(m, period)
}

// Project builds the view of already generated metrics
func (s *Service) Project(m *metrics.CompanyMetrics, period daterange.Period) (*View, error) {
	projected, err := daterange.Apply(m, period, s.now())
	if err != nil {
		return nil, err
	}
	view := &View{View: projected}
	if !m.Validation.IsValid {
		view.Error = &ErrorView{
			Message:  "metrics failed validation",
			Errors:   append([]string{}, m.Validation.Errors...),
			Warnings: append([]string{}, m.Validation.Warnings...),
		}
	}
	return view, nil
}
