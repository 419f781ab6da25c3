package bootstrap

import (
	"context"
	"net/url"
	"strings"
	"time"

	"crisiswatch/internal/adapters/config"
	errnoop "crisiswatch/internal/adapters/errors/noop"
	"crisiswatch/internal/adapters/errors/sentry"
	"crisiswatch/internal/adapters/kafka"
	"crisiswatch/internal/adapters/ratelimit"
	redisclient "crisiswatch/internal/adapters/redis"
	"crisiswatch/internal/adapters/retry"
	"crisiswatch/internal/adapters/sources"
	"crisiswatch/internal/api"
	"crisiswatch/internal/api/health"
	"crisiswatch/internal/consumers"
	"crisiswatch/internal/domain/signal"
	"crisiswatch/internal/events"
	"crisiswatch/internal/metrics"
	redisrepo "crisiswatch/internal/repository/redis"
	"crisiswatch/internal/services/crisis"
	"crisiswatch/internal/services/dashboard"
	"crisiswatch/internal/services/swarm"
	"crisiswatch/internal/workers"
	"crisiswatch/internal/workers/watchlist"
	"crisiswatch/pkg/errors"
	"crisiswatch/pkg/logger"
)

// corroboratorReliability is the reliability assigned to configured feeds
const corroboratorReliability = 0.8

// ========================================
// Phase 1: Configuration & Logging
// ========================================

// MustInitConfig loads configuration and initializes logger
func (c *Container) MustInitConfig() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}
	c.Config = cfg

	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		panic("failed to init logger: " + err.Error())
	}

	c.Log = logger.Get()
	c.Log.Infof("Starting %s %s in %s mode", cfg.App.Name, Version, cfg.App.Env)

	c.ErrorTracker = provideErrorTracker(cfg, c.Log)
	logger.SetErrorTracker(c.ErrorTracker)
	metrics.Init()
}

// ========================================
// Phase 2: Infrastructure Layer
// ========================================

// MustInitInfrastructure connects optional data stores. A configured but
// unreachable Redis is fatal; an unconfigured one disables caching.
func (c *Container) MustInitInfrastructure() {
	if !c.Config.Redis.Enabled() {
		c.Log.Info("Redis not configured, metrics cache disabled")
		return
	}

	c.Log.Info("Connecting to Redis...")
	client, err := redisclient.NewClient(c.Context, c.Config.Redis)
	if err != nil {
		c.Log.Fatalf("failed to connect redis: %v", err)
	}
	c.Redis = client
	c.Log.Info("✓ Redis connected")
}

// ========================================
// Phase 3: External Adapters
// ========================================

// MustInitAdapters creates the cache repository and Kafka clients
func (c *Container) MustInitAdapters() {
	if c.Redis != nil {
		c.Adapters.MetricsCache = redisrepo.NewMetricsCache(c.Redis.Client(), c.Config.Redis.KeyPrefix)
	}

	if !c.Config.Kafka.Enabled() {
		c.Log.Info("Kafka not configured, events disabled")
		return
	}

	c.Adapters.KafkaProducer = provideKafkaProducer(c.Config, c.Log)
	c.Adapters.SwarmPublisher = events.NewSwarmPublisher(c.Adapters.KafkaProducer, c.Config.App.Name)
	c.Adapters.RefreshConsumer = provideKafkaConsumer(c.Config, kafka.TopicRefreshRequests, c.Log)
}

// ========================================
// Phase 4: Domain Services
// ========================================

// MustInitServices builds the swarm dependencies and the dashboard service
func (c *Container) MustInitServices() {
	mode := swarm.Mode(c.Config.Collection.Mode)

	deps := swarm.TaskDeps{
		Mode:         mode,
		Lookback:     c.Config.Collection.Lookback,
		StepDelay:    c.Config.Collection.StepDelay,
		CrisisBudget: c.Config.Collection.CrisisTimeout,
	}
	if mode == swarm.ModeLive {
		deps.Limiters = ratelimit.NewRegistry(c.Config.Collection.RequestsPerMinute)
		deps.Sources = provideSources(c.Config, c.Log)
		deps.Crisis = provideCrisisPipeline(c.Config, deps.Sources[signal.KindNews], deps.Limiters, c.Log)
	}
	c.Services.TaskDeps = deps

	var opts []dashboard.Option
	if c.Adapters.MetricsCache != nil {
		opts = append(opts, dashboard.WithCache(c.Adapters.MetricsCache))
	}
	if c.Adapters.SwarmPublisher != nil {
		opts = append(opts, dashboard.WithPublisher(c.Adapters.SwarmPublisher))
	}

	c.Services.Dashboard = dashboard.NewService(deps, dashboard.Config{
		Mode:        mode,
		CacheTTL:    c.Config.Redis.CacheTTL,
		TaskTimeout: c.Config.Collection.TaskTimeout,
	}, c.Log, opts...)

	c.Log.Infow("✓ Dashboard service initialized",
		"mode", mode,
		"sources", len(deps.Sources),
		"crisis_pipeline", deps.Crisis != nil,
	)
}

// ========================================
// Phase 5: Application Layer
// ========================================

// MustInitApplication creates health checks and the HTTP server
func (c *Container) MustInitApplication() {
	c.Application.HealthHandler = health.New(c.Log.Component("health"), c.Config.App.Name, Version)
	if c.Redis != nil {
		c.Application.HealthHandler.Register("redis", c.Redis.Health)
	}

	c.Application.HTTPServer = api.NewServer(api.ServerConfig{
		Port:           c.Config.HTTP.Port,
		ServiceName:    c.Config.App.Name,
		Version:        Version,
		ReadTimeout:    c.Config.HTTP.ReadTimeout,
		WriteTimeout:   c.Config.HTTP.WriteTimeout,
		AllowedOrigins: c.Config.HTTP.AllowedOrigins,
	}, c.Application.HealthHandler, c.Services.Dashboard, c.Log)
}

// ========================================
// Phase 6: Background Processing
// ========================================

// MustInitBackground registers workers, the refresh consumer and scrape-time metrics
func (c *Container) MustInitBackground() {
	c.Background.WorkerScheduler = workers.NewScheduler(c.Log)
	c.Background.WorkerRegistry = workers.NewRegistry()

	for _, w := range provideWorkers(c.Config, c.Services.Dashboard) {
		c.Background.WorkerScheduler.RegisterWorker(w)
		if err := c.Background.WorkerRegistry.Register(w); err != nil {
			c.Log.Fatalf("failed to register worker: %v", err)
		}
	}
	c.Application.HealthHandler.Register("workers", workersCheck(c.Background.WorkerRegistry, c.Config.Workers.WatchlistInterval))

	if c.Adapters.RefreshConsumer != nil {
		c.Background.RefreshSvc = consumers.NewRefreshConsumer(c.Adapters.RefreshConsumer, c.refresh, c.Log)
	}

	var cache metrics.CacheCounter
	if c.Adapters.MetricsCache != nil {
		cache = c.Adapters.MetricsCache
	}
	watched := 0
	if c.Config.Workers.WatchlistEnabled {
		watched = len(c.Config.Workers.Watchlist)
	}
	metrics.RegisterCustomCollector(metrics.NewCustomCollector(c.Log.Component("collector"), cache, watched))
}

// refresh regenerates and stores one company's metrics
func (c *Container) refresh(ctx context.Context, company string) error {
	m, err := c.Services.Dashboard.Generate(ctx, company, nil)
	if err != nil {
		return err
	}
	c.Services.Dashboard.Store(ctx, m)
	return nil
}

// ========================================
// Providers
// ========================================

func provideErrorTracker(cfg *config.Config, log *logger.Logger) errors.Tracker {
	if !cfg.ErrorTracking.Enabled || cfg.ErrorTracking.SentryDSN == "" {
		log.Info("Error tracking disabled")
		return errnoop.New()
	}

	tracker, err := sentry.New(cfg.ErrorTracking.SentryDSN, cfg.ErrorTracking.Environment, cfg.App.Name+"@"+Version)
	if err != nil {
		log.Warnf("Failed to initialize Sentry: %v", err)
		return errnoop.New()
	}

	log.Info("Error tracking initialized (Sentry)")
	return tracker
}

func provideKafkaProducer(cfg *config.Config, log *logger.Logger) *kafka.Producer {
	log.Infow("Creating Kafka producer", "brokers", cfg.Kafka.Brokers, "async", cfg.Kafka.Async)
	return kafka.NewProducer(kafka.ProducerConfig{
		Brokers: cfg.Kafka.Brokers,
		Async:   cfg.Kafka.Async,
	})
}

func provideKafkaConsumer(cfg *config.Config, topic string, log *logger.Logger) *kafka.Consumer {
	log.Infow("Creating Kafka consumer", "topic", topic, "group_id", kafka.ConsumerGroupRefresh)
	return kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers: cfg.Kafka.Brokers,
		GroupID: kafka.ConsumerGroupRefresh,
		Topic:   topic,
	})
}

func provideRetry(cfg *config.Config) *retry.Middleware {
	r := retry.DefaultConfig()
	r.MaxRetries = cfg.Sources.Retries
	r.AttemptTimeout = cfg.Sources.Timeout
	return retry.New(r)
}

// provideSources wires one source per signal kind for live mode
func provideSources(cfg *config.Config, log *logger.Logger) map[signal.Kind]signal.Source {
	r := provideRetry(cfg)
	out := make(map[signal.Kind]signal.Source)

	if cfg.Sources.NewsFeedURL != "" {
		out[signal.KindNews] = sources.NewRSSNewsSource(sources.RSSConfig{
			Name:        "news-feed",
			URLTemplate: cfg.Sources.NewsFeedURL,
			UserAgent:   cfg.Sources.UserAgent,
			Timeout:     cfg.Sources.Timeout,
		}, r)
	}
	if cfg.Sources.ForumSearchURL != "" {
		out[signal.KindForum] = sources.NewForumSource(sources.ForumConfig{
			SearchURL: cfg.Sources.ForumSearchURL,
			UserAgent: cfg.Sources.UserAgent,
			Timeout:   cfg.Sources.Timeout,
		}, r)
	}
	if cfg.Sources.SimulateSocial {
		out[signal.KindProfessional] = sources.NewSimulatedProfessionalSource(nil)
		out[signal.KindQuote] = sources.NewSimulatedQuoteSource(nil)
	}

	names := make([]string, 0, len(out))
	for _, s := range out {
		names = append(names, s.Name())
	}
	log.Infow("Signal sources configured", "sources", names)
	return out
}

// provideCrisisPipeline builds validation over the news source and
// verification over the news feed plus every configured corroborator feed.
// The news feed never corroborates events it found itself.
// Without a news source there is nothing to validate against.
func provideCrisisPipeline(cfg *config.Config, news signal.Source, limiters *ratelimit.Registry, log *logger.Logger) *crisis.Pipeline {
	if news == nil {
		log.Warn("No news source configured, crisis pipeline disabled")
		return nil
	}

	ccfg := crisis.DefaultConfig()
	ccfg.MinScore = cfg.Verification.MinScore
	ccfg.MinRelevance = cfg.Verification.MinRelevance
	ccfg.MinimumSources = cfg.Verification.MinimumSources
	ccfg.MinimumConfidence = cfg.Verification.MinimumConfidence
	ccfg.Concurrency = cfg.Verification.Concurrency
	ccfg.MaxVerifiedEvents = cfg.Verification.MaxEvents

	// Corroborators retry on their own; their feeds run without a retry budget
	r := provideRetry(cfg)
	feed := func(name, tmpl string, reliability float64) crisis.Corroborator {
		src := sources.NewRSSNewsSource(sources.RSSConfig{
			Name:        name,
			URLTemplate: tmpl,
			UserAgent:   cfg.Sources.UserAgent,
			Timeout:     cfg.Sources.Timeout,
			Confidence:  reliability,
		}, nil)
		return crisis.NewFeedCorroborator(src, reliability, r, limiters.For(name), ccfg)
	}

	corroborators := []crisis.Corroborator{
		feed(news.Name(), cfg.Sources.NewsFeedURL, 0.7),
	}
	for _, tmpl := range cfg.Verification.CorroboratorFeeds {
		corroborators = append(corroborators, feed(feedName(tmpl), tmpl, corroboratorReliability))
	}

	return crisis.NewPipeline(
		crisis.NewValidator(news, ccfg),
		crisis.NewVerifier(corroborators, ccfg),
	)
}

// feedName derives a source name from a feed URL template
func feedName(tmpl string) string {
	u, err := url.Parse(strings.ReplaceAll(tmpl, "%s", ""))
	if err != nil || u.Host == "" {
		return "feed"
	}
	return strings.TrimPrefix(u.Host, "www.")
}

func provideWorkers(cfg *config.Config, service *dashboard.Service) []workers.WorkerWithHealth {
	return []workers.WorkerWithHealth{
		watchlist.NewRefresher(
			service,
			cfg.Workers.Watchlist,
			cfg.Workers.WatchlistInterval,
			cfg.Workers.WatchlistEnabled,
		),
	}
}

// workersCheck fails when an enabled worker missed two intervals or keeps failing
func workersCheck(registry *workers.Registry, interval time.Duration) health.CheckFunc {
	return func(ctx context.Context) error {
		if stale := registry.GetUnhealthyWorkers(2*interval, time.Now()); len(stale) > 0 {
			return errors.Wrapf(errors.ErrUnavailable, "unhealthy workers: %s", strings.Join(stale, ", "))
		}
		return nil
	}
}
