package bootstrap

import (
	"context"
	"sync"

	"crisiswatch/internal/adapters/config"
	"crisiswatch/internal/adapters/kafka"
	redisclient "crisiswatch/internal/adapters/redis"
	"crisiswatch/internal/api"
	"crisiswatch/internal/api/health"
	"crisiswatch/internal/consumers"
	"crisiswatch/internal/events"
	redisrepo "crisiswatch/internal/repository/redis"
	"crisiswatch/internal/services/dashboard"
	"crisiswatch/internal/services/swarm"
	"crisiswatch/internal/workers"
	"crisiswatch/pkg/errors"
	"crisiswatch/pkg/logger"
)

// Version is set at build time
var Version = "dev"

var _ dashboard.Publisher = (*events.SwarmPublisher)(nil)

// Container holds all application dependencies and their lifecycle
// Components are organized in initialization order
type Container struct {
	// Core configuration & logging
	Config       *config.Config
	Log          *logger.Logger
	ErrorTracker errors.Tracker

	// Infrastructure Layer (optional)
	Redis *redisclient.Client

	// External Adapters
	Adapters *Adapters

	// Domain Layer - Services
	Services *Services

	// Application Layer
	Application *Application

	// Background Processing
	Background *Background

	// Lifecycle management
	Lifecycle *Lifecycle
	WG        *sync.WaitGroup
	Context   context.Context
	Cancel    context.CancelFunc
}

// Adapters groups all external adapters
type Adapters struct {
	MetricsCache    *redisrepo.MetricsCache
	KafkaProducer   *kafka.Producer
	RefreshConsumer *kafka.Consumer
	SwarmPublisher  *events.SwarmPublisher
}

// Services groups all domain services
type Services struct {
	TaskDeps  swarm.TaskDeps
	Dashboard *dashboard.Service
}

// Application groups application layer components
type Application struct {
	HTTPServer    *api.Server
	HealthHandler *health.Handler
}

// Background groups all background processing components
type Background struct {
	WorkerScheduler *workers.Scheduler
	WorkerRegistry  *workers.Registry
	RefreshSvc      *consumers.RefreshConsumer
}

// NewContainer creates a new dependency container
func NewContainer() *Container {
	ctx, cancel := context.WithCancel(context.Background())

	return &Container{
		Adapters:    &Adapters{},
		Services:    &Services{},
		Application: &Application{},
		Background:  &Background{},
		Lifecycle:   NewLifecycle(),
		WG:          &sync.WaitGroup{},
		Context:     ctx,
		Cancel:      cancel,
	}
}

// MustInit initializes all components in the correct order
// Panics on any initialization error (fail-fast at startup)
func (c *Container) MustInit() {
	c.MustInitConfig()
	c.MustInitInfrastructure()
	c.MustInitAdapters()
	c.MustInitServices()
	c.MustInitApplication()
	c.MustInitBackground()
}

// Start starts all background components
func (c *Container) Start() error {
	c.Log.Info("Starting all systems...")

	if err := c.Background.WorkerScheduler.Start(c.Context); err != nil {
		return errors.Wrap(err, "start workers")
	}

	if svc := c.Background.RefreshSvc; svc != nil {
		c.WG.Add(1)
		go func() {
			defer c.WG.Done()
			if err := svc.Start(c.Context); err != nil && c.Context.Err() == nil {
				c.Log.Errorw("Refresh consumer failed", "error", err)
			}
		}()
		c.Log.Info("✓ Refresh consumer started")
	}

	// Start HTTP server
	c.WG.Add(1)
	go func() {
		defer c.WG.Done()
		if err := c.Application.HTTPServer.Start(); err != nil {
			c.Log.Errorf("HTTP server failed: %v", err)
			c.Cancel() // Trigger shutdown on fatal HTTP error
		}
	}()

	c.Log.Infow("✓ All systems operational",
		"mode", c.Services.Dashboard.Mode(),
		"cache", c.Adapters.MetricsCache != nil,
		"events", c.Adapters.KafkaProducer != nil,
	)
	return nil
}

// Shutdown performs graceful shutdown in the correct order
func (c *Container) Shutdown() {
	c.Log.Info("Initiating graceful shutdown...")

	// Cancel application context to signal all components to stop
	c.Cancel()

	c.Lifecycle.Shutdown(
		c.WG,
		c.Application.HTTPServer,
		c.Background.WorkerScheduler,
		c.Adapters.RefreshConsumer,
		c.Adapters.KafkaProducer,
		c.Redis,
		c.ErrorTracker,
		c.Log,
	)
}
