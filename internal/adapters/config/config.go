package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"crisiswatch/pkg/errors"
)

type Config struct {
	App           AppConfig
	HTTP          HTTPConfig
	Redis         RedisConfig
	Kafka         KafkaConfig
	ErrorTracking ErrorTrackingConfig
	Collection    CollectionConfig
	Sources       SourcesConfig
	Verification  VerificationConfig
	Workers       WorkerConfig
}

type AppConfig struct {
	Name     string `envconfig:"APP_NAME" default:"crisiswatch"`
	Env      string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Debug    bool   `envconfig:"DEBUG" default:"false"`
}

type HTTPConfig struct {
	Port            int           `envconfig:"HTTP_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"HTTP_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"HTTP_WRITE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `envconfig:"HTTP_SHUTDOWN_TIMEOUT" default:"10s"`
	// AllowedOrigins for the websocket stream; empty allows any origin
	AllowedOrigins []string `envconfig:"HTTP_ALLOWED_ORIGINS"`
}

func (c HTTPConfig) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// RedisConfig backs the session metrics cache. An empty host disables it.
type RedisConfig struct {
	Host      string        `envconfig:"REDIS_HOST"`
	Port      int           `envconfig:"REDIS_PORT" default:"6379"`
	Password  string        `envconfig:"REDIS_PASSWORD"`
	DB        int           `envconfig:"REDIS_DB" default:"0"`
	KeyPrefix string        `envconfig:"REDIS_KEY_PREFIX" default:"crisiswatch:metrics:"`
	CacheTTL  time.Duration `envconfig:"REDIS_CACHE_TTL" default:"15m"`
}

func (c RedisConfig) Enabled() bool {
	return c.Host != ""
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// KafkaConfig backs swarm and metrics events. No brokers disables publishing.
type KafkaConfig struct {
	Brokers []string `envconfig:"KAFKA_BROKERS"`
	Async   bool     `envconfig:"KAFKA_ASYNC" default:"true"`
}

func (c KafkaConfig) Enabled() bool {
	return len(c.Brokers) > 0
}

type ErrorTrackingConfig struct {
	Enabled     bool   `envconfig:"ERROR_TRACKING_ENABLED" default:"false"`
	Provider    string `envconfig:"ERROR_TRACKING_PROVIDER" default:"sentry"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"SENTRY_ENVIRONMENT" default:"production"`
}

// CollectionConfig drives the agent swarm
type CollectionConfig struct {
	// Mode is synthetic or live
	Mode        string        `envconfig:"COLLECTION_MODE" default:"synthetic"`
	TaskTimeout time.Duration `envconfig:"COLLECTION_TASK_TIMEOUT" default:"15s"`
	StepDelay   time.Duration `envconfig:"COLLECTION_STEP_DELAY" default:"150ms"`
	Lookback    time.Duration `envconfig:"COLLECTION_LOOKBACK" default:"8760h"`
	// CrisisTimeout bounds the live crisis agent, which searches and cross-checks
	CrisisTimeout time.Duration `envconfig:"COLLECTION_CRISIS_TIMEOUT" default:"45s"`
	// RequestsPerMinute per source; 0 disables limiting
	RequestsPerMinute int `envconfig:"COLLECTION_REQUESTS_PER_MINUTE" default:"60"`
}

// SourcesConfig points live mode at external signal providers
type SourcesConfig struct {
	// NewsFeedURL is an RSS/Atom search template; %s receives the escaped query
	NewsFeedURL    string        `envconfig:"SOURCES_NEWS_FEED_URL" default:"https://news.google.com/rss/search?q=%s&hl=en-US&gl=US&ceid=US:en"`
	ForumSearchURL string        `envconfig:"SOURCES_FORUM_SEARCH_URL" default:"https://www.reddit.com/search.json"`
	UserAgent      string        `envconfig:"SOURCES_USER_AGENT" default:"crisiswatch/1.0"`
	Timeout        time.Duration `envconfig:"SOURCES_TIMEOUT" default:"10s"`
	Retries        int           `envconfig:"SOURCES_RETRIES" default:"2"`
	SimulateSocial bool          `envconfig:"SOURCES_SIMULATE_SOCIAL" default:"true"`
}

// VerificationConfig tunes the crisis pipeline
type VerificationConfig struct {
	MinScore          float64 `envconfig:"VERIFICATION_MIN_SCORE" default:"50"`
	MinRelevance      float64 `envconfig:"VERIFICATION_MIN_RELEVANCE" default:"30"`
	MinimumSources    int     `envconfig:"VERIFICATION_MINIMUM_SOURCES" default:"2"`
	MinimumConfidence float64 `envconfig:"VERIFICATION_MINIMUM_CONFIDENCE" default:"0.7"`
	Concurrency       int     `envconfig:"VERIFICATION_CONCURRENCY" default:"4"`
	MaxEvents         int     `envconfig:"VERIFICATION_MAX_EVENTS" default:"10"`
	// CorroboratorFeeds are RSS search templates, independent of the news feed,
	// used to cross-check events
	CorroboratorFeeds []string `envconfig:"VERIFICATION_CORROBORATOR_FEEDS" default:"https://www.bing.com/news/search?q=%s&format=rss,https://news.search.yahoo.com/rss?p=%s"`
}

// WorkerConfig contains intervals for background workers
type WorkerConfig struct {
	WatchlistEnabled  bool          `envconfig:"WORKER_WATCHLIST_ENABLED" default:"false"`
	WatchlistInterval time.Duration `envconfig:"WORKER_WATCHLIST_INTERVAL" default:"10m"`
	Watchlist         []string      `envconfig:"WORKER_WATCHLIST_COMPANIES" default:"Kaseya"`
}

// Load reads configuration from environment variables
// It first tries to load .env file (useful for local development)
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if not exists)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to process env config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects settings the services cannot run with
func (c *Config) Validate() error {
	switch c.Collection.Mode {
	case "synthetic", "live":
	default:
		return errors.Wrapf(errors.ErrInvalidInput, "COLLECTION_MODE must be synthetic or live, got %q", c.Collection.Mode)
	}
	if c.Collection.TaskTimeout <= 0 {
		return errors.Wrap(errors.ErrInvalidInput, "COLLECTION_TASK_TIMEOUT must be positive")
	}
	if c.Collection.CrisisTimeout < 0 {
		return errors.Wrap(errors.ErrInvalidInput, "COLLECTION_CRISIS_TIMEOUT must not be negative")
	}
	if c.Verification.MinimumSources < 1 {
		return errors.Wrap(errors.ErrInvalidInput, "VERIFICATION_MINIMUM_SOURCES must be at least 1")
	}
	return nil
}
