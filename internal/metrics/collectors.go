package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"crisiswatch/pkg/logger"
)

// CacheCounter reports how many companies currently have cached metrics
type CacheCounter interface {
	Count(ctx context.Context) (int, error)
}

// CustomCollector collects gauges that are read on scrape instead of being
// pushed from the hot path
type CustomCollector struct {
	log       *logger.Logger
	cache     CacheCounter
	watchlist int

	// Descriptors
	cachedCompanies *prometheus.Desc
	cacheUp         *prometheus.Desc
	watchlistSize   *prometheus.Desc
}

// NewCustomCollector creates a new custom metrics collector; cache may be nil
func NewCustomCollector(log *logger.Logger, cache CacheCounter, watchlist int) *CustomCollector {
	return &CustomCollector{
		log:       log,
		cache:     cache,
		watchlist: watchlist,

		cachedCompanies: prometheus.NewDesc(
			"crisiswatch_cached_companies",
			"Number of companies with cached metrics",
			nil, nil,
		),
		cacheUp: prometheus.NewDesc(
			"crisiswatch_cache_up",
			"Whether the metrics cache answered the last scrape (0=down, 1=up)",
			nil, nil,
		),
		watchlistSize: prometheus.NewDesc(
			"crisiswatch_watchlist_companies",
			"Number of companies refreshed in the background",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector
func (c *CustomCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.cachedCompanies
	ch <- c.cacheUp
	ch <- c.watchlistSize
}

// Collect implements prometheus.Collector
func (c *CustomCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c.collectCache(ctx, ch)
	ch <- prometheus.MustNewConstMetric(c.watchlistSize, prometheus.GaugeValue, float64(c.watchlist))
}

func (c *CustomCollector) collectCache(ctx context.Context, ch chan<- prometheus.Metric) {
	if c.cache == nil {
		return
	}

	count, err := c.cache.Count(ctx)
	if err != nil {
		c.log.Warnw("Failed to count cached companies", "error", err)
		ch <- prometheus.MustNewConstMetric(c.cacheUp, prometheus.GaugeValue, 0)
		return
	}

	ch <- prometheus.MustNewConstMetric(c.cacheUp, prometheus.GaugeValue, 1)
	ch <- prometheus.MustNewConstMetric(c.cachedCompanies, prometheus.GaugeValue, float64(count))
}

// RegisterCustomCollector registers the custom collector
func RegisterCustomCollector(collector *CustomCollector) {
	prometheus.MustRegister(collector)
}
