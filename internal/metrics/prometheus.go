package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Worker metrics
	WorkerExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crisiswatch_worker_executions_total",
			Help: "Total number of worker executions",
		},
		[]string{"worker", "status"}, // status: success|error
	)

	WorkerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "crisiswatch_worker_duration_seconds",
			Help:    "Worker execution duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"worker"},
	)

	WorkerLastRun = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "crisiswatch_worker_last_run_timestamp",
			Help: "Unix timestamp of last worker execution",
		},
		[]string{"worker"},
	)

	// Swarm metrics
	AgentRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crisiswatch_agent_runs_total",
			Help: "Total number of collection agent runs",
		},
		[]string{"agent", "status"}, // status: completed|error
	)

	AgentLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "crisiswatch_agent_latency_seconds",
			Help:    "Collection agent run latency in seconds",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 15, 30},
		},
		[]string{"agent"},
	)

	SwarmRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crisiswatch_swarm_runs_total",
			Help: "Total number of swarm collection runs",
		},
		[]string{"mode", "status"}, // status: completed|error|superseded
	)

	SwarmDataPoints = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "crisiswatch_swarm_data_points",
			Help:    "Data points collected per swarm run",
			Buckets: prometheus.ExponentialBuckets(10, 4, 8),
		},
	)

	StaleUpdatesDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "crisiswatch_stale_updates_dropped_total",
			Help: "Agent updates dropped because their swarm epoch was superseded",
		},
	)

	ActiveSwarms = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "crisiswatch_active_swarms",
			Help: "Number of swarms currently collecting",
		},
	)

	// Validation metrics
	ValidationRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crisiswatch_validation_runs_total",
			Help: "Total number of metrics validations",
		},
		[]string{"result"}, // result: valid|invalid
	)

	ValidationIssues = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crisiswatch_validation_issues_total",
			Help: "Validation errors and warnings by collection",
		},
		[]string{"collection", "severity"}, // severity: error|warning
	)

	FallbacksUsed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crisiswatch_synthetic_fallbacks_total",
			Help: "Times aggregation failed and synthetic metrics were used",
		},
		[]string{"reason"},
	)

	// Crisis pipeline metrics
	CrisisCandidates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crisiswatch_crisis_candidates_total",
			Help: "Crisis candidates scored by the validation stage",
		},
		[]string{"origin", "outcome"}, // origin: search|fallback, outcome: accepted|rejected
	)

	CrisisRelevanceScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "crisiswatch_crisis_relevance_score",
			Help:    "Distribution of crisis candidate scores",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
	)

	CrisisVerifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crisiswatch_crisis_verifications_total",
			Help: "Crisis pipeline verdicts",
		},
		[]string{"verified"}, // true|false
	)

	// Source metrics
	SourceFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crisiswatch_source_fetches_total",
			Help: "External signal source fetches",
		},
		[]string{"source", "status"}, // status: success|error|rate_limited
	)

	SourceLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "crisiswatch_source_latency_seconds",
			Help:    "External signal source latency in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 15},
		},
		[]string{"source"},
	)

	// Cache metrics
	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crisiswatch_cache_lookups_total",
			Help: "Metrics cache lookups",
		},
		[]string{"result"}, // result: hit|miss|error
	)

	// System metrics
	KafkaMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crisiswatch_kafka_messages_total",
			Help: "Total Kafka messages",
		},
		[]string{"topic", "type"}, // type: produced|failed|consumed
	)

	WebSocketConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "crisiswatch_websocket_connections",
			Help: "Number of open swarm stream connections",
		},
	)
)

var initOnce sync.Once

// Init registers all metrics with Prometheus
func Init() {
	initOnce.Do(func() {
		// Worker metrics
		prometheus.MustRegister(WorkerExecutions)
		prometheus.MustRegister(WorkerDuration)
		prometheus.MustRegister(WorkerLastRun)

		// Swarm metrics
		prometheus.MustRegister(AgentRuns)
		prometheus.MustRegister(AgentLatency)
		prometheus.MustRegister(SwarmRuns)
		prometheus.MustRegister(SwarmDataPoints)
		prometheus.MustRegister(StaleUpdatesDropped)
		prometheus.MustRegister(ActiveSwarms)

		// Validation metrics
		prometheus.MustRegister(ValidationRuns)
		prometheus.MustRegister(ValidationIssues)
		prometheus.MustRegister(FallbacksUsed)

		// Crisis pipeline metrics
		prometheus.MustRegister(CrisisCandidates)
		prometheus.MustRegister(CrisisRelevanceScore)
		prometheus.MustRegister(CrisisVerifications)

		// Source metrics
		prometheus.MustRegister(SourceFetches)
		prometheus.MustRegister(SourceLatency)

		// Cache metrics
		prometheus.MustRegister(CacheLookups)

		// System metrics
		prometheus.MustRegister(KafkaMessages)
		prometheus.MustRegister(WebSocketConnections)
	})
}

// Handler returns Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordWorkerExecution records a worker execution
func RecordWorkerExecution(worker string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	WorkerExecutions.WithLabelValues(worker, status).Inc()
	WorkerDuration.WithLabelValues(worker).Observe(duration.Seconds())
	WorkerLastRun.WithLabelValues(worker).SetToCurrentTime()
}

// RecordAgentRun records the outcome of one collection agent
func RecordAgentRun(agent string, latency time.Duration, err error) {
	status := "completed"
	if err != nil {
		status = "error"
	}

	AgentRuns.WithLabelValues(agent, status).Inc()
	AgentLatency.WithLabelValues(agent).Observe(latency.Seconds())
}

// RecordSwarmRun records a finished swarm collection
func RecordSwarmRun(mode, status string, dataPoints int) {
	SwarmRuns.WithLabelValues(mode, status).Inc()
	SwarmDataPoints.Observe(float64(dataPoints))
}

// RecordValidation records a validation verdict and its issue counts per collection
func RecordValidation(valid bool, errorsByCollection, warningsByCollection map[string]int) {
	result := "valid"
	if !valid {
		result = "invalid"
	}
	ValidationRuns.WithLabelValues(result).Inc()

	for collection, n := range errorsByCollection {
		ValidationIssues.WithLabelValues(collection, "error").Add(float64(n))
	}
	for collection, n := range warningsByCollection {
		ValidationIssues.WithLabelValues(collection, "warning").Add(float64(n))
	}
}

// RecordCrisisCandidate records one scored crisis candidate
func RecordCrisisCandidate(origin string, score float64, accepted bool) {
	outcome := "rejected"
	if accepted {
		outcome = "accepted"
	}

	CrisisCandidates.WithLabelValues(origin, outcome).Inc()
	CrisisRelevanceScore.Observe(score)
}

// RecordCrisisVerification records the overall pipeline verdict
func RecordCrisisVerification(verified bool) {
	label := "false"
	if verified {
		label = "true"
	}
	CrisisVerifications.WithLabelValues(label).Inc()
}

// RecordSourceFetch records an external source call
func RecordSourceFetch(source string, latency time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	SourceFetches.WithLabelValues(source, status).Inc()
	SourceLatency.WithLabelValues(source).Observe(latency.Seconds())
}

// RecordCacheLookup records a metrics cache lookup
func RecordCacheLookup(result string) {
	CacheLookups.WithLabelValues(result).Inc()
}
