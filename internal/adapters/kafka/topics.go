package kafka

// Topic definitions for Kafka event streaming
const (
	// Swarm lifecycle: one message per status change, keyed by company
	TopicSwarmStatus = "crisiswatch.swarm.status"

	// Finished, validated metrics summaries
	TopicMetricsGenerated = "crisiswatch.metrics.generated"

	// Requests to regenerate a company's metrics out of schedule
	TopicRefreshRequests = "crisiswatch.refresh.requests"
)

// ConsumerGroupRefresh is the group id of the refresh consumer
const ConsumerGroupRefresh = "crisiswatch-refresh"
