package events

import (
	"context"

	"crisiswatch/internal/adapters/kafka"
	"crisiswatch/internal/domain/metrics"
	"crisiswatch/internal/domain/swarm"
	"crisiswatch/pkg/errors"
)

// MessagePublisher is the slice of kafka.Producer the publishers need
type MessagePublisher interface {
	Publish(ctx context.Context, topic string, key string, event interface{}) error
}

// SwarmStatusEvent is emitted whenever a swarm changes status
type SwarmStatusEvent struct {
	Base            BaseEvent `json:"base"`
	SwarmID         string    `json:"swarm_id"`
	Company         string    `json:"company"`
	Status          string    `json:"status"`
	Epoch           uint64    `json:"epoch"`
	OverallProgress float64   `json:"overall_progress"`
	TotalDataPoints int       `json:"total_data_points"`
	FailedAgents    []string  `json:"failed_agents"`
}

// MetricsGeneratedEvent summarises a finished, validated metrics run
type MetricsGeneratedEvent struct {
	Base             BaseEvent `json:"base"`
	Company          string    `json:"company"`
	DataSource       string    `json:"data_source"`
	IsValid          bool      `json:"is_valid"`
	Errors           int       `json:"errors"`
	Warnings         int       `json:"warnings"`
	OverallSentiment float64   `json:"overall_sentiment"`
	CrisisEvents     int       `json:"crisis_events"`
	VerifiedEvents   int       `json:"verified_events"`
	IsVerified       bool      `json:"is_verified"`
}

// RefreshRequest asks the service to regenerate a company's metrics
type RefreshRequest struct {
	Base    BaseEvent `json:"base"`
	Company string    `json:"company"`
}

// SwarmPublisher publishes swarm and metrics events to Kafka
type SwarmPublisher struct {
	producer MessagePublisher
	source   string
}

// NewSwarmPublisher creates a new swarm event publisher
func NewSwarmPublisher(producer MessagePublisher, source string) *SwarmPublisher {
	if source == "" {
		source = "crisiswatch"
	}
	return &SwarmPublisher{producer: producer, source: source}
}

// PublishSwarmStatus publishes a swarm status change keyed by company
func (p *SwarmPublisher) PublishSwarmStatus(ctx context.Context, s swarm.AgentSwarm) error {
	failed := make([]string, 0)
	for _, a := range s.Failed() {
		failed = append(failed, a.ID)
	}

	event := SwarmStatusEvent{
		Base:            NewBaseEvent(TypeSwarmStatus, p.source),
		SwarmID:         s.ID,
		Company:         SanitizeUTF8(s.CompanyName),
		Status:          string(s.Status),
		Epoch:           s.Epoch,
		OverallProgress: s.OverallProgress,
		TotalDataPoints: s.TotalDataPoints,
		FailedAgents:    failed,
	}
	if err := p.producer.Publish(ctx, kafka.TopicSwarmStatus, event.Company, event); err != nil {
		return errors.Wrap(err, "publish swarm status")
	}
	return nil
}

// PublishMetricsGenerated publishes the summary of a metrics run
func (p *SwarmPublisher) PublishMetricsGenerated(ctx context.Context, m *metrics.CompanyMetrics) error {
	if m == nil {
		return errors.Wrap(errors.ErrInvalidInput, "nil metrics")
	}

	event := MetricsGeneratedEvent{
		Base:           NewBaseEvent(TypeMetricsGenerated, p.source),
		Company:        SanitizeUTF8(m.CompanyName),
		DataSource:     string(m.DataSource),
		IsValid:        m.Validation.IsValid,
		Errors:         len(m.Validation.Errors),
		Warnings:       len(m.Validation.Warnings),
		CrisisEvents:   len(m.CrisisEvents),
		VerifiedEvents: m.CrisisVerification.VerifiedEvents,
		IsVerified:     m.CrisisVerification.IsVerified,
	}
	if m.KPIMetrics != nil {
		event.OverallSentiment = m.KPIMetrics.OverallSentiment
	}
	if err := p.producer.Publish(ctx, kafka.TopicMetricsGenerated, event.Company, event); err != nil {
		return errors.Wrap(err, "publish metrics generated")
	}
	return nil
}

// RequestRefresh asks any running instance to regenerate the company's metrics
func (p *SwarmPublisher) RequestRefresh(ctx context.Context, company string) error {
	event := RefreshRequest{
		Base:    NewBaseEvent(TypeRefreshRequested, p.source),
		Company: SanitizeUTF8(company),
	}
	if err := p.producer.Publish(ctx, kafka.TopicRefreshRequests, event.Company, event); err != nil {
		return errors.Wrap(err, "publish refresh request")
	}
	return nil
}
