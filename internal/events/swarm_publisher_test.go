package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"crisiswatch/internal/adapters/kafka"
	"crisiswatch/internal/domain/metrics"
	"crisiswatch/internal/domain/swarm"
	"crisiswatch/pkg/errors"
)

// MockProducer is a mock for MessagePublisher
type MockProducer struct {
	mock.Mock
}

func (m *MockProducer) Publish(ctx context.Context, topic string, key string, event interface{}) error {
	args := m.Called(ctx, topic, key, event)
	return args.Error(0)
}

func TestPublishSwarmStatus(t *testing.T) {
	producer := new(MockProducer)
	producer.On("Publish", mock.Anything, kafka.TopicSwarmStatus, "Kaseya", mock.AnythingOfType("events.SwarmStatusEvent")).Return(nil)

	s := swarm.AgentSwarm{
		ID:          "swarm-1",
		CompanyName: "Kaseya",
		Status:      swarm.StatusCompleted,
		Epoch:       3,
		Agents: []swarm.DataAgent{
			{ID: "news-monitor", Status: swarm.AgentCompleted, Progress: 100},
			{ID: "market-data", Status: swarm.AgentError, Progress: 10},
		},
		OverallProgress: 55,
	}

	require.NoError(t, NewSwarmPublisher(producer, "test").PublishSwarmStatus(context.Background(), s))

	producer.AssertExpectations(t)
	event := producer.Calls[0].Arguments.Get(3).(SwarmStatusEvent)
	assert.Equal(t, TypeSwarmStatus, event.Base.Type)
	assert.Equal(t, "completed", event.Status)
	assert.Equal(t, uint64(3), event.Epoch)
	assert.Equal(t, []string{"market-data"}, event.FailedAgents)
}

func TestPublishMetricsGenerated(t *testing.T) {
	producer := new(MockProducer)
	producer.On("Publish", mock.Anything, kafka.TopicMetricsGenerated, "Kaseya", mock.Anything).Return(nil)

	m := &metrics.CompanyMetrics{
		CompanyName: "Kaseya",
		DataSource:  metrics.SourceSyntheticFallback,
		KPIMetrics:  &metrics.KPIMetrics{OverallSentiment: -12.5},
		Validation:  metrics.ValidationResult{IsValid: false, Errors: []string{"a", "b"}},
		CrisisVerification: metrics.CrisisVerification{
			VerifiedEvents: 1,
			IsVerified:     true,
		},
	}

	require.NoError(t, NewSwarmPublisher(producer, "").PublishMetricsGenerated(context.Background(), m))

	event := producer.Calls[0].Arguments.Get(3).(MetricsGeneratedEvent)
	assert.Equal(t, "synthetic-fallback", event.DataSource)
	assert.Equal(t, 2, event.Errors)
	assert.False(t, event.IsValid)
	assert.Equal(t, -12.5, event.OverallSentiment)
	assert.Equal(t, "crisiswatch", event.Base.Source)
}

func TestPublishMetricsGenerated_Errors(t *testing.T) {
	producer := new(MockProducer)
	producer.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.ErrUnavailable)
	pub := NewSwarmPublisher(producer, "")

	assert.ErrorIs(t, pub.PublishMetricsGenerated(context.Background(), nil), errors.ErrInvalidInput)
	assert.ErrorIs(t, pub.PublishMetricsGenerated(context.Background(), &metrics.CompanyMetrics{CompanyName: "x"}), errors.ErrUnavailable)
	assert.ErrorIs(t, pub.RequestRefresh(context.Background(), "x"), errors.ErrUnavailable)
}
