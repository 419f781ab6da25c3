package validation

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crisiswatch/internal/domain/metrics"
	"crisiswatch/internal/services/synthesis"
	"crisiswatch/pkg/logger"
)

var testNow = time.Date(2025, time.December, 15, 14, 37, 0, 0, time.UTC)

func newTestValidator() *Validator {
	return NewValidator(logger.Nop())
}

func containsField(msgs []string, field string) bool {
	for _, m := range msgs {
		if strings.HasPrefix(m, field) {
			return true
		}
	}
	return false
}

func TestValidate_SyntheticMetricsAreValid(t *testing.T) {
	for _, name := range []string{"Kaseya", "Acme Corp", "First Republic Bank"} {
		result := newTestValidator().Validate(synthesis.Generate(name, testNow))
		assert.True(t, result.IsValid, "%s: %v", name, result.Errors)
		assert.Empty(t, result.Errors)
	}
}

func TestValidate_KPIOutOfRange(t *testing.T) {
	m := synthesis.Generate("Kaseya", testNow)

	m.KPIMetrics.OverallSentiment = 150
	result := newTestValidator().Validate(m)
	assert.False(t, result.IsValid)
	require.NotEmpty(t, result.Errors)
	assert.True(t, containsField(result.Errors, "kpi_metrics.overall_sentiment"))

	m.KPIMetrics.OverallSentiment = 100
	result = newTestValidator().Validate(m)
	assert.False(t, containsField(result.Errors, "kpi_metrics.overall_sentiment"))
	assert.True(t, result.IsValid)
}

func TestValidate_EmptyCollections(t *testing.T) {
	m := synthesis.Generate("Kaseya", testNow)
	m.PlatformMetrics = nil
	m.KPIMetrics = nil

	result := newTestValidator().Validate(m)

	assert.False(t, result.IsValid)
	assert.Contains(t, result.Errors, "platform_metrics: must not be empty")
	assert.Contains(t, result.Errors, "kpi_metrics: must not be empty")
}

func TestValidate_EmptyThreatsIsWarning(t *testing.T) {
	m := synthesis.Generate("Kaseya", testNow)
	m.ThreatsOpportunities = nil

	result := newTestValidator().Validate(m)

	assert.True(t, result.IsValid)
	assert.Contains(t, result.Warnings, "threats_opportunities: no threats or opportunities")
}

func TestValidate_Warnings(t *testing.T) {
	m := synthesis.Generate("Kaseya", testNow)
	m.SentimentData = m.SentimentData[:3]
	m.HourlyData = m.HourlyData[:10]
	m.SentimentData[0].Sentiment = -98

	var events []metrics.ValidatedCrisisEvent
	for _, e := range m.CrisisEvents {
		if e.Type != metrics.EventCrisis {
			events = append(events, e)
		}
	}
	m.CrisisEvents = events

	result := newTestValidator().Validate(m)

	assert.True(t, result.IsValid, result.Errors)
	assert.Contains(t, result.Warnings, "sentiment_data: only 3 daily points")
	assert.Contains(t, result.Warnings, "hourly_data: expected 25 hourly points, got 10")
	assert.Contains(t, result.Warnings, "crisis_events: no crisis genesis event")
	assert.True(t, containsField(result.Warnings, "sentiment_data: "))
}

func TestValidate_SeriesOrderAndRanges(t *testing.T) {
	m := synthesis.Generate("Kaseya", testNow)
	m.SentimentData[5].Timestamp = m.SentimentData[4].Timestamp
	m.SentimentData[6].Volume = -1
	m.SentimentData[7].Confidence = 1.5

	result := newTestValidator().Validate(m)

	assert.False(t, result.IsValid)
	assert.True(t, containsField(result.Errors, "sentiment_data[5].timestamp"))
	assert.True(t, containsField(result.Errors, "sentiment_data[6].volume"))
	assert.True(t, containsField(result.Errors, "sentiment_data[7].confidence"))
}

func TestValidate_PlaceholderCannotBeVerified(t *testing.T) {
	m := synthesis.Generate("Kaseya", testNow)
	m.CrisisEvents[0].Placeholder = true
	m.CrisisEvents[0].Verified = true

	result := newTestValidator().Validate(m)

	assert.False(t, result.IsValid)
	assert.True(t, containsField(result.Errors, "crisis_events[0].verified"))
}

func TestValidate_Nil(t *testing.T) {
	result := newTestValidator().Validate(nil)
	assert.False(t, result.IsValid)
	assert.NotEmpty(t, result.Errors)
}
