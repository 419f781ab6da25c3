package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crisiswatch/internal/domain/metrics"
	"crisiswatch/internal/services/daterange"
	"crisiswatch/internal/services/synthesis"
)

var testNow = time.Date(2025, time.December, 15, 14, 37, 0, 0, time.UTC)

func TestSummary_Nil(t *testing.T) {
	assert.Equal(t, "No metrics available\n", Summary(nil, testNow))
}

func TestSummary_SyntheticView(t *testing.T) {
	m := synthesis.Generate("Kaseya", testNow)
	m.Validation = metrics.ValidationResult{IsValid: true, Errors: []string{}, Warnings: []string{}}

	view, err := daterange.Apply(m, daterange.Period30d, testNow)
	require.NoError(t, err)

	out := Summary(view, testNow)
	assert.Contains(t, out, "CRISIS SENTIMENT BRIEF - Kaseya")
	assert.Contains(t, out, "Period: Last 30 Days")
	assert.Contains(t, out, "Data source: synthetic, generated now")
	assert.Contains(t, out, "across 30 data points")
	assert.Contains(t, out, "KPIS:")
	assert.Contains(t, out, "- Twitter/X:")
	assert.Contains(t, out, "VERIFICATION: unverified")
	assert.NotContains(t, out, "VALIDATION FAILED")
}

func TestSummary_ValidationErrorsListed(t *testing.T) {
	m := synthesis.Generate("Kaseya", testNow)
	m.Validation = metrics.ValidationResult{
		IsValid: false,
		Errors:  []string{"kpi_metrics.overall_sentiment: out of range"},
	}
	view, err := daterange.Apply(m, daterange.PeriodAll, testNow)
	require.NoError(t, err)

	out := Summary(view, testNow)
	assert.Contains(t, out, "VALIDATION FAILED (1 errors):")
	assert.Contains(t, out, "- kpi_metrics.overall_sentiment: out of range")
}

func TestTimeline_MarksProvenance(t *testing.T) {
	day := time.Date(2025, time.December, 1, 0, 0, 0, 0, time.UTC)
	m := &metrics.CompanyMetrics{CrisisEvents: []metrics.ValidatedCrisisEvent{
		{CrisisEvent: metrics.CrisisEvent{Date: day, Title: "Breach", Type: metrics.EventCrisis, Impact: -80}, Provenance: metrics.Provenance{Verified: true}},
		{CrisisEvent: metrics.CrisisEvent{Date: day.Add(48 * time.Hour), Title: "Apology", Type: metrics.EventResponse, Impact: 20}, Provenance: metrics.Provenance{Placeholder: true}},
	}}

	out := timeline(m, testNow)
	assert.Contains(t, out, "Breach, impact -80 [verified]")
	assert.Contains(t, out, "Apology, impact +20 [placeholder]")
	assert.Contains(t, out, "2 weeks ago")
}

func TestTimeline_Truncates(t *testing.T) {
	var events []metrics.ValidatedCrisisEvent
	for i := 0; i < 8; i++ {
		events = append(events, metrics.ValidatedCrisisEvent{CrisisEvent: metrics.CrisisEvent{
			Date: testNow.AddDate(0, 0, -30+i), Title: "e", Type: metrics.EventExternal,
		}})
	}
	out := timeline(&metrics.CompanyMetrics{CrisisEvents: events}, testNow)
	assert.Contains(t, out, "... 3 earlier events")
}

func TestClassify(t *testing.T) {
	assert.Equal(t, "very positive", classify(75))
	assert.Equal(t, "neutral", classify(0))
	assert.Equal(t, "neutral", classify(-9))
	assert.Equal(t, "slightly negative", classify(-10))
	assert.Equal(t, "very negative", classify(-90))
}
