package synthesis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crisiswatch/internal/domain/company"
	"crisiswatch/internal/domain/metrics"
)

var testNow = time.Date(2025, time.December, 15, 14, 37, 0, 0, time.UTC)

var testNames = []string{"Kaseya", "Acme Corp", "First Republic Bank", "Boeing", "Nordic Telecom", ""}

func TestSentimentSeries_Ranges(t *testing.T) {
	for _, name := range testNames {
		series := SentimentSeries(name, testNow)
		require.Len(t, series, company.DayIndex(testNow)+1, name)

		for i, p := range series {
			assert.GreaterOrEqual(t, p.Sentiment, -100)
			assert.LessOrEqual(t, p.Sentiment, 100)
			assert.GreaterOrEqual(t, p.Volume, 0)
			assert.GreaterOrEqual(t, p.Confidence, 0.0)
			assert.LessOrEqual(t, p.Confidence, 1.0)
			if i > 0 {
				assert.True(t, p.Timestamp.After(series[i-1].Timestamp))
			}
		}
	}
}

func TestSentimentSeries_Deterministic(t *testing.T) {
	assert.Equal(t, SentimentSeries("Kaseya", testNow), SentimentSeries("Kaseya", testNow))
}

func TestSentimentSeries_BeforeEpoch(t *testing.T) {
	assert.Empty(t, SentimentSeries("Kaseya", company.Epoch.Add(-time.Hour)))
}

func TestPhaseOf(t *testing.T) {
	assert.Equal(t, PhasePreCrisis, PhaseOf(99, 100))
	assert.Equal(t, PhaseCrisis, PhaseOf(100, 100))
	assert.Equal(t, PhaseCrisis, PhaseOf(106, 100))
	assert.Equal(t, PhaseRecovery, PhaseOf(107, 100))
}

func TestCrisisDayConsistency(t *testing.T) {
	for _, name := range testNames {
		t.Run(name, func(t *testing.T) {
			crisisDay := company.CrisisDay(name)
			series := SentimentSeries(name, testNow)
			events := CrisisTimeline(name, testNow)

			require.NotEmpty(t, events)
			genesis := events[0]
			assert.Equal(t, metrics.EventCrisis, genesis.Type)
			assert.Equal(t, crisisDay, company.DayIndex(genesis.Date))

			// the phase boundary in the series sits on the same day
			assert.Equal(t, PhasePreCrisis, PhaseOf(crisisDay-1, crisisDay))
			assert.Equal(t, PhaseCrisis, PhaseOf(company.DayIndex(genesis.Date), crisisDay))
			assert.Less(t, series[crisisDay].Sentiment, series[crisisDay-1].Sentiment)
			assert.Less(t, series[crisisDay].Sentiment, 0)
		})
	}
}

func TestCrisisTimeline_OrderedAndBounded(t *testing.T) {
	events := CrisisTimeline("Kaseya", testNow)

	genesis := 0
	for i, e := range events {
		assert.True(t, e.Type.Valid())
		assert.GreaterOrEqual(t, e.Impact, -100)
		assert.LessOrEqual(t, e.Impact, 100)
		assert.False(t, e.Verified)
		assert.False(t, e.Date.After(testNow))
		if e.Type == metrics.EventCrisis {
			genesis++
		}
		if i > 0 {
			assert.True(t, e.Date.After(events[i-1].Date))
		}
	}
	assert.Equal(t, 1, genesis)
}

func TestCrisisTimeline_OmitsFutureEvents(t *testing.T) {
	crisisDay := company.CrisisDay("Kaseya")
	now := company.DayDate(crisisDay + 2).Add(time.Hour)

	events := CrisisTimeline("Kaseya", now)
	assert.Len(t, events, 2)
}

func TestHourlySeries(t *testing.T) {
	hourly := HourlySeries("Kaseya", testNow)

	require.Len(t, hourly, HourlyWindow)
	assert.Equal(t, testNow.Truncate(time.Hour), hourly[len(hourly)-1].Timestamp)
	assert.Equal(t, testNow.Truncate(time.Hour).Add(-24*time.Hour), hourly[0].Timestamp)
	for _, p := range hourly {
		assert.GreaterOrEqual(t, p.Sentiment, -100)
		assert.LessOrEqual(t, p.Sentiment, 100)
		assert.GreaterOrEqual(t, p.Volume, 0)
	}
}

func TestKPIs_Ranges(t *testing.T) {
	for _, name := range testNames {
		k := KPIs(name)
		assert.InDelta(t, 0, k.OverallSentiment, 100)
		assert.InDelta(t, 50, k.RecoveryVelocity, 50)
		assert.InDelta(t, 50, k.StakeholderConfidence, 50)
		assert.InDelta(t, 0, k.CompetitiveAdvantage, 100)
		assert.InDelta(t, 0, k.MediaMomentum, 100)
	}
}

func TestEntities(t *testing.T) {
	platforms := PlatformMetrics("Kaseya")
	require.Len(t, platforms, 6)
	assert.Equal(t, "Twitter/X", platforms[0].Platform)
	assert.NotEqual(t, platforms[0].Sentiment, platforms[1].Sentiment)

	assert.Len(t, StakeholderSegments("Kaseya"), 6)
	assert.Len(t, GeographicData("Kaseya"), 6)

	for _, c := range CompetitorData("Toyota Motors") {
		assert.NotEqual(t, "Toyota", c.Name)
	}
}

func TestThreatsOpportunities(t *testing.T) {
	items := ThreatsOpportunities("Kaseya")
	require.Len(t, items, 6)

	threats := 0
	for _, it := range items {
		if it.Kind == metrics.KindThreat {
			threats++
		}
		assert.GreaterOrEqual(t, it.Probability, 0.0)
		assert.LessOrEqual(t, it.Probability, 1.0)
	}
	assert.Equal(t, 3, threats)
}

func TestGenerate(t *testing.T) {
	m := Generate("Kaseya", testNow)

	assert.Equal(t, metrics.SourceSynthetic, m.DataSource)
	assert.NotEmpty(t, m.SentimentData)
	assert.Len(t, m.HourlyData, HourlyWindow)
	assert.NotNil(t, m.KPIMetrics)
	assert.False(t, m.CrisisVerification.IsVerified)
	assert.Equal(t, len(m.CrisisEvents), m.CrisisVerification.TotalEvents)
}

func TestGenerate_NeverPanics(t *testing.T) {
	for _, name := range []string{"", " ", "\x00\xff", "🚀 Rocket Labs", string(make([]byte, 500))} {
		assert.NotPanics(t, func() { Generate(name, testNow) })
	}
}
