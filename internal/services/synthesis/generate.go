package synthesis

import (
	"time"

	"crisiswatch/internal/domain/metrics"
)

// Generate assembles a complete synthetic CompanyMetrics for name at now.
// Timeline events come from the deterministic generator and are never verified.
func Generate(name string, now time.Time) *metrics.CompanyMetrics {
	events := CrisisTimeline(name, now)

	return &metrics.CompanyMetrics{
		CompanyName:          name,
		GeneratedAt:          now,
		DataSource:           metrics.SourceSynthetic,
		SentimentData:        SentimentSeries(name, now),
		HourlyData:           HourlySeries(name, now),
		KPIMetrics:           KPIs(name),
		PlatformMetrics:      PlatformMetrics(name),
		StakeholderSegments:  StakeholderSegments(name),
		GeographicData:       GeographicData(name),
		CompetitorData:       CompetitorData(name),
		CrisisEvents:         events,
		ThreatsOpportunities: ThreatsOpportunities(name),
		CrisisVerification: metrics.CrisisVerification{
			TotalEvents: len(events),
		},
	}
}
