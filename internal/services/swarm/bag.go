package swarm

import (
	"crisiswatch/internal/domain/metrics"
	"crisiswatch/internal/domain/signal"
)

// Bag accumulates everything the agents of one run collected.
// It is owned by the coordinator and only touched through Reporter.Merge.
type Bag struct {
	Signals              []signal.Signal
	SentimentData        []metrics.SentimentPoint
	HourlyData           []metrics.SentimentPoint
	KPIMetrics           *metrics.KPIMetrics
	PlatformMetrics      []metrics.PlatformMetric
	StakeholderSegments  []metrics.StakeholderSegment
	GeographicData       []metrics.GeographicData
	CompetitorData       []metrics.CompetitorData
	CrisisEvents         []metrics.ValidatedCrisisEvent
	CrisisVerification   *metrics.CrisisVerification
	ThreatsOpportunities []metrics.ThreatOpportunity
}

// copy returns a shallow copy with fresh top-level slices
func (b *Bag) copy() Bag {
	c := *b
	c.Signals = append([]signal.Signal(nil), b.Signals...)
	c.SentimentData = append([]metrics.SentimentPoint(nil), b.SentimentData...)
	c.HourlyData = append([]metrics.SentimentPoint(nil), b.HourlyData...)
	c.PlatformMetrics = append([]metrics.PlatformMetric(nil), b.PlatformMetrics...)
	c.StakeholderSegments = append([]metrics.StakeholderSegment(nil), b.StakeholderSegments...)
	c.GeographicData = append([]metrics.GeographicData(nil), b.GeographicData...)
	c.CompetitorData = append([]metrics.CompetitorData(nil), b.CompetitorData...)
	c.CrisisEvents = append([]metrics.ValidatedCrisisEvent(nil), b.CrisisEvents...)
	c.ThreatsOpportunities = append([]metrics.ThreatOpportunity(nil), b.ThreatsOpportunities...)
	return c
}

// hasSignalVolume reports whether any daily point carries data
func (b *Bag) hasSignalVolume() bool {
	for _, p := range b.SentimentData {
		if p.Volume > 0 {
			return true
		}
	}
	return false
}

// empty reports whether nothing displayable was collected
func (b *Bag) empty() bool {
	return len(b.SentimentData) == 0 &&
		len(b.HourlyData) == 0 &&
		b.KPIMetrics == nil &&
		len(b.PlatformMetrics) == 0 &&
		len(b.StakeholderSegments) == 0 &&
		len(b.GeographicData) == 0 &&
		len(b.CompetitorData) == 0 &&
		len(b.CrisisEvents) == 0
}
