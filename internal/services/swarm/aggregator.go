package swarm

import (
	"context"
	"sort"
	"time"

	"crisiswatch/internal/domain/metrics"
	"crisiswatch/pkg/errors"
)

// BagAggregator assembles company metrics from what the agents merged.
// The only collection it fills by itself is a live crisis timeline lost to a
// failed crisis agent, which becomes the placeholder timeline.
type BagAggregator struct {
	mode Mode
}

// NewAggregator creates an aggregator labelling results with the mode
func NewAggregator(mode Mode) *BagAggregator {
	if mode == "" {
		mode = ModeSynthetic
	}
	return &BagAggregator{mode: mode}
}

var _ Aggregator = (*BagAggregator)(nil)

// Aggregate implements Aggregator
func (a *BagAggregator) Aggregate(ctx context.Context, companyName string, bag Bag, now time.Time) (*metrics.CompanyMetrics, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if bag.empty() {
		return nil, errors.Wrapf(errors.ErrNoUsableMetrics, "%s: agents produced nothing", companyName)
	}
	if a.mode == ModeLive && len(bag.Signals) == 0 && !bag.hasSignalVolume() {
		return nil, errors.Wrapf(errors.ErrNoUsableMetrics, "%s: no live signal collected", companyName)
	}

	source := metrics.SourceSynthetic
	if a.mode == ModeLive {
		source = metrics.SourceLive
	}

	events := append([]metrics.ValidatedCrisisEvent(nil), bag.CrisisEvents...)
	if a.mode == ModeLive && len(events) == 0 {
		events = PlaceholderTimeline(companyName, now)
		bag.CrisisVerification = nil
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].Date.Before(events[j].Date) })

	verification := metrics.CrisisVerification{TotalEvents: len(events), Sources: []string{}}
	if bag.CrisisVerification != nil {
		verification = *bag.CrisisVerification
		verification.TotalEvents = len(events)
		if verification.Sources == nil {
			verification.Sources = []string{}
		}
	}

	return &metrics.CompanyMetrics{
		CompanyName:          companyName,
		GeneratedAt:          now,
		DataSource:           source,
		SentimentData:        orEmpty(bag.SentimentData),
		HourlyData:           orEmpty(bag.HourlyData),
		KPIMetrics:           bag.KPIMetrics,
		PlatformMetrics:      orEmpty(bag.PlatformMetrics),
		StakeholderSegments:  orEmpty(bag.StakeholderSegments),
		GeographicData:       orEmpty(bag.GeographicData),
		CompetitorData:       orEmpty(bag.CompetitorData),
		CrisisEvents:         events,
		ThreatsOpportunities: orEmpty(bag.ThreatsOpportunities),
		CrisisVerification:   verification,
	}, nil
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
