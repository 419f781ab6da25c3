package daterange

import (
	"math"
	"strings"
	"time"

	"crisiswatch/internal/domain/company"
	"crisiswatch/internal/domain/metrics"
	"crisiswatch/pkg/errors"
)

// Period is a canonical timeframe selector
type Period string

const (
	Period24h Period = "24h"
	Period7d  Period = "7d"
	Period30d Period = "30d"
	Period1y  Period = "1y"
	PeriodAll Period = "all"
)

// Periods lists the supported periods in display order
var Periods = []Period{Period24h, Period7d, Period30d, Period1y, PeriodAll}

type periodSpec struct {
	span   time.Duration // zero means "since epoch"
	days   int
	label  string
	format string
}

var specs = map[Period]periodSpec{
	Period24h: {span: 24 * time.Hour, days: 1, label: "Last 24 Hours", format: "15:04"},
	Period7d:  {span: 7 * 24 * time.Hour, days: 7, label: "Last 7 Days", format: "Jan 2"},
	Period30d: {span: 30 * 24 * time.Hour, days: 30, label: "Last 30 Days", format: "Jan 2"},
	Period1y:  {span: 365 * 24 * time.Hour, days: 365, label: "Last Year", format: "Jan 2006"},
	PeriodAll: {label: "All Time", format: "Jan 2006"},
}

// ParsePeriod validates a period string; empty defaults to 30d
func ParsePeriod(s string) (Period, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return Period30d, nil
	}
	p := Period(s)
	if _, ok := specs[p]; !ok {
		return "", errors.Wrapf(errors.ErrInvalidPeriod, "%q", s)
	}
	return p, nil
}

// DateRange is an inclusive [Start, End] window
type DateRange struct {
	Period       Period    `json:"period"`
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	TotalDays    int       `json:"total_days"`
	Label        string    `json:"label"`
	FormatString string    `json:"format_string"`
}

// Contains reports whether t falls inside the window, bounds included
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// GetDateRange returns the window of a period ending at now
func GetDateRange(period Period, now time.Time) (DateRange, error) {
	spec, ok := specs[period]
	if !ok {
		return DateRange{}, errors.Wrapf(errors.ErrInvalidPeriod, "%q", period)
	}

	r := DateRange{
		Period:       period,
		End:          now,
		TotalDays:    spec.days,
		Label:        spec.label,
		FormatString: spec.format,
	}

	if spec.span == 0 {
		r.Start = company.Epoch
		if now.Before(r.Start) {
			r.Start = now
		}
		r.TotalDays = int(math.Ceil(now.Sub(r.Start).Hours() / 24))
	} else {
		r.Start = now.Add(-spec.span)
	}

	return r, nil
}

// Timestamped is anything placed on the timeline
type Timestamped interface {
	At() time.Time
}

// FilterByRange returns a new slice with the items inside r, order preserved
func FilterByRange[T Timestamped](items []T, r DateRange) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if r.Contains(it.At()) {
			out = append(out, it)
		}
	}
	return out
}

// RangeMetrics are aggregates recomputed over a filtered series
type RangeMetrics struct {
	AverageSentiment int     `json:"average_sentiment"`
	TotalVolume      int     `json:"total_volume"`
	DataPoints       int     `json:"data_points"`
	SentimentTrend   float64 `json:"sentiment_trend"` // percent, one decimal
	VolumeTrend      float64 `json:"volume_trend"`    // percent, one decimal
}

// CalculateRangeMetrics derives average, total and midpoint-split trends.
// An empty series yields all zeros.
func CalculateRangeMetrics(series []metrics.SentimentPoint, r DateRange) RangeMetrics {
	points := FilterByRange(series, r)
	if len(points) == 0 {
		return RangeMetrics{}
	}

	sentiments := make([]float64, len(points))
	volumes := make([]float64, len(points))
	total := 0
	for i, p := range points {
		sentiments[i] = float64(p.Sentiment)
		volumes[i] = float64(p.Volume)
		total += p.Volume
	}

	mid := len(points) / 2
	return RangeMetrics{
		AverageSentiment: int(math.Round(mean(sentiments))),
		TotalVolume:      total,
		DataPoints:       len(points),
		SentimentTrend:   trend(sentiments[:mid], sentiments[mid:]),
		VolumeTrend:      trend(volumes[:mid], volumes[mid:]),
	}
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// trend is the percent change of the second-half mean over the first-half mean
func trend(first, second []float64) float64 {
	if len(first) == 0 || len(second) == 0 {
		return 0
	}
	base := mean(first)
	if base == 0 {
		return 0
	}
	return math.Round((mean(second)-base)/math.Abs(base)*100*10) / 10
}

// View is a read-only projection of a metrics aggregate onto a date range
type View struct {
	Range        DateRange               `json:"range"`
	Metrics      *metrics.CompanyMetrics `json:"metrics"`
	RangeMetrics RangeMetrics            `json:"range_metrics"`
}

// Apply projects m onto the period ending at now. The source aggregate is
// never modified; the view holds a filtered deep copy. For the 24h period the
// range metrics come from the hourly series.
func Apply(m *metrics.CompanyMetrics, period Period, now time.Time) (*View, error) {
	if m == nil {
		return nil, errors.Wrap(errors.ErrInvalidInput, "metrics required")
	}

	r, err := GetDateRange(period, now)
	if err != nil {
		return nil, err
	}

	projected := m.Clone()
	projected.SentimentData = FilterByRange(projected.SentimentData, r)
	projected.HourlyData = FilterByRange(projected.HourlyData, r)
	projected.CrisisEvents = FilterByRange(projected.CrisisEvents, r)

	series := projected.SentimentData
	if period == Period24h {
		series = projected.HourlyData
	}

	return &View{
		Range:        r,
		Metrics:      projected,
		RangeMetrics: CalculateRangeMetrics(series, r),
	}, nil
}
