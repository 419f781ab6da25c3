package validation

import (
	"fmt"
	"math"

	"crisiswatch/internal/domain/metrics"
	appmetrics "crisiswatch/internal/metrics"
	"crisiswatch/pkg/errors"
	"crisiswatch/pkg/logger"
)

const (
	// MinDailyPoints below which the daily series is flagged as thin
	MinDailyPoints = 7
	// ExpectedHourlyPoints is the size of the trailing hourly window
	ExpectedHourlyPoints = 25
	// ExtremeSentiment is the magnitude flagged as unusual
	ExtremeSentiment = 95
)

// Validator is the single gate between generated and displayable metrics
type Validator struct {
	log *logger.Logger
}

// NewValidator creates a metrics validator
func NewValidator(log *logger.Logger) *Validator {
	if log == nil {
		log = logger.Get()
	}
	return &Validator{log: log.Component("metrics_validator")}
}

// report collects the findings for one collection
type report struct {
	collection string
	errs       errors.MultiError
	warnings   []string
}

func (r *report) fail(field, msg string, value interface{}) {
	r.errs.Add(errors.NewValidationError(r.collection+field, msg, value))
}

func (r *report) warn(format string, args ...interface{}) {
	r.warnings = append(r.warnings, r.collection+": "+fmt.Sprintf(format, args...))
}

func (r *report) sentiment(field string, v float64) {
	if math.IsNaN(v) || v < -100 || v > 100 {
		r.fail(field, "must be within [-100, 100]", v)
	}
}

func (r *report) percent(field string, v float64) {
	if math.IsNaN(v) || v < 0 || v > 100 {
		r.fail(field, "must be within [0, 100]", v)
	}
}

func (r *report) probability(field string, v float64) {
	if math.IsNaN(v) || v < 0 || v > 1 {
		r.fail(field, "must be within [0, 1]", v)
	}
}

func (r *report) nonNegative(field string, v int) {
	if v < 0 {
		r.fail(field, "must be non-negative", v)
	}
}

// Validate runs every collection check and concatenates the findings.
// IsValid is true iff no check produced an error.
func (v *Validator) Validate(m *metrics.CompanyMetrics) metrics.ValidationResult {
	if m == nil {
		return metrics.ValidationResult{
			IsValid:  false,
			Errors:   []string{"metrics: missing"},
			Warnings: []string{},
		}
	}

	reports := []*report{
		checkSeries("sentiment_data", m.SentimentData, true),
		checkSeries("hourly_data", m.HourlyData, false),
		checkKPIs(m.KPIMetrics),
		checkPlatforms(m.PlatformMetrics),
		checkStakeholders(m.StakeholderSegments),
		checkRegions(m.GeographicData),
		checkCompetitors(m.CompetitorData),
		checkEvents(m.CrisisEvents),
		checkThreats(m.ThreatsOpportunities),
		checkVerification(m.CrisisVerification),
	}

	result := metrics.ValidationResult{Errors: []string{}, Warnings: []string{}}
	errCounts := map[string]int{}
	warnCounts := map[string]int{}
	for _, r := range reports {
		msgs := r.errs.Messages()
		result.Errors = append(result.Errors, msgs...)
		result.Warnings = append(result.Warnings, r.warnings...)
		if len(msgs) > 0 {
			errCounts[r.collection] = len(msgs)
		}
		if len(r.warnings) > 0 {
			warnCounts[r.collection] = len(r.warnings)
		}
	}
	result.IsValid = len(result.Errors) == 0

	appmetrics.RecordValidation(result.IsValid, errCounts, warnCounts)
	if !result.IsValid {
		v.log.Warnw("Metrics failed validation",
			"company", m.CompanyName,
			"errors", len(result.Errors),
			"warnings", len(result.Warnings),
		)
	}

	return result
}

func checkSeries(collection string, points []metrics.SentimentPoint, daily bool) *report {
	r := &report{collection: collection}
	if len(points) == 0 {
		r.fail("", "must not be empty", nil)
		return r
	}

	extreme := 0
	for i, p := range points {
		field := fmt.Sprintf("[%d]", i)
		r.sentiment(field+".sentiment", float64(p.Sentiment))
		r.nonNegative(field+".volume", p.Volume)
		r.probability(field+".confidence", p.Confidence)
		if p.Timestamp.IsZero() {
			r.fail(field+".timestamp", "must be set", nil)
		}
		if i > 0 && !p.Timestamp.After(points[i-1].Timestamp) {
			r.fail(field+".timestamp", "must be strictly after the previous point", p.Timestamp)
		}
		if abs(p.Sentiment) >= ExtremeSentiment && abs(p.Sentiment) <= 100 {
			extreme++
		}
	}

	if daily && len(points) < MinDailyPoints {
		r.warn("only %d daily points", len(points))
	}
	if !daily && len(points) != ExpectedHourlyPoints {
		r.warn("expected %d hourly points, got %d", ExpectedHourlyPoints, len(points))
	}
	if extreme > 0 {
		r.warn("%d points with extreme sentiment", extreme)
	}
	return r
}

func checkKPIs(k *metrics.KPIMetrics) *report {
	r := &report{collection: "kpi_metrics"}
	if k == nil {
		r.fail("", "must not be empty", nil)
		return r
	}

	r.sentiment(".overall_sentiment", k.OverallSentiment)
	r.percent(".recovery_velocity", k.RecoveryVelocity)
	r.percent(".stakeholder_confidence", k.StakeholderConfidence)
	r.sentiment(".competitive_advantage", k.CompetitiveAdvantage)
	r.sentiment(".media_momentum", k.MediaMomentum)

	if math.Abs(k.OverallSentiment) >= ExtremeSentiment && math.Abs(k.OverallSentiment) <= 100 {
		r.warn("extreme overall sentiment %.1f", k.OverallSentiment)
	}
	return r
}

func checkPlatforms(items []metrics.PlatformMetric) *report {
	r := &report{collection: "platform_metrics"}
	if len(items) == 0 {
		r.fail("", "must not be empty", nil)
		return r
	}

	for i, p := range items {
		field := fmt.Sprintf("[%d]", i)
		if p.Platform == "" {
			r.fail(field+".platform", "must be set", nil)
		}
		r.sentiment(field+".sentiment", float64(p.Sentiment))
		r.nonNegative(field+".volume", p.Volume)
		r.nonNegative(field+".reach", p.Reach)
		r.probability(field+".engagement_rate", p.EngagementRate)
		r.probability(field+".confidence", p.Confidence)
	}
	return r
}

func checkStakeholders(items []metrics.StakeholderSegment) *report {
	r := &report{collection: "stakeholder_segments"}
	if len(items) == 0 {
		r.fail("", "must not be empty", nil)
		return r
	}

	for i, s := range items {
		field := fmt.Sprintf("[%d]", i)
		r.sentiment(field+".sentiment", float64(s.Sentiment))
		r.nonNegative(field+".volume", s.Volume)
		r.probability(field+".influence", s.Influence)
		r.probability(field+".confidence", s.Confidence)
	}
	return r
}

func checkRegions(items []metrics.GeographicData) *report {
	r := &report{collection: "geographic_data"}
	if len(items) == 0 {
		r.fail("", "must not be empty", nil)
		return r
	}

	for i, g := range items {
		field := fmt.Sprintf("[%d]", i)
		r.sentiment(field+".sentiment", float64(g.Sentiment))
		r.nonNegative(field+".volume", g.Volume)
		r.nonNegative(field+".reach", g.Reach)
		r.probability(field+".confidence", g.Confidence)
	}
	return r
}

func checkCompetitors(items []metrics.CompetitorData) *report {
	r := &report{collection: "competitor_data"}
	if len(items) == 0 {
		r.fail("", "must not be empty", nil)
		return r
	}

	for i, c := range items {
		field := fmt.Sprintf("[%d]", i)
		r.sentiment(field+".sentiment", float64(c.Sentiment))
		r.nonNegative(field+".volume", c.Volume)
		r.probability(field+".market_share", c.MarketShare)
		r.probability(field+".crisis_exposure", c.CrisisExposure)
	}
	return r
}

func checkProvenance(r *report, field string, p metrics.Provenance) {
	r.percent(field+".verification_score", p.VerificationScore)
	r.percent(field+".company_relevance", p.CompanyRelevance)
	r.probability(field+".confidence", p.Confidence)
	if p.Verified && p.Placeholder {
		r.fail(field+".verified", "placeholder entries cannot be verified", p.Verified)
	}
}

func checkEvents(events []metrics.ValidatedCrisisEvent) *report {
	r := &report{collection: "crisis_events"}
	if len(events) == 0 {
		r.fail("", "must not be empty", nil)
		return r
	}

	genesis := 0
	for i, e := range events {
		field := fmt.Sprintf("[%d]", i)
		if !e.Type.Valid() {
			r.fail(field+".type", "unknown event type", e.Type)
		}
		if e.Title == "" {
			r.fail(field+".title", "must be set", nil)
		}
		if e.Date.IsZero() {
			r.fail(field+".date", "must be set", nil)
		}
		r.sentiment(field+".impact", float64(e.Impact))
		checkProvenance(r, field, e.Provenance)

		if e.Type == metrics.EventCrisis {
			genesis++
		}
		if i > 0 && e.Date.Before(events[i-1].Date) {
			r.warn("event %d is out of chronological order", i)
		}
	}

	if genesis == 0 {
		r.warn("no crisis genesis event")
	}
	if genesis > 1 {
		r.warn("%d crisis genesis events", genesis)
	}
	return r
}

func checkThreats(items []metrics.ThreatOpportunity) *report {
	r := &report{collection: "threats_opportunities"}
	if len(items) == 0 {
		r.warn("no threats or opportunities")
		return r
	}

	for i, t := range items {
		field := fmt.Sprintf("[%d]", i)
		if t.Kind != metrics.KindThreat && t.Kind != metrics.KindOpportunity {
			r.fail(field+".kind", "must be threat or opportunity", t.Kind)
		}
		r.probability(field+".probability", t.Probability)
		r.percent(field+".impact", float64(t.Impact))
		checkProvenance(r, field, t.Provenance)
	}
	return r
}

func checkVerification(v metrics.CrisisVerification) *report {
	r := &report{collection: "crisis_verification"}
	r.probability(".confidence", v.Confidence)
	if v.VerifiedEvents > v.TotalEvents {
		r.fail(".verified_events", "cannot exceed total events", v.VerifiedEvents)
	}
	if v.IsVerified && v.VerifiedEvents == 0 {
		r.fail(".is_verified", "requires at least one verified event", v.IsVerified)
	}
	return r
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
