package metrics

import "time"

// DataSource tells where a CompanyMetrics aggregate came from
type DataSource string

const (
	SourceSynthetic         DataSource = "synthetic"
	SourceLive              DataSource = "live"
	SourceSyntheticFallback DataSource = "synthetic-fallback"
)

// EventType classifies a crisis timeline entry
type EventType string

const (
	EventAnnouncement EventType = "announcement"
	EventCrisis       EventType = "crisis"
	EventResponse     EventType = "response"
	EventExternal     EventType = "external"
)

// Valid reports whether t is one of the known event types
func (t EventType) Valid() bool {
	switch t {
	case EventAnnouncement, EventCrisis, EventResponse, EventExternal:
		return true
	}
	return false
}

// SentimentPoint is one sample of a daily or hourly sentiment series
type SentimentPoint struct {
	Timestamp  time.Time `json:"timestamp"`
	Sentiment  int       `json:"sentiment"` // -100 to 100
	Volume     int       `json:"volume"`
	Platform   string    `json:"platform"`
	Confidence float64   `json:"confidence"` // 0-1
}

// At returns the sample time
func (p SentimentPoint) At() time.Time { return p.Timestamp }

// KPIMetrics is the headline snapshot
type KPIMetrics struct {
	OverallSentiment      float64 `json:"overall_sentiment"`      // -100 to 100
	RecoveryVelocity      float64 `json:"recovery_velocity"`      // 0-100
	StakeholderConfidence float64 `json:"stakeholder_confidence"` // 0-100
	CompetitiveAdvantage  float64 `json:"competitive_advantage"`  // -100 to 100
	MediaMomentum         float64 `json:"media_momentum"`         // -100 to 100
}

// PlatformMetric summarises one channel (Twitter/X, Reddit, ...)
type PlatformMetric struct {
	Platform       string  `json:"platform"`
	Sentiment      int     `json:"sentiment"`
	Volume         int     `json:"volume"`
	Reach          int     `json:"reach"`
	EngagementRate float64 `json:"engagement_rate"` // 0-1
	Confidence     float64 `json:"confidence"`
	Trend          float64 `json:"trend"` // percent change, unbounded
}

// StakeholderSegment summarises one audience segment
type StakeholderSegment struct {
	Segment     string   `json:"segment"`
	Sentiment   int      `json:"sentiment"`
	Volume      int      `json:"volume"`
	Influence   float64  `json:"influence"` // 0-1
	Confidence  float64  `json:"confidence"`
	KeyConcerns []string `json:"key_concerns"`
}

// GeographicData summarises one region
type GeographicData struct {
	Region     string  `json:"region"`
	Sentiment  int     `json:"sentiment"`
	Volume     int     `json:"volume"`
	Reach      int     `json:"reach"`
	Confidence float64 `json:"confidence"`
}

// CompetitorData compares the company with one competitor
type CompetitorData struct {
	Name           string  `json:"name"`
	Sentiment      int     `json:"sentiment"`
	Volume         int     `json:"volume"`
	MarketShare    float64 `json:"market_share"`    // 0-1
	CrisisExposure float64 `json:"crisis_exposure"` // 0-1
}

// Provenance carries the trust fields produced by crisis verification.
// Synthetic entries leave it zero: unverified, no sources.
type Provenance struct {
	VerificationScore float64  `json:"verification_score"` // 0-100
	CompanyRelevance  float64  `json:"company_relevance"`  // 0-100
	Sources           []string `json:"sources,omitempty"`
	VerifiedURL       string   `json:"verified_url,omitempty"`
	Verified          bool     `json:"verified"`
	Confidence        float64  `json:"confidence"` // 0-1
	Placeholder       bool     `json:"placeholder,omitempty"`
	Origin            string   `json:"origin,omitempty"` // source the event was found in
}

// CrisisEvent is a single timeline entry
type CrisisEvent struct {
	ID          string    `json:"id"`
	Date        time.Time `json:"date"`
	Title       string    `json:"title"`
	Type        EventType `json:"type"`
	Impact      int       `json:"impact"` // -100 to 100
	Description string    `json:"description"`
}

// At returns the event date
func (e CrisisEvent) At() time.Time { return e.Date }

// ValidatedCrisisEvent is a CrisisEvent with provenance attached
type ValidatedCrisisEvent struct {
	CrisisEvent
	Provenance
}

// ItemKind separates threats from opportunities
type ItemKind string

const (
	KindThreat      ItemKind = "threat"
	KindOpportunity ItemKind = "opportunity"
)

// ThreatOpportunity is a scored forward-looking item
type ThreatOpportunity struct {
	ID          string   `json:"id"`
	Kind        ItemKind `json:"kind"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Probability float64  `json:"probability"` // 0-1
	Impact      int      `json:"impact"`      // 0-100 magnitude
	Timeframe   string   `json:"timeframe"`
	Provenance
}

// CrisisVerification is the overall verdict of the crisis pipeline
type CrisisVerification struct {
	IsVerified     bool     `json:"is_verified"`
	Confidence     float64  `json:"confidence"` // 0-1
	VerifiedEvents int      `json:"verified_events"`
	TotalEvents    int      `json:"total_events"`
	Sources        []string `json:"sources,omitempty"`
}

// ValidationResult is the verdict of the metrics validator.
// IsValid is true iff Errors is empty; warnings never block.
type ValidationResult struct {
	IsValid  bool     `json:"is_valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// CompanyMetrics is the root aggregate built for one company
type CompanyMetrics struct {
	CompanyName          string                 `json:"company_name"`
	GeneratedAt          time.Time              `json:"generated_at"`
	DataSource           DataSource             `json:"data_source"`
	SentimentData        []SentimentPoint       `json:"sentiment_data"`
	HourlyData           []SentimentPoint       `json:"hourly_data"`
	KPIMetrics           *KPIMetrics            `json:"kpi_metrics"`
	PlatformMetrics      []PlatformMetric       `json:"platform_metrics"`
	StakeholderSegments  []StakeholderSegment   `json:"stakeholder_segments"`
	GeographicData       []GeographicData       `json:"geographic_data"`
	CompetitorData       []CompetitorData       `json:"competitor_data"`
	CrisisEvents         []ValidatedCrisisEvent `json:"crisis_events"`
	ThreatsOpportunities []ThreatOpportunity    `json:"threats_opportunities"`
	CrisisVerification   CrisisVerification     `json:"crisis_verification"`
	Validation           ValidationResult       `json:"validation"`
}

// Clone returns a deep copy; projections work on the copy and never write back.
func (m *CompanyMetrics) Clone() *CompanyMetrics {
	if m == nil {
		return nil
	}

	c := *m
	c.SentimentData = append([]SentimentPoint(nil), m.SentimentData...)
	c.HourlyData = append([]SentimentPoint(nil), m.HourlyData...)
	if m.KPIMetrics != nil {
		kpi := *m.KPIMetrics
		c.KPIMetrics = &kpi
	}
	c.PlatformMetrics = append([]PlatformMetric(nil), m.PlatformMetrics...)
	c.GeographicData = append([]GeographicData(nil), m.GeographicData...)
	c.CompetitorData = append([]CompetitorData(nil), m.CompetitorData...)

	c.StakeholderSegments = make([]StakeholderSegment, len(m.StakeholderSegments))
	for i, s := range m.StakeholderSegments {
		s.KeyConcerns = append([]string(nil), s.KeyConcerns...)
		c.StakeholderSegments[i] = s
	}

	c.CrisisEvents = make([]ValidatedCrisisEvent, len(m.CrisisEvents))
	for i, e := range m.CrisisEvents {
		e.Sources = append([]string(nil), e.Sources...)
		c.CrisisEvents[i] = e
	}

	c.ThreatsOpportunities = make([]ThreatOpportunity, len(m.ThreatsOpportunities))
	for i, t := range m.ThreatsOpportunities {
		t.Sources = append([]string(nil), t.Sources...)
		c.ThreatsOpportunities[i] = t
	}

	c.CrisisVerification.Sources = append([]string(nil), m.CrisisVerification.Sources...)
	c.Validation.Errors = append([]string(nil), m.Validation.Errors...)
	c.Validation.Warnings = append([]string(nil), m.Validation.Warnings...)
	return &c
}
