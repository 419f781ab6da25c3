package crisis

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"crisiswatch/internal/domain/company"
	"crisiswatch/internal/domain/metrics"
	"crisiswatch/internal/domain/signal"
	appmetrics "crisiswatch/internal/metrics"
	"crisiswatch/internal/services/signals"
	"crisiswatch/internal/services/synthesis"
	"crisiswatch/pkg/logger"
)

// Candidate origins
const (
	OriginSearch   = "search"
	OriginFallback = "fallback"
)

// Candidate is a crisis-like article awaiting scoring
type Candidate struct {
	Article signal.NewsArticle
	Type    metrics.EventType
	Impact  int
	Origin  string
}

// ValidationReport is the output of the validation stage
type ValidationReport struct {
	Profile      company.Profile
	Events       []metrics.ValidatedCrisisEvent
	Candidates   int
	Accepted     int
	Rejected     int
	UsedFallback bool
	Placeholders bool
}

// Validator scores candidate events against the company profile
type Validator struct {
	search signal.Source
	cfg    Config
	now    func() time.Time
	log    *logger.Logger
}

// ValidatorOption customises a Validator
type ValidatorOption func(*Validator)

// WithClock overrides the time source
func WithClock(now func() time.Time) ValidatorOption {
	return func(v *Validator) { v.now = now }
}

// NewValidator creates the validation stage. search may be nil, in which case
// candidates always come from the deterministic fallback generator.
func NewValidator(search signal.Source, cfg Config, opts ...ValidatorOption) *Validator {
	v := &Validator{
		search: search,
		cfg:    cfg.withDefaults(),
		now:    time.Now,
		log:    logger.Get().Component("crisis_validator"),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate returns the accepted events for a company, never an empty list:
// when nothing survives scoring, unverified industry placeholders are returned.
func (v *Validator) Validate(ctx context.Context, companyName string) ValidationReport {
	now := v.now()
	profile := company.ProfileFor(companyName)

	candidates := v.searchCandidates(ctx, profile, now)
	report := ValidationReport{Profile: profile}
	if len(candidates) == 0 {
		candidates = fallbackCandidates(companyName, now)
		report.UsedFallback = true
	}
	report.Candidates = len(candidates)

	for _, c := range candidates {
		score := ScoreArticle(profile, c.Article, now)
		accepted := score.Total >= v.cfg.MinScore && score.Relevance >= v.cfg.MinRelevance
		appmetrics.RecordCrisisCandidate(c.Origin, score.Total, accepted)
		if !accepted {
			report.Rejected++
			continue
		}
		report.Accepted++
		report.Events = append(report.Events, toEvent(companyName, c, score, len(report.Events)))
	}

	if len(report.Events) == 0 {
		report.Events = placeholderEvents(companyName, profile, now)
		report.Placeholders = true
	}

	sort.SliceStable(report.Events, func(i, j int) bool {
		return report.Events[i].Date.Before(report.Events[j].Date)
	})

	v.log.Debugw("Crisis candidates scored",
		"company", companyName,
		"candidates", report.Candidates,
		"accepted", report.Accepted,
		"fallback", report.UsedFallback,
		"placeholders", report.Placeholders,
	)

	return report
}

func (v *Validator) searchCandidates(ctx context.Context, p company.Profile, now time.Time) []Candidate {
	if v.search == nil || strings.TrimSpace(p.Name) == "" {
		return nil
	}

	start := time.Now()
	results, err := v.search.Fetch(ctx, signal.Query{
		Company:  p.Name,
		Keywords: p.Risks,
		Since:    now.Add(-v.cfg.SearchWindow),
		Until:    now,
		Limit:    v.cfg.SearchLimit,
	})
	appmetrics.RecordSourceFetch(v.search.Name(), time.Since(start), err)
	if err != nil {
		v.log.Warnw("Crisis search failed, using fallback candidates",
			"company", p.Name,
			"source", v.search.Name(),
			"error", err,
		)
		return nil
	}

	articles := signal.Filter[signal.NewsArticle](results)
	out := make([]Candidate, 0, len(articles))
	for _, a := range articles {
		eventType, impact := classifyArticle(p, a)
		out = append(out, Candidate{Article: a, Type: eventType, Impact: impact, Origin: OriginSearch})
	}
	return out
}

var responseWords = []string{"statement", "responds", "response", "apologizes", "apologises", "remediation", "restored", "plan", "update"}

// classifyArticle derives event type and impact from article text
func classifyArticle(p company.Profile, a signal.NewsArticle) (metrics.EventType, int) {
	doc := newText(a.Title + " " + a.Description)
	impact := int(math.Round(signals.Score(doc.raw) * 70))

	switch {
	case doc.hits(responseWords) > 0:
		return metrics.EventResponse, impact
	case doc.hits(company.CrisisKeywords) > 0:
		if impact > -30 {
			impact = -30
		}
		return metrics.EventCrisis, impact
	case doc.hits(p.Regulators) > 0:
		return metrics.EventExternal, impact
	default:
		return metrics.EventAnnouncement, impact
	}
}

// fallbackCandidates turns the deterministic timeline into candidate articles,
// so fallback events agree with the synthetic sentiment series.
func fallbackCandidates(companyName string, now time.Time) []Candidate {
	timeline := synthesis.CrisisTimeline(companyName, now)
	out := make([]Candidate, 0, len(timeline))
	for _, e := range timeline {
		out = append(out, Candidate{
			Article: signal.NewsArticle{
				Title:       e.Title,
				Description: e.Description,
				PublishedAt: e.Date,
				Outlet:      "generated",
				Provenance:  signal.Meta{Source: "generated", Confidence: 0.3},
			},
			Type:   e.Type,
			Impact: e.Impact,
			Origin: OriginFallback,
		})
	}
	return out
}

func toEvent(companyName string, c Candidate, s Score, n int) metrics.ValidatedCrisisEvent {
	source := c.Article.Outlet
	if source == "" {
		source = c.Article.Provenance.Source
	}

	var sources []string
	if source != "" {
		sources = []string{source}
	}

	return metrics.ValidatedCrisisEvent{
		CrisisEvent: metrics.CrisisEvent{
			ID:          synthesis.EventID(companyName, "candidate-"+c.Origin, n),
			Date:        c.Article.PublishedAt,
			Title:       c.Article.Title,
			Type:        c.Type,
			Impact:      clampImpact(c.Impact),
			Description: c.Article.Description,
		},
		Provenance: metrics.Provenance{
			VerificationScore: s.Total,
			CompanyRelevance:  s.Relevance,
			Sources:           sources,
			VerifiedURL:       c.Article.URL,
			Confidence:        c.Article.Provenance.Confidence,
			Origin:            c.Article.Provenance.Source,
		},
	}
}

// placeholderEvents are industry-appropriate stand-ins, never verified
func placeholderEvents(companyName string, p company.Profile, now time.Time) []metrics.ValidatedCrisisEvent {
	name := companyName
	if strings.TrimSpace(name) == "" {
		name = "The company"
	}

	crisisDate := company.DayDate(company.CrisisDay(companyName))
	if crisisDate.After(now) {
		crisisDate = now.UTC().Truncate(24 * time.Hour)
	}

	steps := []struct {
		offset int
		kind   metrics.EventType
		title  string
		desc   string
		impact int
	}{
		{0, metrics.EventCrisis,
			fmt.Sprintf("Potential %s exposure for %s", p.Risks[0], name),
			fmt.Sprintf("No verified reports found; %s is a typical %s risk.", p.Risks[0], p.Context.Industry), -40},
		{3, metrics.EventExternal,
			fmt.Sprintf("%s scrutiny of %s sector", p.Regulators[0], p.Context.Industry),
			fmt.Sprintf("Sector-wide attention to %s.", p.Risks[1]), -20},
		{7, metrics.EventResponse,
			fmt.Sprintf("%s reviews %s controls", name, p.Risks[len(p.Risks)-1]),
			"Illustrative response milestone.", 10},
	}

	events := make([]metrics.ValidatedCrisisEvent, 0, len(steps))
	for i, s := range steps {
		date := crisisDate.AddDate(0, 0, s.offset)
		if i > 0 && date.After(now) {
			break
		}
		events = append(events, metrics.ValidatedCrisisEvent{
			CrisisEvent: metrics.CrisisEvent{
				ID:          synthesis.EventID(companyName, "placeholder", i),
				Date:        date,
				Title:       s.title,
				Type:        s.kind,
				Impact:      s.impact,
				Description: s.desc,
			},
			Provenance: metrics.Provenance{Placeholder: true},
		})
	}
	return events
}

func clampImpact(v int) int {
	if v < -100 {
		return -100
	}
	if v > 100 {
		return 100
	}
	return v
}
