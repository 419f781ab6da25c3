package swarm

import (
	"context"
	"time"

	"crisiswatch/internal/adapters/ratelimit"
	"crisiswatch/internal/domain/company"
	domain "crisiswatch/internal/domain/swarm"
	"crisiswatch/internal/domain/metrics"
	"crisiswatch/internal/domain/signal"
	appmetrics "crisiswatch/internal/metrics"
	"crisiswatch/internal/services/crisis"
	"crisiswatch/internal/services/synthesis"
	"crisiswatch/pkg/errors"
)

// DefaultCrisisBudget bounds the live crisis agent when no budget is configured
const DefaultCrisisBudget = 45 * time.Second

// mergeMarginShare divides the remaining deadline into the margin kept for merging
const mergeMarginShare = 10

const crisisAgent = "crisis-intelligence"

// Mode selects where agents get their data
type Mode string

const (
	ModeSynthetic Mode = "synthetic"
	ModeLive      Mode = "live"
)

// Roster lists the twelve agents in display order
var Roster = []AgentSpec{
	{ID: "news-monitor", Name: "News Monitor", Type: domain.TypeNews, Phase: PhaseCollect},
	{ID: "social-listener", Name: "Social Listener", Type: domain.TypeSocial, Phase: PhaseCollect},
	{ID: "professional-network", Name: "Professional Network", Type: domain.TypeProfessional, Phase: PhaseCollect},
	{ID: "market-data", Name: "Market Data", Type: domain.TypeMarket, Phase: PhaseCollect},
	{ID: "sentiment-tracker", Name: "Sentiment Tracker", Type: domain.TypeSentiment, Phase: PhaseAnalyze},
	{ID: "realtime-pulse", Name: "Realtime Pulse", Type: domain.TypeRealtime, Phase: PhaseAnalyze},
	{ID: "crisis-intelligence", Name: "Crisis Intelligence", Type: domain.TypeCrisis, Phase: PhaseEnrich},
	{ID: "platform-analyst", Name: "Platform Analyst", Type: domain.TypePlatform, Phase: PhaseAnalyze},
	{ID: "stakeholder-analyst", Name: "Stakeholder Analyst", Type: domain.TypeStakeholder, Phase: PhaseAnalyze},
	{ID: "geo-analyst", Name: "Geographic Analyst", Type: domain.TypeGeographic, Phase: PhaseAnalyze},
	{ID: "competitor-analyst", Name: "Competitor Analyst", Type: domain.TypeCompetitor, Phase: PhaseAnalyze},
	{ID: "risk-assessor", Name: "Risk Assessor", Type: domain.TypeRisk, Phase: PhaseAnalyze},
}

// sourceAgents maps the collect agents onto the signal kind they fetch
var sourceAgents = map[string]signal.Kind{
	"news-monitor":         signal.KindNews,
	"social-listener":      signal.KindForum,
	"professional-network": signal.KindProfessional,
	"market-data":          signal.KindQuote,
}

// TaskDeps wires tasks to their data
type TaskDeps struct {
	Mode Mode
	// Sources per kind, live mode only; a missing kind yields no signal
	Sources map[signal.Kind]signal.Source
	// Crisis runs in live mode; synthetic mode reports the generated timeline
	Crisis *crisis.Pipeline
	// CrisisBudget bounds the live crisis agent instead of the task timeout
	CrisisBudget time.Duration
	// Limiters spaces out source requests, keyed by source name
	Limiters *ratelimit.Registry
	// Lookback bounds how far back sources are queried
	Lookback time.Duration
	// StepDelay paces simulated progress in synthetic mode
	StepDelay time.Duration
	Now       func() time.Time
}

// NewTasks builds the full roster for the given mode
func NewTasks(deps TaskDeps) []Task {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Mode == "" {
		deps.Mode = ModeSynthetic
	}
	if deps.Lookback <= 0 {
		deps.Lookback = 365 * 24 * time.Hour
	}
	if deps.CrisisBudget <= 0 {
		deps.CrisisBudget = DefaultCrisisBudget
	}

	tasks := make([]Task, 0, len(Roster))
	for _, spec := range Roster {
		spec := spec
		if deps.Mode == ModeSynthetic {
			// synthesizers need no collected input
			spec.Phase = PhaseCollect
		}
		if deps.Mode == ModeLive && spec.ID == crisisAgent && deps.Crisis != nil {
			spec.Timeout = deps.CrisisBudget
		}
		tasks = append(tasks, &agentTask{spec: spec, deps: deps})
	}
	return tasks
}

// agentTask dispatches on agent id and mode
type agentTask struct {
	spec AgentSpec
	deps TaskDeps
}

func (t *agentTask) Spec() AgentSpec { return t.spec }

func (t *agentTask) Run(ctx context.Context, companyName string, r Reporter) error {
	if kind, ok := sourceAgents[t.spec.ID]; ok {
		if t.deps.Mode == ModeLive {
			return t.fetch(ctx, companyName, kind, r)
		}
		return t.simulate(ctx, companyName, r)
	}
	if t.spec.ID == crisisAgent {
		return t.crisis(ctx, companyName, r)
	}
	return t.analyze(ctx, companyName, r)
}

// fetch pulls one signal kind from its live source
func (t *agentTask) fetch(ctx context.Context, companyName string, kind signal.Kind, r Reporter) error {
	src, ok := t.deps.Sources[kind]
	if !ok || src == nil {
		r.Progress(100)
		return nil
	}
	r.Progress(10)

	if t.deps.Limiters != nil {
		if err := t.deps.Limiters.Wait(ctx, src.Name()); err != nil {
			return err
		}
	}

	now := t.deps.Now()
	profile := company.ProfileFor(companyName)
	q := signal.Query{
		Company:  companyName,
		Keywords: profile.Keywords,
		Since:    now.Add(-t.deps.Lookback),
		Until:    now,
	}

	start := time.Now()
	got, err := src.Fetch(ctx, q)
	appmetrics.RecordSourceFetch(src.Name(), time.Since(start), err)
	if err != nil {
		return errors.Wrapf(err, "fetch %s from %s", kind, src.Name())
	}
	r.Progress(70)
	r.Stage(domain.AgentProcessing)

	kept := make([]signal.Signal, 0, len(got))
	for _, s := range got {
		if s.At().After(now) {
			continue
		}
		kept = append(kept, s)
	}
	r.Merge(func(b *Bag) { b.Signals = append(b.Signals, kept...) })
	r.Collected(len(kept))
	r.Progress(100)
	return nil
}

// simulate paces a collect agent in synthetic mode
func (t *agentTask) simulate(ctx context.Context, companyName string, r Reporter) error {
	volume := 0
	for _, p := range synthesis.PlatformMetrics(companyName) {
		volume += p.Volume
	}
	share := map[string]float64{
		"news-monitor":         0.25,
		"social-listener":      0.4,
		"professional-network": 0.15,
		"market-data":          0.05,
	}[t.spec.ID]

	points := int(float64(volume) * share)
	if err := t.steps(ctx, r, points); err != nil {
		return err
	}
	return nil
}

// crisis runs the validation and verification pipeline, or the generated timeline
func (t *agentTask) crisis(ctx context.Context, companyName string, r Reporter) error {
	r.Progress(10)
	if t.deps.Mode == ModeLive {
		if t.deps.Crisis == nil {
			events := PlaceholderTimeline(companyName, t.deps.Now())
			verification := metrics.CrisisVerification{TotalEvents: len(events), Sources: []string{}}
			r.Merge(func(b *Bag) {
				b.CrisisEvents = events
				b.CrisisVerification = &verification
			})
			r.Progress(100)
			return nil
		}

		// The pipeline stops short of the agent deadline so whatever it
		// verified so far can still be merged.
		runCtx, cancel := withMergeMargin(ctx)
		defer cancel()
		result := t.deps.Crisis.Run(runCtx, companyName)
		if err := ctx.Err(); err != nil {
			return err
		}
		r.Stage(domain.AgentProcessing)
		verification := result.Verification()
		r.Merge(func(b *Bag) {
			b.CrisisEvents = result.Events
			b.CrisisVerification = &verification
		})
		r.Collected(result.Stats.Candidates)
		r.Progress(100)
		return nil
	}

	events := synthesis.CrisisTimeline(companyName, t.deps.Now())
	if err := t.steps(ctx, r, len(events)); err != nil {
		return err
	}
	verification := metrics.CrisisVerification{TotalEvents: len(events), Sources: []string{}}
	r.Merge(func(b *Bag) {
		b.CrisisEvents = events
		b.CrisisVerification = &verification
	})
	return nil
}

// analyze produces one metrics collection
func (t *agentTask) analyze(ctx context.Context, companyName string, r Reporter) error {
	now := t.deps.Now()
	live := t.deps.Mode == ModeLive

	var in []signal.Signal
	if live {
		in = r.Signals()
		r.Stage(domain.AgentProcessing)
	}

	var (
		merge  func(*Bag)
		points int
	)
	switch t.spec.ID {
	case "sentiment-tracker":
		var daily []metrics.SentimentPoint
		var kpis *metrics.KPIMetrics
		if live {
			daily = DeriveDaily(in, now)
			kpis = DeriveKPIs(daily, in)
		} else {
			daily = synthesis.SentimentSeries(companyName, now)
			kpis = synthesis.KPIs(companyName)
		}
		merge = func(b *Bag) {
			b.SentimentData = daily
			b.KPIMetrics = kpis
		}
		points = len(daily)
	case "realtime-pulse":
		var hourly []metrics.SentimentPoint
		if live {
			hourly = DeriveHourly(in, now)
		} else {
			hourly = synthesis.HourlySeries(companyName, now)
		}
		merge = func(b *Bag) { b.HourlyData = hourly }
		points = len(hourly)
	case "platform-analyst":
		var out []metrics.PlatformMetric
		if live {
			out = DerivePlatforms(in)
		} else {
			out = synthesis.PlatformMetrics(companyName)
		}
		merge = func(b *Bag) { b.PlatformMetrics = out }
		points = len(out)
	case "stakeholder-analyst":
		var out []metrics.StakeholderSegment
		if live {
			out = DeriveStakeholders(companyName, in)
		} else {
			out = synthesis.StakeholderSegments(companyName)
		}
		merge = func(b *Bag) { b.StakeholderSegments = out }
		points = len(out)
	case "geo-analyst":
		var out []metrics.GeographicData
		if live {
			out = DeriveGeography(in)
		} else {
			out = synthesis.GeographicData(companyName)
		}
		merge = func(b *Bag) { b.GeographicData = out }
		points = len(out)
	case "competitor-analyst":
		var out []metrics.CompetitorData
		if live {
			out = DeriveCompetitors(companyName, in)
		} else {
			out = synthesis.CompetitorData(companyName)
		}
		merge = func(b *Bag) { b.CompetitorData = out }
		points = len(out)
	case "risk-assessor":
		var out []metrics.ThreatOpportunity
		if live {
			out = DeriveThreats(companyName, in)
		} else {
			out = synthesis.ThreatsOpportunities(companyName)
		}
		merge = func(b *Bag) { b.ThreatsOpportunities = out }
		points = len(out)
	default:
		return errors.Wrapf(errors.ErrInvalidInput, "unknown agent %s", t.spec.ID)
	}

	if err := t.steps(ctx, r, points); err != nil {
		return err
	}
	r.Merge(merge)
	return nil
}

// steps advances progress in quarters, pacing by StepDelay
func (t *agentTask) steps(ctx context.Context, r Reporter, points int) error {
	for i, pct := range []int{25, 50, 75} {
		if t.deps.StepDelay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(t.deps.StepDelay):
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}
		if i == 1 {
			r.Stage(domain.AgentProcessing)
		}
		r.Progress(pct)
	}
	r.Collected(points)
	return nil
}

// withMergeMargin returns a context ending a tenth of the remaining time
// before ctx does, capped at two seconds.
func withMergeMargin(ctx context.Context) (context.Context, context.CancelFunc) {
	deadline, ok := ctx.Deadline()
	if !ok {
		return context.WithCancel(ctx)
	}
	margin := min(time.Until(deadline)/mergeMarginShare, 2*time.Second)
	return context.WithDeadline(ctx, deadline.Add(-margin))
}

// PlaceholderTimeline is the generated crisis timeline marked as placeholder,
// used when live verification produced nothing.
func PlaceholderTimeline(companyName string, now time.Time) []metrics.ValidatedCrisisEvent {
	events := synthesis.CrisisTimeline(companyName, now)
	for i := range events {
		events[i].Placeholder = true
		events[i].Verified = false
	}
	return events
}
