package crisis

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crisiswatch/internal/adapters/retry"
	"crisiswatch/internal/domain/company"
	"crisiswatch/internal/domain/metrics"
	"crisiswatch/internal/domain/signal"
	"crisiswatch/pkg/errors"
)

var testNow = time.Date(2025, time.December, 15, 14, 37, 0, 0, time.UTC)

type fakeSource struct {
	name     string
	articles []signal.NewsArticle
	err      error
	calls    int
}

func (f *fakeSource) Name() string      { return f.name }
func (f *fakeSource) Kind() signal.Kind { return signal.KindNews }

func (f *fakeSource) Fetch(ctx context.Context, q signal.Query) ([]signal.Signal, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([]signal.Signal, 0, len(f.articles))
	for _, a := range f.articles {
		out = append(out, a)
	}
	return out, nil
}

type stubCorroborator struct {
	name        string
	reliability float64
	match       bool
	err         error
}

func (s *stubCorroborator) Name() string         { return s.name }
func (s *stubCorroborator) Reliability() float64 { return s.reliability }

func (s *stubCorroborator) Corroborate(ctx context.Context, companyName string, e metrics.ValidatedCrisisEvent) (*Evidence, error) {
	if s.err != nil {
		return nil, s.err
	}
	if !s.match {
		return nil, nil
	}
	return &Evidence{Source: s.name, URL: "https://" + s.name + "/story", Similarity: 1}, nil
}

func strongArticle() signal.NewsArticle {
	return signal.NewsArticle{
		Title:       "Kaseya ransomware breach triggers investigation",
		Description: "Attackers abused the Kaseya MSP software platform.",
		URL:         "https://www.reuters.com/technology/kaseya-ransomware",
		PublishedAt: testNow.Add(-10 * 24 * time.Hour),
		Outlet:      "Reuters",
		Provenance:  signal.Meta{Source: "rss", Confidence: 0.8},
	}
}

func irrelevantArticle() signal.NewsArticle {
	return signal.NewsArticle{
		Title:       "Kaseya Center hosts NBA basketball doubleheader",
		Description: "Fans pack the arena for the game.",
		URL:         "https://sports.example.com/kaseya-center",
		PublishedAt: testNow.Add(-2 * 24 * time.Hour),
		Outlet:      "Sports Daily",
	}
}

func TestScoreArticle_AllBuckets(t *testing.T) {
	s := ScoreArticle(company.ProfileFor("Kaseya"), strongArticle(), testNow)

	assert.Equal(t, 30.0, s.NameMatch)
	assert.Equal(t, 25.0, s.Crisis)
	assert.Equal(t, 20.0, s.Industry)
	assert.Equal(t, 15.0, s.Credible)
	assert.Equal(t, 10.0, s.Recency)
	assert.Equal(t, 100.0, s.Total)
	assert.Equal(t, 90.0, s.Relevance)
}

func TestScoreArticle_IrrelevantPenalty(t *testing.T) {
	s := ScoreArticle(company.ProfileFor("Kaseya"), irrelevantArticle(), testNow)

	assert.Equal(t, 30.0, s.Penalty)
	assert.Equal(t, 10.0, s.Total)
	assert.Less(t, s.Total, 50.0)
}

func TestScoreArticle_RecencyAndClamp(t *testing.T) {
	old := strongArticle()
	old.PublishedAt = testNow.AddDate(-1, -6, 0)
	assert.Equal(t, 5.0, ScoreArticle(company.ProfileFor("Kaseya"), old, testNow).Recency)

	ancient := strongArticle()
	ancient.PublishedAt = testNow.AddDate(-5, 0, 0)
	assert.Equal(t, 0.0, ScoreArticle(company.ProfileFor("Kaseya"), ancient, testNow).Recency)

	noise := signal.NewsArticle{Title: "NBA NFL soccer tennis cricket movie celebrity", PublishedAt: testNow}
	assert.Equal(t, 0.0, ScoreArticle(company.ProfileFor("Kaseya"), noise, testNow).Total)
}

func TestScoreArticle_DescriptionOnlyRelevance(t *testing.T) {
	a := signal.NewsArticle{
		Title:       "Ransomware wave hits managed service providers",
		Description: "Kaseya among vendors investigating.",
		PublishedAt: testNow,
	}
	s := ScoreArticle(company.ProfileFor("Kaseya"), a, testNow)
	assert.Equal(t, 30.0, s.Relevance)
}

func TestSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, Similarity("Kaseya hit by ransomware", "kaseya HIT by Ransomware"), 1e-9)
	assert.InDelta(t, 0.6, Similarity("Kaseya hit by ransomware", "Kaseya hit by massive ransomware attack"), 1e-9)
	assert.Equal(t, 0.0, Similarity("", "anything"))
	assert.Less(t, Similarity("Kaseya hit by ransomware", "Quarterly earnings beat estimates"), 0.3)
}

func newTestValidator(search signal.Source) *Validator {
	return NewValidator(search, DefaultConfig(), WithClock(func() time.Time { return testNow }))
}

func TestValidator_AcceptsRelevantRejectsNoise(t *testing.T) {
	search := &fakeSource{name: "rss", articles: []signal.NewsArticle{strongArticle(), irrelevantArticle()}}

	report := newTestValidator(search).Validate(context.Background(), "Kaseya")

	assert.Equal(t, 2, report.Candidates)
	assert.Equal(t, 1, report.Accepted)
	assert.Equal(t, 1, report.Rejected)
	assert.False(t, report.UsedFallback)
	assert.False(t, report.Placeholders)
	require.Len(t, report.Events, 1)

	e := report.Events[0]
	assert.Equal(t, metrics.EventCrisis, e.Type)
	assert.LessOrEqual(t, e.Impact, -30)
	assert.Equal(t, 100.0, e.VerificationScore)
	assert.Equal(t, []string{"Reuters"}, e.Sources)
	assert.Equal(t, "rss", e.Origin)
	assert.False(t, e.Verified)
}

func TestValidator_SearchFailureUsesFallback(t *testing.T) {
	search := &fakeSource{name: "rss", err: errors.ErrSourceUnavailable}

	report := newTestValidator(search).Validate(context.Background(), "Kaseya")

	assert.True(t, report.UsedFallback)
	require.NotEmpty(t, report.Events)
	for _, e := range report.Events {
		assert.False(t, e.Verified)
	}
}

func TestValidator_NoSurvivorsYieldsPlaceholders(t *testing.T) {
	search := &fakeSource{name: "rss", articles: []signal.NewsArticle{irrelevantArticle()}}

	report := newTestValidator(search).Validate(context.Background(), "Kaseya")

	assert.True(t, report.Placeholders)
	require.NotEmpty(t, report.Events)
	assert.Equal(t, metrics.EventCrisis, report.Events[0].Type)
	assert.Equal(t, company.CrisisDay("Kaseya"), company.DayIndex(report.Events[0].Date))
	for _, e := range report.Events {
		assert.True(t, e.Placeholder)
		assert.False(t, e.Verified)
	}
}

func TestValidator_EmptyCompanyNeverEmpty(t *testing.T) {
	report := newTestValidator(nil).Validate(context.Background(), "")
	assert.NotEmpty(t, report.Events)
}

func candidateEvent() metrics.ValidatedCrisisEvent {
	return metrics.ValidatedCrisisEvent{
		CrisisEvent: metrics.CrisisEvent{
			ID:    "evt-1",
			Date:  testNow.Add(-48 * time.Hour),
			Title: "Kaseya ransomware breach triggers investigation",
			Type:  metrics.EventCrisis,
		},
		Provenance: metrics.Provenance{VerificationScore: 90, CompanyRelevance: 90},
	}
}

func TestVerifier_SingleSourceNeverVerified(t *testing.T) {
	v := NewVerifier([]Corroborator{
		&stubCorroborator{name: "reuters", reliability: 0.95, match: true},
		&stubCorroborator{name: "bloomberg", reliability: 0.9, match: false},
	}, DefaultConfig())

	result := v.Verify(context.Background(), "Kaseya", []metrics.ValidatedCrisisEvent{candidateEvent()})

	assert.False(t, result.IsVerified)
	assert.Equal(t, 0, result.VerifiedEvents)
	assert.False(t, result.Events[0].Verified)
	assert.InDelta(t, 0.95, result.Events[0].Confidence, 1e-9)
}

func TestVerifier_TwoReliableSourcesVerify(t *testing.T) {
	v := NewVerifier([]Corroborator{
		&stubCorroborator{name: "reuters", reliability: 0.9, match: true},
		&stubCorroborator{name: "ap", reliability: 0.8, match: true},
	}, DefaultConfig())

	result := v.Verify(context.Background(), "Kaseya", []metrics.ValidatedCrisisEvent{candidateEvent()})

	assert.True(t, result.IsVerified)
	assert.Equal(t, 1, result.VerifiedEvents)
	assert.InDelta(t, 0.85, result.Confidence, 1e-9)
	assert.True(t, result.Events[0].Verified)
	assert.Equal(t, []string{"reuters", "ap"}, result.Events[0].Sources)
	assert.Equal(t, "https://reuters/story", result.Events[0].VerifiedURL)
}

func TestVerifier_LowConfidenceNotVerified(t *testing.T) {
	v := NewVerifier([]Corroborator{
		&stubCorroborator{name: "blog", reliability: 0.5, match: true},
		&stubCorroborator{name: "forum", reliability: 0.6, match: true},
	}, DefaultConfig())

	result := v.Verify(context.Background(), "Kaseya", []metrics.ValidatedCrisisEvent{candidateEvent()})

	assert.True(t, result.Events[0].Verified)
	assert.False(t, result.IsVerified)
	assert.InDelta(t, 0.55, result.Confidence, 1e-9)
}

func TestVerifier_PlaceholdersAndFailingSources(t *testing.T) {
	placeholder := candidateEvent()
	placeholder.Placeholder = true

	v := NewVerifier([]Corroborator{
		&stubCorroborator{name: "down", reliability: 0.9, err: errors.ErrSourceUnavailable},
		&stubCorroborator{name: "reuters", reliability: 0.9, match: true},
		&stubCorroborator{name: "ap", reliability: 0.9, match: true},
	}, DefaultConfig())

	result := v.Verify(context.Background(), "Kaseya", []metrics.ValidatedCrisisEvent{placeholder, candidateEvent()})

	assert.False(t, result.Events[0].Verified)
	assert.Empty(t, result.Events[0].Sources)
	assert.True(t, result.Events[1].Verified)
	assert.Equal(t, []string{"reuters", "ap"}, result.Sources)
	assert.True(t, result.IsVerified)
}

type funcCorroborator struct {
	name string
	fn   func(ctx context.Context, e metrics.ValidatedCrisisEvent) (*Evidence, error)
}

func (f *funcCorroborator) Name() string         { return f.name }
func (f *funcCorroborator) Reliability() float64 { return 0.9 }

func (f *funcCorroborator) Corroborate(ctx context.Context, companyName string, e metrics.ValidatedCrisisEvent) (*Evidence, error) {
	return f.fn(ctx, e)
}

func TestVerifier_OriginSourceDoesNotCorroborate(t *testing.T) {
	event := candidateEvent()
	event.Origin = "news"

	v := NewVerifier([]Corroborator{
		&stubCorroborator{name: "news", reliability: 0.9, match: true},
		&stubCorroborator{name: "bing", reliability: 0.8, match: true},
	}, DefaultConfig())

	result := v.Verify(context.Background(), "Kaseya", []metrics.ValidatedCrisisEvent{event})

	assert.False(t, result.IsVerified)
	assert.False(t, result.Events[0].Verified)
	assert.Equal(t, []string{"bing"}, result.Events[0].Sources)

	v = NewVerifier([]Corroborator{
		&stubCorroborator{name: "news", reliability: 0.9, match: true},
		&stubCorroborator{name: "bing", reliability: 0.8, match: true},
		&stubCorroborator{name: "yahoo", reliability: 0.8, match: true},
	}, DefaultConfig())

	result = v.Verify(context.Background(), "Kaseya", []metrics.ValidatedCrisisEvent{event})

	assert.True(t, result.IsVerified)
	assert.Equal(t, []string{"bing", "yahoo"}, result.Events[0].Sources)
	assert.Equal(t, []string{"bing", "yahoo"}, result.Sources)
}

func TestVerifier_CapsCheckedEvents(t *testing.T) {
	var calls atomic.Int32
	match := func(ctx context.Context, e metrics.ValidatedCrisisEvent) (*Evidence, error) {
		calls.Add(1)
		return &Evidence{Similarity: 1}, nil
	}
	cfg := DefaultConfig()
	cfg.MaxVerifiedEvents = 2

	v := NewVerifier([]Corroborator{
		&funcCorroborator{name: "reuters", fn: match},
		&funcCorroborator{name: "ap", fn: match},
	}, cfg)

	events := make([]metrics.ValidatedCrisisEvent, 4)
	for i := range events {
		events[i] = candidateEvent()
		events[i].VerificationScore = float64(50 + 10*i)
	}

	result := v.Verify(context.Background(), "Kaseya", events)

	assert.Equal(t, int32(4), calls.Load())
	assert.Equal(t, 2, result.VerifiedEvents)
	assert.False(t, result.Events[0].Verified)
	assert.False(t, result.Events[1].Verified)
	assert.True(t, result.Events[2].Verified)
	assert.True(t, result.Events[3].Verified)
}

func TestVerifier_DeadlineKeepsFinishedEvents(t *testing.T) {
	corroborate := func(ctx context.Context, e metrics.ValidatedCrisisEvent) (*Evidence, error) {
		if e.Title == "slow" {
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return &Evidence{Similarity: 1}, nil
	}
	v := NewVerifier([]Corroborator{
		&funcCorroborator{name: "reuters", fn: corroborate},
		&funcCorroborator{name: "ap", fn: corroborate},
	}, DefaultConfig())

	fast, slow := candidateEvent(), candidateEvent()
	fast.Title = "fast"
	slow.Title = "slow"

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	result := v.Verify(ctx, "Kaseya", []metrics.ValidatedCrisisEvent{slow, fast})

	assert.Less(t, time.Since(start), time.Second)
	require.Len(t, result.Events, 2)
	assert.False(t, result.Events[0].Verified)
	assert.True(t, result.Events[1].Verified)
	assert.Equal(t, 1, result.VerifiedEvents)
}

func TestFeedCorroborator(t *testing.T) {
	event := candidateEvent()
	source := &fakeSource{name: "ap", articles: []signal.NewsArticle{
		{Title: "Quarterly results announced", PublishedAt: event.Date, URL: "https://ap/other"},
		{Title: "Kaseya ransomware breach triggers investigation", PublishedAt: event.Date.Add(-30 * 24 * time.Hour), URL: "https://ap/old"},
		{Title: "Kaseya ransomware breach investigation widens", PublishedAt: event.Date.Add(24 * time.Hour), URL: "https://ap/match"},
	}}

	fast := retry.New(retry.Config{MaxRetries: 1, InitialDelay: time.Millisecond, Strategy: retry.StrategyFixed})
	c := NewFeedCorroborator(source, 0.85, fast, nil, DefaultConfig())

	evidence, err := c.Corroborate(context.Background(), "Kaseya", event)

	require.NoError(t, err)
	require.NotNil(t, evidence)
	assert.Equal(t, "https://ap/match", evidence.URL)
	assert.Equal(t, "ap", c.Name())
	assert.Equal(t, 0.85, c.Reliability())
}

func TestFeedCorroborator_RetriesThenFails(t *testing.T) {
	source := &fakeSource{name: "rss", err: errors.ErrSourceUnavailable}
	fast := retry.New(retry.Config{MaxRetries: 2, InitialDelay: time.Millisecond, Strategy: retry.StrategyFixed})
	c := NewFeedCorroborator(source, 0.7, fast, nil, DefaultConfig())

	evidence, err := c.Corroborate(context.Background(), "Kaseya", candidateEvent())

	assert.Nil(t, evidence)
	assert.True(t, errors.Is(err, errors.ErrSourceUnavailable))
	assert.Equal(t, 3, source.calls)
}

func TestPipeline_Run(t *testing.T) {
	search := &fakeSource{name: "rss", articles: []signal.NewsArticle{strongArticle()}}
	p := NewPipeline(
		newTestValidator(search),
		NewVerifier([]Corroborator{
			&stubCorroborator{name: "reuters", reliability: 0.9, match: true},
			&stubCorroborator{name: "ap", reliability: 0.8, match: true},
		}, DefaultConfig()),
	)

	result := p.Run(context.Background(), "Kaseya")

	assert.True(t, result.IsVerified)
	assert.Equal(t, 1, result.Stats.Accepted)
	assert.Equal(t, 1, result.Stats.VerifiedEvents)

	v := result.Verification()
	assert.True(t, v.IsVerified)
	assert.Equal(t, 1, v.TotalEvents)
}
