package crisis

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"crisiswatch/internal/adapters/ratelimit"
	"crisiswatch/internal/adapters/retry"
	"crisiswatch/internal/domain/metrics"
	"crisiswatch/internal/domain/signal"
	appmetrics "crisiswatch/internal/metrics"
	"crisiswatch/internal/services/signals"
	"crisiswatch/pkg/errors"
	"crisiswatch/pkg/logger"
)

// Evidence is a corroborating report found by a source
type Evidence struct {
	Source     string
	URL        string
	Similarity float64
}

// Corroborator checks whether an independent source reports the same event
type Corroborator interface {
	Name() string
	Reliability() float64
	Corroborate(ctx context.Context, companyName string, event metrics.ValidatedCrisisEvent) (*Evidence, error)
}

// FeedCorroborator searches one signal source for matching articles
type FeedCorroborator struct {
	source      signal.Source
	reliability float64
	retry       *retry.Middleware
	limiter     *ratelimit.Limiter
	threshold   float64
	window      time.Duration
}

// NewFeedCorroborator wraps a news source with a reliability in [0,1].
// limiter may be nil.
func NewFeedCorroborator(source signal.Source, reliability float64, r *retry.Middleware, limiter *ratelimit.Limiter, cfg Config) *FeedCorroborator {
	cfg = cfg.withDefaults()
	if r == nil {
		r = retry.New(retry.DefaultConfig())
	}
	return &FeedCorroborator{
		source:      source,
		reliability: clampUnit(reliability),
		retry:       r,
		limiter:     limiter,
		threshold:   cfg.MatchThreshold,
		window:      cfg.MatchWindow,
	}
}

// Name returns the source name
func (f *FeedCorroborator) Name() string { return f.source.Name() }

// Reliability returns the configured source reliability
func (f *FeedCorroborator) Reliability() float64 { return f.reliability }

// Corroborate returns evidence when the source carries an article with an
// overlapping title published within the match window, or nil.
func (f *FeedCorroborator) Corroborate(ctx context.Context, companyName string, event metrics.ValidatedCrisisEvent) (*Evidence, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	query := signal.Query{
		Company:  companyName,
		Keywords: significantTokens(event.Title),
		Since:    event.Date.Add(-f.window),
		Until:    event.Date.Add(f.window),
	}

	start := time.Now()
	results, err := retry.DoWithResult(ctx, f.retry, func(ctx context.Context) ([]signal.Signal, error) {
		return f.source.Fetch(ctx, query)
	})
	appmetrics.RecordSourceFetch(f.source.Name(), time.Since(start), err)
	if err != nil {
		return nil, errors.Wrapf(err, "corroborate via %s", f.source.Name())
	}

	var best *Evidence
	for _, a := range signal.Filter[signal.NewsArticle](results) {
		if absDuration(a.PublishedAt.Sub(event.Date)) > f.window {
			continue
		}
		sim := Similarity(event.Title, a.Title)
		if sim < f.threshold {
			continue
		}
		if best == nil || sim > best.Similarity {
			best = &Evidence{Source: f.source.Name(), URL: a.URL, Similarity: sim}
		}
	}
	return best, nil
}

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "of": {}, "in": {}, "on": {}, "for": {}, "to": {}, "and": {},
	"by": {}, "with": {}, "at": {}, "as": {}, "is": {}, "its": {}, "after": {}, "from": {}, "over": {},
}

func significantTokens(s string) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, tok := range signals.Tokens(s) {
		tok = strings.Trim(tok, ".")
		if tok == "" {
			continue
		}
		if _, stop := stopwords[tok]; stop {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
	}
	return out
}

// Similarity is the Jaccard overlap of the significant tokens of two titles
func Similarity(a, b string) float64 {
	ta, tb := significantTokens(a), significantTokens(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	set := make(map[string]struct{}, len(ta))
	for _, t := range ta {
		set[t] = struct{}{}
	}
	inter := 0
	for _, t := range tb {
		if _, ok := set[t]; ok {
			inter++
		}
	}
	union := len(ta) + len(tb) - inter
	return float64(inter) / float64(union)
}

// VerificationResult is the output of the verification stage
type VerificationResult struct {
	Events         []metrics.ValidatedCrisisEvent
	IsVerified     bool
	Confidence     float64
	VerifiedEvents int
	Sources        []string
}

// Verifier cross-checks events against independent corroborators
type Verifier struct {
	corroborators     []Corroborator
	minimumSources    int
	minimumConfidence float64
	concurrency       int
	maxEvents         int
	log               *logger.Logger
}

// NewVerifier creates the verification stage
func NewVerifier(corroborators []Corroborator, cfg Config) *Verifier {
	cfg = cfg.withDefaults()
	return &Verifier{
		corroborators:     corroborators,
		minimumSources:    cfg.MinimumSources,
		minimumConfidence: cfg.MinimumConfidence,
		concurrency:       cfg.Concurrency,
		maxEvents:         cfg.MaxVerifiedEvents,
		log:               logger.Get().Component("crisis_verifier"),
	}
}

// corroboration is the outcome of checking one event
type corroboration struct {
	sources     []string
	urls        []string
	reliability float64
}

// Verify marks each event verified when at least MinimumSources distinct
// corroborators report it. The source an event was found in never counts.
// Event confidence is the mean reliability of its corroborating sources. The
// overall verdict requires at least one verified event and a mean confidence
// of verified events >= MinimumConfidence.
//
// Events are checked concurrently, highest verification score first, up to
// MaxVerifiedEvents. When ctx ends early the events checked so far keep their
// verdict and the rest stay unverified. Placeholder events are never checked.
func (v *Verifier) Verify(ctx context.Context, companyName string, events []metrics.ValidatedCrisisEvent) VerificationResult {
	out := make([]metrics.ValidatedCrisisEvent, len(events))
	copy(out, events)
	for i := range out {
		out[i].Verified = false
	}

	checked := v.corroborateAll(ctx, companyName, out)

	result := VerificationResult{}
	usedSources := map[string]struct{}{}
	confidenceSum := 0.0

	for i, c := range checked {
		if c == nil || len(c.sources) == 0 {
			continue
		}
		e := &out[i]
		e.Sources = mergeSources(e.Sources, c.sources)
		e.Confidence = c.reliability
		if e.VerifiedURL == "" && len(c.urls) > 0 {
			e.VerifiedURL = c.urls[0]
		}

		if len(c.sources) >= v.minimumSources {
			e.Verified = true
			result.VerifiedEvents++
			confidenceSum += c.reliability
			for _, s := range c.sources {
				usedSources[s] = struct{}{}
			}
		}
	}

	if result.VerifiedEvents > 0 {
		result.Confidence = confidenceSum / float64(result.VerifiedEvents)
	}
	result.IsVerified = result.VerifiedEvents > 0 && result.Confidence >= v.minimumConfidence
	for _, c := range v.corroborators {
		if _, ok := usedSources[c.Name()]; ok {
			result.Sources = append(result.Sources, c.Name())
		}
	}
	result.Events = out

	appmetrics.RecordCrisisVerification(result.IsVerified)
	return result
}

// corroborateAll checks the selected events on a bounded pool of goroutines.
// Slot i of the result belongs to event i; nil means not checked.
func (v *Verifier) corroborateAll(ctx context.Context, companyName string, events []metrics.ValidatedCrisisEvent) []*corroboration {
	checked := make([]*corroboration, len(events))
	selected := v.selectEvents(events)
	if len(selected) < countCheckable(events) {
		v.log.Infow("Capping events sent to corroboration",
			"company", companyName,
			"checked", len(selected),
			"limit", v.maxEvents,
		)
	}

	sem := make(chan struct{}, v.concurrency)
	var wg sync.WaitGroup
dispatch:
	for _, i := range selected {
		select {
		case <-ctx.Done():
			break dispatch
		case sem <- struct{}{}:
		}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			c := v.corroborate(ctx, companyName, events[i])
			if ctx.Err() != nil && len(c.sources) == 0 {
				return
			}
			checked[i] = &c
		}(i)
	}
	wg.Wait()
	return checked
}

// selectEvents returns the indices of the checkable events, best scored first
func (v *Verifier) selectEvents(events []metrics.ValidatedCrisisEvent) []int {
	idx := make([]int, 0, len(events))
	for i, e := range events {
		if !e.Placeholder {
			idx = append(idx, i)
		}
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return events[idx[a]].VerificationScore > events[idx[b]].VerificationScore
	})
	if len(idx) > v.maxEvents {
		idx = idx[:v.maxEvents]
	}
	return idx
}

func countCheckable(events []metrics.ValidatedCrisisEvent) int {
	n := 0
	for _, e := range events {
		if !e.Placeholder {
			n++
		}
	}
	return n
}

// corroborate asks every corroborator except the event's origin in order;
// a failing source is skipped
func (v *Verifier) corroborate(ctx context.Context, companyName string, e metrics.ValidatedCrisisEvent) corroboration {
	var out corroboration
	seen := map[string]struct{}{}
	total := 0.0

	for _, c := range v.corroborators {
		if ctx.Err() != nil {
			break
		}
		if e.Origin != "" && c.Name() == e.Origin {
			continue
		}
		if _, dup := seen[c.Name()]; dup {
			continue
		}

		evidence, err := c.Corroborate(ctx, companyName, e)
		if err != nil {
			v.log.Warnw("Corroboration source failed",
				"source", c.Name(),
				"event", e.Title,
				"error", err,
			)
			continue
		}
		if evidence == nil {
			continue
		}

		seen[c.Name()] = struct{}{}
		out.sources = append(out.sources, c.Name())
		if evidence.URL != "" {
			out.urls = append(out.urls, evidence.URL)
		}
		total += c.Reliability()
	}

	if len(out.sources) > 0 {
		out.reliability = total / float64(len(out.sources))
	}
	return out
}

func mergeSources(existing, added []string) []string {
	out := append([]string(nil), existing...)
	for _, s := range added {
		found := false
		for _, e := range out {
			if e == s {
				found = true
				break
			}
		}
		if !found {
			out = append(out, s)
		}
	}
	return out
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
