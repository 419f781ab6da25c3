package swarm

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crisiswatch/internal/domain/metrics"
	"crisiswatch/internal/domain/signal"
	domain "crisiswatch/internal/domain/swarm"
	"crisiswatch/internal/services/crisis"
	"crisiswatch/internal/services/synthesis"
)

// delayedCorroborator confirms every event after delay; a negative delay
// blocks until the context ends.
type delayedCorroborator struct {
	name  string
	delay time.Duration
	calls atomic.Int32
}

func (d *delayedCorroborator) Name() string         { return d.name }
func (d *delayedCorroborator) Reliability() float64 { return 0.9 }

func (d *delayedCorroborator) Corroborate(ctx context.Context, companyName string, e metrics.ValidatedCrisisEvent) (*crisis.Evidence, error) {
	d.calls.Add(1)
	if d.delay < 0 {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	select {
	case <-time.After(d.delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return &crisis.Evidence{Source: d.name, URL: "https://" + d.name + "/story", Similarity: 1}, nil
}

func crisisFeed(n int) *fakeSource {
	articles := make([]signal.Signal, 0, n)
	for i := 0; i < n; i++ {
		articles = append(articles, signal.NewsArticle{
			Title:       fmt.Sprintf("Kaseya ransomware breach triggers investigation, day %d", i+1),
			Description: "Attackers abused the Kaseya MSP software platform.",
			URL:         fmt.Sprintf("https://www.reuters.com/technology/kaseya-ransomware-%d", i),
			PublishedAt: testNow.Add(-time.Duration(i+1) * 24 * time.Hour),
			Outlet:      "Reuters",
			Provenance:  signal.Meta{Source: "news", Confidence: 0.8},
		})
	}
	return &fakeSource{name: "news", kind: signal.KindNews, signals: articles}
}

func livePipeline(news signal.Source, corroborators ...crisis.Corroborator) *crisis.Pipeline {
	cfg := crisis.DefaultConfig()
	return crisis.NewPipeline(
		crisis.NewValidator(news, cfg, crisis.WithClock(clock)),
		crisis.NewVerifier(corroborators, cfg),
	)
}

func TestStartCollection_LiveCrisisRunsOnItsOwnBudget(t *testing.T) {
	news := crisisFeed(20)
	self := &delayedCorroborator{name: "news"}
	bing := &delayedCorroborator{name: "bing.com", delay: 30 * time.Millisecond}
	yahoo := &delayedCorroborator{name: "news.search.yahoo.com", delay: 30 * time.Millisecond}

	tasks := NewTasks(TaskDeps{
		Mode:         ModeLive,
		Sources:      map[signal.Kind]signal.Source{signal.KindNews: news},
		Crisis:       livePipeline(news, self, bing, yahoo),
		CrisisBudget: 2 * time.Second,
		Now:          clock,
	})
	c := newCoordinator(tasks, NewAggregator(ModeLive), WithMode(ModeLive), WithTaskTimeout(100*time.Millisecond))
	c.InitializeSwarm("Kaseya")

	m, err := c.StartCollection(context.Background())
	require.NoError(t, err)

	s, _ := c.Snapshot()
	assert.Equal(t, domain.AgentCompleted, s.Agent("crisis-intelligence").Status)
	assert.Equal(t, 20, s.Agent("crisis-intelligence").DataPoints)

	assert.Len(t, m.CrisisEvents, 20)
	assert.True(t, m.CrisisVerification.IsVerified)
	assert.Equal(t, crisis.DefaultConfig().MaxVerifiedEvents, m.CrisisVerification.VerifiedEvents)
	assert.Equal(t, []string{"bing.com", "news.search.yahoo.com"}, m.CrisisVerification.Sources)
	assert.Zero(t, self.calls.Load(), "the origin feed must not corroborate its own events")
	for _, e := range m.CrisisEvents {
		assert.False(t, e.Placeholder)
		assert.Equal(t, "news", e.Origin)
	}
}

func TestStartCollection_LiveCrisisMergesPartialResults(t *testing.T) {
	news := crisisFeed(5)
	stuck := &delayedCorroborator{name: "bing.com", delay: -1}
	other := &delayedCorroborator{name: "news.search.yahoo.com", delay: -1}

	tasks := NewTasks(TaskDeps{
		Mode:         ModeLive,
		Sources:      map[signal.Kind]signal.Source{signal.KindNews: news},
		Crisis:       livePipeline(news, stuck, other),
		CrisisBudget: 300 * time.Millisecond,
		Now:          clock,
	})
	c := newCoordinator(tasks, NewAggregator(ModeLive), WithMode(ModeLive), WithTaskTimeout(50*time.Millisecond))
	c.InitializeSwarm("Kaseya")

	m, err := c.StartCollection(context.Background())
	require.NoError(t, err)

	s, _ := c.Snapshot()
	assert.Equal(t, domain.AgentCompleted, s.Agent("crisis-intelligence").Status)

	require.Len(t, m.CrisisEvents, 5)
	assert.False(t, m.CrisisVerification.IsVerified)
	assert.Zero(t, m.CrisisVerification.VerifiedEvents)
	for _, e := range m.CrisisEvents {
		assert.False(t, e.Verified)
		assert.False(t, e.Placeholder, "found events survive an expired verification")
	}
}

func assertPlaceholderTimeline(t *testing.T, m *metrics.CompanyMetrics) {
	t.Helper()
	require.NotEmpty(t, m.CrisisEvents)
	assert.Len(t, m.CrisisEvents, len(synthesis.CrisisTimeline("Kaseya", testNow)))
	for _, e := range m.CrisisEvents {
		assert.True(t, e.Placeholder)
		assert.False(t, e.Verified)
	}
	assert.False(t, m.CrisisVerification.IsVerified)
	assert.Equal(t, len(m.CrisisEvents), m.CrisisVerification.TotalEvents)
}

func TestStartCollection_LiveWithoutPipelineUsesPlaceholderTimeline(t *testing.T) {
	tasks := NewTasks(TaskDeps{
		Mode:    ModeLive,
		Sources: map[signal.Kind]signal.Source{signal.KindNews: crisisFeed(3)},
		Now:     clock,
	})
	c := newCoordinator(tasks, NewAggregator(ModeLive), WithMode(ModeLive))
	c.InitializeSwarm("Kaseya")

	m, err := c.StartCollection(context.Background())
	require.NoError(t, err)

	s, _ := c.Snapshot()
	assert.Equal(t, domain.AgentCompleted, s.Agent("crisis-intelligence").Status)
	assertPlaceholderTimeline(t, m)
}

func TestStartCollection_LiveCrisisFailureUsesPlaceholderTimeline(t *testing.T) {
	tasks := NewTasks(TaskDeps{
		Mode:    ModeLive,
		Sources: map[signal.Kind]signal.Source{signal.KindNews: crisisFeed(3)},
		Now:     clock,
	})
	for i, task := range tasks {
		if task.Spec().ID == "crisis-intelligence" {
			tasks[i] = &fnTask{spec: task.Spec(), run: func(ctx context.Context, _ string, r Reporter) error {
				return fmt.Errorf("search backend down")
			}}
		}
	}
	c := newCoordinator(tasks, NewAggregator(ModeLive), WithMode(ModeLive))
	c.InitializeSwarm("Kaseya")

	m, err := c.StartCollection(context.Background())
	require.NoError(t, err)

	s, _ := c.Snapshot()
	assert.Equal(t, domain.AgentError, s.Agent("crisis-intelligence").Status)
	assertPlaceholderTimeline(t, m)
}

func TestNewTasks_CrisisBudgetOnlyForLivePipeline(t *testing.T) {
	news := crisisFeed(1)
	budget := func(tasks []Task) time.Duration {
		for _, task := range tasks {
			if task.Spec().ID == "crisis-intelligence" {
				return task.Spec().Timeout
			}
		}
		return -1
	}

	assert.Equal(t, 30*time.Second, budget(NewTasks(TaskDeps{Mode: ModeLive, Crisis: livePipeline(news), CrisisBudget: 30 * time.Second})))
	assert.Equal(t, DefaultCrisisBudget, budget(NewTasks(TaskDeps{Mode: ModeLive, Crisis: livePipeline(news)})))
	assert.Zero(t, budget(NewTasks(TaskDeps{Mode: ModeLive})))
	assert.Zero(t, budget(NewTasks(TaskDeps{Mode: ModeSynthetic, Crisis: livePipeline(news)})))
}
