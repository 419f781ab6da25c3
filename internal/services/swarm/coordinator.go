package swarm

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	domain "crisiswatch/internal/domain/swarm"
	"crisiswatch/internal/domain/metrics"
	"crisiswatch/internal/domain/signal"
	appmetrics "crisiswatch/internal/metrics"
	"crisiswatch/pkg/errors"
	"crisiswatch/pkg/logger"
)

// DefaultTaskTimeout bounds a single agent run
const DefaultTaskTimeout = 15 * time.Second

// Phase orders agents within a run
type Phase int

const (
	// PhaseCollect agents talk to external sources and may start immediately
	PhaseCollect Phase = iota
	// PhaseAnalyze agents start their timed work after every collect agent settled
	PhaseAnalyze
	// PhaseEnrich agents start immediately and do not hold back analysis
	PhaseEnrich
)

// AgentSpec describes one roster entry
type AgentSpec struct {
	ID    string
	Name  string
	Type  domain.AgentType
	Phase Phase

	// Timeout replaces the coordinator task timeout when positive
	Timeout time.Duration
}

// Task is the work behind one agent
type Task interface {
	Spec() AgentSpec
	Run(ctx context.Context, companyName string, r Reporter) error
}

// Reporter is the agent-side handle for publishing progress.
// Every call is bound to the epoch of the run that created it; calls from a
// superseded run are dropped and report false.
type Reporter interface {
	Stage(status domain.AgentStatus) bool
	Progress(percent int) bool
	Collected(n int) bool
	Merge(fn func(*Bag)) bool
	Signals() []signal.Signal
}

// Aggregator turns the collected bag into company metrics
type Aggregator interface {
	Aggregate(ctx context.Context, companyName string, bag Bag, now time.Time) (*metrics.CompanyMetrics, error)
}

// Observer receives swarm snapshots
type Observer func(domain.AgentSwarm)

// Option configures a Coordinator
type Option func(*Coordinator)

// WithTaskTimeout overrides DefaultTaskTimeout
func WithTaskTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.taskTimeout = d
		}
	}
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger overrides the component logger
func WithLogger(log *logger.Logger) Option {
	return func(c *Coordinator) {
		if log != nil {
			c.log = log
		}
	}
}

// WithMode labels swarm metrics with the data mode
func WithMode(mode Mode) Option {
	return func(c *Coordinator) { c.mode = mode }
}

// Coordinator owns one agent swarm: it fans collection out to the tasks,
// keeps the swarm state consistent, and notifies subscribers in order.
type Coordinator struct {
	tasks       []Task
	aggregator  Aggregator
	taskTimeout time.Duration
	now         func() time.Time
	mode        Mode
	log         *logger.Logger

	mu      sync.Mutex
	swarm   *domain.AgentSwarm
	epoch   uint64
	bag     *Bag
	running bool

	// notifyMu serialises state mutation plus delivery so observers never
	// see snapshots out of order
	notifyMu    sync.Mutex
	subsMu      sync.RWMutex
	subscribers map[uint64]Observer
	nextSubID   uint64
}

// NewCoordinator creates a coordinator for the given tasks
func NewCoordinator(tasks []Task, aggregator Aggregator, opts ...Option) *Coordinator {
	c := &Coordinator{
		tasks:       tasks,
		aggregator:  aggregator,
		taskTimeout: DefaultTaskTimeout,
		now:         time.Now,
		mode:        ModeSynthetic,
		log:         logger.Get().Component("swarm_coordinator"),
		subscribers: make(map[uint64]Observer),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// InitializeSwarm builds a fresh idle roster for the company.
// Any run still in flight is superseded: its late updates are discarded.
func (c *Coordinator) InitializeSwarm(companyName string) domain.AgentSwarm {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	now := c.now()
	agents := make([]domain.DataAgent, 0, len(c.tasks))
	for _, t := range c.tasks {
		spec := t.Spec()
		agent := domain.NewDataAgent(spec.ID, spec.Name, spec.Type)
		agent.UpdatedAt = now
		agents = append(agents, agent)
	}

	c.mu.Lock()
	c.epoch++
	c.swarm = &domain.AgentSwarm{
		ID:          uuid.New().String(),
		CompanyName: companyName,
		StartDate:   now,
		Agents:      agents,
		Status:      domain.StatusIdle,
		Epoch:       c.epoch,
	}
	c.bag = &Bag{}
	c.running = false
	snapshot := c.swarm.Snapshot()
	c.mu.Unlock()

	c.log.Infow("Swarm initialized",
		"company", companyName,
		"swarm_id", snapshot.ID,
		"epoch", snapshot.Epoch,
		"agents", len(agents),
	)

	c.deliver(snapshot)
	return snapshot
}

// Snapshot returns a deep copy of the current swarm
func (c *Coordinator) Snapshot() (domain.AgentSwarm, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.swarm == nil {
		return domain.AgentSwarm{}, false
	}
	return c.swarm.Snapshot(), true
}

// Subscribe registers an observer and returns its unsubscribe function.
// Observers run synchronously under the notification lock and must not call
// InitializeSwarm or StartCollection.
func (c *Coordinator) Subscribe(fn Observer) func() {
	c.subsMu.Lock()
	id := c.nextSubID
	c.nextSubID++
	c.subscribers[id] = fn
	c.subsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.subsMu.Lock()
			delete(c.subscribers, id)
			c.subsMu.Unlock()
		})
	}
}

// Stream delivers snapshots on a channel until ctx is done.
// When the buffer is full the oldest pending snapshot is replaced.
func (c *Coordinator) Stream(ctx context.Context, buffer int) <-chan domain.AgentSwarm {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan domain.AgentSwarm, buffer)

	unsubscribe := c.Subscribe(func(s domain.AgentSwarm) {
		select {
		case ch <- s:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- s:
		default:
		}
	})

	go func() {
		<-ctx.Done()
		c.notifyMu.Lock()
		unsubscribe()
		close(ch)
		c.notifyMu.Unlock()
	}()

	return ch
}

// StartCollection runs every agent concurrently, waits for all of them to
// settle, then aggregates the bag. Individual agent failures never fail the
// run; only a missing swarm, a concurrent run, supersession or an aggregation
// error do.
func (c *Coordinator) StartCollection(ctx context.Context) (*metrics.CompanyMetrics, error) {
	c.notifyMu.Lock()
	c.mu.Lock()
	if c.swarm == nil {
		c.mu.Unlock()
		c.notifyMu.Unlock()
		return nil, errors.ErrSwarmNotInitialized
	}
	if c.running {
		c.mu.Unlock()
		c.notifyMu.Unlock()
		return nil, errors.ErrSwarmRunning
	}
	c.running = true
	epoch := c.epoch
	companyName := c.swarm.CompanyName
	started := c.now()
	c.swarm.Status = domain.StatusCollecting
	c.swarm.StartDate = started
	c.swarm.Recompute(started)
	snapshot := c.swarm.Snapshot()
	c.mu.Unlock()
	c.deliver(snapshot)
	c.notifyMu.Unlock()

	appmetrics.ActiveSwarms.Inc()
	defer appmetrics.ActiveSwarms.Dec()

	c.log.Infow("Starting collection",
		"company", companyName,
		"epoch", epoch,
		"agents", len(c.tasks),
		"mode", c.mode,
	)

	var collectWG sync.WaitGroup
	for _, t := range c.tasks {
		if t.Spec().Phase == PhaseCollect {
			collectWG.Add(1)
		}
	}
	collected := make(chan struct{})
	go func() {
		collectWG.Wait()
		close(collected)
	}()

	var wg sync.WaitGroup
	for _, t := range c.tasks {
		wg.Add(1)
		go func(t Task) {
			defer wg.Done()
			spec := t.Spec()
			if spec.Phase == PhaseCollect {
				defer collectWG.Done()
			}
			c.runTask(ctx, epoch, companyName, t, collected)
		}(t)
	}
	wg.Wait()

	c.notifyMu.Lock()
	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		c.notifyMu.Unlock()
		return nil, errors.ErrSwarmSuperseded
	}
	c.swarm.Status = domain.StatusAggregating
	bag := c.bag.copy()
	snapshot = c.swarm.Snapshot()
	c.mu.Unlock()
	c.deliver(snapshot)
	c.notifyMu.Unlock()

	result, aggErr := c.aggregator.Aggregate(ctx, companyName, bag, c.now())

	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		return nil, errors.ErrSwarmSuperseded
	}
	end := c.now()
	c.swarm.EndDate = &end
	c.swarm.EstimatedCompletion = nil
	c.swarm.Recompute(end)
	if aggErr != nil {
		c.swarm.Status = domain.StatusError
	} else {
		c.swarm.Status = domain.StatusCompleted
	}
	c.running = false
	failed := len(c.swarm.Failed())
	snapshot = c.swarm.Snapshot()
	c.mu.Unlock()
	c.deliver(snapshot)

	appmetrics.RecordSwarmRun(string(c.mode), string(snapshot.Status), snapshot.TotalDataPoints)

	c.log.Infow("Collection finished",
		"company", companyName,
		"epoch", epoch,
		"status", snapshot.Status,
		"data_points", snapshot.TotalDataPoints,
		"failed_agents", failed,
		"duration", end.Sub(started),
	)

	if aggErr != nil {
		return nil, errors.Wrapf(aggErr, "aggregate %s", companyName)
	}
	return result, nil
}

// runTask drives one agent to a terminal state
func (c *Coordinator) runTask(ctx context.Context, epoch uint64, companyName string, t Task, collected <-chan struct{}) {
	spec := t.Spec()
	r := &reporter{c: c, epoch: epoch, agentID: spec.ID}
	r.Stage(domain.AgentCollecting)

	if spec.Phase == PhaseAnalyze {
		select {
		case <-collected:
		case <-ctx.Done():
			r.fail(ctx.Err())
			return
		}
	}

	timeout := c.taskTimeout
	if spec.Timeout > 0 {
		timeout = spec.Timeout
	}
	taskCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	done := make(chan error, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- fmt.Errorf("agent %s panicked: %v", spec.ID, rec)
			}
		}()
		done <- t.Run(taskCtx, companyName, r)
	}()

	var err error
	select {
	case err = <-done:
	case <-taskCtx.Done():
		r.abandoned.Store(true)
		err = errors.Wrapf(errors.ErrTimeout, "agent %s", spec.ID)
	}
	appmetrics.RecordAgentRun(spec.ID, time.Since(start), err)

	if err != nil {
		c.log.Warnw("Agent failed",
			"company", companyName,
			"agent", spec.ID,
			"error", err,
		)
		r.fail(err)
		return
	}
	r.Stage(domain.AgentCompleted)
}

// update applies mutate to one agent of the given epoch and notifies
func (c *Coordinator) update(epoch uint64, agentID string, mutate func(*domain.DataAgent) bool) bool {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	if c.swarm == nil || c.epoch != epoch {
		c.mu.Unlock()
		appmetrics.StaleUpdatesDropped.Inc()
		return false
	}
	agent := c.swarm.Agent(agentID)
	if agent == nil || !mutate(agent) {
		c.mu.Unlock()
		return false
	}
	now := c.now()
	agent.UpdatedAt = now
	c.swarm.Recompute(now)
	snapshot := c.swarm.Snapshot()
	c.mu.Unlock()

	c.deliver(snapshot)
	return true
}

// merge applies fn to the bag of the given epoch. Writes from an agent that
// already reached a terminal state are dropped.
func (c *Coordinator) merge(epoch uint64, agentID string, fn func(*Bag)) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bag == nil || c.swarm == nil || c.epoch != epoch {
		appmetrics.StaleUpdatesDropped.Inc()
		return false
	}
	if agent := c.swarm.Agent(agentID); agent == nil || agent.Status.Terminal() {
		appmetrics.StaleUpdatesDropped.Inc()
		return false
	}
	fn(c.bag)
	return true
}

func (c *Coordinator) signals(epoch uint64) []signal.Signal {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bag == nil || c.epoch != epoch {
		return nil
	}
	return append([]signal.Signal(nil), c.bag.Signals...)
}

// deliver hands a snapshot to every subscriber; callers hold notifyMu
func (c *Coordinator) deliver(snapshot domain.AgentSwarm) {
	c.subsMu.RLock()
	ids := make([]uint64, 0, len(c.subscribers))
	for id := range c.subscribers {
		ids = append(ids, id)
	}
	observers := make([]Observer, 0, len(ids))
	slices.Sort(ids)
	for _, id := range ids {
		observers = append(observers, c.subscribers[id])
	}
	c.subsMu.RUnlock()

	for _, fn := range observers {
		fn(snapshot.Snapshot())
	}
}

// reporter is the epoch-bound Reporter handed to a task
type reporter struct {
	c       *Coordinator
	epoch   uint64
	agentID string

	// abandoned is set once runTask stops waiting for the agent
	abandoned atomic.Bool
}

func (r *reporter) Stage(status domain.AgentStatus) bool {
	return r.c.update(r.epoch, r.agentID, func(a *domain.DataAgent) bool {
		if a.Status == status {
			return false
		}
		return a.Transition(status) == nil
	})
}

func (r *reporter) Progress(percent int) bool {
	return r.c.update(r.epoch, r.agentID, func(a *domain.DataAgent) bool {
		return a.SetProgress(percent)
	})
}

func (r *reporter) Collected(n int) bool {
	return r.c.update(r.epoch, r.agentID, func(a *domain.DataAgent) bool {
		return a.AddDataPoints(n)
	})
}

func (r *reporter) Merge(fn func(*Bag)) bool {
	if r.abandoned.Load() {
		appmetrics.StaleUpdatesDropped.Inc()
		return false
	}
	return r.c.merge(r.epoch, r.agentID, fn)
}

func (r *reporter) Signals() []signal.Signal {
	return r.c.signals(r.epoch)
}

func (r *reporter) fail(err error) bool {
	return r.c.update(r.epoch, r.agentID, func(a *domain.DataAgent) bool {
		return a.Fail(err.Error())
	})
}
