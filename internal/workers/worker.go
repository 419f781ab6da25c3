package workers

import (
	"context"
	"sync"
	"time"

	"crisiswatch/pkg/logger"
)

// Worker is a periodic background job. The scheduler calls Run once per
// Interval while Enabled reports true.
type Worker interface {
	Name() string
	Run(ctx context.Context) error
	Interval() time.Duration
	Enabled() bool
}

// WorkerWithHealth is a Worker the registry can inspect and toggle
type WorkerWithHealth interface {
	Worker
	Health() WorkerHealth
	SetEnabled(enabled bool)
}

// runRecorder is implemented by workers embedding BaseWorker
type runRecorder interface {
	markRunning()
	RecordRun(duration time.Duration)
	RecordError(err error, duration time.Duration)
}

// WorkerHealth is a snapshot of a worker's run history
type WorkerHealth struct {
	LastRun           time.Time
	LastSuccess       time.Time
	LastError         error
	RunCount          int64
	ErrorCount        int64
	ConsecutiveErrors int
	AvgDuration       time.Duration
	IsRunning         bool
	Enabled           bool
}

// Started reports whether the worker finished at least one run
func (h WorkerHealth) Started() bool {
	return h.RunCount > 0
}

// BaseWorker carries name, interval and run bookkeeping for embedding workers
type BaseWorker struct {
	name     string
	interval time.Duration
	log      *logger.Logger
	now      func() time.Time

	mu     sync.RWMutex
	state  WorkerHealth
	totalD time.Duration
}

// NewBaseWorker creates a new base worker
func NewBaseWorker(name string, interval time.Duration, enabled bool) *BaseWorker {
	return &BaseWorker{
		name:     name,
		interval: interval,
		log:      logger.Get().With("worker", name),
		now:      time.Now,
		state:    WorkerHealth{Enabled: enabled},
	}
}

func (w *BaseWorker) Name() string            { return w.name }
func (w *BaseWorker) Interval() time.Duration { return w.interval }
func (w *BaseWorker) Log() *logger.Logger     { return w.log }

func (w *BaseWorker) Enabled() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state.Enabled
}

func (w *BaseWorker) SetEnabled(enabled bool) {
	w.mu.Lock()
	w.state.Enabled = enabled
	w.mu.Unlock()
	w.log.Infow("Worker enabled state changed", "enabled", enabled)
}

// Health returns a copy of the run history with the average duration filled in
func (w *BaseWorker) Health() WorkerHealth {
	w.mu.RLock()
	defer w.mu.RUnlock()

	h := w.state
	if h.RunCount > 0 {
		h.AvgDuration = w.totalD / time.Duration(h.RunCount)
	}
	return h
}

func (w *BaseWorker) markRunning() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state.IsRunning = true
}

// RecordRun records a successful run and resets the failure streak
func (w *BaseWorker) RecordRun(duration time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.finish(duration)
	w.state.LastSuccess = now
	w.state.LastError = nil
	w.state.ConsecutiveErrors = 0
}

// RecordError records a failed run
func (w *BaseWorker) RecordError(err error, duration time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.finish(duration)
	w.state.ErrorCount++
	w.state.ConsecutiveErrors++
	w.state.LastError = err
}

// finish must be called with mu held
func (w *BaseWorker) finish(duration time.Duration) time.Time {
	now := w.now()
	w.state.IsRunning = false
	w.state.LastRun = now
	w.state.RunCount++
	w.totalD += duration
	return now
}
