package workers

import (
	"sort"
	"sync"
	"time"

	"crisiswatch/pkg/errors"
)

// Registry indexes workers by name for health reporting and runtime toggling
type Registry struct {
	workers map[string]WorkerWithHealth
	mu      sync.RWMutex
}

// NewRegistry creates a new worker registry
func NewRegistry() *Registry {
	return &Registry{
		workers: make(map[string]WorkerWithHealth),
	}
}

// Register adds a worker to the registry
func (r *Registry) Register(w WorkerWithHealth) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := w.Name()
	if _, exists := r.workers[name]; exists {
		return errors.Wrapf(errors.ErrInvalidInput, "worker %s already registered", name)
	}
	r.workers[name] = w
	return nil
}

// Get returns a worker by name
func (r *Registry) Get(name string) (WorkerWithHealth, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	w, ok := r.workers[name]
	return w, ok
}

// List returns all registered workers sorted by name
func (r *Registry) List() []WorkerWithHealth {
	r.mu.RLock()
	defer r.mu.RUnlock()

	workers := make([]WorkerWithHealth, 0, len(r.workers))
	for _, w := range r.workers {
		workers = append(workers, w)
	}
	sort.Slice(workers, func(i, j int) bool { return workers[i].Name() < workers[j].Name() })
	return workers
}

// EnableWorker enables or disables a worker by name
func (r *Registry) EnableWorker(name string, enabled bool) error {
	w, ok := r.Get(name)
	if !ok {
		return errors.Wrapf(errors.ErrNotFound, "worker %s not found", name)
	}
	w.SetEnabled(enabled)
	return nil
}

// GetAllHealth returns health information for all workers
func (r *Registry) GetAllHealth() map[string]WorkerHealth {
	workers := r.List()
	health := make(map[string]WorkerHealth, len(workers))
	for _, w := range workers {
		health[w.Name()] = w.Health()
	}
	return health
}

// MaxConsecutiveErrors marks a worker unhealthy once exceeded
const MaxConsecutiveErrors = 3

// GetUnhealthyWorkers returns enabled workers whose last completed run is
// older than maxAge or that failed MaxConsecutiveErrors runs in a row.
// Workers that never completed a run are still starting and not reported.
func (r *Registry) GetUnhealthyWorkers(maxAge time.Duration, now time.Time) []string {
	var unhealthy []string
	for name, h := range r.GetAllHealth() {
		if !h.Enabled || h.IsRunning || !h.Started() {
			continue
		}

		if now.Sub(h.LastRun) > maxAge || h.ConsecutiveErrors >= MaxConsecutiveErrors {
			unhealthy = append(unhealthy, name)
		}
	}
	sort.Strings(unhealthy)
	return unhealthy
}

// Count returns the number of registered workers
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.workers)
}
