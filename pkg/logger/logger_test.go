package logger

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"crisiswatch/pkg/errors"
)

type recordingTracker struct {
	mu          sync.Mutex
	errs        []error
	tags        []map[string]string
	breadcrumbs []string
}

func (r *recordingTracker) CaptureError(ctx context.Context, err error, tags map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
	r.tags = append(r.tags, tags)
	return nil
}

func (r *recordingTracker) CaptureMessage(ctx context.Context, message string, level errors.Level, tags map[string]string) error {
	return nil
}

func (r *recordingTracker) AddBreadcrumb(ctx context.Context, message string, category string, level errors.Level, data map[string]interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.breadcrumbs = append(r.breadcrumbs, category+":"+message)
}

func (r *recordingTracker) Flush(ctx context.Context) error { return nil }

func newTracked() (*Logger, *recordingTracker) {
	rec := &recordingTracker{}
	return &Logger{SugaredLogger: zap.NewNop().Sugar(), errorTracker: rec}, rec
}

func TestLogger_ErrorsReachTracker(t *testing.T) {
	log, rec := newTracked()

	log.Component("swarm_coordinator").Errorf("task %s failed", "news")
	log.ErrorWithContext(context.Background(), errors.ErrTimeout, map[string]string{"company": "Kaseya"})

	require.Len(t, rec.errs, 2)
	assert.EqualError(t, rec.errs[0], "task news failed")
	assert.Equal(t, "swarm_coordinator", rec.tags[0]["component"])

	assert.ErrorIs(t, rec.errs[1], errors.ErrTimeout)
	assert.Equal(t, map[string]string{"component": "logger", "company": "Kaseya"}, rec.tags[1])
}

func TestLogger_BreadcrumbInheritedByChildren(t *testing.T) {
	log, rec := newTracked()

	child := log.With("service", "dashboard").Component("dashboard")
	child.Breadcrumb(context.Background(), "swarm status active", "swarm", map[string]interface{}{"company": "Kaseya"})

	assert.Equal(t, []string{"swarm:swarm status active"}, rec.breadcrumbs)
}

func TestLogger_NopHasNoTracker(t *testing.T) {
	log := Nop()
	assert.NotPanics(t, func() {
		log.Breadcrumb(context.Background(), "ignored", "swarm", nil)
		log.Errorf("ignored %d", 1)
	})
}
