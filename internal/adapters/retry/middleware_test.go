package retry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crisiswatch/pkg/errors"
)

func fastConfig() Config {
	return Config{
		MaxRetries:     2,
		InitialDelay:   time.Millisecond,
		MaxDelay:       5 * time.Millisecond,
		Strategy:       StrategyFixed,
		AttemptTimeout: 50 * time.Millisecond,
	}
}

func TestDo_RetriesRetryableErrors(t *testing.T) {
	m := New(fastConfig())
	calls := 0

	err := m.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.ErrSourceUnavailable
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_StopsOnPermanentError(t *testing.T) {
	m := New(fastConfig())
	calls := 0

	err := m.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return errors.ErrInvalidInput
	})

	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
	assert.Equal(t, 1, calls)
}

func TestDo_BudgetExhausted(t *testing.T) {
	m := New(fastConfig())
	calls := 0

	err := m.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return &StatusError{Code: 503, URL: "http://feed"}
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Contains(t, err.Error(), "max retries (2) exceeded")
}

func TestDo_AttemptTimeout(t *testing.T) {
	m := New(fastConfig())
	calls := 0

	err := m.Do(context.Background(), func(ctx context.Context) error {
		calls++
		<-ctx.Done()
		return ctx.Err()
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoWithResult(t *testing.T) {
	m := New(fastConfig())

	v, err := DoWithResult(context.Background(), m, func(ctx context.Context) (int, error) {
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestCalculateDelay(t *testing.T) {
	m := New(Config{InitialDelay: 100 * time.Millisecond, MaxDelay: time.Second, Strategy: StrategyExponential, Multiplier: 2})
	assert.Equal(t, 100*time.Millisecond, m.calculateDelay(0))
	assert.Equal(t, 400*time.Millisecond, m.calculateDelay(2))
	assert.Equal(t, time.Second, m.calculateDelay(10))

	fixed := New(Config{InitialDelay: 100 * time.Millisecond, Strategy: StrategyFixed})
	assert.Equal(t, 100*time.Millisecond, fixed.calculateDelay(5))
}
