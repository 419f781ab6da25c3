package retry

import (
	"context"
	"math"
	"net"
	"net/http"
	"strings"
	"time"

	"crisiswatch/pkg/errors"
)

// Strategy defines the retry strategy
type Strategy string

const (
	// StrategyExponential uses exponential backoff
	StrategyExponential Strategy = "exponential"
	// StrategyLinear uses linear backoff
	StrategyLinear Strategy = "linear"
	// StrategyFixed uses fixed delay
	StrategyFixed Strategy = "fixed"
)

// Config contains retry configuration
type Config struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Strategy     Strategy
	Multiplier   float64 // For exponential backoff
	// AttemptTimeout bounds every single attempt; zero means no per-attempt deadline
	AttemptTimeout time.Duration
}

// DefaultConfig is a small fixed retry budget with a 15s per-attempt timeout
func DefaultConfig() Config {
	return Config{
		MaxRetries:     2,
		InitialDelay:   250 * time.Millisecond,
		MaxDelay:       2 * time.Second,
		Strategy:       StrategyFixed,
		Multiplier:     2.0,
		AttemptTimeout: 15 * time.Second,
	}
}

// Middleware runs calls with a retry budget
type Middleware struct {
	config Config
}

// New creates a new retry middleware
func New(config Config) *Middleware {
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	if config.InitialDelay <= 0 {
		config.InitialDelay = 100 * time.Millisecond
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 5 * time.Second
	}
	if config.Multiplier <= 0 {
		config.Multiplier = 2.0
	}
	if config.Strategy == "" {
		config.Strategy = StrategyFixed
	}

	return &Middleware{config: config}
}

// Config returns the effective configuration
func (m *Middleware) Config() Config {
	return m.config
}

// Do executes fn with retry logic. Each attempt gets its own context
// bounded by AttemptTimeout.
func (m *Middleware) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	_, err := DoWithResult(ctx, m, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// DoWithResult executes fn with retry logic and returns its result
func DoWithResult[T any](ctx context.Context, m *Middleware, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= m.config.MaxRetries; attempt++ {
		result, err := runAttempt(ctx, m.config.AttemptTimeout, fn)
		if err == nil {
			return result, nil
		}

		lastErr = err

		// Parent cancellation ends the budget immediately
		if ctx.Err() != nil {
			return zero, errors.Wrap(ctx.Err(), "retry cancelled")
		}

		if !IsRetryable(err) {
			return zero, err
		}

		// Don't sleep after last attempt
		if attempt == m.config.MaxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return zero, errors.Wrap(ctx.Err(), "retry cancelled")
		case <-time.After(m.calculateDelay(attempt)):
		}
	}

	return zero, errors.Wrapf(lastErr, "max retries (%d) exceeded", m.config.MaxRetries)
}

func runAttempt[T any](ctx context.Context, timeout time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return fn(ctx)
	}

	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(attemptCtx)
}

// calculateDelay calculates the backoff delay based on the strategy
func (m *Middleware) calculateDelay(attempt int) time.Duration {
	var delay time.Duration

	switch m.config.Strategy {
	case StrategyExponential:
		// Exponential: delay = initial * (multiplier ^ attempt)
		delay = time.Duration(float64(m.config.InitialDelay) * math.Pow(m.config.Multiplier, float64(attempt)))

	case StrategyLinear:
		// Linear: delay = initial * (1 + attempt)
		delay = m.config.InitialDelay * time.Duration(1+attempt)

	default:
		delay = m.config.InitialDelay
	}

	// Cap at max delay
	if delay > m.config.MaxDelay {
		delay = m.config.MaxDelay
	}

	return delay
}

// StatusError carries an HTTP status from an upstream source
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return "unexpected status " + http.StatusText(e.Code) + " from " + e.URL
}

// StatusCode returns the HTTP status code
func (e *StatusError) StatusCode() int { return e.Code }

// IsRetryable determines if an error is worth retrying
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, errors.ErrSourceUnavailable) || errors.Is(err, errors.ErrTimeout) {
		return true
	}

	// A per-attempt deadline is retryable; parent cancellation is handled by the caller
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	// Network errors are generally retryable
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	// HTTP status codes that are retryable
	var httpErr interface{ StatusCode() int }
	if errors.As(err, &httpErr) {
		code := httpErr.StatusCode()
		return code == http.StatusTooManyRequests ||
			code == http.StatusRequestTimeout ||
			code >= 500
	}

	errStr := strings.ToLower(err.Error())
	retryableMessages := []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"no such host",
		"timeout",
		"temporary failure",
		"too many requests",
		"rate limit",
	}

	for _, msg := range retryableMessages {
		if strings.Contains(errStr, msg) {
			return true
		}
	}

	return false
}
