package signal

import (
	"context"
	"time"
)

// Query narrows a fetch to one company and time window
type Query struct {
	Company  string
	Keywords []string
	Since    time.Time
	Until    time.Time
	Limit    int
}

// Source is a pluggable external signal provider.
// Every source is optional and unreliable: an empty result is valid input.
type Source interface {
	Name() string
	Kind() Kind
	Fetch(ctx context.Context, q Query) ([]Signal, error)
}

// Filter returns the signals of the given kind
func Filter[T Signal](signals []Signal) []T {
	out := make([]T, 0, len(signals))
	for _, s := range signals {
		if v, ok := s.(T); ok {
			out = append(out, v)
		}
	}
	return out
}
