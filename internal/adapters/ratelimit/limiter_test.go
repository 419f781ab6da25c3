package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crisiswatch/pkg/errors"
)

func TestLimiter_Burst(t *testing.T) {
	l := NewLimiter("rss", 60) // 1 rps, burst 6

	for i := 0; i < 6; i++ {
		assert.True(t, l.Allow(), "request %d", i)
	}
	assert.False(t, l.Allow())
}

func TestLimiter_WaitHonoursContext(t *testing.T) {
	l := NewLimiter("reddit", 1)
	require.True(t, l.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := l.Wait(ctx)
	assert.True(t, errors.Is(err, errors.ErrRateLimitExceeded))
}

func TestLimiter_Unlimited(t *testing.T) {
	l := NewLimiter("local", 0)
	for i := 0; i < 100; i++ {
		assert.True(t, l.Allow())
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(60)
	r.SetLimit("slow", 1)

	assert.Same(t, r.For("rss"), r.For("rss"))
	assert.Equal(t, "slow", r.For("slow").Name())

	require.True(t, r.For("slow").Allow())
	assert.False(t, r.For("slow").Allow())
	assert.NoError(t, r.Wait(context.Background(), "rss"))
}
