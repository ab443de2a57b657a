package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeycumines/mctl/channel"
	"github.com/joeycumines/mctl/ratelimit"
)

func TestLimiter_AllowWithinBudget(t *testing.T) {
	l := ratelimit.New(map[time.Duration]int{time.Minute: 5})
	_, ok := l.Allow(channel.HTTP)
	assert.True(t, ok)
}

func TestLimiter_AllowExhaustsBudget(t *testing.T) {
	l := ratelimit.New(map[time.Duration]int{time.Minute: 1})

	_, ok := l.Allow(channel.HTTP)
	require.True(t, ok)

	_, ok = l.Allow(channel.HTTP)
	assert.False(t, ok, "second event within the same window must be denied")
}

func TestLimiter_AllowIsPerChannel(t *testing.T) {
	l := ratelimit.New(map[time.Duration]int{time.Minute: 1})

	_, ok := l.Allow(channel.HTTP)
	require.True(t, ok)

	_, ok = l.Allow(channel.USB)
	assert.True(t, ok, "a distinct channel must have its own budget")
}

func TestLimiter_NilLimiterNeverDenies(t *testing.T) {
	var l *ratelimit.Limiter
	_, ok := l.Allow(channel.HTTP)
	assert.True(t, ok)
	assert.NoError(t, l.Wait(context.Background(), channel.HTTP))
}

func TestLimiter_WaitRespectsContextCancellation(t *testing.T) {
	l := ratelimit.New(map[time.Duration]int{time.Hour: 1})
	_, ok := l.Allow(channel.HTTP)
	require.True(t, ok)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := l.Wait(ctx, channel.HTTP)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
