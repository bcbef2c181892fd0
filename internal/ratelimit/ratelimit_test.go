package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimpleRateLimiter_FirstWaitIsImmediate(t *testing.T) {
	r := NewSimpleRateLimiter(time.Hour, time.Hour)

	start := time.Now()
	require.NoError(t, r.Wait(context.Background()))
	assert.Less(t, time.Since(start), time.Second)
}

func TestSimpleRateLimiter_SpacesActions(t *testing.T) {
	r := NewSimpleRateLimiter(30*time.Millisecond, 40*time.Millisecond)

	require.NoError(t, r.Wait(context.Background()))
	start := time.Now()
	require.NoError(t, r.Wait(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 25*time.Millisecond)
}

func TestSimpleRateLimiter_Cancelled(t *testing.T) {
	r := NewSimpleRateLimiter(time.Hour, time.Hour)
	require.NoError(t, r.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, r.Wait(ctx), context.DeadlineExceeded)
}

func TestSimpleRateLimiter_SetDelay(t *testing.T) {
	r := NewSimpleRateLimiter(time.Second, 2*time.Second)

	r.SetDelay(5*time.Second, time.Second)
	lo, hi := r.Delays()
	assert.Equal(t, 5*time.Second, lo)
	assert.Equal(t, 5*time.Second, hi)
}

func TestAdaptiveRateLimiter_BacksOff(t *testing.T) {
	a := NewAdaptiveRateLimiter(2*time.Second, 4*time.Second)

	a.RecordError()
	a.RecordError()
	lo, _ := a.Delays()
	assert.Equal(t, 2*time.Second, lo)

	a.RecordError()
	lo, hi := a.Delays()
	assert.Equal(t, 3*time.Second, lo)
	assert.Equal(t, 6*time.Second, hi)
}

func TestAdaptiveRateLimiter_Ceiling(t *testing.T) {
	a := NewAdaptiveRateLimiter(50*time.Second, 100*time.Second)

	for i := 0; i < 6; i++ {
		a.RecordError()
	}

	lo, hi := a.Delays()
	assert.Equal(t, minCeil, lo)
	assert.Equal(t, maxCeil, hi)
}

func TestAdaptiveRateLimiter_SpeedsUp(t *testing.T) {
	a := NewAdaptiveRateLimiter(10*time.Second, 20*time.Second)

	for i := 0; i < 6; i++ {
		a.RecordSuccess()
	}
	lo, _ := a.Delays()
	assert.Equal(t, 9*time.Second, lo)

	b := NewAdaptiveRateLimiter(time.Second, 2*time.Second)
	for i := 0; i < 6; i++ {
		b.RecordSuccess()
	}
	lo, _ = b.Delays()
	assert.Equal(t, minFloor, lo)
}
