package workflow

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/pzhin/agentweave/types"
)

func TestRetryPolicy_DelayGrowth(t *testing.T) {
	t.Parallel()
	p := RetryPolicy{
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2.0,
	}

	assert.Equal(t, 100*time.Millisecond, p.delay(1))
	assert.Equal(t, 200*time.Millisecond, p.delay(2))
	assert.Equal(t, 400*time.Millisecond, p.delay(3))
	assert.Equal(t, 800*time.Millisecond, p.delay(4))
	// Capped.
	assert.Equal(t, time.Second, p.delay(5))
	assert.Equal(t, time.Second, p.delay(10))
}

func TestRetryPolicy_JitterBounds(t *testing.T) {
	t.Parallel()
	p := RetryPolicy{
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2.0,
		Jitter:       true,
	}

	for i := 0; i < 100; i++ {
		d := p.delay(1)
		assert.GreaterOrEqual(t, d, 75*time.Millisecond)
		assert.LessOrEqual(t, d, 125*time.Millisecond)
	}
}

func TestRetryPolicy_Normalized(t *testing.T) {
	t.Parallel()
	p := RetryPolicy{MaxRetries: -3, InitialDelay: -1, MaxDelay: 0, Multiplier: 0.1}
	n := p.normalized()

	assert.Equal(t, 0, n.MaxRetries)
	assert.Equal(t, time.Second, n.InitialDelay)
	assert.Equal(t, 30*time.Second, n.MaxDelay)
	assert.Equal(t, 2.0, n.Multiplier)
}

func TestRetryPolicy_ShouldRetry(t *testing.T) {
	t.Parallel()
	all := RetryPolicy{}
	assert.True(t, all.shouldRetry(errors.New("anything")))

	selective := RetryPolicy{RetryIf: types.IsRetryable}
	assert.False(t, selective.shouldRetry(errors.New("plain")))
	assert.False(t, selective.shouldRetry(types.NewError(types.ErrAgentExecution, "fatal")))
	assert.True(t, selective.shouldRetry(
		types.NewError(types.ErrNodeTimeout, "slow").WithRetryable(true)))
}
