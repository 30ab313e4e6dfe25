package budget

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedger_PreflightWithinLimit(t *testing.T) {
	t.Parallel()
	l := NewLedger(100, nil)

	dec, err := l.Preflight(context.Background(), 30)
	require.NoError(t, err)
	assert.True(t, dec.Allowed)
	assert.Empty(t, dec.Warnings)
	assert.Equal(t, 100.0, dec.Remaining)
}

func TestLedger_PreflightDeniesOverrun(t *testing.T) {
	t.Parallel()
	l := NewLedger(100, nil)
	l.Record(context.Background(), 80)

	dec, err := l.Preflight(context.Background(), 30)
	require.NoError(t, err)
	assert.False(t, dec.Allowed)
	assert.Contains(t, dec.Reason, "exceeds remaining budget")
	assert.Equal(t, 20.0, dec.Remaining)

	// Denial changed nothing.
	assert.Equal(t, 80.0, l.Spent())
}

func TestLedger_WarningThreshold(t *testing.T) {
	t.Parallel()
	l := NewLedger(100, nil)

	dec, err := l.Preflight(context.Background(), 85)
	require.NoError(t, err)
	assert.True(t, dec.Allowed)
	assert.NotEmpty(t, dec.Warnings)

	tight := NewLedger(100, nil).WithWarnThreshold(0.5)
	dec, err = tight.Preflight(context.Background(), 60)
	require.NoError(t, err)
	assert.True(t, dec.Allowed)
	assert.NotEmpty(t, dec.Warnings)
}

func TestLedger_HaltAndRelease(t *testing.T) {
	t.Parallel()
	l := NewLedger(100, nil)
	l.Halt()

	dec, err := l.Preflight(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, dec.Allowed)
	assert.Equal(t, "budget halted", dec.Reason)

	l.Release()
	dec, err = l.Preflight(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, dec.Allowed)
}

func TestLedger_SetLimit(t *testing.T) {
	t.Parallel()
	l := NewLedger(10, nil)
	l.Record(context.Background(), 8)

	dec, _ := l.Preflight(context.Background(), 5)
	assert.False(t, dec.Allowed)

	l.SetLimit(20)
	dec, _ = l.Preflight(context.Background(), 5)
	assert.True(t, dec.Allowed)
	assert.Equal(t, 12.0, l.Remaining())
}

func TestLedger_ConcurrentRecord(t *testing.T) {
	t.Parallel()
	l := NewLedger(10000, nil)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Record(context.Background(), 1)
		}()
	}
	wg.Wait()

	assert.Equal(t, 100.0, l.Spent())
}
