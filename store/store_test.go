package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pzhin/agentweave/types"
	"github.com/pzhin/agentweave/workflow"
)

func sampleSummary(t *testing.T) workflow.Summary {
	t.Helper()
	g, err := workflow.NewGraphBuilder("wf", "test workflow").
		AddAgent("A", "noop").Done().
		AddAgent("B", "noop").DependsOn("A").Done().
		Build()
	require.NoError(t, err)

	ec := workflow.NewExecutionContext(g, nil)
	require.NoError(t, ec.MarkRunning("A"))
	require.NoError(t, ec.Complete("A", types.Values{"n": 1}, 5*time.Millisecond, 0.5))
	return ec.Summary()
}

func TestMemoryStore_SaveLoad(t *testing.T) {
	t.Parallel()
	s := NewMemoryStore()
	ctx := context.Background()
	sum := sampleSummary(t)

	require.NoError(t, s.Save(ctx, sum))

	snap, err := s.Load(ctx, sum.RunID)
	require.NoError(t, err)
	assert.Equal(t, sum.RunID, snap.Summary.RunID)
	assert.Equal(t, "wf", snap.Summary.WorkflowID)
	assert.Equal(t, workflow.StateCompleted, snap.Summary.States["A"])
	assert.False(t, snap.SavedAt.IsZero())
}

func TestMemoryStore_RejectsEmptyRunID(t *testing.T) {
	t.Parallel()
	s := NewMemoryStore()

	err := s.Save(context.Background(), workflow.Summary{})
	require.Error(t, err)
	assert.Equal(t, types.ErrValidation, types.GetErrorCode(err))
}

func TestMemoryStore_LoadMissing(t *testing.T) {
	t.Parallel()
	s := NewMemoryStore()

	_, err := s.Load(context.Background(), "no-such-run")
	require.Error(t, err)
}

func TestMemoryStore_ListAndDelete(t *testing.T) {
	t.Parallel()
	s := NewMemoryStore()
	ctx := context.Background()

	first := sampleSummary(t)
	second := sampleSummary(t)
	require.NoError(t, s.Save(ctx, first))
	require.NoError(t, s.Save(ctx, second))

	ids, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, ids, 2)
	assert.Contains(t, ids, first.RunID)
	assert.Contains(t, ids, second.RunID)

	require.NoError(t, s.Delete(ctx, first.RunID))
	ids, err = s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, ids, 1)

	// Deleting an absent run is fine.
	require.NoError(t, s.Delete(ctx, first.RunID))
}

func TestMemoryStore_OverwriteSameRun(t *testing.T) {
	t.Parallel()
	s := NewMemoryStore()
	ctx := context.Background()
	sum := sampleSummary(t)

	require.NoError(t, s.Save(ctx, sum))
	require.NoError(t, s.Save(ctx, sum))

	ids, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, ids, 1)
}
