package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pzhin/agentweave/workflow"
)

func newRedisStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, ttl, nil), mr
}

func TestRedisStore_SaveLoadRoundTrip(t *testing.T) {
	t.Parallel()
	s, _ := newRedisStore(t, 0)
	ctx := context.Background()
	sum := sampleSummary(t)

	require.NoError(t, s.Save(ctx, sum))

	snap, err := s.Load(ctx, sum.RunID)
	require.NoError(t, err)
	assert.Equal(t, sum.RunID, snap.Summary.RunID)
	assert.Equal(t, sum.Status, snap.Summary.Status)
	assert.Equal(t, workflow.StateCompleted, snap.Summary.States["A"])
	assert.Equal(t, 0.5, snap.Summary.Costs.ActualTotal)
}

func TestRedisStore_LoadMissing(t *testing.T) {
	t.Parallel()
	s, _ := newRedisStore(t, 0)

	_, err := s.Load(context.Background(), "no-such-run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestRedisStore_ListAndDelete(t *testing.T) {
	t.Parallel()
	s, _ := newRedisStore(t, 0)
	ctx := context.Background()

	first := sampleSummary(t)
	second := sampleSummary(t)
	require.NoError(t, s.Save(ctx, first))
	require.NoError(t, s.Save(ctx, second))

	ids, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, ids, 2)
	assert.Contains(t, ids, first.RunID)

	require.NoError(t, s.Delete(ctx, first.RunID))
	ids, err = s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{second.RunID}, ids)
}

func TestRedisStore_TTLExpiry(t *testing.T) {
	t.Parallel()
	s, mr := newRedisStore(t, time.Minute)
	ctx := context.Background()
	sum := sampleSummary(t)

	require.NoError(t, s.Save(ctx, sum))

	mr.FastForward(2 * time.Minute)

	_, err := s.Load(ctx, sum.RunID)
	require.Error(t, err)
}
