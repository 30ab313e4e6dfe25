package store

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/pzhin/agentweave/types"
	"github.com/pzhin/agentweave/workflow"
)

const redisKeyPrefix = "agentweave:run:"

// RedisStore is a RunStore backed by redis, for deployments where
// several processes share run history. Snapshots are stored as JSON
// under agentweave:run:<run_id>.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisStore wraps an existing redis client. A zero TTL keeps
// snapshots until deleted.
func NewRedisStore(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisStore{
		client: client,
		ttl:    ttl,
		logger: logger.With(zap.String("component", "redis_store")),
	}
}

// Save implements RunStore.
func (s *RedisStore) Save(ctx context.Context, summary workflow.Summary) error {
	if summary.RunID == "" {
		return types.NewError(types.ErrValidation, "summary has no run ID")
	}
	snap := RunSnapshot{Summary: summary, SavedAt: time.Now()}
	data, err := json.Marshal(&snap)
	if err != nil {
		return types.NewError(types.ErrInternal, "marshal run snapshot").WithCause(err)
	}
	if err := s.client.Set(ctx, redisKeyPrefix+summary.RunID, data, s.ttl).Err(); err != nil {
		return types.NewError(types.ErrInternal, "save run snapshot").WithCause(err)
	}
	s.logger.Debug("run snapshot saved",
		zap.String("run_id", summary.RunID),
		zap.String("status", string(summary.Status)),
	)
	return nil
}

// Load implements RunStore.
func (s *RedisStore) Load(ctx context.Context, runID string) (*RunSnapshot, error) {
	data, err := s.client.Get(ctx, redisKeyPrefix+runID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, types.Errorf(types.ErrValidation, "run %q not found", runID)
	}
	if err != nil {
		return nil, types.NewError(types.ErrInternal, "load run snapshot").WithCause(err)
	}
	var snap RunSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, types.NewError(types.ErrInternal, "unmarshal run snapshot").WithCause(err)
	}
	return &snap, nil
}

// List implements RunStore, scanning the keyspace for run IDs.
func (s *RedisStore) List(ctx context.Context) ([]string, error) {
	var ids []string
	iter := s.client.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		ids = append(ids, strings.TrimPrefix(iter.Val(), redisKeyPrefix))
	}
	if err := iter.Err(); err != nil {
		return nil, types.NewError(types.ErrInternal, "scan run snapshots").WithCause(err)
	}
	return ids, nil
}

// Delete implements RunStore.
func (s *RedisStore) Delete(ctx context.Context, runID string) error {
	if err := s.client.Del(ctx, redisKeyPrefix+runID).Err(); err != nil {
		return types.NewError(types.ErrInternal, "delete run snapshot").WithCause(err)
	}
	return nil
}
