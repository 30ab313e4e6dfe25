package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pzhin/agentweave/types"
	"github.com/pzhin/agentweave/workflow"
)

// RunSnapshot is one persisted run summary.
type RunSnapshot struct {
	Summary workflow.Summary `json:"summary"`
	SavedAt time.Time        `json:"saved_at"`
}

// RunStore persists run snapshots keyed by run ID.
type RunStore interface {
	Save(ctx context.Context, summary workflow.Summary) error
	Load(ctx context.Context, runID string) (*RunSnapshot, error)
	List(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, runID string) error
}

// MemoryStore is an in-process RunStore for tests and single-process
// deployments.
type MemoryStore struct {
	mu   sync.RWMutex
	runs map[string]*RunSnapshot
}

// NewMemoryStore creates an empty in-memory run store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: make(map[string]*RunSnapshot)}
}

// Save implements RunStore. Saving the same run ID again overwrites
// the earlier snapshot.
func (s *MemoryStore) Save(ctx context.Context, summary workflow.Summary) error {
	if summary.RunID == "" {
		return types.NewError(types.ErrValidation, "summary has no run ID")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[summary.RunID] = &RunSnapshot{Summary: summary, SavedAt: time.Now()}
	return nil
}

// Load implements RunStore.
func (s *MemoryStore) Load(ctx context.Context, runID string) (*RunSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.runs[runID]
	if !ok {
		return nil, types.Errorf(types.ErrValidation, "run %q not found", runID)
	}
	copied := *snap
	return &copied, nil
}

// List implements RunStore, returning run IDs in sorted order.
func (s *MemoryStore) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.runs))
	for id := range s.runs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Delete implements RunStore. Deleting an absent run is not an error.
func (s *MemoryStore) Delete(ctx context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.runs, runID)
	return nil
}
