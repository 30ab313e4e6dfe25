package workflow

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pzhin/agentweave/types"
)

// AgentOptions carries per-invocation metadata into an agent call.
type AgentOptions struct {
	RunID   string
	NodeID  string
	Timeout time.Duration
}

// AgentFunc is the executable unit behind one agent type: an
// asynchronous call that turns resolved inputs into an output value.
// The engine never performs network I/O itself; agents do.
type AgentFunc func(ctx context.Context, inputs types.Values, opts AgentOptions) (any, error)

// CostFunc estimates the cost of one agent call. It must be pure; it
// is consulted before the run (output nil) and again on completion to
// record actual spend.
type CostFunc func(inputs types.Values, output any) float64

// RegistryEntry describes one agent type: its executable, its cost
// estimator, and its declared input/output shapes.
type RegistryEntry struct {
	Type         string
	Name         string
	Description  string
	Run          AgentFunc
	EstimateCost CostFunc
	InputSchema  *types.JSONSchema
	OutputSchema *types.JSONSchema
}

// Descriptor is the read-only view of a registry entry, for discovery
// and CLI listings.
type Descriptor struct {
	Type         string            `json:"type"`
	Name         string            `json:"name"`
	Description  string            `json:"description,omitempty"`
	InputSchema  *types.JSONSchema `json:"input_schema,omitempty"`
	OutputSchema *types.JSONSchema `json:"output_schema,omitempty"`
}

// Registry maps agent type names to their implementations. It is
// populated once at startup and read-only from the scheduler's
// perspective afterwards.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*RegistryEntry
	logger  *zap.Logger
}

// NewRegistry creates an empty agent registry.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		entries: make(map[string]*RegistryEntry),
		logger:  logger.With(zap.String("component", "agent_registry")),
	}
}

// Register adds an agent type. Registering a duplicate type or an
// entry without an executable fails with a validation error, so a
// misconfigured process surfaces at startup rather than mid-run.
func (r *Registry) Register(entry *RegistryEntry) error {
	if entry == nil || entry.Type == "" {
		return types.NewError(types.ErrValidation, "registry entry requires a type")
	}
	if entry.Run == nil {
		return types.Errorf(types.ErrValidation, "agent type %q has no executable", entry.Type)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[entry.Type]; exists {
		return types.Errorf(types.ErrDuplicateAgent, "agent type %q already registered", entry.Type)
	}
	r.entries[entry.Type] = entry
	r.logger.Info("agent type registered", zap.String("type", entry.Type))
	return nil
}

// Get retrieves an agent type. Unknown types fail with a validation
// error rather than returning nil, so a bad workflow definition
// surfaces immediately instead of deep inside a dispatch loop.
func (r *Registry) Get(agentType string) (*RegistryEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[agentType]
	if !ok {
		return nil, types.Errorf(types.ErrUnknownAgentType, "unknown agent type %q", agentType)
	}
	return entry, nil
}

// List returns read-only descriptors for every registered type, sorted
// by type name.
func (r *Registry) List() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Descriptor, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, Descriptor{
			Type:         e.Type,
			Name:         e.Name,
			Description:  e.Description,
			InputSchema:  e.InputSchema,
			OutputSchema: e.OutputSchema,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}

// Len returns the number of registered types.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
