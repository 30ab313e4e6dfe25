package workflow

import (
	"sort"
	"time"

	"github.com/pzhin/agentweave/types"
)

// Binding pulls one input value out of a dependency's output once that
// dependency completes. An empty Key binds the dependency's whole
// output object.
type Binding struct {
	Source string `json:"source" yaml:"source"`
	Key    string `json:"key,omitempty" yaml:"key,omitempty"`
}

// ConditionFunc is evaluated at dispatch time; when it returns false
// the node is marked Skipped without running. Conditions are plain Go
// functions and do not survive serialization.
type ConditionFunc func(ec *ExecutionContext) bool

// AgentNode is one slot in the workflow graph.
type AgentNode struct {
	// ID is unique within the workflow.
	ID string
	// Type is the key into the agent registry.
	Type string
	// DependsOn lists the node IDs this node waits for.
	DependsOn []string
	// Inputs are static values supplied at graph-build time.
	Inputs types.Values
	// Bindings map input names to values drawn from dependency outputs.
	Bindings map[string]Binding
	// Condition gates dispatch; nil means always run.
	Condition ConditionFunc
	// Checkpoint pauses the whole run after this node completes.
	Checkpoint bool
	// Timeout overrides the workflow default; zero means inherit.
	Timeout time.Duration
	// Retry overrides the workflow default; nil means inherit.
	Retry *RetryPolicy
}

// Graph is an immutable-after-validation description of agent slots
// and their dependency edges. One Graph can back many concurrent runs.
type Graph struct {
	id       string
	name     string
	version  string
	nodes    map[string]*AgentNode
	metadata types.Values

	defaultTimeout time.Duration
	defaultRetry   *RetryPolicy

	validated bool
}

// ID returns the workflow ID.
func (g *Graph) ID() string { return g.id }

// Name returns the workflow name.
func (g *Graph) Name() string { return g.name }

// Version returns the workflow version.
func (g *Graph) Version() string { return g.version }

// Node retrieves a node by ID.
func (g *Graph) Node(id string) (*AgentNode, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// NodeIDs returns the sorted IDs of every node in the graph.
func (g *Graph) NodeIDs() []string {
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// Metadata retrieves a workflow metadata value.
func (g *Graph) Metadata(key string) (any, bool) {
	v, ok := g.metadata[key]
	return v, ok
}

// DefaultTimeout returns the workflow-level node timeout.
func (g *Graph) DefaultTimeout() time.Duration { return g.defaultTimeout }

// DefaultRetry returns the workflow-level retry policy, or nil.
func (g *Graph) DefaultRetry() *RetryPolicy { return g.defaultRetry }

// Validated reports whether Validate has succeeded on this graph.
func (g *Graph) Validated() bool { return g.validated }

// AttachCondition re-attaches a dispatch condition to a node, e.g.
// after loading a graph from a Definition, which cannot carry
// functions. Structure is untouched, so the validation result stands.
func (g *Graph) AttachCondition(nodeID string, fn ConditionFunc) error {
	n, ok := g.nodes[nodeID]
	if !ok {
		return types.Errorf(types.ErrValidation, "unknown node %q", nodeID).WithNode(nodeID)
	}
	n.Condition = fn
	return nil
}

// timeoutFor resolves the effective timeout for a node.
func (g *Graph) timeoutFor(n *AgentNode) time.Duration {
	if n.Timeout > 0 {
		return n.Timeout
	}
	return g.defaultTimeout
}

// retryFor resolves the effective retry policy for a node, or nil.
func (g *Graph) retryFor(n *AgentNode) *RetryPolicy {
	if n.Retry != nil {
		return n.Retry
	}
	return g.defaultRetry
}
