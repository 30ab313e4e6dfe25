package workflow

import (
	"time"

	"go.uber.org/zap"

	"github.com/pzhin/agentweave/types"
)

// GraphBuilder provides a fluent API for constructing workflow graphs.
type GraphBuilder struct {
	graph  *Graph
	logger *zap.Logger
}

// NewGraphBuilder creates a builder for a workflow with the given ID
// and human-readable name.
func NewGraphBuilder(id, name string) *GraphBuilder {
	return &GraphBuilder{
		graph: &Graph{
			id:       id,
			name:     name,
			nodes:    make(map[string]*AgentNode),
			metadata: make(types.Values),
		},
		logger: zap.NewNop(),
	}
}

// WithLogger sets a custom logger.
func (b *GraphBuilder) WithLogger(logger *zap.Logger) *GraphBuilder {
	if logger != nil {
		b.logger = logger.With(zap.String("component", "graph_builder"))
	}
	return b
}

// WithVersion sets the workflow version.
func (b *GraphBuilder) WithVersion(version string) *GraphBuilder {
	b.graph.version = version
	return b
}

// WithMetadata sets a workflow metadata value.
func (b *GraphBuilder) WithMetadata(key string, value any) *GraphBuilder {
	b.graph.metadata[key] = value
	return b
}

// WithDefaultTimeout sets the workflow-level per-node timeout.
func (b *GraphBuilder) WithDefaultTimeout(d time.Duration) *GraphBuilder {
	b.graph.defaultTimeout = d
	return b
}

// WithDefaultRetry sets the workflow-level retry policy.
func (b *GraphBuilder) WithDefaultRetry(policy *RetryPolicy) *GraphBuilder {
	b.graph.defaultRetry = policy
	return b
}

// AddAgent adds an agent slot to the graph and returns a NodeBuilder
// for configuring it. Adding the same ID twice replaces the earlier
// node; Validate reports structural problems either way.
func (b *GraphBuilder) AddAgent(id, agentType string) *NodeBuilder {
	node := &AgentNode{
		ID:       id,
		Type:     agentType,
		Inputs:   make(types.Values),
		Bindings: make(map[string]Binding),
	}
	b.graph.nodes[id] = node
	return &NodeBuilder{node: node, parent: b}
}

// Build validates the graph and returns it. The returned graph is
// immutable and may back many concurrent runs.
func (b *GraphBuilder) Build() (*Graph, error) {
	if err := b.graph.Validate(); err != nil {
		return nil, err
	}
	b.logger.Info("workflow graph built",
		zap.String("workflow_id", b.graph.id),
		zap.Int("nodes", len(b.graph.nodes)),
	)
	return b.graph, nil
}

// NodeBuilder provides a fluent API for configuring one agent slot.
type NodeBuilder struct {
	node   *AgentNode
	parent *GraphBuilder
}

// DependsOn declares dependency edges to other nodes.
func (nb *NodeBuilder) DependsOn(nodeIDs ...string) *NodeBuilder {
	nb.node.DependsOn = append(nb.node.DependsOn, nodeIDs...)
	return nb
}

// WithInput sets a static input value.
func (nb *NodeBuilder) WithInput(key string, value any) *NodeBuilder {
	nb.node.Inputs[key] = value
	return nb
}

// WithInputs merges a set of static input values.
func (nb *NodeBuilder) WithInputs(inputs types.Values) *NodeBuilder {
	nb.node.Inputs.Merge(inputs)
	return nb
}

// BindInput binds an input name to a key of a dependency's output.
// Pass an empty key to bind the dependency's whole output.
func (nb *NodeBuilder) BindInput(input, sourceNodeID, outputKey string) *NodeBuilder {
	nb.node.Bindings[input] = Binding{Source: sourceNodeID, Key: outputKey}
	return nb
}

// WithCondition gates dispatch on a predicate over the run state.
func (nb *NodeBuilder) WithCondition(fn ConditionFunc) *NodeBuilder {
	nb.node.Condition = fn
	return nb
}

// WithCheckpoint pauses the whole run after this node completes,
// pending an external approve/reject decision.
func (nb *NodeBuilder) WithCheckpoint() *NodeBuilder {
	nb.node.Checkpoint = true
	return nb
}

// WithTimeout overrides the workflow-level timeout for this node.
func (nb *NodeBuilder) WithTimeout(d time.Duration) *NodeBuilder {
	nb.node.Timeout = d
	return nb
}

// WithRetry overrides the workflow-level retry policy for this node.
func (nb *NodeBuilder) WithRetry(policy *RetryPolicy) *NodeBuilder {
	nb.node.Retry = policy
	return nb
}

// Done completes node configuration and returns to the GraphBuilder.
func (nb *NodeBuilder) Done() *GraphBuilder {
	return nb.parent
}
