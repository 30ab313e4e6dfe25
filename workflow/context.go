package workflow

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pzhin/agentweave/types"
)

// State is the execution state of one node within a run.
type State string

const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	StateSkipped   State = "skipped"
	StatePaused    State = "paused"
)

// Terminal reports whether the state never changes again.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateSkipped
}

// Passed reports whether the state unblocks dependents.
func (s State) Passed() bool {
	return s == StateCompleted || s == StateSkipped
}

// allowedTransitions encodes the node state machine. Pending→Failed
// covers nodes refused at dispatch (kill-switch); they never run.
var allowedTransitions = map[State]map[State]bool{
	StatePending: {StateRunning: true, StateSkipped: true, StateFailed: true},
	StateRunning: {StateCompleted: true, StateFailed: true, StatePaused: true},
	StatePaused:  {StateCompleted: true, StateFailed: true},
}

// Status is the derived whole-run status.
type Status string

const (
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Checkpoint holds a checkpointed node's output until the resume
// decision. At most one checkpoint is pending per run; when several
// checkpoint nodes in one layer finish together, the later ones queue
// behind the pending one and surface one resume decision at a time.
type Checkpoint struct {
	ID        string    `json:"id"`
	NodeID    string    `json:"node_id"`
	Output    any       `json:"output,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// CostLedger tracks estimated versus actual spend, broken out per node.
type CostLedger struct {
	EstimatedTotal  float64            `json:"estimated_total"`
	ActualTotal     float64            `json:"actual_total"`
	EstimatedByNode map[string]float64 `json:"estimated_by_node,omitempty"`
	ActualByNode    map[string]float64 `json:"actual_by_node,omitempty"`
}

func (l *CostLedger) clone() CostLedger {
	out := CostLedger{
		EstimatedTotal:  l.EstimatedTotal,
		ActualTotal:     l.ActualTotal,
		EstimatedByNode: make(map[string]float64, len(l.EstimatedByNode)),
		ActualByNode:    make(map[string]float64, len(l.ActualByNode)),
	}
	for k, v := range l.EstimatedByNode {
		out.EstimatedByNode[k] = v
	}
	for k, v := range l.ActualByNode {
		out.ActualByNode[k] = v
	}
	return out
}

// Progress counts nodes by outcome.
type Progress struct {
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
	Total     int `json:"total"`
}

// Summary is a pure projection of the run, safe to call at any time.
type Summary struct {
	RunID      string            `json:"run_id"`
	WorkflowID string            `json:"workflow_id"`
	Status     Status            `json:"status"`
	Progress   Progress          `json:"progress"`
	States     map[string]State  `json:"states"`
	Costs      CostLedger        `json:"costs"`
	Outputs    map[string]any    `json:"outputs,omitempty"`
	Errors     map[string]string `json:"errors,omitempty"`
	TimingsMS  map[string]int64  `json:"timings_ms,omitempty"`
	Checkpoint *Checkpoint       `json:"checkpoint,omitempty"`
	StartedAt  time.Time         `json:"started_at"`
}

// ExecutionContext is the mutable state container for one workflow
// run. It is owned exclusively by the scheduler for the duration of an
// Execute or Resume call; between calls it is safe to inspect but must
// not be mutated externally. All mutation goes through the mutex since
// nodes in a layer complete on separate goroutines.
type ExecutionContext struct {
	runID     string
	graph     *Graph
	startedAt time.Time

	mu      sync.RWMutex
	states  map[string]State
	outputs map[string]any
	errs    map[string]error
	timings map[string]time.Duration
	costs   CostLedger
	pending *Checkpoint
	queue   []*Checkpoint

	emit   EventEmitter
	logger *zap.Logger
}

// NewExecutionContext creates the state container for one run of the
// given graph, with every node Pending.
func NewExecutionContext(g *Graph, logger *zap.Logger) *ExecutionContext {
	if logger == nil {
		logger = zap.NewNop()
	}
	ec := &ExecutionContext{
		runID:     uuid.NewString(),
		graph:     g,
		startedAt: time.Now(),
		states:    make(map[string]State, g.Len()),
		outputs:   make(map[string]any),
		errs:      make(map[string]error),
		timings:   make(map[string]time.Duration),
		costs: CostLedger{
			EstimatedByNode: make(map[string]float64),
			ActualByNode:    make(map[string]float64),
		},
	}
	ec.logger = logger.With(
		zap.String("component", "execution_context"),
		zap.String("run_id", ec.runID),
	)
	for id := range g.nodes {
		ec.states[id] = StatePending
	}
	return ec
}

// RunID returns the unique ID of this run.
func (ec *ExecutionContext) RunID() string { return ec.runID }

// Graph returns the workflow graph backing this run.
func (ec *ExecutionContext) Graph() *Graph { return ec.graph }

// State returns a node's current execution state.
func (ec *ExecutionContext) State(nodeID string) State {
	ec.mu.RLock()
	defer ec.mu.RUnlock()
	return ec.states[nodeID]
}

// Output returns a node's recorded output, if any.
func (ec *ExecutionContext) Output(nodeID string) (any, bool) {
	ec.mu.RLock()
	defer ec.mu.RUnlock()
	out, ok := ec.outputs[nodeID]
	return out, ok
}

// NodeError returns a node's recorded error, if any.
func (ec *ExecutionContext) NodeError(nodeID string) error {
	ec.mu.RLock()
	defer ec.mu.RUnlock()
	return ec.errs[nodeID]
}

// Paused reports whether a checkpoint is pending.
func (ec *ExecutionContext) Paused() bool {
	ec.mu.RLock()
	defer ec.mu.RUnlock()
	return ec.pending != nil
}

// PendingCheckpoint returns a copy of the pending checkpoint, or nil.
func (ec *ExecutionContext) PendingCheckpoint() *Checkpoint {
	ec.mu.RLock()
	defer ec.mu.RUnlock()
	if ec.pending == nil {
		return nil
	}
	cp := *ec.pending
	return &cp
}

// setEmitter installs the progress callback. Called by the scheduler
// before the layer walk begins.
func (ec *ExecutionContext) setEmitter(emit EventEmitter) {
	ec.emit = emit
}

func (ec *ExecutionContext) emitEvent(t EventType, nodeID string, data any, err error) {
	if ec.emit == nil {
		return
	}
	ec.emit(Event{
		Type:   t,
		RunID:  ec.runID,
		NodeID: nodeID,
		Data:   data,
		Err:    err,
		At:     time.Now(),
	})
}

// transition moves a node to a new state, enforcing the state machine.
// Caller must hold ec.mu.
func (ec *ExecutionContext) transition(nodeID string, to State) error {
	from, ok := ec.states[nodeID]
	if !ok {
		return types.Errorf(types.ErrInternal, "unknown node %q", nodeID).WithNode(nodeID)
	}
	if !allowedTransitions[from][to] {
		return types.Errorf(types.ErrInvalidTransition,
			"node %q: illegal transition %s -> %s", nodeID, from, to).WithNode(nodeID)
	}
	ec.states[nodeID] = to
	return nil
}

// MarkRunning transitions a node to Running.
func (ec *ExecutionContext) MarkRunning(nodeID string) error {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	return ec.transition(nodeID, StateRunning)
}

// Complete records a successful node: output, timing, actual cost.
func (ec *ExecutionContext) Complete(nodeID string, output any, elapsed time.Duration, actualCost float64) error {
	ec.mu.Lock()
	if err := ec.transition(nodeID, StateCompleted); err != nil {
		ec.mu.Unlock()
		return err
	}
	ec.outputs[nodeID] = output
	ec.timings[nodeID] = elapsed
	ec.costs.ActualByNode[nodeID] = actualCost
	ec.costs.ActualTotal += actualCost
	ec.mu.Unlock()

	ec.emitEvent(EventNodeComplete, nodeID, output, nil)
	return nil
}

// Fail records a failed node. Timing is still recorded so the caller
// can see how long the attempts took.
func (ec *ExecutionContext) Fail(nodeID string, nodeErr error, elapsed time.Duration) error {
	ec.mu.Lock()
	if err := ec.transition(nodeID, StateFailed); err != nil {
		ec.mu.Unlock()
		return err
	}
	ec.errs[nodeID] = nodeErr
	ec.timings[nodeID] = elapsed
	ec.mu.Unlock()

	ec.logger.Warn("node failed", zap.String("node_id", nodeID), zap.Error(nodeErr))
	ec.emitEvent(EventNodeError, nodeID, nil, nodeErr)
	return nil
}

// Skip records a node whose condition evaluated false.
func (ec *ExecutionContext) Skip(nodeID string) error {
	ec.mu.Lock()
	if err := ec.transition(nodeID, StateSkipped); err != nil {
		ec.mu.Unlock()
		return err
	}
	ec.mu.Unlock()

	ec.emitEvent(EventNodeSkipped, nodeID, nil, nil)
	return nil
}

// Pause enters the paused state after a checkpoint node ran to
// completion, capturing its output so it is not lost. Timing and cost
// are recorded now so resume never double-counts them. Sibling
// checkpoints finishing in the same layer are valid input: the first
// pause becomes the pending decision and later ones queue behind it.
func (ec *ExecutionContext) Pause(nodeID string, output any, elapsed time.Duration, actualCost float64) error {
	ec.mu.Lock()
	if err := ec.transition(nodeID, StatePaused); err != nil {
		ec.mu.Unlock()
		return err
	}
	ec.timings[nodeID] = elapsed
	ec.costs.ActualByNode[nodeID] = actualCost
	ec.costs.ActualTotal += actualCost
	cp := &Checkpoint{
		ID:        uuid.NewString(),
		NodeID:    nodeID,
		Output:    output,
		CreatedAt: time.Now(),
	}
	if ec.pending == nil {
		ec.pending = cp
	} else {
		ec.queue = append(ec.queue, cp)
	}
	ec.mu.Unlock()

	ec.logger.Info("checkpoint hit, run paused", zap.String("node_id", nodeID))
	ec.emitEvent(EventCheckpointHit, nodeID, cp.Output, nil)
	return nil
}

// ResolveCheckpoint applies the human decision to the pending
// checkpoint. Approval completes the node with the retained output;
// rejection fails it with a checkpoint-rejected error carrying the
// feedback. Returns the resolved node ID. If sibling checkpoints are
// queued, the next one is promoted and the run stays paused awaiting
// its own decision.
func (ec *ExecutionContext) ResolveCheckpoint(approved bool, feedback string) (string, error) {
	ec.mu.Lock()
	if ec.pending == nil {
		ec.mu.Unlock()
		return "", types.NewError(types.ErrNoPendingCheckpoint, "no checkpoint is pending")
	}
	cp := ec.pending
	if len(ec.queue) > 0 {
		ec.pending = ec.queue[0]
		ec.queue = ec.queue[1:]
	} else {
		ec.pending = nil
	}

	if approved {
		if err := ec.transition(cp.NodeID, StateCompleted); err != nil {
			ec.mu.Unlock()
			return "", err
		}
		ec.outputs[cp.NodeID] = cp.Output
		ec.mu.Unlock()
		ec.emitEvent(EventNodeComplete, cp.NodeID, cp.Output, nil)
		return cp.NodeID, nil
	}

	if err := ec.transition(cp.NodeID, StateFailed); err != nil {
		ec.mu.Unlock()
		return "", err
	}
	rejection := types.Errorf(types.ErrCheckpointRejected,
		"checkpoint rejected: %s", feedback).WithNode(cp.NodeID)
	ec.errs[cp.NodeID] = rejection
	ec.mu.Unlock()
	ec.emitEvent(EventNodeError, cp.NodeID, nil, rejection)
	return cp.NodeID, nil
}

// CanRun reports whether all of a node's dependencies are in a pass
// state (Completed or Skipped).
func (ec *ExecutionContext) CanRun(nodeID string) bool {
	node, ok := ec.graph.nodes[nodeID]
	if !ok {
		return false
	}
	ec.mu.RLock()
	defer ec.mu.RUnlock()
	for _, dep := range node.DependsOn {
		if !ec.states[dep].Passed() {
			return false
		}
	}
	return true
}

// ResolveInputs merges a node's static inputs with values drawn from
// its input bindings. A binding whose source produced no output, or
// whose named key is absent from the output, binds nil rather than
// failing; optionality is a valid shape.
func (ec *ExecutionContext) ResolveInputs(node *AgentNode) types.Values {
	inputs := node.Inputs.Clone()
	if inputs == nil {
		inputs = make(types.Values)
	}
	ec.mu.RLock()
	defer ec.mu.RUnlock()
	for name, binding := range node.Bindings {
		out, ok := ec.outputs[binding.Source]
		if !ok {
			inputs[name] = nil
			continue
		}
		if binding.Key == "" {
			inputs[name] = out
			continue
		}
		inputs[name] = lookupKey(out, binding.Key)
	}
	return inputs
}

func lookupKey(output any, key string) any {
	switch m := output.(type) {
	case types.Values:
		return m[key]
	case map[string]any:
		return m[key]
	}
	return nil
}

// setEstimates records the admission-time cost estimates. Called once
// by the scheduler after preflight passes.
func (ec *ExecutionContext) setEstimates(byNode map[string]float64) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	total := 0.0
	for id, est := range byNode {
		ec.costs.EstimatedByNode[id] = est
		total += est
	}
	ec.costs.EstimatedTotal = total
}

// remainingEstimate sums the estimates of nodes still Pending, for
// the resume-time preflight. The paused node already ran, so its
// estimate is excluded.
func (ec *ExecutionContext) remainingEstimate() float64 {
	ec.mu.RLock()
	defer ec.mu.RUnlock()
	total := 0.0
	for id, est := range ec.costs.EstimatedByNode {
		if ec.states[id] == StatePending {
			total += est
		}
	}
	return total
}

// failedCount returns the number of Failed nodes.
func (ec *ExecutionContext) failedCount() int {
	ec.mu.RLock()
	defer ec.mu.RUnlock()
	n := 0
	for _, s := range ec.states {
		if s == StateFailed {
			n++
		}
	}
	return n
}

// Summary derives the whole-run status and a full copy of the run's
// bookkeeping. It is recomputed on every call, never cached, because
// it is read between asynchronous steps.
func (ec *ExecutionContext) Summary() Summary {
	ec.mu.RLock()
	defer ec.mu.RUnlock()

	sum := Summary{
		RunID:      ec.runID,
		WorkflowID: ec.graph.id,
		States:     make(map[string]State, len(ec.states)),
		Costs:      ec.costs.clone(),
		Outputs:    make(map[string]any, len(ec.outputs)),
		Errors:     make(map[string]string, len(ec.errs)),
		TimingsMS:  make(map[string]int64, len(ec.timings)),
		StartedAt:  ec.startedAt,
	}
	sum.Progress.Total = len(ec.states)

	terminal := 0
	for id, s := range ec.states {
		sum.States[id] = s
		switch s {
		case StateCompleted:
			sum.Progress.Completed++
		case StateFailed:
			sum.Progress.Failed++
		case StateSkipped:
			sum.Progress.Skipped++
		}
		if s.Terminal() {
			terminal++
		}
	}
	for id, out := range ec.outputs {
		sum.Outputs[id] = out
	}
	for id, err := range ec.errs {
		sum.Errors[id] = err.Error()
	}
	for id, d := range ec.timings {
		sum.TimingsMS[id] = d.Milliseconds()
	}
	if ec.pending != nil {
		cp := *ec.pending
		sum.Checkpoint = &cp
	}

	switch {
	case ec.pending != nil:
		sum.Status = StatusPaused
	case sum.Progress.Failed > 0:
		sum.Status = StatusFailed
	case terminal == len(ec.states):
		sum.Status = StatusCompleted
	default:
		sum.Status = StatusRunning
	}
	return sum
}
