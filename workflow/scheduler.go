package workflow

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/pzhin/agentweave/budget"
	"github.com/pzhin/agentweave/types"
)

// Stats receives scheduler telemetry. The in-tree prometheus collector
// implements it; a nil Stats disables reporting.
type Stats interface {
	RunStarted()
	RunFinished(status Status, elapsed time.Duration)
	NodeObserved(agentType string, state State, elapsed time.Duration)
	RetryObserved(agentType string)
	CostObserved(agentType string, actual float64)
}

// Options configures one Execute or Resume call.
type Options struct {
	// ContinueOnError keeps walking later layers even after a node in
	// an earlier layer failed. Default false: stop after the failed
	// layer settles.
	ContinueOnError bool
	// DryRun records synthetic outputs without invoking any agent.
	DryRun bool
	// MaxConcurrency bounds in-flight nodes within a layer; zero means
	// the layer's full width.
	MaxConcurrency int64
	// RateLimit, when set, throttles node dispatches.
	RateLimit *rate.Limiter
	// Budget is consulted at admission and at resume; never mid-run.
	Budget budget.Preflighter
	// Recorder receives actual per-node spend as nodes complete.
	Recorder budget.Recorder
	// Emitter receives progress events.
	Emitter EventEmitter
	// Stats receives scheduler telemetry.
	Stats Stats
}

// Scheduler walks a validated graph layer by layer, dispatching every
// eligible node in a layer concurrently. Per-node failures are
// contained: they change that node's state, never the return value of
// Execute. Cancellation of the supplied context acts as the
// kill-switch: it prevents new node starts but does not abort agent
// calls already in flight.
type Scheduler struct {
	registry *Registry
	logger   *zap.Logger
	tracer   trace.Tracer
}

// NewScheduler creates a scheduler backed by the given agent registry.
func NewScheduler(registry *Registry, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		registry: registry,
		logger:   logger.With(zap.String("component", "scheduler")),
		tracer:   otel.Tracer("github.com/pzhin/agentweave/workflow"),
	}
}

// Execute validates the graph, runs admission control, and walks the
// layers. Admission failures (validation, unknown agent type, budget
// denial) return an error before any ExecutionContext exists; per-node
// failures afterwards are reported only through the returned context's
// Summary.
func (s *Scheduler) Execute(ctx context.Context, g *Graph, opts Options) (*ExecutionContext, error) {
	if g == nil {
		return nil, types.NewError(types.ErrValidation, "graph is nil")
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	layers, err := Layers(g)
	if err != nil {
		return nil, err
	}

	// Resolve every agent type and estimate total cost before any run
	// state exists, so a denial leaves nothing behind.
	estimates := make(map[string]float64, g.Len())
	total := 0.0
	for _, id := range g.NodeIDs() {
		node := g.nodes[id]
		entry, err := s.registry.Get(node.Type)
		if err != nil {
			return nil, err
		}
		est := 0.0
		if entry.EstimateCost != nil {
			est = entry.EstimateCost(node.Inputs, nil)
		}
		estimates[id] = est
		total += est
	}
	if err := s.preflight(ctx, opts, total); err != nil {
		return nil, err
	}

	ec := NewExecutionContext(g, s.logger)
	ec.setEmitter(opts.Emitter)
	ec.setEstimates(estimates)

	s.logger.Info("run admitted",
		zap.String("run_id", ec.runID),
		zap.String("workflow_id", g.id),
		zap.Int("nodes", g.Len()),
		zap.Float64("estimated_cost", total),
	)
	if opts.Stats != nil {
		opts.Stats.RunStarted()
	}
	ec.emitEvent(EventRunStart, "", nil, nil)

	return s.run(ctx, ec, layers, opts)
}

// Resume applies a human checkpoint decision and, if approved,
// continues the layer walk from the first layer that still holds
// pending nodes. When sibling checkpoints queued behind the resolved
// one, the run stays paused and each surfaces its own Resume call
// before any layer proceeds. The budget is re-checked against the
// remaining estimated cost first, since it may have been consumed or
// changed since the pause; denial leaves the run paused and untouched.
func (s *Scheduler) Resume(ctx context.Context, ec *ExecutionContext, approved bool, feedback string, opts Options) (*ExecutionContext, error) {
	resumeStart := time.Now()
	if ec == nil {
		return nil, types.NewError(types.ErrNoPendingCheckpoint, "nil execution context")
	}
	if !ec.Paused() {
		return ec, types.NewError(types.ErrNoPendingCheckpoint, "run has no pending checkpoint")
	}
	if approved {
		if err := s.preflight(ctx, opts, ec.remainingEstimate()); err != nil {
			return ec, err
		}
	}

	ec.setEmitter(opts.Emitter)
	nodeID, err := ec.ResolveCheckpoint(approved, feedback)
	if err != nil {
		return ec, err
	}
	ec.emitEvent(EventRunResumed, nodeID, types.Values{"approved": approved}, nil)
	s.logger.Info("run resumed",
		zap.String("run_id", ec.runID),
		zap.String("node_id", nodeID),
		zap.Bool("approved", approved),
	)
	if ec.Paused() {
		// A sibling checkpoint was queued behind the resolved one; it
		// now awaits its own decision before any layer may proceed.
		s.logger.Info("run still paused at queued checkpoint", zap.String("run_id", ec.runID))
		return ec, nil
	}
	if !approved {
		s.finish(ec, opts, resumeStart)
		return ec, nil
	}

	layers, err := Layers(ec.graph)
	if err != nil {
		return ec, err
	}
	return s.run(ctx, ec, layers, opts)
}

func (s *Scheduler) preflight(ctx context.Context, opts Options, estimated float64) error {
	if opts.Budget == nil {
		return nil
	}
	dec, err := opts.Budget.Preflight(ctx, estimated)
	if err != nil {
		return types.NewError(types.ErrBudgetDenied, "budget preflight failed").WithCause(err)
	}
	for _, w := range dec.Warnings {
		s.logger.Warn("budget warning", zap.String("warning", w))
	}
	if !dec.Allowed {
		return types.Errorf(types.ErrBudgetDenied, "admission denied: %s", dec.Reason)
	}
	return nil
}

// run walks the layers, dispatching every still-pending node of a
// layer concurrently and waiting for the whole layer to settle before
// moving on. A resumed run re-walks all layers; nodes already in a
// terminal state are simply not re-dispatched.
func (s *Scheduler) run(ctx context.Context, ec *ExecutionContext, layers [][]string, opts Options) (*ExecutionContext, error) {
	runStart := time.Now()
	ctx, span := s.tracer.Start(ctx, "workflow.run", trace.WithAttributes(
		attribute.String("workflow.id", ec.graph.id),
		attribute.String("run.id", ec.runID),
	))
	defer span.End()

	var sem *semaphore.Weighted
	if opts.MaxConcurrency > 0 {
		sem = semaphore.NewWeighted(opts.MaxConcurrency)
	}

	for _, layer := range layers {
		var pending []string
		for _, id := range layer {
			if ec.State(id) == StatePending {
				pending = append(pending, id)
			}
		}
		if len(pending) == 0 {
			continue
		}

		var wg sync.WaitGroup
		var defectMu sync.Mutex
		var defect error
		for _, id := range pending {
			if sem != nil {
				if err := sem.Acquire(ctx, 1); err != nil {
					_ = ec.Fail(id, types.NewError(types.ErrRunKilled,
						"run cancelled while throttled").WithCause(err).WithNode(id), 0)
					continue
				}
			}
			wg.Add(1)
			go func(nodeID string) {
				defer wg.Done()
				if sem != nil {
					defer sem.Release(1)
				}
				if err := s.dispatch(ctx, ec, nodeID, opts); err != nil {
					defectMu.Lock()
					if defect == nil {
						defect = err
					}
					defectMu.Unlock()
				}
			}(id)
		}
		// A node's failure must not cancel its siblings: settle the
		// whole layer before deciding anything.
		wg.Wait()

		if defect != nil {
			// Blocked nodes and illegal transitions are engine bugs,
			// not user errors. Abort the call loudly, but still close
			// out the run for emitter and stats consumers.
			s.logger.Error("aborting run on internal defect",
				zap.String("run_id", ec.runID), zap.Error(defect))
			span.RecordError(defect)
			s.finish(ec, opts, runStart)
			return ec, defect
		}
		if ec.Paused() {
			s.logger.Info("run paused at checkpoint", zap.String("run_id", ec.runID))
			return ec, nil
		}
		if !opts.ContinueOnError && ec.failedCount() > 0 {
			s.logger.Warn("stopping run after failed layer",
				zap.String("run_id", ec.runID),
				zap.Int("failed", ec.failedCount()),
			)
			break
		}
	}

	s.finish(ec, opts, runStart)
	return ec, nil
}

// finish emits the terminal run event and stats. Every exit of a run
// other than a checkpoint pause goes through here, including the
// rejected-resume and defect-abort paths.
func (s *Scheduler) finish(ec *ExecutionContext, opts Options, startedAt time.Time) {
	sum := ec.Summary()
	ec.emitEvent(EventRunComplete, "", sum.Status, nil)
	if opts.Stats != nil {
		opts.Stats.RunFinished(sum.Status, time.Since(startedAt))
	}
	s.logger.Info("run finished",
		zap.String("run_id", ec.runID),
		zap.String("status", string(sum.Status)),
		zap.Int("completed", sum.Progress.Completed),
		zap.Int("failed", sum.Progress.Failed),
		zap.Int("skipped", sum.Progress.Skipped),
	)
}

// dispatch runs a single node end to end. Its error return is reserved
// for engine defects; agent failures are recorded on the context and
// return nil.
func (s *Scheduler) dispatch(ctx context.Context, ec *ExecutionContext, nodeID string, opts Options) error {
	node := ec.graph.nodes[nodeID]

	// Kill-switch check: refuses new starts, leaves in-flight work alone.
	if err := ctx.Err(); err != nil {
		return ec.Fail(nodeID, types.NewError(types.ErrRunKilled,
			"run cancelled before dispatch").WithCause(err).WithNode(nodeID), 0)
	}
	if opts.RateLimit != nil {
		if err := opts.RateLimit.Wait(ctx); err != nil {
			return ec.Fail(nodeID, types.NewError(types.ErrRunKilled,
				"run cancelled while rate limited").WithCause(err).WithNode(nodeID), 0)
		}
	}

	if node.Condition != nil && !node.Condition(ec) {
		return ec.Skip(nodeID)
	}

	if !ec.CanRun(nodeID) {
		// A dependency that settled without passing is the expected
		// cascade under ContinueOnError. A dependency that has not
		// settled at all means the layering is wrong.
		for _, dep := range node.DependsOn {
			if st := ec.State(dep); st.Terminal() && !st.Passed() {
				return ec.Fail(nodeID, types.Errorf(types.ErrDependencyFailed,
					"dependency %q failed; node cannot run", dep).WithNode(nodeID), 0)
			}
		}
		err := types.Errorf(types.ErrInternal,
			"node %q blocked after layer-ordered dispatch", nodeID).WithNode(nodeID)
		s.logger.Error("layering defect", zap.String("node_id", nodeID))
		_ = ec.Fail(nodeID, err, 0)
		return err
	}

	entry, err := s.registry.Get(node.Type)
	if err != nil {
		// Types were resolved at admission; this is a defect.
		_ = ec.Fail(nodeID, err, 0)
		return types.NewError(types.ErrInternal, "agent type missing at dispatch").WithCause(err)
	}

	inputs := ec.ResolveInputs(node)
	if err := ec.MarkRunning(nodeID); err != nil {
		return err
	}
	ec.emitEvent(EventNodeStart, nodeID, nil, nil)

	ctx, span := s.tracer.Start(ctx, "workflow.node", trace.WithAttributes(
		attribute.String("node.id", nodeID),
		attribute.String("agent.type", node.Type),
	))
	defer span.End()

	start := time.Now()

	if opts.DryRun {
		output := types.Values{"dry_run": true, "agent_type": node.Type}
		elapsed := time.Since(start)
		if node.Checkpoint {
			return ec.Pause(nodeID, output, elapsed, 0)
		}
		return ec.Complete(nodeID, output, elapsed, 0)
	}

	timeout := ec.graph.timeoutFor(node)
	aopts := AgentOptions{RunID: ec.runID, NodeID: nodeID, Timeout: timeout}
	output, callErr := s.invoke(ctx, entry, inputs, aopts, timeout, ec.graph.retryFor(node), opts)
	elapsed := time.Since(start)

	if callErr != nil {
		span.RecordError(callErr)
		if opts.Stats != nil {
			opts.Stats.NodeObserved(node.Type, StateFailed, elapsed)
		}
		return ec.Fail(nodeID, callErr, elapsed)
	}

	actual := 0.0
	if entry.EstimateCost != nil {
		actual = entry.EstimateCost(inputs, output)
	}
	if opts.Recorder != nil {
		opts.Recorder.Record(ctx, actual)
	}
	if opts.Stats != nil {
		opts.Stats.CostObserved(node.Type, actual)
	}

	if node.Checkpoint {
		if opts.Stats != nil {
			opts.Stats.NodeObserved(node.Type, StatePaused, elapsed)
		}
		return ec.Pause(nodeID, output, elapsed, actual)
	}
	if opts.Stats != nil {
		opts.Stats.NodeObserved(node.Type, StateCompleted, elapsed)
	}
	return ec.Complete(nodeID, output, elapsed, actual)
}

// invoke wraps the agent call in the retry policy. Each attempt races
// its own timeout; the deadline firing behaves exactly like the agent
// returning an error, subject to the same retry predicate.
func (s *Scheduler) invoke(ctx context.Context, entry *RegistryEntry, inputs types.Values,
	aopts AgentOptions, timeout time.Duration, policy *RetryPolicy, opts Options) (any, error) {

	attempts := 1
	var norm RetryPolicy
	if policy != nil {
		norm = policy.normalized()
		attempts = norm.MaxRetries + 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := norm.delay(attempt)
			s.logger.Debug("retrying node",
				zap.String("node_id", aopts.NodeID),
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
			)
			if opts.Stats != nil {
				opts.Stats.RetryObserved(entry.Type)
			}
			select {
			case <-ctx.Done():
				return nil, types.NewError(types.ErrRunKilled,
					"retry cancelled").WithCause(ctx.Err()).WithNode(aopts.NodeID)
			case <-time.After(delay):
			}
		}

		output, err := s.callWithTimeout(ctx, entry, inputs, aopts, timeout)
		if err == nil {
			return output, nil
		}
		lastErr = err
		if policy == nil || !norm.shouldRetry(err) {
			return nil, err
		}
	}
	return nil, types.Errorf(types.ErrRetriesExhausted,
		"agent failed after %d attempts", attempts).WithCause(lastErr).WithNode(aopts.NodeID)
}

// callWithTimeout races one agent call against its deadline. The race
// resolves even when the agent ignores context cancellation.
func (s *Scheduler) callWithTimeout(ctx context.Context, entry *RegistryEntry, inputs types.Values,
	aopts AgentOptions, timeout time.Duration) (any, error) {

	callCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type result struct {
		output any
		err    error
	}
	ch := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- result{err: types.Errorf(types.ErrAgentExecution,
					"agent panicked: %v", r).WithNode(aopts.NodeID)}
			}
		}()
		out, err := entry.Run(callCtx, inputs, aopts)
		ch <- result{output: out, err: err}
	}()

	select {
	case res := <-ch:
		if res.err != nil {
			var terr *types.Error
			if errors.As(res.err, &terr) {
				return nil, res.err
			}
			return nil, types.NewError(types.ErrAgentExecution,
				"agent call failed").WithCause(res.err).WithNode(aopts.NodeID)
		}
		return res.output, nil
	case <-callCtx.Done():
		if timeout > 0 && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return nil, types.Errorf(types.ErrNodeTimeout,
				"agent call exceeded %s", timeout).WithNode(aopts.NodeID).WithRetryable(true)
		}
		return nil, types.NewError(types.ErrRunKilled,
			"run cancelled during agent call").WithCause(callCtx.Err()).WithNode(aopts.NodeID)
	}
}
