// Package workflow implements the DAG-based orchestration engine: an
// immutable-after-validation workflow graph, layered topological
// scheduling with dependency-respecting concurrency, an agent registry,
// a per-run execution context with a strict node state machine, budget
// admission control, and human-in-the-loop checkpoint pause/resume.
//
// A graph is built once (GraphBuilder), validated, and may back many
// concurrent runs; each call to Scheduler.Execute produces a fresh
// ExecutionContext that owns all mutable state for that run.
package workflow
