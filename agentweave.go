// Package agentweave provides a top-level convenience entry point for
// building and running agent workflows with minimal boilerplate.
//
// Usage:
//
//	import "github.com/pzhin/agentweave"
//
//	reg := agentweave.NewRegistry(logger)
//	g, err := agentweave.NewWorkflow("pipeline", "Research pipeline").
//		AddAgent("fetch", "http_fetcher").Done().
//		AddAgent("summarize", "summarizer").DependsOn("fetch").
//		BindInput("text", "fetch", "body").Done().
//		Build()
//	ec, err := agentweave.NewScheduler(reg, logger).Execute(ctx, g, agentweave.Options{})
//
// This is a thin alias layer over [workflow]; both produce identical
// results. Use this package when you prefer the shorter import path.
package agentweave

import (
	"go.uber.org/zap"

	"github.com/pzhin/agentweave/workflow"
)

// Re-export the core surface so simple callers never need to import
// workflow/ directly.

// Graph is a validated workflow graph.
type Graph = workflow.Graph

// Registry maps agent type names to implementations.
type Registry = workflow.Registry

// Scheduler executes workflow graphs.
type Scheduler = workflow.Scheduler

// Options configures one Execute or Resume call.
type Options = workflow.Options

// ExecutionContext holds the state of one run.
type ExecutionContext = workflow.ExecutionContext

// Event is one progress notification.
type Event = workflow.Event

// NewWorkflow starts a fluent graph builder.
func NewWorkflow(id, name string) *workflow.GraphBuilder {
	return workflow.NewGraphBuilder(id, name)
}

// NewRegistry creates an empty agent registry.
func NewRegistry(logger *zap.Logger) *workflow.Registry {
	return workflow.NewRegistry(logger)
}

// NewScheduler creates a scheduler backed by the given registry.
func NewScheduler(registry *workflow.Registry, logger *zap.Logger) *workflow.Scheduler {
	return workflow.NewScheduler(registry, logger)
}
