// Package metrics exposes scheduler telemetry as prometheus metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/pzhin/agentweave/workflow"
)

// Collector implements workflow.Stats on top of a prometheus
// registerer. Pass it in scheduler Options to instrument runs.
type Collector struct {
	runsStarted   prometheus.Counter
	runsFinished  *prometheus.CounterVec
	runDuration   prometheus.Histogram
	nodesObserved *prometheus.CounterVec
	nodeDuration  *prometheus.HistogramVec
	retriesTotal  *prometheus.CounterVec
	costTotal     *prometheus.CounterVec
}

// NewCollector registers the workflow metric set under the given
// namespace. Registering the same namespace twice on one registerer
// panics, per prometheus convention.
func NewCollector(namespace string, reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Collector{
		runsStarted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "workflow",
			Name:      "runs_started_total",
			Help:      "Runs admitted by the scheduler.",
		}),
		runsFinished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "workflow",
			Name:      "runs_finished_total",
			Help:      "Runs that ended a scheduler call, by final status.",
		}, []string{"status"}),
		runDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "workflow",
			Name:      "run_duration_seconds",
			Help:      "Wall time of one Execute or Resume call.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14),
		}),
		nodesObserved: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "workflow",
			Name:      "nodes_total",
			Help:      "Node executions, by agent type and resulting state.",
		}, []string{"agent_type", "state"}),
		nodeDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "workflow",
			Name:      "node_duration_seconds",
			Help:      "Agent call duration, by agent type.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 14),
		}, []string{"agent_type"}),
		retriesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "workflow",
			Name:      "retries_total",
			Help:      "Retry attempts, by agent type.",
		}, []string{"agent_type"}),
		costTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "workflow",
			Name:      "cost_total",
			Help:      "Actual recorded spend, by agent type.",
		}, []string{"agent_type"}),
	}
}

// RunStarted implements workflow.Stats.
func (c *Collector) RunStarted() {
	c.runsStarted.Inc()
}

// RunFinished implements workflow.Stats.
func (c *Collector) RunFinished(status workflow.Status, elapsed time.Duration) {
	c.runsFinished.WithLabelValues(string(status)).Inc()
	c.runDuration.Observe(elapsed.Seconds())
}

// NodeObserved implements workflow.Stats.
func (c *Collector) NodeObserved(agentType string, state workflow.State, elapsed time.Duration) {
	c.nodesObserved.WithLabelValues(agentType, string(state)).Inc()
	c.nodeDuration.WithLabelValues(agentType).Observe(elapsed.Seconds())
}

// RetryObserved implements workflow.Stats.
func (c *Collector) RetryObserved(agentType string) {
	c.retriesTotal.WithLabelValues(agentType).Inc()
}

// CostObserved implements workflow.Stats.
func (c *Collector) CostObserved(agentType string, actual float64) {
	c.costTotal.WithLabelValues(agentType).Add(actual)
}
