package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/pzhin/agentweave/workflow"
)

func TestCollector_CountersAndLabels(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	c := NewCollector("agentweave", reg)

	c.RunStarted()
	c.RunStarted()
	c.RunFinished(workflow.StatusCompleted, 120*time.Millisecond)
	c.RunFinished(workflow.StatusFailed, 80*time.Millisecond)
	c.NodeObserved("summarizer", workflow.StateCompleted, 50*time.Millisecond)
	c.NodeObserved("summarizer", workflow.StateFailed, 10*time.Millisecond)
	c.NodeObserved("fetcher", workflow.StateCompleted, 5*time.Millisecond)
	c.RetryObserved("fetcher")
	c.CostObserved("summarizer", 1.25)
	c.CostObserved("summarizer", 0.75)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.runsStarted))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.runsFinished.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.runsFinished.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.nodesObserved.WithLabelValues("summarizer", "completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.nodesObserved.WithLabelValues("summarizer", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.nodesObserved.WithLabelValues("fetcher", "completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.retriesTotal.WithLabelValues("fetcher")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.costTotal.WithLabelValues("summarizer")))
}

func TestCollector_ImplementsStats(t *testing.T) {
	t.Parallel()
	var _ workflow.Stats = NewCollector("iface_check", prometheus.NewRegistry())
}
