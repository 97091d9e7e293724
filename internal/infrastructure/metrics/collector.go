package metrics

import (
	"sync"
	"time"
)

// Collector aggregates per-node, per-operation execution metrics.
// It is safe for concurrent use by many in-flight pipelines.
type Collector struct {
	mu         sync.RWMutex
	executions map[executionKey]*ExecutionMetrics
	startTime  time.Time
}

type executionKey struct {
	nodeID    string
	operation string
}

// ExecutionMetrics tracks the executions of one operation on one node.
type ExecutionMetrics struct {
	NodeID          string
	Operation       string
	ExecutionCount  int
	SuccessCount    int
	FailureCount    int
	TotalDurationMS int64
	LastError       string
}

// AvgDurationMS returns the mean execution time.
func (m ExecutionMetrics) AvgDurationMS() int64 {
	if m.ExecutionCount == 0 {
		return 0
	}
	return m.TotalDurationMS / int64(m.ExecutionCount)
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{
		executions: make(map[executionKey]*ExecutionMetrics),
		startTime:  time.Now(),
	}
}

// GetName returns the collector name.
func (c *Collector) GetName() string { return "executions" }

// RecordExecution records one finished pipeline run.
func (c *Collector) RecordExecution(nodeID, operation string, duration time.Duration, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := executionKey{nodeID: nodeID, operation: operation}
	m, ok := c.executions[key]
	if !ok {
		m = &ExecutionMetrics{NodeID: nodeID, Operation: operation}
		c.executions[key] = m
	}

	m.ExecutionCount++
	m.TotalDurationMS += duration.Milliseconds()
	if err != nil {
		m.FailureCount++
		m.LastError = err.Error()
	} else {
		m.SuccessCount++
	}
}

// Get returns a copy of the metrics for a node operation.
func (c *Collector) Get(nodeID, operation string) (ExecutionMetrics, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	m, ok := c.executions[executionKey{nodeID: nodeID, operation: operation}]
	if !ok {
		return ExecutionMetrics{}, false
	}
	return *m, true
}

// ExportPrometheusMetrics implements MetricsCollectorInterface.
func (c *Collector) ExportPrometheusMetrics() []PrometheusMetric {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]PrometheusMetric, 0, len(c.executions)*3+1)
	for _, m := range c.executions {
		labels := map[string]string{"node_id": m.NodeID, "operation": m.Operation}
		out = append(out,
			PrometheusMetric{
				Name:   "node_executions_total",
				Type:   PrometheusCounter,
				Help:   "Messages processed by a node",
				Labels: withLabel(labels, "result", "success"),
				Value:  m.SuccessCount,
			},
			PrometheusMetric{
				Name:   "node_executions_total",
				Type:   PrometheusCounter,
				Help:   "Messages processed by a node",
				Labels: withLabel(labels, "result", "failure"),
				Value:  m.FailureCount,
			},
			PrometheusMetric{
				Name:   "node_execution_duration_ms_avg",
				Type:   PrometheusGauge,
				Help:   "Average pipeline duration in milliseconds",
				Labels: labels,
				Value:  m.AvgDurationMS(),
			},
		)
	}
	out = append(out, PrometheusMetric{
		Name:  "uptime_seconds",
		Type:  PrometheusGauge,
		Help:  "Seconds since the collector was created",
		Value: int64(time.Since(c.startTime).Seconds()),
	})
	return out
}

func withLabel(labels map[string]string, key, value string) map[string]string {
	out := make(map[string]string, len(labels)+1)
	for k, v := range labels {
		out[k] = v
	}
	out[key] = value
	return out
}
