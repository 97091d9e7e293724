package metrics

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// PrometheusExporter renders registered collectors in Prometheus text format.
type PrometheusExporter struct {
	collectors []MetricsCollectorInterface
	mu         sync.RWMutex

	// Namespace for all metrics
	namespace string
}

// MetricsCollectorInterface defines the interface for metrics collectors.
type MetricsCollectorInterface interface {
	GetName() string
	ExportPrometheusMetrics() []PrometheusMetric
}

// PrometheusMetric represents a metric in Prometheus format.
type PrometheusMetric struct {
	Name   string
	Type   PrometheusMetricType
	Help   string
	Labels map[string]string
	Value  interface{} // float64, int or int64
}

// PrometheusMetricType represents Prometheus metric types.
type PrometheusMetricType string

const (
	PrometheusCounter PrometheusMetricType = "counter"
	PrometheusGauge   PrometheusMetricType = "gauge"
)

// NewPrometheusExporter creates a new Prometheus exporter.
func NewPrometheusExporter(namespace string) *PrometheusExporter {
	return &PrometheusExporter{
		collectors: []MetricsCollectorInterface{},
		namespace:  namespace,
	}
}

// RegisterCollector registers a metrics collector for export.
func (e *PrometheusExporter) RegisterCollector(collector MetricsCollectorInterface) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.collectors = append(e.collectors, collector)
}

// Export generates Prometheus text format output. Metric families and series are
// sorted so the output is stable between scrapes.
func (e *PrometheusExporter) Export() string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	groups := make(map[string][]PrometheusMetric)
	for _, collector := range e.collectors {
		for _, m := range collector.ExportPrometheusMetrics() {
			if e.namespace != "" {
				m.Name = e.namespace + "_" + m.Name
			}
			groups[m.Name] = append(groups[m.Name], m)
		}
	}

	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	var builder strings.Builder
	for _, name := range names {
		series := groups[name]
		builder.WriteString(fmt.Sprintf("# HELP %s %s\n", name, series[0].Help))
		builder.WriteString(fmt.Sprintf("# TYPE %s %s\n", name, series[0].Type))

		lines := make([]string, 0, len(series))
		for _, m := range series {
			lines = append(lines, fmt.Sprintf("%s%s %v", name, formatLabels(m.Labels), m.Value))
		}
		sort.Strings(lines)
		for _, line := range lines {
			builder.WriteString(line)
			builder.WriteString("\n")
		}
	}

	return builder.String()
}

// formatLabels renders {k1="v1",k2="v2"} with keys in sorted order.
func formatLabels(labels map[string]string) string {
	if len(labels) == 0 {
		return ""
	}

	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v := strings.ReplaceAll(labels[k], "\\", "\\\\")
		v = strings.ReplaceAll(v, "\"", "\\\"")
		v = strings.ReplaceAll(v, "\n", "\\n")
		parts = append(parts, k+`="`+v+`"`)
	}
	return "{" + strings.Join(parts, ",") + "}"
}
