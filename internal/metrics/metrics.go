// Package metrics exposes Prometheus collectors describing the call graphs
// produced by an analysis.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/rendis/cigraph/pkg/callgraph"
	"github.com/rendis/cigraph/pkg/schema"
)

const namespace = "cigraph"

// knownCodes bounds the cardinality of the code label. Anything else is
// recorded as "other".
var knownCodes = map[string]bool{
	schema.ErrCodeParse:         true,
	schema.ErrCodeUnresolved:    true,
	schema.ErrCodeCycleDetected: true,
	schema.ErrCodeNotFound:      true,
	schema.ErrCodeFetchFailed:   true,
	schema.ErrCodeIO:            true,
	schema.ErrCodeCancelled:     true,
}

// Metrics groups the collectors. A nil *Metrics records nothing.
type Metrics struct {
	nodes        *prometheus.CounterVec
	unresolved   *prometheus.CounterVec
	buildSeconds *prometheus.HistogramVec
}

// New creates the collectors and registers them on reg. A nil reg leaves
// them unregistered, which is useful in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		nodes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "nodes_total",
			Help:      "Call-graph nodes produced, by dialect and node type.",
		}, []string{"dialect", "type"}),
		unresolved: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unresolved_total",
			Help:      "Unresolved call-graph nodes, by dialect and error code.",
		}, []string{"dialect", "code"}),
		buildSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "build_seconds",
			Help:      "Time to discover and build one call graph.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"dialect"}),
	}
}

// ObserveGraph records the node counts of cg and the time it took to build.
func (m *Metrics) ObserveGraph(dialect string, cg *callgraph.CallGraph, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.buildSeconds.WithLabelValues(dialect).Observe(elapsed.Seconds())
	cg.Walk(func(n *callgraph.Node, _ int) bool {
		m.nodes.WithLabelValues(dialect, string(n.Type)).Inc()
		if !n.Resolved() {
			m.unresolved.WithLabelValues(dialect, sanitizeCode(schema.CodeOf(n.Err))).Inc()
		}
		return true
	})
}

func sanitizeCode(code string) string {
	if knownCodes[code] {
		return code
	}
	return "other"
}
