package rangedel

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the Prometheus instrumentation an Aggregator reports
// against, constructor-injected the way the teacher's wal.Metrics is
// (see wal/wal.go, wal/failover_writer.go) rather than registered against
// a global default registry.
type Metrics struct {
	// TombstonesIngested counts every tombstone successfully decoded and
	// inserted by AddTombstones, across all stripes.
	TombstonesIngested prometheus.Counter
	// ShouldDeleteQueries counts ShouldDelete calls, partitioned by the
	// PositioningMode the caller requested.
	ShouldDeleteQueries *prometheus.CounterVec
	// StripeCount reports the current number of snapshot stripes held by
	// the aggregator.
	StripeCount prometheus.Gauge
}

// NewMetrics constructs a Metrics with freshly-created collectors. It does
// not register them with any registry; callers that want the metrics
// exported do so themselves (spec.md §1: no persistence or transport is
// this module's concern).
func NewMetrics() *Metrics {
	return &Metrics{
		TombstonesIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rangedel",
			Name:      "tombstones_ingested_total",
			Help:      "Number of range tombstones ingested by AddTombstones.",
		}),
		ShouldDeleteQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rangedel",
			Name:      "should_delete_queries_total",
			Help:      "Number of ShouldDelete queries, by positioning mode.",
		}, []string{"mode"}),
		StripeCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "rangedel",
			Name:      "stripe_count",
			Help:      "Current number of snapshot stripes held by the aggregator.",
		}),
	}
}

func positioningModeLabel(mode PositioningMode) string {
	switch mode {
	case FullScan:
		return "full_scan"
	case BinarySearch:
		return "binary_search"
	case ForwardTraversal:
		return "forward_traversal"
	case BackwardTraversal:
		return "backward_traversal"
	default:
		return "unknown"
	}
}
