// Package metrics exports Database and map/reduce counters via
// github.com/prometheus/client_golang rather than a hand-rolled
// counter map.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the Database and map/reduce instrumentation. It is
// safe to construct more than once (each instance uses its own
// registry) so tests don't collide on the default global registry.
type Metrics struct {
	Registry *prometheus.Registry

	DocsLive       prometheus.Gauge
	DocsTombstoned prometheus.Gauge
	UpdateSeq      prometheus.Counter

	MapTaskDuration      prometheus.Histogram
	MergeTaskDuration    prometheus.Histogram
	ViewEvaluationErrors prometheus.Counter
	WorkerQueueDepth     prometheus.Gauge
}

// New builds a Metrics bundle registered on a fresh, private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,
		DocsLive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "avancedb_documents_live",
			Help: "Number of live (non-tombstone) documents.",
		}),
		DocsTombstoned: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "avancedb_documents_tombstoned",
			Help: "Number of tombstoned documents.",
		}),
		UpdateSeq: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "avancedb_update_sequence_commits_total",
			Help: "Number of committed state-changing operations.",
		}),
		MapTaskDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "avancedb_map_task_duration_seconds",
			Help:    "Duration of a single shard's map-phase task.",
			Buckets: prometheus.DefBuckets,
		}),
		MergeTaskDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "avancedb_merge_task_duration_seconds",
			Help:    "Duration of a single pairwise merge task.",
			Buckets: prometheus.DefBuckets,
		}),
		ViewEvaluationErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "avancedb_view_evaluation_errors_total",
			Help: "Number of map/reduce tasks that raised a JavaScript error.",
		}),
		WorkerQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "avancedb_worker_queue_depth",
			Help: "Current depth of the map/reduce worker pool's task queue.",
		}),
	}

	reg.MustRegister(m.DocsLive, m.DocsTombstoned, m.UpdateSeq, m.MapTaskDuration, m.MergeTaskDuration, m.ViewEvaluationErrors, m.WorkerQueueDepth)

	return m
}
