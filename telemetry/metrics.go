// Package telemetry exposes the SDK's prometheus collectors. Applications
// that already run a prometheus registry call Init once; everything else in
// the SDK records through the package-level collectors unconditionally, which
// costs nothing when they are unregistered.
package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	FlagEvaluations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flagship_flag_evaluations_total",
			Help: "Flag evaluations by resolution reason",
		},
		[]string{"reason"},
	)
	ExperimentAssignments = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flagship_experiment_assignments_total",
			Help: "Experiment allocation outcomes",
		},
		[]string{"assigned"},
	)
	CacheRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flagship_cache_requests_total",
			Help: "Definition cache lookups by result",
		},
		[]string{"result"},
	)
	DefinitionLoads = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "flagship_definition_load_seconds",
			Help:    "Remote definition fetch duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"tier", "outcome"},
	)
	EventsEnqueued = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flagship_events_enqueued_total",
			Help: "Telemetry events enqueued by type",
		},
		[]string{"type"},
	)
	EventsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "flagship_events_dropped_total",
			Help: "Telemetry events evicted by the queue capacity bound",
		},
	)
	EventFlushes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flagship_event_flushes_total",
			Help: "Telemetry flush attempts by outcome",
		},
		[]string{"outcome"},
	)
)

var initOnce sync.Once

// Init registers the SDK collectors with the default prometheus registry.
// Safe to call more than once.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			FlagEvaluations,
			ExperimentAssignments,
			CacheRequests,
			DefinitionLoads,
			EventsEnqueued,
			EventsDropped,
			EventFlushes,
		)
	})
}
