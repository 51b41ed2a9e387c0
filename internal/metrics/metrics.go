package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus collectors for ingestion health and occupancy.
var (
	IngestRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_runs_total",
			Help: "Total number of ingestion runs by outcome",
		},
		[]string{"outcome"},
	)

	IngestSkippedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ingest_runs_skipped_total",
			Help: "Runs dropped because an ingestion was already in flight",
		},
	)

	MovementEventsInsertedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "movement_events_inserted_total",
			Help: "New movement events persisted (duplicates excluded)",
		},
	)

	ParkedVehicles = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "parked_vehicles",
			Help: "Currently parked vehicles derived from the event log",
		},
	)

	IngestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ingest_run_duration_seconds",
			Help:    "Duration of ingestion runs",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// Register adds all collectors to the given registry.
func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		IngestRunsTotal,
		IngestSkippedTotal,
		MovementEventsInsertedTotal,
		ParkedVehicles,
		IngestDuration,
	)
}
