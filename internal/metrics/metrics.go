// Package metrics defines Prometheus collectors for the pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Stream pump metrics
	EventsReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "indexer_events_received_total",
			Help: "Total number of queue payloads received",
		},
	)

	EventsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "indexer_events_dropped_total",
			Help: "Total number of events dropped before enrichment",
		},
		[]string{"reason"},
	)

	// Enrichment metrics
	Lookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "indexer_lookups_total",
			Help: "Total number of entity lookups by outcome",
		},
		[]string{"entity", "outcome"},
	)

	EnrichmentDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "indexer_enrichment_duration_seconds",
			Help:    "Duration of the full enrichment chain in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Store metrics
	IndexWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "indexer_index_writes_total",
			Help: "Total number of index write attempts by status",
		},
		[]string{"status"},
	)
)

// Drop reasons.
const (
	DropDecode = "decode"
	DropSchema = "schema"
)

// Lookup outcomes.
const (
	OutcomeResolved = "resolved"
	OutcomeMissing  = "missing"
	OutcomeError    = "error"
)

// Index write statuses.
const (
	StatusOK    = "ok"
	StatusError = "error"
)
