// Package metrics provides Prometheus metrics for the fern service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LinkageRunsTotal tracks linkage runs by mode and status
	LinkageRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "linkage",
			Name:      "runs_total",
			Help:      "Total number of linkage runs by mode and status",
		},
		[]string{"mode", "status"},
	)

	// LinkageDuration tracks linkage run duration in seconds
	LinkageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fern",
			Subsystem: "linkage",
			Name:      "run_duration_seconds",
			Help:      "Duration of linkage runs in seconds",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		},
		[]string{"mode"},
	)

	// BinSize tracks the number of records per blocking bin
	BinSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fern",
			Subsystem: "linkage",
			Name:      "bin_size",
			Help:      "Number of records per blocking bin",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		},
		[]string{"mode"},
	)

	// CandidatePairsTotal tracks candidate pairs produced by blocking
	CandidatePairsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "linkage",
			Name:      "candidate_pairs_total",
			Help:      "Total number of candidate pairs scored",
		},
		[]string{"mode"},
	)

	// MatchesTotal tracks accepted duplicate pairs
	MatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "linkage",
			Name:      "matches_total",
			Help:      "Total number of candidate pairs accepted as matches",
		},
		[]string{"mode"},
	)

	// PairFailuresTotal tracks pairs whose scoring failed
	PairFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "linkage",
			Name:      "pair_failures_total",
			Help:      "Total number of candidate pairs that could not be scored",
		},
		[]string{"mode"},
	)

	// FusionClustersTotal tracks fused duplicate clusters by status
	FusionClustersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "fusion",
			Name:      "clusters_total",
			Help:      "Total number of duplicate clusters fused by status",
		},
		[]string{"status"},
	)

	// FusionDuration tracks batch fusion duration in seconds
	FusionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "fern",
			Subsystem: "fusion",
			Name:      "batch_duration_seconds",
			Help:      "Duration of cluster fusion batches in seconds",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
	)

	// BatchesProcessedTotal tracks batch requests consumed from Kafka
	BatchesProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "processor",
			Name:      "batches_processed_total",
			Help:      "Total number of batch requests processed by kind and status",
		},
		[]string{"kind", "status"},
	)

	// EventsPublishedTotal tracks events written to Kafka
	EventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Total number of events published by type and status",
		},
		[]string{"event_type", "status"},
	)

	// MessagesConsumedTotal tracks input messages by outcome
	MessagesConsumedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "kafka",
			Name:      "messages_consumed_total",
			Help:      "Total number of input messages consumed by outcome",
		},
		[]string{"topic", "outcome"},
	)
)
