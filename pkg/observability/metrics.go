// Package observability exposes the engine's prometheus metrics.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FlushesTotal counts debounced disk writes by outcome.
	FlushesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "atelier",
		Subsystem: "flush",
		Name:      "writes_total",
		Help:      "Disk writes performed by the persistence coordinator.",
	}, []string{"result"})

	// FlushDuration observes disk write latency.
	FlushDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "atelier",
		Subsystem: "flush",
		Name:      "write_duration_seconds",
		Help:      "Latency of persistence coordinator disk writes.",
		Buckets:   prometheus.DefBuckets,
	})

	// PendingWrites tracks armed debounce timers.
	PendingWrites = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "atelier",
		Subsystem: "flush",
		Name:      "pending_writes",
		Help:      "Files with an armed debounce timer.",
	})

	// QueryDuration observes query handler latency by query type.
	QueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "atelier",
		Subsystem: "query",
		Name:      "duration_seconds",
		Help:      "Latency of query handlers.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"type"})

	// QueryErrors counts failed queries by query type.
	QueryErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "atelier",
		Subsystem: "query",
		Name:      "errors_total",
		Help:      "Failed query handler executions.",
	}, []string{"type"})
)
