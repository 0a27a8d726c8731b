package observability

import (
	"time"

	qbus "atelier/application/queries/bus"
)

// QueryMetrics adapts the prometheus collectors to the query bus
// metrics middleware.
type QueryMetrics struct{}

// NewQueryMetrics creates the adapter
func NewQueryMetrics() *QueryMetrics {
	return &QueryMetrics{}
}

// StartTimer implements bus.Metrics
func (QueryMetrics) StartTimer(metric, label string) qbus.Timer {
	return &queryTimer{start: time.Now(), label: label}
}

// Increment implements bus.Metrics
func (QueryMetrics) Increment(metric, label string) {
	switch metric {
	case "query_errors":
		QueryErrors.WithLabelValues(label).Inc()
	}
}

type queryTimer struct {
	start time.Time
	label string
}

func (t *queryTimer) Stop() {
	QueryDuration.WithLabelValues(t.label).Observe(time.Since(t.start).Seconds())
}
