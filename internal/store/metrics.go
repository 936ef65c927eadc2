package store

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Metrics counts and times executed statements.
type Metrics struct {
	// StatementsTotal counts statements by outcome.
	StatementsTotal *prometheus.CounterVec
	// StatementDuration is the latency of statements by outcome.
	StatementDuration *prometheus.HistogramVec
}

// NewMetrics registers the executor metrics with reg. A nil reg registers
// with the default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		StatementsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "querykit_statements_total",
				Help: "Total number of executed statements",
			},
			[]string{"outcome"},
		),
		StatementDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "querykit_statement_duration_seconds",
				Help:    "Statement latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
	}
}

// observe is a no-op on a nil Metrics.
func (m *Metrics) observe(err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	m.StatementsTotal.WithLabelValues(outcome).Inc()
	m.StatementDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}
