// Package metrics holds the Prometheus instruments shared by the engine and dispatcher.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
)

var (
	operationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_operations_total",
			Help: "Total number of ledger operations by type and outcome",
		},
		[]string{"operation", "outcome"},
	)

	operationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ledger_operation_duration_seconds",
			Help:    "Duration of ledger operations",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	feeRevenueTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_fee_revenue_total",
			Help: "Fee and spread revenue booked, in currency units",
		},
		[]string{"fee_type", "currency"},
	)

	outboxDispatched = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_outbox_dispatched_total",
			Help: "Total number of outbox events relayed",
		},
	)

	outboxFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_outbox_failures_total",
			Help: "Total number of outbox relay failures by sink",
		},
		[]string{"sink"},
	)
)

// ObserveOperation records one engine call. outcome is "success" or an error kind.
func ObserveOperation(operation, outcome string, elapsed time.Duration) {
	operationsTotal.WithLabelValues(operation, outcome).Inc()
	operationDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// AddFeeRevenue adds a committed fee row. Negative (reversal) amounts are skipped
// since counters only go up.
func AddFeeRevenue(feeType, currency string, amount decimal.Decimal) {
	if !amount.IsPositive() {
		return
	}
	f, _ := amount.Float64()
	feeRevenueTotal.WithLabelValues(feeType, currency).Add(f)
}

func OutboxDispatched() {
	outboxDispatched.Inc()
}

func OutboxFailed(sink string) {
	outboxFailures.WithLabelValues(sink).Inc()
}
