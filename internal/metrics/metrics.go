// Package metrics exposes the Prometheus instruments the bot updates during
// operation:
//
//   - bot_signals_total{outcome}: inbound signals by outcome
//     (executed|rejected|dropped|error)
//   - bot_orders_total{kind,outcome}: order submissions (placed|failed)
//   - bot_position_modifies_total{kind,outcome}: SL/TP modifications
//   - bot_auto_breakeven_total: families moved to break-even
//   - bot_deals_recorded_total{reason}: closed deals appended to the log
//   - bot_open_families: families with live siblings (gauge)
//
// All instruments are registered in init() and served by the HTTP handler
// started in main.go at /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SignalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_signals_total",
			Help: "Inbound signals by processing outcome",
		},
		[]string{"outcome"},
	)

	OrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_orders_total",
			Help: "Order submissions by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	ModifiesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_position_modifies_total",
			Help: "Position SL/TP modifications by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	AutoBreakEvenTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bot_auto_breakeven_total",
			Help: "Families whose survivors were moved to break-even",
		},
	)

	DealsRecordedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_deals_recorded_total",
			Help: "Closed deals appended to the results log, by exit reason",
		},
		[]string{"reason"},
	)

	OpenFamilies = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bot_open_families",
			Help: "Families that still hold open positions",
		},
	)
)

// Outcome label values.
const (
	OutcomeExecuted = "executed"
	OutcomeRejected = "rejected"
	OutcomeDropped  = "dropped"
	OutcomeError    = "error"
	OutcomePlaced   = "placed"
	OutcomeFailed   = "failed"
	OutcomeSkipped  = "skipped"
)

func init() {
	prometheus.MustRegister(
		SignalsTotal,
		OrdersTotal,
		ModifiesTotal,
		AutoBreakEvenTotal,
		DealsRecordedTotal,
		OpenFamilies,
	)
}

// Handler returns the HTTP handler serving the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
