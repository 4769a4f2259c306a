// Package metrics exposes POS counters on the default prometheus registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrderTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pos",
		Name:      "order_transitions_total",
		Help:      "Order status transitions by target status and outcome.",
	}, []string{"to", "outcome"})

	OrdersMerged = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pos",
		Name:      "orders_merged_total",
		Help:      "Orders archived into a merged bill.",
	})

	StockShortfalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pos",
		Name:      "stock_shortfalls_total",
		Help:      "Rejected or clamped consumptions per ingredient.",
	}, []string{"ingredient", "policy"})

	ShiftEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pos",
		Name:      "shift_events_total",
		Help:      "Shift ledger activities by kind.",
	}, []string{"kind"})

	ShiftVariance = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pos",
		Name:      "shift_closures_total",
		Help:      "Closed shifts by variance status.",
	}, []string{"status"})

	Retries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pos",
		Name:      "store_retries_total",
		Help:      "Retried store operations after a transient failure.",
	}, []string{"op"})
)
