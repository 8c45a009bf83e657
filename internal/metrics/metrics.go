package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	ResultOK      = "ok"
	ResultInvalid = "invalid"
	ResultError   = "error"
)

var (
	DealOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dealdesk",
		Name:      "deal_operations_total",
		Help:      "Deal store operations by operation and result.",
	}, []string{"operation", "result"})

	LiveSubscriptions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "dealdesk",
		Name:      "live_subscriptions",
		Help:      "Number of open owner-filtered deal subscriptions.",
	})

	ConnectedPages = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "dealdesk",
		Name:      "connected_pages",
		Help:      "Number of open page websockets.",
	})
)

// Observe records the outcome of a store operation.
func Observe(operation, result string) {
	DealOperations.WithLabelValues(operation, result).Inc()
}
