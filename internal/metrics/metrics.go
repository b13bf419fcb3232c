// Package metrics exposes checkout counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Checkout holds the counters of the checkout pipeline. A nil *Checkout is valid
// and records nothing.
type Checkout struct {
	Started         prometheus.Counter
	Canceled        *prometheus.CounterVec
	OrdersFinalized prometheus.Counter
	PaymentFailures *prometheus.CounterVec
}

// NewCheckout creates the counters and registers them with reg.
func NewCheckout(reg prometheus.Registerer) *Checkout {
	m := &Checkout{
		Started: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "toko",
			Subsystem: "checkout",
			Name:      "started_total",
			Help:      "Checkout snapshots created from a cart.",
		}),
		Canceled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "toko",
			Subsystem: "checkout",
			Name:      "canceled_total",
			Help:      "Checkout snapshots canceled, by reason.",
		}, []string{"reason"}),
		OrdersFinalized: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "toko",
			Subsystem: "orders",
			Name:      "finalized_total",
			Help:      "Orders materialized from paid checkouts.",
		}),
		PaymentFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "toko",
			Subsystem: "payment",
			Name:      "failures_total",
			Help:      "Payment provider failures, by stage.",
		}, []string{"stage"}),
	}
	reg.MustRegister(m.Started, m.Canceled, m.OrdersFinalized, m.PaymentFailures)
	return m
}

func (m *Checkout) CheckoutStarted() {
	if m != nil {
		m.Started.Inc()
	}
}

func (m *Checkout) CheckoutCanceled(reason string) {
	if m != nil {
		m.Canceled.WithLabelValues(reason).Inc()
	}
}

func (m *Checkout) OrderFinalized() {
	if m != nil {
		m.OrdersFinalized.Inc()
	}
}

func (m *Checkout) PaymentFailed(stage string) {
	if m != nil {
		m.PaymentFailures.WithLabelValues(stage).Inc()
	}
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
