package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"toko-checkout/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCheckoutCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewCheckout(reg)

	m.CheckoutStarted()
	m.CheckoutStarted()
	m.CheckoutCanceled("expired")
	m.OrderFinalized()
	m.PaymentFailed("capture")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Started))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Canceled.WithLabelValues("expired")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Canceled.WithLabelValues("user")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OrdersFinalized))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PaymentFailures.WithLabelValues("capture")))

	rec := httptest.NewRecorder()
	metrics.Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "toko_checkout_started_total 2")
}

func TestNilCheckoutIsNoop(t *testing.T) {
	var m *metrics.Checkout
	assert.NotPanics(t, func() {
		m.CheckoutStarted()
		m.CheckoutCanceled("user")
		m.OrderFinalized()
		m.PaymentFailed("create")
	})
}
