package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/commerce-core/pkg/metrics"
)

func TestMetrics_Contadores(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())

	m.ReservationAttempt(3, true)
	m.ReservationAttempt(1, false)
	m.ReservationAttempt(2, false)
	m.Compensation()
	m.Movement("RECEIVED")
	m.Movement("RECEIVED")
	m.Conflict("reserve")
	m.Transition("CART", "ADDRESS")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Reservations.WithLabelValues("ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Reservations.WithLabelValues("rejected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Compensations))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.StockMovements.WithLabelValues("RECEIVED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Conflicts.WithLabelValues("reserve")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OrderTransitions.WithLabelValues("CART", "ADDRESS")))
}

func TestMetrics_NilEsSeguro(t *testing.T) {
	var m *metrics.Metrics
	assert.NotPanics(t, func() {
		m.ReservationAttempt(1, true)
		m.Compensation()
		m.Movement("SOLD")
		m.Conflict("x")
		m.Transition("a", "b")
	})
}
