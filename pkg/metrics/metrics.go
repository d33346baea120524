// Package metrics expone los contadores de negocio del núcleo de inventario y órdenes
// en formato Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "commerce"

// Metrics agrupa los collectors. Un *Metrics nil es válido y no registra nada.
type Metrics struct {
	Reservations      *prometheus.CounterVec
	Compensations     prometheus.Counter
	StockMovements    *prometheus.CounterVec
	Conflicts         *prometheus.CounterVec
	OrderTransitions  *prometheus.CounterVec
	ReservationLength prometheus.Histogram
}

// New crea y registra los collectors en reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Reservations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservations_total",
			Help:      "Intentos de reserva por resultado.",
		}, []string{"result"}),
		Compensations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservation_compensations_total",
			Help:      "Liberaciones hechas para compensar reservas fallidas.",
		}),
		StockMovements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_movements_total",
			Help:      "Movimientos de stock persistidos por tipo.",
		}, []string{"type"}),
		Conflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "occ_conflicts_total",
			Help:      "Conflictos de concurrencia optimista reintentados.",
		}, []string{"operation"}),
		OrderTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_transitions_total",
			Help:      "Transiciones de estado de órdenes.",
		}, []string{"from", "to"}),
		ReservationLength: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reservation_lines",
			Help:      "Líneas por intento de reserva.",
			Buckets:   []float64{1, 2, 5, 10, 20, 50},
		}),
	}
	reg.MustRegister(m.Reservations, m.Compensations, m.StockMovements, m.Conflicts, m.OrderTransitions, m.ReservationLength)
	return m
}

// ReservationAttempt registra el resultado de un intento de reserva.
func (m *Metrics) ReservationAttempt(lines int, ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "rejected"
	}
	m.Reservations.WithLabelValues(result).Inc()
	m.ReservationLength.Observe(float64(lines))
}

// Compensation registra una liberación compensatoria.
func (m *Metrics) Compensation() {
	if m == nil {
		return
	}
	m.Compensations.Inc()
}

// Movement registra un movimiento persistido.
func (m *Metrics) Movement(movementType string) {
	if m == nil {
		return
	}
	m.StockMovements.WithLabelValues(movementType).Inc()
}

// Conflict registra un conflicto de concurrencia que será reintentado.
func (m *Metrics) Conflict(operation string) {
	if m == nil {
		return
	}
	m.Conflicts.WithLabelValues(operation).Inc()
}

// Transition registra una transición de estado de orden.
func (m *Metrics) Transition(from, to string) {
	if m == nil {
		return
	}
	m.OrderTransitions.WithLabelValues(from, to).Inc()
}
