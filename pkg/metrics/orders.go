package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// OrderMetrics tracks the order lifecycle. A nil receiver is a no-op.
type OrderMetrics struct {
	placed           prometheus.Counter
	placeFailures    *prometheus.CounterVec
	decisions        *prometheus.CounterVec
	statusChanges    *prometheus.CounterVec
	sequenceFailures prometheus.Counter
	cartClearFailure prometheus.Counter
}

// NewOrderMetrics registers the order metrics on the provided registerer.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	m := &OrderMetrics{
		placed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "orders_placed_total",
			Help: "Orders successfully placed.",
		}),
		placeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orders_place_failures_total",
			Help: "Order placements that failed, by error code.",
		}, []string{"code"}),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "order_requests_decided_total",
			Help: "Approval decisions applied to requests.",
		}, []string{"decision"}),
		statusChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "order_status_changes_total",
			Help: "Fulfillment status transitions.",
		}, []string{"to"}),
		sequenceFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "order_sequence_failures_total",
			Help: "Order number allocations that failed.",
		}),
		cartClearFailure: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "order_cart_clear_failures_total",
			Help: "Carts left behind after a committed placement.",
		}),
	}
	reg.MustRegister(m.placed, m.placeFailures, m.decisions, m.statusChanges, m.sequenceFailures, m.cartClearFailure)
	return m
}

func (m *OrderMetrics) IncPlaced() {
	if m == nil || m.placed == nil {
		return
	}
	m.placed.Inc()
}

func (m *OrderMetrics) IncPlaceFailure(code string) {
	if m == nil || m.placeFailures == nil {
		return
	}
	m.placeFailures.WithLabelValues(normalizeLabel(code)).Inc()
}

func (m *OrderMetrics) IncDecision(decision string) {
	if m == nil || m.decisions == nil {
		return
	}
	m.decisions.WithLabelValues(normalizeLabel(decision)).Inc()
}

func (m *OrderMetrics) IncStatusChange(to string) {
	if m == nil || m.statusChanges == nil {
		return
	}
	m.statusChanges.WithLabelValues(normalizeLabel(to)).Inc()
}

func (m *OrderMetrics) IncSequenceFailure() {
	if m == nil || m.sequenceFailures == nil {
		return
	}
	m.sequenceFailures.Inc()
}

func (m *OrderMetrics) IncCartClearFailure() {
	if m == nil || m.cartClearFailure == nil {
		return
	}
	m.cartClearFailure.Inc()
}
