package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	bookingCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "studiodesk",
			Name:      "booking_created_total",
			Help:      "Count of bookings created by initial status.",
		},
		[]string{"status"},
	)

	bookingTransition = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "studiodesk",
			Name:      "booking_transition_total",
			Help:      "Count of booking status transitions.",
		},
		[]string{"from", "to"},
	)

	sideEffect = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "studiodesk",
			Name:      "side_effect_total",
			Help:      "Count of side-effect executions by action and outcome.",
		},
		[]string{"action", "outcome"},
	)

	versionConflict = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "studiodesk",
			Name:      "version_conflict_total",
			Help:      "Count of optimistic-concurrency conflicts on booking writes.",
		},
	)

	apiRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "studiodesk",
			Name:      "api_requests_total",
			Help:      "Count of HTTP API requests by endpoint and status code.",
		},
		[]string{"endpoint", "code"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(bookingCreated, bookingTransition, sideEffect, versionConflict, apiRequests)
	})
}

func IncBookingCreated(status string) {
	bookingCreated.WithLabelValues(status).Inc()
}

func IncBookingTransition(from, to string) {
	bookingTransition.WithLabelValues(from, to).Inc()
}

func IncSideEffect(action, outcome string) {
	sideEffect.WithLabelValues(action, outcome).Inc()
}

func IncVersionConflict() {
	versionConflict.Inc()
}

func IncAPIRequest(endpoint, code string) {
	apiRequests.WithLabelValues(endpoint, code).Inc()
}
