// Package metrics exposes booking engine counters.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BookingsCommitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lessonbook_bookings_committed_total",
		Help: "Reservations committed after payment authorization.",
	})

	AvailabilityConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lessonbook_availability_conflicts_total",
		Help: "Commits rejected because the day reached capacity first.",
	})

	PaymentsDeclined = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lessonbook_payments_declined_total",
		Help: "Payment authorizations declined by the processor.",
	})

	ReconciliationsNeeded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lessonbook_reconciliations_needed_total",
		Help: "Captured payments whose seat commit failed and needs operator follow-up.",
	})
)
