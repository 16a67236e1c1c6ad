package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Booking results recorded on BookingsTotal.
const (
	ResultBooked   = "booked"
	ResultConflict = "conflict"
	ResultInvalid  = "invalid"
	ResultFailed   = "failed"
)

var (
	BookingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clinic_bookings_total",
			Help: "Booking attempts by result",
		},
		[]string{"result"},
	)

	BookingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "clinic_booking_duration_seconds",
			Help:    "Time spent in the booking unit of work",
			Buckets: prometheus.DefBuckets,
		},
	)

	StatusTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clinic_appointment_status_transitions_total",
			Help: "Applied appointment status transitions",
		},
		[]string{"from", "to"},
	)

	SlotsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clinic_slots_created_total",
			Help: "Availability slots created, series expanded",
		},
	)

	SlotsReconciled = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clinic_slots_reconciled_total",
			Help: "Slots whose booked flag was repaired by reconciliation",
		},
	)

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clinic_notifications_sent_total",
			Help: "Notification deliveries by event type and status",
		},
		[]string{"type", "status"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clinic_http_requests_total",
			Help: "HTTP requests by route and status code",
		},
		[]string{"method", "route", "code"},
	)
)
