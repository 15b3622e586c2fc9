package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	bookingCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "roombooking",
			Name:      "booking_create_total",
			Help:      "Count of booking attempts by outcome.",
		},
		[]string{"outcome"},
	)

	bookingCancelled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "roombooking",
			Name:      "booking_cancelled_total",
			Help:      "Count of bookings cancelled by their owners.",
		},
	)

	roomLockWait = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "roombooking",
			Name:      "room_lock_wait_seconds",
			Help:      "Time spent waiting for the per-room booking lock.",
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5},
		},
	)

	availabilityQueries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "roombooking",
			Name:      "availability_queries_total",
			Help:      "Count of availability calculations.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "roombooking",
			Name:      "http_requests_total",
			Help:      "Count of HTTP requests by route and status code.",
		},
		[]string{"route", "code"},
	)
)

// Booking outcomes.
const (
	OutcomeCreated  = "created"
	OutcomeConflict = "conflict"
	OutcomeInvalid  = "invalid"
	OutcomeError    = "error"
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(bookingCreated, bookingCancelled, roomLockWait, availabilityQueries, httpRequests)
	})
}

func IncBookingAttempt(outcome string) {
	bookingCreated.WithLabelValues(outcome).Inc()
}

func IncBookingCancelled() {
	bookingCancelled.Inc()
}

func ObserveLockWait(d time.Duration) {
	roomLockWait.Observe(d.Seconds())
}

func IncAvailabilityQuery() {
	availabilityQueries.Inc()
}

func IncHTTP(route, code string) {
	httpRequests.WithLabelValues(route, code).Inc()
}
