package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "code", "method"},
	)

	ReservationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_reservations_total",
			Help: "Reservation attempts by outcome",
		},
		[]string{"outcome"},
	)

	SeatConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "booking_seat_conflicts_total",
			Help: "Reservations rejected for insufficient seats",
		},
	)

	PaymentDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "booking_payment_seconds",
			Help:    "Duration of payment gateway calls",
			Buckets: prometheus.DefBuckets,
		},
	)

	SweepExpired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "booking_sweep_expired_total",
			Help: "Holds moved to EXPIRED by the sweep",
		},
	)

	OutboxPublished = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "booking_outbox_published_total",
			Help: "Outbox records published to the broker",
		},
	)

	RateLimitExceeded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "booking_rate_limit_exceeded_total",
			Help: "Requests rejected by the rate limiter",
		},
	)
)

func InitMetrics() {
	prometheus.MustRegister(
		RequestsTotal,
		ReservationsTotal,
		SeatConflicts,
		PaymentDuration,
		SweepExpired,
		OutboxPublished,
		RateLimitExceeded,
	)
}
