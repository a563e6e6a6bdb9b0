package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Booking lifecycle
	BookingsCreated   prometheus.Counter
	StatusTransitions *prometheus.CounterVec
	AccessCodeRetries prometheus.Counter

	// Notification delivery
	EmailsSent   *prometheus.CounterVec
	EmailsFailed *prometheus.CounterVec

	// Reviews
	ReviewsCreated  prometheus.Counter
	ReviewConflicts prometheus.Counter

	// Sessions
	SessionsCreated prometheus.Counter
	SessionsSwept   prometheus.Counter
}

// New creates and registers all application metrics
func New(namespace string) *Metrics {
	return &Metrics{
		BookingsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_created_total",
			Help:      "Total number of booking requests created",
		}),
		StatusTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_status_transitions_total",
			Help:      "Total number of booking status transitions",
		}, []string{"status"}),
		AccessCodeRetries: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "access_code_retries_total",
			Help:      "Total number of access code regenerations after a collision",
		}),
		EmailsSent: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emails_sent_total",
			Help:      "Total number of booking emails delivered",
		}, []string{"template"}),
		EmailsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emails_failed_total",
			Help:      "Total number of booking emails that failed to send",
		}, []string{"template"}),
		ReviewsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reviews_created_total",
			Help:      "Total number of reviews created",
		}),
		ReviewConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "review_conflicts_total",
			Help:      "Total number of duplicate review submissions rejected",
		}),
		SessionsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_created_total",
			Help:      "Total number of sessions issued",
		}),
		SessionsSwept: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_swept_total",
			Help:      "Total number of sessions removed by the retention sweep",
		}),
	}
}
