package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reservationsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reservations_created_total",
		Help: "Total number of reservations created.",
	})

	reservationsDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reservations_deleted_total",
		Help: "Total number of reservations deleted directly.",
	})

	reservationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reservation_create_failures_total",
		Help: "Reservation creation failures grouped by reason.",
	}, []string{"reason"})

	guardErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reservation_guard_errors_total",
		Help: "Duplicate-guard faults that degraded creation to the repository tuple check.",
	})
)
