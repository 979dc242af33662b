// Package metrics exposes Prometheus counters for the savings engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PaymentsRecorded counts contributions transitioned to paid.
	PaymentsRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rosca_payments_recorded_total",
		Help: "Number of contribution payments recorded.",
	})

	// PayoutsCreated counts payout rows actually inserted (idempotent
	// replays are not counted).
	PayoutsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rosca_payouts_created_total",
		Help: "Number of round payouts created.",
	})

	// RoundsAdvanced counts successful round transitions.
	RoundsAdvanced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rosca_rounds_advanced_total",
		Help: "Number of group rounds advanced.",
	})

	// GroupsCompleted counts groups whose rotation finished.
	GroupsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rosca_groups_completed_total",
		Help: "Number of groups that completed their full rotation.",
	})

	// ContributionsMarkedLate counts pending->late sweep transitions.
	ContributionsMarkedLate = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rosca_contributions_marked_late_total",
		Help: "Number of contributions marked late by the overdue sweep.",
	})

	// ContributionsMarkedMissed counts late->missed sweep transitions.
	ContributionsMarkedMissed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rosca_contributions_marked_missed_total",
		Help: "Number of contributions resolved as missed by the overdue sweep.",
	})
)
