package models

// ReliabilityScore summarizes a user's payment history as a 0-100 score.
//
// The score is a pure function of the counters (see the calculator
// package) and can always be rebuilt from the user's full contribution
// history. Created lazily on first read or first scored contribution;
// never deleted.
//
// Invariant: OnTimePayments + LatePayments + MissedPayments <=
// TotalContributions.
type ReliabilityScore struct {
	// UserID is the scored user (one record per user).
	UserID string `json:"user_id"`

	// Score is the derived 0-100 reliability metric. New users score 100.
	Score float64 `json:"score"`

	// TotalContributions is how many contributions have been scored.
	TotalContributions int `json:"total_contributions"`

	// OnTimePayments counts paid contributions with zero delay.
	OnTimePayments int `json:"on_time_payments"`

	// LatePayments counts paid contributions that arrived past due.
	LatePayments int `json:"late_payments"`

	// MissedPayments counts contributions resolved as missed.
	MissedPayments int `json:"missed_payments"`

	// AverageDelayDays is the mean delay over all paid contributions.
	AverageDelayDays float64 `json:"average_delay_days"`

	// LastUpdated is the Unix timestamp of the last score update.
	LastUpdated int64 `json:"last_updated"`
}
