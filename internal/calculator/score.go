// Package calculator holds the pure arithmetic of the savings engine:
// the reliability-score formula, payment-delay measurement, and payout
// sizing. Everything here is deterministic and side-effect free so the
// same inputs always reproduce the same score.
package calculator

import "math"

// Penalty weights of the reliability-score formula.
const (
	latePenalty   = 20 // max penalty for a 100% late-payment rate
	missedPenalty = 40 // max penalty for a 100% missed-payment rate
	delayPenalty  = 2  // penalty per average day of delay
)

const secondsPerDay = 24 * 60 * 60

// ScoreCounters are the persisted inputs of the score formula.
type ScoreCounters struct {
	TotalContributions int
	OnTimePayments     int
	LatePayments       int
	MissedPayments     int
	AverageDelayDays   float64
}

// Score computes the 0-100 reliability score from payment counters:
//
//	score = 100 - 20*(late/total) - 40*(missed/total) - 2*avgDelayDays
//
// clamped to [0, 100]. A user with no scored contributions scores 100.
func Score(c ScoreCounters) float64 {
	if c.TotalContributions == 0 {
		return 100
	}

	total := float64(c.TotalContributions)
	score := 100.0
	score -= latePenalty * (float64(c.LatePayments) / total)
	score -= missedPenalty * (float64(c.MissedPayments) / total)
	score -= delayPenalty * c.AverageDelayDays

	return math.Max(0, math.Min(100, score))
}

// DelayDays returns how many whole days past due a payment arrived,
// rounding partial days up. On-time and early payments return 0.
func DelayDays(paidDate, dueDate int64) int {
	if paidDate <= dueDate {
		return 0
	}
	return int(math.Ceil(float64(paidDate-dueDate) / secondsPerDay))
}

// AverageDelay returns the mean of the given per-contribution delays,
// or 0 for an empty history.
func AverageDelay(delays []int) float64 {
	if len(delays) == 0 {
		return 0
	}
	sum := 0
	for _, d := range delays {
		sum += d
	}
	return float64(sum) / float64(len(delays))
}

// PayoutAmount is the pooled disbursement for a closed round: every
// member's contribution, including the beneficiary's own.
func PayoutAmount(contributionAmount float64, memberCount int) float64 {
	return contributionAmount * float64(memberCount)
}
