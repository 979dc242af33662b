package models

// Payout is the pooled disbursement record for a closed round.
//
// (GroupID, Round) is unique: at most one payout is ever created per round.
// That uniqueness is the safety net against double payout when two racing
// payment confirmations both observe the round as complete.
type Payout struct {
	// ID is the unique identifier for the payout (UUID format).
	ID string `json:"id"`

	// GroupID is the group this payout belongs to.
	GroupID string `json:"group_id"`

	// Round is the round this payout closes.
	Round int `json:"round"`

	// RecipientID is the beneficiary who collected the pool.
	RecipientID string `json:"recipient_id"`

	// Amount is contribution amount x member count at round close.
	Amount float64 `json:"amount"`

	// DistributedAt is the Unix timestamp the payout was recorded.
	DistributedAt int64 `json:"distributed_at"`
}
