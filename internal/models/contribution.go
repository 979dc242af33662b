package models

// ContributionStatus is the settlement state of one contribution.
type ContributionStatus string

const (
	ContributionStatusPending ContributionStatus = "pending"
	ContributionStatusPaid    ContributionStatus = "paid"
	// ContributionStatusLate marks a pending contribution past its due
	// date. Late contributions are still payable.
	ContributionStatusLate ContributionStatus = "late"
	// ContributionStatusMissed is terminal: the contribution stayed
	// unpaid past the grace period and has been scored as a miss.
	ContributionStatusMissed ContributionStatus = "missed"
)

// Contribution is one member's payment obligation for one round.
//
// (GroupID, ContributorID, Round) is unique; a round's batch is created
// exactly once, when the round opens.
type Contribution struct {
	// ID is the unique identifier for the contribution (UUID format).
	ID string `json:"id"`

	// GroupID is the group this contribution belongs to.
	GroupID string `json:"group_id"`

	// Round is the rotation round this contribution settles (>= 1).
	Round int `json:"round"`

	// ContributorID is the member who owes the payment.
	ContributorID string `json:"contributor_id"`

	// BeneficiaryID is a snapshot of the round's beneficiary at the time
	// the round opened.
	BeneficiaryID string `json:"beneficiary_id"`

	// Amount equals the group's contribution amount at creation.
	Amount float64 `json:"amount"`

	// DueDate is the Unix timestamp the payment is due by.
	DueDate int64 `json:"due_date"`

	// PaidDate is the Unix timestamp of payment (0 unless paid).
	PaidDate int64 `json:"paid_date,omitempty"`

	// Status is the settlement state.
	Status ContributionStatus `json:"status"`

	// PaymentProof is an opaque proof-of-payment reference supplied by
	// the contributor. The engine never moves money.
	PaymentProof string `json:"payment_proof,omitempty"`

	// Notes is free text attached by the contributor.
	Notes string `json:"notes,omitempty"`

	// DelayDays is how many whole days past due the payment arrived
	// (0 when on time; only meaningful once paid).
	DelayDays int `json:"delay_days"`

	// CreatedAt is the Unix timestamp when the obligation was created.
	CreatedAt int64 `json:"created_at"`
}
