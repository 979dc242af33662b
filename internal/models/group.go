package models

// GroupStatus is the lifecycle phase of a group.
//
// Valid transitions: pending -> active -> completed, and
// pending|active -> cancelled. Completed and cancelled are terminal.
type GroupStatus string

const (
	GroupStatusPending   GroupStatus = "pending"
	GroupStatusActive    GroupStatus = "active"
	GroupStatusCompleted GroupStatus = "completed"
	GroupStatusCancelled GroupStatus = "cancelled"
)

// Terminal reports whether no further mutation of the group is permitted.
func (s GroupStatus) Terminal() bool {
	return s == GroupStatusCompleted || s == GroupStatusCancelled
}

// Frequency is the contribution cadence of a group.
type Frequency string

const (
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	// FrequencyCustom uses Group.PeriodDays as the round period.
	FrequencyCustom Frequency = "custom"
)

// Group represents a rotating savings group.
//
// Invariants:
//   - len(Members) <= MaxMembers
//   - Members is always ordered by turn order and forms the rotation
//   - CurrentRound never decreases
//   - once Status is terminal, no member/round/contribution field changes
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string `json:"id"`

	// Name is the display name of the group.
	Name string `json:"name"`

	// OwnerID is the user who created the group and may start or cancel it.
	OwnerID string `json:"owner_id"`

	// ContributionAmount is owed by every member, every round. Always > 0.
	ContributionAmount float64 `json:"contribution_amount"`

	// Frequency determines how long members have to pay each round.
	Frequency Frequency `json:"frequency"`

	// PeriodDays is the round period in days; only meaningful when
	// Frequency is custom (1-90).
	PeriodDays int `json:"period_days,omitempty"`

	// MaxMembers caps the member list (2-100).
	MaxMembers int `json:"max_members"`

	// MinReliabilityScore is the admission threshold for joining.
	MinReliabilityScore float64 `json:"min_reliability_score"`

	// CurrentRound is 0 while pending, then 1..N while active.
	CurrentRound int `json:"current_round"`

	// CurrentBeneficiaryID is the member collecting the current round's
	// payout. Empty while pending and after completion.
	CurrentBeneficiaryID string `json:"current_beneficiary_id,omitempty"`

	// Status is the lifecycle phase.
	Status GroupStatus `json:"status"`

	// Members is the rotation: memberships ordered by TurnOrder.
	Members []Membership `json:"members"`

	// Version guards concurrent round advances (optimistic locking).
	// Incremented by the store on every group-row write.
	Version int64 `json:"-"`

	// StartDate is the Unix timestamp when the group was started (0 while
	// pending).
	StartDate int64 `json:"start_date,omitempty"`

	// CreatedAt is the Unix timestamp when the group was created.
	CreatedAt int64 `json:"created_at"`
}

// Member returns the membership for userID, or nil if not a member.
func (g *Group) Member(userID string) *Membership {
	for i := range g.Members {
		if g.Members[i].UserID == userID {
			return &g.Members[i]
		}
	}
	return nil
}

// NextBeneficiary returns the first member in rotation order that has not
// taken a turn, or nil when the rotation is exhausted.
func (g *Group) NextBeneficiary() *Membership {
	for i := range g.Members {
		if !g.Members[i].HasTakenTurn {
			return &g.Members[i]
		}
	}
	return nil
}

// Membership is one user's seat in a group's rotation.
//
// TurnOrder values within a group are a contiguous permutation 1..N.
type Membership struct {
	// GroupID is the group this membership belongs to.
	GroupID string `json:"group_id"`

	// UserID is the member.
	UserID string `json:"user_id"`

	// TurnOrder is the member's unique rank in the payout rotation.
	// Assigned by join order while pending, reordered by reliability
	// score when the group starts.
	TurnOrder int `json:"turn_order"`

	// HasTakenTurn is set when the member has collected their payout.
	HasTakenTurn bool `json:"has_taken_turn"`

	// JoinedAt is the Unix timestamp when the user joined.
	JoinedAt int64 `json:"joined_at"`

	// TurnTakenAt is the Unix timestamp when the member's round closed
	// (0 until then).
	TurnTakenAt int64 `json:"turn_taken_at,omitempty"`
}
