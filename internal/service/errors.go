package service

import "errors"

// Caller-facing error taxonomy. All of these are expected, recoverable
// outcomes that the transport layer translates into responses; none are
// retried internally. Idempotency-guard collisions (duplicate payout,
// duplicate round advance) are not errors and resolve to the existing
// record instead.
var (
	// ErrNotFound means the group or contribution does not exist (or,
	// for payments, no payable contribution remains this round).
	ErrNotFound = errors.New("not found")

	// ErrInvalidState means the operation was attempted outside the
	// required lifecycle phase, e.g. joining an active group.
	ErrInvalidState = errors.New("operation not allowed in current group state")

	// ErrAlreadyMember means the user already holds a seat in the group.
	ErrAlreadyMember = errors.New("already a member of this group")

	// ErrCapacityExceeded means the group is full.
	ErrCapacityExceeded = errors.New("group has reached maximum members")

	// ErrPolicyViolation means the user's reliability score is below the
	// group's admission threshold.
	ErrPolicyViolation = errors.New("reliability score below group minimum")

	// ErrAmountMismatch means the payment amount does not equal the
	// required contribution amount.
	ErrAmountMismatch = errors.New("amount does not match required contribution")

	// ErrNotAuthorized means a non-owner called an owner-only operation.
	ErrNotAuthorized = errors.New("only the group owner may perform this operation")

	// ErrDuplicateRound is a defensive guard: a round's contribution
	// batch already exists. Should not occur under correct sequencing.
	ErrDuplicateRound = errors.New("contributions for this round already exist")

	// ErrValidation means a creation/update payload failed validation.
	ErrValidation = errors.New("invalid parameters")
)
