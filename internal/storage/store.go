// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/rosca/internal/models"
)

// Sentinel errors shared by all Store implementations. Services translate
// these into their caller-facing taxonomy.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate is returned when an insert collides with a uniqueness
	// constraint (member already present, round batch already created,
	// payout already recorded).
	ErrDuplicate = errors.New("record already exists")

	// ErrVersionConflict is returned when a group write loses an
	// optimistic-version race. The caller should re-read and re-decide.
	ErrVersionConflict = errors.New("group modified concurrently")
)

// Store defines the persistence surface of the savings engine.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL,
// etc.) without changing the service layer.
//
// All group writes are guarded by the group's Version field: the write
// succeeds only when the stored version still matches the version the
// group was read at, and the store increments it on success.
type Store interface {
	// CreateUser persists a new user account.
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByEmail retrieves a user by email. Returns ErrNotFound if absent.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// GetUserByID retrieves a user by ID. Returns ErrNotFound if absent.
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	// SetUserVerified flips the identity-verified flag on a user.
	SetUserVerified(ctx context.Context, id string, verified bool) error

	// CreateGroup persists a new group together with its owner membership.
	CreateGroup(ctx context.Context, group *models.Group) error

	// GetGroup retrieves a group with its memberships ordered by turn
	// order. Returns ErrNotFound if absent.
	GetGroup(ctx context.Context, id string) (*models.Group, error)

	// ListGroupsByMember retrieves all non-cancelled groups the user is a
	// member of, newest first.
	ListGroupsByMember(ctx context.Context, userID string) ([]*models.Group, error)

	// UpdateGroupConfig writes the group's configuration fields (name,
	// amount, frequency, limits). Version-checked.
	UpdateGroupConfig(ctx context.Context, group *models.Group) error

	// AddGroupMember appends a membership. Returns ErrDuplicate if the
	// user already holds a seat in the group.
	AddGroupMember(ctx context.Context, m *models.Membership) error

	// StartGroup atomically activates a group: writes status, round,
	// beneficiary, start date and the reordered memberships, and inserts
	// the round-1 contribution batch, all in one transaction.
	// Version-checked.
	StartGroup(ctx context.Context, group *models.Group, contributions []*models.Contribution) error

	// CloseRound atomically applies a round transition: writes the
	// group's round/beneficiary/status, rewrites membership turn flags,
	// and inserts the next round's contribution batch (nil when the
	// group completes). Version-checked; a losing writer gets
	// ErrVersionConflict and must re-read.
	CloseRound(ctx context.Context, group *models.Group, next []*models.Contribution) error

	// SetGroupStatus writes only the group's status (cancellation).
	// Version-checked.
	SetGroupStatus(ctx context.Context, group *models.Group) error

	// CreateContributions inserts a round's contribution batch in one
	// transaction. Returns ErrDuplicate if any (group, contributor,
	// round) row already exists; nothing is inserted in that case.
	CreateContributions(ctx context.Context, contributions []*models.Contribution) error

	// GetOpenContribution finds the payable (pending or late)
	// contribution for (group, contributor, round). Returns ErrNotFound
	// when none remains.
	GetOpenContribution(ctx context.Context, groupID, contributorID string, round int) (*models.Contribution, error)

	// SettleContribution writes a contribution's settlement fields
	// (status, paid date, delay, proof, notes), but only while the row
	// is still payable (pending or late). Returns false when a
	// concurrent settlement got there first, so a payment is never
	// recorded or scored twice.
	SettleContribution(ctx context.Context, c *models.Contribution) (bool, error)

	// SetContributionDueDate rewrites a contribution's due date.
	SetContributionDueDate(ctx context.Context, contributionID string, due int64) error

	// ListRoundContributions retrieves a round's contributions.
	ListRoundContributions(ctx context.Context, groupID string, round int) ([]*models.Contribution, error)

	// ListGroupContributions retrieves every contribution of a group,
	// newest round first.
	ListGroupContributions(ctx context.Context, groupID string) ([]*models.Contribution, error)

	// ListUserContributions retrieves every contribution owed by a user,
	// newest first.
	ListUserContributions(ctx context.Context, userID string) ([]*models.Contribution, error)

	// MarkOverdue flips active groups' pending contributions past their
	// due date to late and returns how many rows changed. Idempotent;
	// terminal groups' contributions are never touched.
	MarkOverdue(ctx context.Context, now int64) (int64, error)

	// ListLapsed retrieves active groups' late contributions whose due
	// date is before the cutoff (candidates for resolution into missed).
	ListLapsed(ctx context.Context, cutoff int64) ([]*models.Contribution, error)

	// ResolveMissed transitions one late contribution to missed.
	// Returns false when the contribution was no longer late (already
	// resolved or paid meanwhile), so a miss is never scored twice.
	ResolveMissed(ctx context.Context, contributionID string) (bool, error)

	// CreatePayout inserts a payout unless one already exists for
	// (group, round). Returns the stored payout and whether this call
	// created it.
	CreatePayout(ctx context.Context, p *models.Payout) (*models.Payout, bool, error)

	// ListGroupPayouts retrieves a group's payouts ordered by round.
	ListGroupPayouts(ctx context.Context, groupID string) ([]*models.Payout, error)

	// GetScore retrieves a user's reliability score record.
	// Returns ErrNotFound if the user has never been scored.
	GetScore(ctx context.Context, userID string) (*models.ReliabilityScore, error)

	// PutScore inserts or replaces a user's reliability score record.
	PutScore(ctx context.Context, score *models.ReliabilityScore) error

	// Close releases any resources held by the store.
	Close() error
}
