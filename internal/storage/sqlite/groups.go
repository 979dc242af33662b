package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/rosca/internal/models"
	"github.com/mmynk/rosca/internal/storage"
)

// CreateGroup persists a new group together with its owner membership.
func (s *SQLiteStore) CreateGroup(ctx context.Context, group *models.Group) error {
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	if group.CreatedAt == 0 {
		group.CreatedAt = time.Now().Unix()
	}
	group.Version = 1

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO groups (id, name, owner_id, contribution_amount, frequency, period_days,
		                     max_members, min_reliability_score, current_round,
		                     current_beneficiary_id, status, version, start_date, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		group.ID, group.Name, group.OwnerID, group.ContributionAmount,
		string(group.Frequency), group.PeriodDays, group.MaxMembers,
		group.MinReliabilityScore, group.CurrentRound,
		nullable(group.CurrentBeneficiaryID), string(group.Status),
		group.Version, group.StartDate, group.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert group: %w", err)
	}

	for i := range group.Members {
		m := &group.Members[i]
		m.GroupID = group.ID
		if err := insertMember(ctx, tx, m); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetGroup retrieves a group with its memberships ordered by turn order.
func (s *SQLiteStore) GetGroup(ctx context.Context, id string) (*models.Group, error) {
	group, err := scanGroup(s.db.QueryRowContext(ctx,
		`SELECT id, name, owner_id, contribution_amount, frequency, period_days,
		        max_members, min_reliability_score, current_round,
		        current_beneficiary_id, status, version, start_date, created_at
		 FROM groups WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("group %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}

	if group.Members, err = s.loadMembers(ctx, group.ID); err != nil {
		return nil, err
	}

	return group, nil
}

// ListGroupsByMember retrieves all non-cancelled groups the user belongs
// to, newest first.
func (s *SQLiteStore) ListGroupsByMember(ctx context.Context, userID string) ([]*models.Group, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT g.id, g.name, g.owner_id, g.contribution_amount, g.frequency, g.period_days,
		        g.max_members, g.min_reliability_score, g.current_round,
		        g.current_beneficiary_id, g.status, g.version, g.start_date, g.created_at
		 FROM groups g
		 JOIN group_members gm ON gm.group_id = g.id
		 WHERE gm.user_id = ? AND g.status != ?
		 ORDER BY g.created_at DESC`,
		userID, string(models.GroupStatusCancelled),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups by member: %w", err)
	}
	defer rows.Close()

	var groups []*models.Group
	for rows.Next() {
		group, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, group)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate groups: %w", err)
	}

	for _, group := range groups {
		if group.Members, err = s.loadMembers(ctx, group.ID); err != nil {
			return nil, err
		}
	}

	return groups, nil
}

// UpdateGroupConfig writes the group's configuration fields. Version-checked.
func (s *SQLiteStore) UpdateGroupConfig(ctx context.Context, group *models.Group) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE groups
		 SET name = ?, contribution_amount = ?, frequency = ?, period_days = ?,
		     max_members = ?, min_reliability_score = ?, version = version + 1
		 WHERE id = ? AND version = ?`,
		group.Name, group.ContributionAmount, string(group.Frequency),
		group.PeriodDays, group.MaxMembers, group.MinReliabilityScore,
		group.ID, group.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update group: %w", err)
	}
	if err := requireVersionedWrite(ctx, s.db, res, group.ID); err != nil {
		return err
	}
	group.Version++
	return nil
}

// AddGroupMember appends a membership row.
func (s *SQLiteStore) AddGroupMember(ctx context.Context, m *models.Membership) error {
	if m.JoinedAt == 0 {
		m.JoinedAt = time.Now().Unix()
	}
	return insertMember(ctx, s.db, m)
}

// StartGroup atomically activates a group: group row, reordered
// memberships, and the round-1 contribution batch in one transaction.
func (s *SQLiteStore) StartGroup(ctx context.Context, group *models.Group, contributions []*models.Contribution) error {
	return s.applyRoundTransition(ctx, group, contributions)
}

// CloseRound atomically applies a round transition. A losing writer gets
// storage.ErrVersionConflict and must re-read the group.
func (s *SQLiteStore) CloseRound(ctx context.Context, group *models.Group, next []*models.Contribution) error {
	return s.applyRoundTransition(ctx, group, next)
}

// applyRoundTransition writes the group row (version-checked), rewrites
// every membership's turn fields, and inserts the given contribution
// batch, all in one transaction.
func (s *SQLiteStore) applyRoundTransition(ctx context.Context, group *models.Group, contributions []*models.Contribution) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE groups
		 SET current_round = ?, current_beneficiary_id = ?, status = ?,
		     start_date = ?, version = version + 1
		 WHERE id = ? AND version = ?`,
		group.CurrentRound, nullable(group.CurrentBeneficiaryID),
		string(group.Status), group.StartDate, group.ID, group.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update group: %w", err)
	}
	if err := requireVersionedWrite(ctx, tx, res, group.ID); err != nil {
		return err
	}

	for i := range group.Members {
		m := &group.Members[i]
		_, err := tx.ExecContext(ctx,
			`UPDATE group_members
			 SET turn_order = ?, has_taken_turn = ?, turn_taken_at = ?
			 WHERE group_id = ? AND user_id = ?`,
			m.TurnOrder, m.HasTakenTurn, m.TurnTakenAt, group.ID, m.UserID,
		)
		if err != nil {
			return fmt.Errorf("failed to update membership: %w", err)
		}
	}

	if err := insertContributions(ctx, tx, contributions); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	group.Version++
	return nil
}

// SetGroupStatus writes only the group's status. Version-checked.
func (s *SQLiteStore) SetGroupStatus(ctx context.Context, group *models.Group) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE groups SET status = ?, version = version + 1 WHERE id = ? AND version = ?",
		string(group.Status), group.ID, group.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update group status: %w", err)
	}
	if err := requireVersionedWrite(ctx, s.db, res, group.ID); err != nil {
		return err
	}
	group.Version++
	return nil
}

// execer abstracts *sql.DB and *sql.Tx for shared write helpers.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// requireVersionedWrite distinguishes "group vanished" from "lost the
// version race" after a zero-row versioned UPDATE.
func requireVersionedWrite(ctx context.Context, q execer, res sql.Result, groupID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}

	var exists int
	err = q.QueryRowContext(ctx, "SELECT 1 FROM groups WHERE id = ?", groupID).Scan(&exists)
	if err == sql.ErrNoRows {
		return fmt.Errorf("group %s: %w", groupID, storage.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to check group existence: %w", err)
	}
	return fmt.Errorf("group %s: %w", groupID, storage.ErrVersionConflict)
}

func insertMember(ctx context.Context, q execer, m *models.Membership) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO group_members (group_id, user_id, turn_order, has_taken_turn, joined_at, turn_taken_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		m.GroupID, m.UserID, m.TurnOrder, m.HasTakenTurn, m.JoinedAt, m.TurnTakenAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("member %s in group %s: %w", m.UserID, m.GroupID, storage.ErrDuplicate)
		}
		return fmt.Errorf("failed to insert membership: %w", err)
	}
	return nil
}

// scanner abstracts *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanGroup(row scanner) (*models.Group, error) {
	group := &models.Group{}
	var beneficiary sql.NullString
	var frequency, status string

	err := row.Scan(&group.ID, &group.Name, &group.OwnerID,
		&group.ContributionAmount, &frequency, &group.PeriodDays,
		&group.MaxMembers, &group.MinReliabilityScore, &group.CurrentRound,
		&beneficiary, &status, &group.Version, &group.StartDate, &group.CreatedAt)
	if err != nil {
		return nil, err
	}

	group.Frequency = models.Frequency(frequency)
	group.Status = models.GroupStatus(status)
	if beneficiary.Valid {
		group.CurrentBeneficiaryID = beneficiary.String
	}

	return group, nil
}

func (s *SQLiteStore) loadMembers(ctx context.Context, groupID string) ([]models.Membership, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT group_id, user_id, turn_order, has_taken_turn, joined_at, turn_taken_at
		 FROM group_members WHERE group_id = ? ORDER BY turn_order`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get memberships: %w", err)
	}
	defer rows.Close()

	var members []models.Membership
	for rows.Next() {
		var m models.Membership
		if err := rows.Scan(&m.GroupID, &m.UserID, &m.TurnOrder,
			&m.HasTakenTurn, &m.JoinedAt, &m.TurnTakenAt); err != nil {
			return nil, fmt.Errorf("failed to scan membership: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate memberships: %w", err)
	}

	return members, nil
}
