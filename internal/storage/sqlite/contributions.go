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

const contributionColumns = `id, group_id, round, contributor_id, beneficiary_id,
	amount, due_date, paid_date, status, payment_proof, notes, delay_days, created_at`

// CreateContributions inserts a round's contribution batch in one
// transaction. A uniqueness collision on any row aborts the whole batch
// with storage.ErrDuplicate, so a round can never be half-opened twice.
func (s *SQLiteStore) CreateContributions(ctx context.Context, contributions []*models.Contribution) error {
	if len(contributions) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertContributions(ctx, tx, contributions); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func insertContributions(ctx context.Context, q execer, contributions []*models.Contribution) error {
	now := time.Now().Unix()
	for _, c := range contributions {
		if c.ID == "" {
			c.ID = uuid.New().String()
		}
		if c.CreatedAt == 0 {
			c.CreatedAt = now
		}

		_, err := q.ExecContext(ctx,
			`INSERT INTO contributions (`+contributionColumns+`)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID, c.GroupID, c.Round, c.ContributorID, c.BeneficiaryID,
			c.Amount, c.DueDate, c.PaidDate, string(c.Status),
			nullable(c.PaymentProof), nullable(c.Notes), c.DelayDays, c.CreatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("contribution for round %d of group %s: %w",
					c.Round, c.GroupID, storage.ErrDuplicate)
			}
			return fmt.Errorf("failed to insert contribution: %w", err)
		}
	}
	return nil
}

// GetOpenContribution finds the payable (pending or late) contribution
// for (group, contributor, round).
func (s *SQLiteStore) GetOpenContribution(ctx context.Context, groupID, contributorID string, round int) (*models.Contribution, error) {
	c, err := scanContribution(s.db.QueryRowContext(ctx,
		`SELECT `+contributionColumns+` FROM contributions
		 WHERE group_id = ? AND contributor_id = ? AND round = ? AND status IN (?, ?)`,
		groupID, contributorID, round,
		string(models.ContributionStatusPending), string(models.ContributionStatusLate),
	))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("open contribution for round %d: %w", round, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get contribution: %w", err)
	}
	return c, nil
}

// SettleContribution writes a contribution's settlement fields. The
// status guard in the WHERE clause serializes racing settlements of the
// same row: only one write observes a payable row, everyone else gets
// false.
func (s *SQLiteStore) SettleContribution(ctx context.Context, c *models.Contribution) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE contributions
		 SET status = ?, paid_date = ?, payment_proof = ?, notes = ?, delay_days = ?
		 WHERE id = ? AND status IN (?, ?)`,
		string(c.Status), c.PaidDate, nullable(c.PaymentProof),
		nullable(c.Notes), c.DelayDays, c.ID,
		string(models.ContributionStatusPending), string(models.ContributionStatusLate),
	)
	if err != nil {
		return false, fmt.Errorf("failed to settle contribution: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n > 0, nil
}

// SetContributionDueDate rewrites a contribution's due date.
func (s *SQLiteStore) SetContributionDueDate(ctx context.Context, contributionID string, due int64) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE contributions SET due_date = ? WHERE id = ?", due, contributionID)
	if err != nil {
		return fmt.Errorf("failed to set contribution due date: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("contribution %s: %w", contributionID, storage.ErrNotFound)
	}
	return nil
}

// ListRoundContributions retrieves a round's contributions.
func (s *SQLiteStore) ListRoundContributions(ctx context.Context, groupID string, round int) ([]*models.Contribution, error) {
	return s.listContributions(ctx,
		"WHERE group_id = ? AND round = ? ORDER BY contributor_id", groupID, round)
}

// ListGroupContributions retrieves every contribution of a group, newest
// round first.
func (s *SQLiteStore) ListGroupContributions(ctx context.Context, groupID string) ([]*models.Contribution, error) {
	return s.listContributions(ctx,
		"WHERE group_id = ? ORDER BY round DESC, created_at DESC", groupID)
}

// ListUserContributions retrieves every contribution owed by a user,
// newest first.
func (s *SQLiteStore) ListUserContributions(ctx context.Context, userID string) ([]*models.Contribution, error) {
	return s.listContributions(ctx,
		"WHERE contributor_id = ? ORDER BY created_at DESC, round DESC", userID)
}

// MarkOverdue flips pending contributions past their due date to late.
// Already-late rows are untouched, so the sweep is idempotent. Only
// active groups are swept: terminal groups keep their contributions
// frozen as-is.
func (s *SQLiteStore) MarkOverdue(ctx context.Context, now int64) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE contributions SET status = ?
		 WHERE status = ? AND due_date < ?
		   AND group_id IN (SELECT id FROM groups WHERE status = ?)`,
		string(models.ContributionStatusLate), string(models.ContributionStatusPending),
		now, string(models.GroupStatusActive),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to mark overdue contributions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n, nil
}

// ListLapsed retrieves active groups' late contributions due before the
// cutoff.
func (s *SQLiteStore) ListLapsed(ctx context.Context, cutoff int64) ([]*models.Contribution, error) {
	return s.listContributions(ctx,
		`WHERE status = ? AND due_date < ?
		   AND group_id IN (SELECT id FROM groups WHERE status = ?)
		 ORDER BY due_date`,
		string(models.ContributionStatusLate), cutoff,
		string(models.GroupStatusActive))
}

// ResolveMissed transitions one late contribution to missed. The
// status guard in the WHERE clause makes a repeated sweep a no-op, so a
// miss is scored at most once.
func (s *SQLiteStore) ResolveMissed(ctx context.Context, contributionID string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE contributions SET status = ? WHERE id = ? AND status = ?",
		string(models.ContributionStatusMissed), contributionID,
		string(models.ContributionStatusLate),
	)
	if err != nil {
		return false, fmt.Errorf("failed to resolve missed contribution: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n > 0, nil
}

func (s *SQLiteStore) listContributions(ctx context.Context, clause string, args ...any) ([]*models.Contribution, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+contributionColumns+" FROM contributions "+clause, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list contributions: %w", err)
	}
	defer rows.Close()

	var contributions []*models.Contribution
	for rows.Next() {
		c, err := scanContribution(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contribution: %w", err)
		}
		contributions = append(contributions, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate contributions: %w", err)
	}

	return contributions, nil
}

func scanContribution(row scanner) (*models.Contribution, error) {
	c := &models.Contribution{}
	var proof, notes sql.NullString
	var status string

	err := row.Scan(&c.ID, &c.GroupID, &c.Round, &c.ContributorID,
		&c.BeneficiaryID, &c.Amount, &c.DueDate, &c.PaidDate, &status,
		&proof, &notes, &c.DelayDays, &c.CreatedAt)
	if err != nil {
		return nil, err
	}

	c.Status = models.ContributionStatus(status)
	if proof.Valid {
		c.PaymentProof = proof.String
	}
	if notes.Valid {
		c.Notes = notes.String
	}

	return c, nil
}
