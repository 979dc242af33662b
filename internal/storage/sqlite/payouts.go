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

// CreatePayout inserts a payout unless one already exists for
// (group, round). Racing callers are harmless: the unique index lets
// exactly one insert through and everyone else observes the stored row.
func (s *SQLiteStore) CreatePayout(ctx context.Context, p *models.Payout) (*models.Payout, bool, error) {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.DistributedAt == 0 {
		p.DistributedAt = time.Now().Unix()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO payouts (id, group_id, round, recipient_id, amount, distributed_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.GroupID, p.Round, p.RecipientID, p.Amount, p.DistributedAt,
	)
	if err == nil {
		return p, true, nil
	}
	if !isUniqueViolation(err) {
		return nil, false, fmt.Errorf("failed to insert payout: %w", err)
	}

	existing, err := s.getPayout(ctx, p.GroupID, p.Round)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// ListGroupPayouts retrieves a group's payouts ordered by round.
func (s *SQLiteStore) ListGroupPayouts(ctx context.Context, groupID string) ([]*models.Payout, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, group_id, round, recipient_id, amount, distributed_at
		 FROM payouts WHERE group_id = ? ORDER BY round`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list payouts: %w", err)
	}
	defer rows.Close()

	var payouts []*models.Payout
	for rows.Next() {
		p := &models.Payout{}
		if err := rows.Scan(&p.ID, &p.GroupID, &p.Round, &p.RecipientID,
			&p.Amount, &p.DistributedAt); err != nil {
			return nil, fmt.Errorf("failed to scan payout: %w", err)
		}
		payouts = append(payouts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payouts: %w", err)
	}

	return payouts, nil
}

func (s *SQLiteStore) getPayout(ctx context.Context, groupID string, round int) (*models.Payout, error) {
	p := &models.Payout{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, group_id, round, recipient_id, amount, distributed_at
		 FROM payouts WHERE group_id = ? AND round = ?`,
		groupID, round,
	).Scan(&p.ID, &p.GroupID, &p.Round, &p.RecipientID, &p.Amount, &p.DistributedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("payout for round %d: %w", round, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payout: %w", err)
	}
	return p, nil
}
