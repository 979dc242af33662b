package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mmynk/rosca/internal/models"
	"github.com/mmynk/rosca/internal/storage"
)

// GetScore retrieves a user's reliability score record.
func (s *SQLiteStore) GetScore(ctx context.Context, userID string) (*models.ReliabilityScore, error) {
	score := &models.ReliabilityScore{}
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, score, total_contributions, on_time_payments,
		        late_payments, missed_payments, average_delay_days, last_updated
		 FROM reliability_scores WHERE user_id = ?`,
		userID,
	).Scan(&score.UserID, &score.Score, &score.TotalContributions,
		&score.OnTimePayments, &score.LatePayments, &score.MissedPayments,
		&score.AverageDelayDays, &score.LastUpdated)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("score for user %s: %w", userID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reliability score: %w", err)
	}

	return score, nil
}

// PutScore inserts or replaces a user's reliability score record.
func (s *SQLiteStore) PutScore(ctx context.Context, score *models.ReliabilityScore) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO reliability_scores
		     (user_id, score, total_contributions, on_time_payments,
		      late_payments, missed_payments, average_delay_days, last_updated)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (user_id) DO UPDATE SET
		     score = excluded.score,
		     total_contributions = excluded.total_contributions,
		     on_time_payments = excluded.on_time_payments,
		     late_payments = excluded.late_payments,
		     missed_payments = excluded.missed_payments,
		     average_delay_days = excluded.average_delay_days,
		     last_updated = excluded.last_updated`,
		score.UserID, score.Score, score.TotalContributions,
		score.OnTimePayments, score.LatePayments, score.MissedPayments,
		score.AverageDelayDays, score.LastUpdated,
	)
	if err != nil {
		return fmt.Errorf("failed to put reliability score: %w", err)
	}
	return nil
}
