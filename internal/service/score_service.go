package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mmynk/rosca/internal/calculator"
	"github.com/mmynk/rosca/internal/models"
	"github.com/mmynk/rosca/internal/storage"
)

// ScoreService owns the per-user reliability record and its scoring
// formula. The score gates group admission and decides rotation
// priority, closing the loop between payment behavior and future group
// access.
type ScoreService struct {
	store storage.Store
}

// NewScoreService creates a ScoreService with the given storage backend.
func NewScoreService(store storage.Store) *ScoreService {
	return &ScoreService{store: store}
}

// GetOrCreate returns the user's reliability record, creating the
// pristine 100-score record on first read.
func (s *ScoreService) GetOrCreate(ctx context.Context, userID string) (*models.ReliabilityScore, error) {
	score, err := s.store.GetScore(ctx, userID)
	if err == nil {
		return score, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	score = &models.ReliabilityScore{
		UserID:      userID,
		Score:       100,
		LastUpdated: time.Now().Unix(),
	}
	if err := s.store.PutScore(ctx, score); err != nil {
		return nil, fmt.Errorf("failed to create reliability score: %w", err)
	}

	slog.Debug("Reliability score created", "user_id", userID)
	return score, nil
}

// ApplyContribution folds one settled contribution into the
// contributor's score. Called exactly once per contribution, at the
// moment it transitions to paid or missed; other statuses are ignored.
func (s *ScoreService) ApplyContribution(ctx context.Context, c *models.Contribution) (*models.ReliabilityScore, error) {
	score, err := s.GetOrCreate(ctx, c.ContributorID)
	if err != nil {
		return nil, err
	}

	switch c.Status {
	case models.ContributionStatusPaid:
		score.TotalContributions++
		if c.DelayDays == 0 {
			score.OnTimePayments++
		} else {
			score.LatePayments++
		}
	case models.ContributionStatusMissed:
		score.TotalContributions++
		score.MissedPayments++
	default:
		return score, nil
	}

	avg, err := s.averagePaidDelay(ctx, c.ContributorID)
	if err != nil {
		return nil, err
	}
	score.AverageDelayDays = avg

	s.finalize(score)
	if err := s.store.PutScore(ctx, score); err != nil {
		return nil, fmt.Errorf("failed to persist reliability score: %w", err)
	}

	slog.Info("Reliability score updated",
		"user_id", c.ContributorID,
		"score", score.Score,
		"total", score.TotalContributions,
	)
	return score, nil
}

// Recompute rebuilds all counters and the score from the user's complete
// contribution history. Used for repair and backfill; produces results
// identical to the incremental path for the same history.
func (s *ScoreService) Recompute(ctx context.Context, userID string) (*models.ReliabilityScore, error) {
	score, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	contributions, err := s.store.ListUserContributions(ctx, userID)
	if err != nil {
		return nil, err
	}

	score.TotalContributions = 0
	score.OnTimePayments = 0
	score.LatePayments = 0
	score.MissedPayments = 0

	var delays []int
	for _, c := range contributions {
		switch c.Status {
		case models.ContributionStatusPaid:
			score.TotalContributions++
			if c.DelayDays == 0 {
				score.OnTimePayments++
			} else {
				score.LatePayments++
			}
			delays = append(delays, c.DelayDays)
		case models.ContributionStatusMissed:
			score.TotalContributions++
			score.MissedPayments++
		}
	}
	score.AverageDelayDays = calculator.AverageDelay(delays)

	s.finalize(score)
	if err := s.store.PutScore(ctx, score); err != nil {
		return nil, fmt.Errorf("failed to persist recomputed score: %w", err)
	}

	slog.Info("Reliability score recomputed", "user_id", userID, "score", score.Score)
	return score, nil
}

// averagePaidDelay is the mean delay over all of the user's paid
// contributions, including the one just persisted.
func (s *ScoreService) averagePaidDelay(ctx context.Context, userID string) (float64, error) {
	contributions, err := s.store.ListUserContributions(ctx, userID)
	if err != nil {
		return 0, err
	}

	var delays []int
	for _, c := range contributions {
		if c.Status == models.ContributionStatusPaid {
			delays = append(delays, c.DelayDays)
		}
	}
	return calculator.AverageDelay(delays), nil
}

func (s *ScoreService) finalize(score *models.ReliabilityScore) {
	score.Score = calculator.Score(calculator.ScoreCounters{
		TotalContributions: score.TotalContributions,
		OnTimePayments:     score.OnTimePayments,
		LatePayments:       score.LatePayments,
		MissedPayments:     score.MissedPayments,
		AverageDelayDays:   score.AverageDelayDays,
	})
	score.LastUpdated = time.Now().Unix()
}
