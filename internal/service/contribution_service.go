package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mmynk/rosca/internal/calculator"
	"github.com/mmynk/rosca/internal/metrics"
	"github.com/mmynk/rosca/internal/models"
	"github.com/mmynk/rosca/internal/storage"
)

// DefaultGraceDays is how long a late contribution stays payable before
// the sweep resolves it into missed.
const DefaultGraceDays = 30

// ContributionService generates per-round contribution obligations and
// records payments against them.
type ContributionService struct {
	store     storage.Store
	scores    *ScoreService
	engine    *RoundEngine
	graceDays int
}

// NewContributionService creates a ContributionService. graceDays <= 0
// selects the default grace period for the late-to-missed sweep.
func NewContributionService(store storage.Store, scores *ScoreService, engine *RoundEngine, graceDays int) *ContributionService {
	if graceDays <= 0 {
		graceDays = DefaultGraceDays
	}
	return &ContributionService{
		store:     store,
		scores:    scores,
		engine:    engine,
		graceDays: graceDays,
	}
}

// buildRoundContributions creates the obligation batch for the group's
// current round: one pending contribution per member, due one period
// from now, with the beneficiary snapshotted.
func buildRoundContributions(group *models.Group, now time.Time) []*models.Contribution {
	due := roundDueDate(group, now)

	contributions := make([]*models.Contribution, len(group.Members))
	for i := range group.Members {
		contributions[i] = &models.Contribution{
			GroupID:       group.ID,
			Round:         group.CurrentRound,
			ContributorID: group.Members[i].UserID,
			BeneficiaryID: group.CurrentBeneficiaryID,
			Amount:        group.ContributionAmount,
			DueDate:       due,
			Status:        models.ContributionStatusPending,
			CreatedAt:     now.Unix(),
		}
	}
	return contributions
}

// roundDueDate is one period from now, per the group's frequency.
func roundDueDate(group *models.Group, now time.Time) int64 {
	switch group.Frequency {
	case models.FrequencyWeekly:
		return now.AddDate(0, 0, 7).Unix()
	case models.FrequencyCustom:
		return now.AddDate(0, 0, group.PeriodDays).Unix()
	default:
		return now.AddDate(0, 1, 0).Unix()
	}
}

// OpenRound creates the contribution batch for the group's current
// round. Guarded by the (group, contributor, round) uniqueness
// invariant: calling it twice for the same round creates nothing and
// returns ErrDuplicateRound.
func (s *ContributionService) OpenRound(ctx context.Context, group *models.Group) error {
	if group.Status != models.GroupStatusActive {
		return fmt.Errorf("%w: group is not active", ErrInvalidState)
	}

	err := s.store.CreateContributions(ctx, buildRoundContributions(group, time.Now()))
	if err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return ErrDuplicateRound
		}
		return err
	}

	slog.Info("Round opened", "group_id", group.ID, "round", group.CurrentRound)
	return nil
}

// RecordPayment settles the caller's contribution for the group's
// current round, then feeds the payment into the reliability score and
// checks whether the round is complete.
//
// Double submission by the same contributor is safe: a sequential
// repeat finds no open contribution, and a concurrent one loses the
// status-guarded settlement write. Either way the duplicate gets
// ErrNotFound and the payment is scored once.
func (s *ContributionService) RecordPayment(ctx context.Context, groupID, contributorID string, amount float64, proofRef, notes string) (*models.Contribution, error) {
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("group %s: %w", groupID, ErrNotFound)
		}
		return nil, err
	}
	if group.Status.Terminal() {
		return nil, fmt.Errorf("%w: group is %s", ErrInvalidState, group.Status)
	}

	contribution, err := s.store.GetOpenContribution(ctx, groupID, contributorID, group.CurrentRound)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("no payable contribution this round: %w", ErrNotFound)
		}
		return nil, err
	}

	if amount != contribution.Amount {
		return nil, fmt.Errorf("%w: expected %.2f", ErrAmountMismatch, contribution.Amount)
	}

	now := time.Now().Unix()
	contribution.Status = models.ContributionStatusPaid
	contribution.PaidDate = now
	contribution.DelayDays = calculator.DelayDays(now, contribution.DueDate)
	contribution.PaymentProof = proofRef
	contribution.Notes = notes

	settled, err := s.store.SettleContribution(ctx, contribution)
	if err != nil {
		return nil, err
	}
	if !settled {
		// A concurrent submission settled this contribution between our
		// read and write; that call owns the scoring.
		return nil, fmt.Errorf("no payable contribution this round: %w", ErrNotFound)
	}
	metrics.PaymentsRecorded.Inc()

	slog.Info("Payment recorded",
		"group_id", groupID,
		"contributor_id", contributorID,
		"round", contribution.Round,
		"delay_days", contribution.DelayDays,
	)

	// Scoring first, then round completion, both derived from the
	// persisted contribution. A crash between these steps leaves state
	// that Recompute and CheckRoundCompletion re-derive safely.
	if _, err := s.scores.ApplyContribution(ctx, contribution); err != nil {
		return nil, err
	}
	if err := s.engine.CheckRoundCompletion(ctx, groupID); err != nil {
		return nil, err
	}

	return contribution, nil
}

// RescheduleDueDate moves an open contribution's due date, e.g. when the
// owner grants a member an extension. Owner only; the contribution must
// still be payable this round. A late contribution keeps its late status
// until the member pays or the sweep resolves it.
func (s *ContributionService) RescheduleDueDate(ctx context.Context, groupID, callerID, contributorID string, due int64) (*models.Contribution, error) {
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("group %s: %w", groupID, ErrNotFound)
		}
		return nil, err
	}
	if group.OwnerID != callerID {
		return nil, ErrNotAuthorized
	}
	if group.Status != models.GroupStatusActive {
		return nil, fmt.Errorf("%w: group is not active", ErrInvalidState)
	}
	if due <= 0 {
		return nil, fmt.Errorf("%w: due date is required", ErrValidation)
	}

	contribution, err := s.store.GetOpenContribution(ctx, groupID, contributorID, group.CurrentRound)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("no payable contribution this round: %w", ErrNotFound)
		}
		return nil, err
	}

	if err := s.store.SetContributionDueDate(ctx, contribution.ID, due); err != nil {
		return nil, err
	}
	contribution.DueDate = due

	slog.Info("Contribution due date rescheduled",
		"group_id", groupID,
		"contributor_id", contributorID,
		"round", contribution.Round,
		"due_date", due,
	)
	return contribution, nil
}

// MarkOverdue is the externally scheduled sweep: pending contributions
// past due become late, and late contributions past the grace period are
// resolved into missed and scored. Both passes are idempotent.
func (s *ContributionService) MarkOverdue(ctx context.Context) (late int64, missed int, err error) {
	now := time.Now()

	late, err = s.store.MarkOverdue(ctx, now.Unix())
	if err != nil {
		return 0, 0, err
	}
	metrics.ContributionsMarkedLate.Add(float64(late))

	cutoff := now.AddDate(0, 0, -s.graceDays).Unix()
	lapsed, err := s.store.ListLapsed(ctx, cutoff)
	if err != nil {
		return late, 0, err
	}

	for _, c := range lapsed {
		resolved, err := s.store.ResolveMissed(ctx, c.ID)
		if err != nil {
			return late, missed, err
		}
		if !resolved {
			// Paid or already resolved since the sweep listed it.
			continue
		}

		c.Status = models.ContributionStatusMissed
		if _, err := s.scores.ApplyContribution(ctx, c); err != nil {
			return late, missed, err
		}
		missed++
		metrics.ContributionsMarkedMissed.Inc()
	}

	if late > 0 || missed > 0 {
		slog.Info("Overdue sweep finished", "marked_late", late, "resolved_missed", missed)
	}
	return late, missed, nil
}

// ListGroupContributions retrieves a group's full contribution history,
// newest round first.
func (s *ContributionService) ListGroupContributions(ctx context.Context, groupID string) ([]*models.Contribution, error) {
	if _, err := s.store.GetGroup(ctx, groupID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("group %s: %w", groupID, ErrNotFound)
		}
		return nil, err
	}
	return s.store.ListGroupContributions(ctx, groupID)
}

// ListUserContributions retrieves every contribution owed by the user,
// newest first.
func (s *ContributionService) ListUserContributions(ctx context.Context, userID string) ([]*models.Contribution, error) {
	return s.store.ListUserContributions(ctx, userID)
}
