package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/mmynk/rosca/internal/metrics"
	"github.com/mmynk/rosca/internal/models"
	"github.com/mmynk/rosca/internal/storage"
)

// RoundEngine decides, after each payment, whether a round is complete,
// and either advances the rotation or closes out the group.
//
// Per round the logical states are Open (contributions outstanding),
// Closed (all paid), then Advanced (next round opened) or GroupCompleted
// (rotation exhausted).
type RoundEngine struct {
	store   storage.Store
	payouts *PayoutCalculator
}

// NewRoundEngine creates a RoundEngine with the given storage backend
// and payout calculator.
func NewRoundEngine(store storage.Store, payouts *PayoutCalculator) *RoundEngine {
	return &RoundEngine{store: store, payouts: payouts}
}

// CheckRoundCompletion closes the group's current round if every
// contribution is paid: the beneficiary's turn is marked taken, the
// payout is recorded (idempotently), and the rotation advances to the
// next member, or the group completes when no member remains.
//
// Safe to call concurrently and to replay: the payout's (group, round)
// uniqueness and the group's version check guarantee at most one
// advance per round. A caller that loses the version race retries until
// the re-read settles it: each conflict means another writer advanced
// the group, so the next read exits through the not-active or
// round-incomplete checks.
func (e *RoundEngine) CheckRoundCompletion(ctx context.Context, groupID string) error {
	for {
		group, err := e.store.GetGroup(ctx, groupID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return ErrNotFound
			}
			return err
		}
		if group.Status != models.GroupStatusActive {
			// Completed or cancelled groups never advance again.
			return nil
		}

		contributions, err := e.store.ListRoundContributions(ctx, groupID, group.CurrentRound)
		if err != nil {
			return err
		}

		paid := 0
		for _, c := range contributions {
			if c.Status == models.ContributionStatusPaid {
				paid++
			}
		}
		if len(contributions) == 0 || paid < len(group.Members) {
			// Round stays Open.
			return nil
		}

		closedRound := group.CurrentRound
		now := time.Now()

		beneficiary := group.Member(group.CurrentBeneficiaryID)
		if beneficiary != nil {
			beneficiary.HasTakenTurn = true
			beneficiary.TurnTakenAt = now.Unix()
		}

		if _, err := e.payouts.ComputeAndRecord(ctx, group, closedRound); err != nil {
			return err
		}

		var batch []*models.Contribution
		if next := group.NextBeneficiary(); next != nil {
			group.CurrentRound++
			group.CurrentBeneficiaryID = next.UserID
			batch = buildRoundContributions(group, now)
		} else {
			group.Status = models.GroupStatusCompleted
			group.CurrentBeneficiaryID = ""
		}

		err = e.store.CloseRound(ctx, group, batch)
		if errors.Is(err, storage.ErrVersionConflict) {
			// Another payment confirmation advanced the round first;
			// re-read and discover there is nothing left to do.
			slog.Debug("Round advance lost version race, retrying",
				"group_id", groupID, "round", closedRound)
			continue
		}
		if errors.Is(err, storage.ErrDuplicate) {
			// Next round's batch already exists: the round was advanced
			// by a replayed trigger between our read and write.
			return nil
		}
		if err != nil {
			return err
		}

		if group.Status == models.GroupStatusCompleted {
			metrics.GroupsCompleted.Inc()
			slog.Info("Group completed", "group_id", groupID, "rounds", closedRound)
		} else {
			metrics.RoundsAdvanced.Inc()
			slog.Info("Round advanced",
				"group_id", groupID,
				"closed_round", closedRound,
				"next_round", group.CurrentRound,
				"next_beneficiary", group.CurrentBeneficiaryID,
			)
		}
		return nil
	}
}
