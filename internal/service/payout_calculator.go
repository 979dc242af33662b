package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/mmynk/rosca/internal/calculator"
	"github.com/mmynk/rosca/internal/metrics"
	"github.com/mmynk/rosca/internal/models"
	"github.com/mmynk/rosca/internal/storage"
)

// PayoutCalculator computes and idempotently records the pooled payout
// for a closed round.
type PayoutCalculator struct {
	store storage.Store
}

// NewPayoutCalculator creates a PayoutCalculator with the given storage
// backend.
func NewPayoutCalculator(store storage.Store) *PayoutCalculator {
	return &PayoutCalculator{store: store}
}

// ComputeAndRecord records the payout for the given round: amount is
// the contribution amount times the member count at close, recipient is
// the round's beneficiary. If a payout already exists for (group,
// round) the stored record is returned unchanged; this idempotency is
// the sole safety net against double payout when two racing payment
// confirmations both detect a complete round.
func (p *PayoutCalculator) ComputeAndRecord(ctx context.Context, group *models.Group, round int) (*models.Payout, error) {
	payout := &models.Payout{
		GroupID:       group.ID,
		Round:         round,
		RecipientID:   group.CurrentBeneficiaryID,
		Amount:        calculator.PayoutAmount(group.ContributionAmount, len(group.Members)),
		DistributedAt: time.Now().Unix(),
	}

	stored, created, err := p.store.CreatePayout(ctx, payout)
	if err != nil {
		return nil, err
	}

	if created {
		metrics.PayoutsCreated.Inc()
		slog.Info("Payout recorded",
			"group_id", group.ID,
			"round", round,
			"recipient_id", stored.RecipientID,
			"amount", stored.Amount,
		)
	}
	return stored, nil
}
