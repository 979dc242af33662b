package service

import (
	"context"
	"testing"
	"time"

	"github.com/mmynk/rosca/internal/models"
)

func TestGetOrCreateScore(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	score, err := env.scores.GetOrCreate(ctx, "fresh-user")
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	if score.Score != 100 {
		t.Errorf("expected pristine score 100, got %v", score.Score)
	}
	if score.TotalContributions != 0 {
		t.Errorf("expected empty history, got %+v", score)
	}

	// Second read returns the stored record, not a new one.
	again, err := env.scores.GetOrCreate(ctx, "fresh-user")
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	if again.UserID != score.UserID || again.Score != 100 {
		t.Errorf("expected same record, got %+v", again)
	}
}

// seedHistory inserts a settled contribution and folds it into the score,
// the way payments and sweeps do in production.
func seedHistory(t *testing.T, env *testEnv, groupID, userID string, round int, status models.ContributionStatus, delayDays int) {
	t.Helper()
	ctx := context.Background()

	now := time.Now().Unix()
	c := &models.Contribution{
		GroupID:       groupID,
		Round:         round,
		ContributorID: userID,
		BeneficiaryID: userID,
		Amount:        100,
		DueDate:       now,
		Status:        status,
		DelayDays:     delayDays,
	}
	if status == models.ContributionStatusPaid {
		c.PaidDate = now
	}
	if err := env.store.CreateContributions(ctx, []*models.Contribution{c}); err != nil {
		t.Fatalf("CreateContributions failed: %v", err)
	}
	if _, err := env.scores.ApplyContribution(ctx, c); err != nil {
		t.Fatalf("ApplyContribution failed: %v", err)
	}
}

func TestScoreFormulaOverHistory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner := env.createUser(t, "owner@example.com")
	user := env.createUser(t, "scored@example.com")
	group, err := env.groups.CreateGroup(ctx, owner.ID, defaultParams())
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}

	// 10 payments: 6 on time, 4 late averaging 1 delay day overall.
	round := 1
	for i := 0; i < 6; i++ {
		seedHistory(t, env, group.ID, user.ID, round, models.ContributionStatusPaid, 0)
		round++
	}
	for _, delay := range []int{2, 3, 2, 3} {
		seedHistory(t, env, group.ID, user.ID, round, models.ContributionStatusPaid, delay)
		round++
	}

	score, err := env.scores.GetOrCreate(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	if score.TotalContributions != 10 || score.OnTimePayments != 6 || score.LatePayments != 4 {
		t.Fatalf("unexpected counters: %+v", score)
	}
	if score.AverageDelayDays != 1 {
		t.Errorf("expected average delay 1, got %v", score.AverageDelayDays)
	}
	// 100 - 20*(4/10) - 2*1 = 90.
	if score.Score != 90 {
		t.Errorf("expected score 90, got %v", score.Score)
	}
}

func TestRecomputeMatchesIncremental(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner := env.createUser(t, "owner@example.com")
	user := env.createUser(t, "mixed@example.com")
	group, err := env.groups.CreateGroup(ctx, owner.ID, defaultParams())
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}

	history := []struct {
		status models.ContributionStatus
		delay  int
	}{
		{models.ContributionStatusPaid, 0},
		{models.ContributionStatusPaid, 4},
		{models.ContributionStatusMissed, 0},
		{models.ContributionStatusPaid, 0},
		{models.ContributionStatusPaid, 2},
		{models.ContributionStatusMissed, 0},
		{models.ContributionStatusPaid, 0},
	}
	for i, h := range history {
		seedHistory(t, env, group.ID, user.ID, i+1, h.status, h.delay)
	}

	incremental, err := env.scores.GetOrCreate(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}

	recomputed, err := env.scores.Recompute(ctx, user.ID)
	if err != nil {
		t.Fatalf("Recompute failed: %v", err)
	}

	if recomputed.Score != incremental.Score {
		t.Errorf("score diverged: incremental %v, recomputed %v", incremental.Score, recomputed.Score)
	}
	if recomputed.TotalContributions != incremental.TotalContributions ||
		recomputed.OnTimePayments != incremental.OnTimePayments ||
		recomputed.LatePayments != incremental.LatePayments ||
		recomputed.MissedPayments != incremental.MissedPayments ||
		recomputed.AverageDelayDays != incremental.AverageDelayDays {
		t.Errorf("counters diverged: incremental %+v, recomputed %+v", incremental, recomputed)
	}
}

// Pending and late contributions are not scored: only settlement moves
// the counters.
func TestUnsettledContributionsAreNotScored(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.createUser(t, "pending@example.com")
	c := &models.Contribution{
		ID:            "c-1",
		GroupID:       "g-1",
		Round:         1,
		ContributorID: user.ID,
		Status:        models.ContributionStatusPending,
	}

	score, err := env.scores.ApplyContribution(ctx, c)
	if err != nil {
		t.Fatalf("ApplyContribution failed: %v", err)
	}
	if score.TotalContributions != 0 || score.Score != 100 {
		t.Errorf("expected pending to be a no-op, got %+v", score)
	}

	c.Status = models.ContributionStatusLate
	score, err = env.scores.ApplyContribution(ctx, c)
	if err != nil {
		t.Fatalf("ApplyContribution failed: %v", err)
	}
	if score.TotalContributions != 0 || score.Score != 100 {
		t.Errorf("expected late to be a no-op, got %+v", score)
	}
}
