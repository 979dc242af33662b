package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mmynk/rosca/internal/models"
	"github.com/mmynk/rosca/internal/storage"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func createTestUser(t *testing.T, store *SQLiteStore, email string) *models.User {
	t.Helper()

	user := models.NewUser(email, "Test User", "hash")
	if err := store.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	return user
}

func createTestGroup(t *testing.T, store *SQLiteStore, ownerID string, memberIDs ...string) *models.Group {
	t.Helper()

	group := &models.Group{
		Name:                "Village Circle",
		OwnerID:             ownerID,
		ContributionAmount:  100,
		Frequency:           models.FrequencyMonthly,
		MaxMembers:          10,
		MinReliabilityScore: 50,
		Status:              models.GroupStatusPending,
	}
	now := time.Now().Unix()
	for i, id := range append([]string{ownerID}, memberIDs...) {
		group.Members = append(group.Members, models.Membership{
			UserID:    id,
			TurnOrder: i + 1,
			JoinedAt:  now,
		})
	}
	if err := store.CreateGroup(context.Background(), group); err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	return group
}

func TestUserStore(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("create and retrieve", func(t *testing.T) {
		user := createTestUser(t, store, "amina@example.com")
		if user.ID == "" {
			t.Fatal("Expected user ID to be generated")
		}

		byEmail, err := store.GetUserByEmail(ctx, "amina@example.com")
		if err != nil {
			t.Fatalf("GetUserByEmail failed: %v", err)
		}
		if byEmail.ID != user.ID {
			t.Errorf("Expected ID %s, got %s", user.ID, byEmail.ID)
		}

		byID, err := store.GetUserByID(ctx, user.ID)
		if err != nil {
			t.Fatalf("GetUserByID failed: %v", err)
		}
		if byID.Email != user.Email {
			t.Errorf("Expected email %s, got %s", user.Email, byID.Email)
		}
		if byID.IdentityVerified {
			t.Error("Expected new user to be unverified")
		}
	})

	t.Run("duplicate email", func(t *testing.T) {
		createTestUser(t, store, "dupe@example.com")
		err := store.CreateUser(ctx, models.NewUser("dupe@example.com", "Someone Else", "hash"))
		if !errors.Is(err, storage.ErrDuplicate) {
			t.Errorf("Expected ErrDuplicate, got %v", err)
		}
	})

	t.Run("missing user", func(t *testing.T) {
		_, err := store.GetUserByEmail(ctx, "nobody@example.com")
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("set verified", func(t *testing.T) {
		user := createTestUser(t, store, "verify@example.com")
		if err := store.SetUserVerified(ctx, user.ID, true); err != nil {
			t.Fatalf("SetUserVerified failed: %v", err)
		}
		got, err := store.GetUserByID(ctx, user.ID)
		if err != nil {
			t.Fatalf("GetUserByID failed: %v", err)
		}
		if !got.IdentityVerified {
			t.Error("Expected user to be verified")
		}

		err = store.SetUserVerified(ctx, "missing-id", true)
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})
}

func TestGroupStore(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("create and retrieve with members", func(t *testing.T) {
		owner := createTestUser(t, store, "owner@example.com")
		group := createTestGroup(t, store, owner.ID)

		got, err := store.GetGroup(ctx, group.ID)
		if err != nil {
			t.Fatalf("GetGroup failed: %v", err)
		}
		if got.Name != "Village Circle" {
			t.Errorf("Expected name %q, got %q", "Village Circle", got.Name)
		}
		if got.Version != 1 {
			t.Errorf("Expected version 1, got %d", got.Version)
		}
		if len(got.Members) != 1 || got.Members[0].UserID != owner.ID {
			t.Errorf("Expected single owner membership, got %+v", got.Members)
		}
	})

	t.Run("list by member excludes cancelled", func(t *testing.T) {
		owner := createTestUser(t, store, "lister@example.com")
		active := createTestGroup(t, store, owner.ID)
		cancelled := createTestGroup(t, store, owner.ID)

		cancelled.Status = models.GroupStatusCancelled
		if err := store.SetGroupStatus(ctx, cancelled); err != nil {
			t.Fatalf("SetGroupStatus failed: %v", err)
		}

		groups, err := store.ListGroupsByMember(ctx, owner.ID)
		if err != nil {
			t.Fatalf("ListGroupsByMember failed: %v", err)
		}
		if len(groups) != 1 {
			t.Fatalf("Expected 1 group, got %d", len(groups))
		}
		if groups[0].ID != active.ID {
			t.Errorf("Expected group %s, got %s", active.ID, groups[0].ID)
		}
	})

	t.Run("duplicate membership", func(t *testing.T) {
		owner := createTestUser(t, store, "member-dupe@example.com")
		group := createTestGroup(t, store, owner.ID)

		err := store.AddGroupMember(ctx, &models.Membership{
			GroupID: group.ID, UserID: owner.ID, TurnOrder: 2,
		})
		if !errors.Is(err, storage.ErrDuplicate) {
			t.Errorf("Expected ErrDuplicate, got %v", err)
		}
	})

	t.Run("version conflict on stale write", func(t *testing.T) {
		owner := createTestUser(t, store, "stale@example.com")
		group := createTestGroup(t, store, owner.ID)

		fresh, err := store.GetGroup(ctx, group.ID)
		if err != nil {
			t.Fatalf("GetGroup failed: %v", err)
		}
		stale, err := store.GetGroup(ctx, group.ID)
		if err != nil {
			t.Fatalf("GetGroup failed: %v", err)
		}

		fresh.Status = models.GroupStatusActive
		if err := store.SetGroupStatus(ctx, fresh); err != nil {
			t.Fatalf("SetGroupStatus failed: %v", err)
		}

		stale.Status = models.GroupStatusCancelled
		err = store.SetGroupStatus(ctx, stale)
		if !errors.Is(err, storage.ErrVersionConflict) {
			t.Errorf("Expected ErrVersionConflict, got %v", err)
		}

		got, err := store.GetGroup(ctx, group.ID)
		if err != nil {
			t.Fatalf("GetGroup failed: %v", err)
		}
		if got.Status != models.GroupStatusActive {
			t.Errorf("Expected status active to survive, got %s", got.Status)
		}
	})

	t.Run("versioned write on missing group", func(t *testing.T) {
		err := store.SetGroupStatus(ctx, &models.Group{ID: "missing", Status: models.GroupStatusActive, Version: 1})
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("start writes group, turns, and batch atomically", func(t *testing.T) {
		owner := createTestUser(t, store, "starter@example.com")
		peer := createTestUser(t, store, "peer@example.com")
		group := createTestGroup(t, store, owner.ID, peer.ID)

		group.Status = models.GroupStatusActive
		group.CurrentRound = 1
		group.CurrentBeneficiaryID = peer.ID
		group.StartDate = time.Now().Unix()
		group.Members[0].TurnOrder = 2
		group.Members[1].TurnOrder = 1

		batch := []*models.Contribution{
			{GroupID: group.ID, Round: 1, ContributorID: owner.ID, BeneficiaryID: peer.ID, Amount: 100, DueDate: time.Now().Unix(), Status: models.ContributionStatusPending},
			{GroupID: group.ID, Round: 1, ContributorID: peer.ID, BeneficiaryID: peer.ID, Amount: 100, DueDate: time.Now().Unix(), Status: models.ContributionStatusPending},
		}
		if err := store.StartGroup(ctx, group, batch); err != nil {
			t.Fatalf("StartGroup failed: %v", err)
		}

		got, err := store.GetGroup(ctx, group.ID)
		if err != nil {
			t.Fatalf("GetGroup failed: %v", err)
		}
		if got.Status != models.GroupStatusActive || got.CurrentRound != 1 {
			t.Errorf("Expected active round 1, got %s round %d", got.Status, got.CurrentRound)
		}
		if got.CurrentBeneficiaryID != peer.ID {
			t.Errorf("Expected beneficiary %s, got %s", peer.ID, got.CurrentBeneficiaryID)
		}
		// Members come back ordered by turn order: peer first.
		if got.Members[0].UserID != peer.ID {
			t.Errorf("Expected reordered members, got %+v", got.Members)
		}

		contributions, err := store.ListRoundContributions(ctx, group.ID, 1)
		if err != nil {
			t.Fatalf("ListRoundContributions failed: %v", err)
		}
		if len(contributions) != 2 {
			t.Errorf("Expected 2 contributions, got %d", len(contributions))
		}
	})
}

func TestContributionStore(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	owner := createTestUser(t, store, "contrib-owner@example.com")
	peer := createTestUser(t, store, "contrib-peer@example.com")
	group := createTestGroup(t, store, owner.ID, peer.ID)

	// The sweep only touches active groups.
	group.Status = models.GroupStatusActive
	if err := store.SetGroupStatus(ctx, group); err != nil {
		t.Fatalf("SetGroupStatus failed: %v", err)
	}

	now := time.Now().Unix()
	batch := func(round int, due int64) []*models.Contribution {
		return []*models.Contribution{
			{GroupID: group.ID, Round: round, ContributorID: owner.ID, BeneficiaryID: owner.ID, Amount: 100, DueDate: due, Status: models.ContributionStatusPending},
			{GroupID: group.ID, Round: round, ContributorID: peer.ID, BeneficiaryID: owner.ID, Amount: 100, DueDate: due, Status: models.ContributionStatusPending},
		}
	}

	t.Run("batch create and duplicate guard", func(t *testing.T) {
		if err := store.CreateContributions(ctx, batch(1, now+3600)); err != nil {
			t.Fatalf("CreateContributions failed: %v", err)
		}

		err := store.CreateContributions(ctx, batch(1, now+3600))
		if !errors.Is(err, storage.ErrDuplicate) {
			t.Errorf("Expected ErrDuplicate for repeated round, got %v", err)
		}

		contributions, err := store.ListRoundContributions(ctx, group.ID, 1)
		if err != nil {
			t.Fatalf("ListRoundContributions failed: %v", err)
		}
		if len(contributions) != 2 {
			t.Errorf("Expected exactly 2 contributions after replay, got %d", len(contributions))
		}
	})

	t.Run("settlement lookup and write", func(t *testing.T) {
		c, err := store.GetOpenContribution(ctx, group.ID, owner.ID, 1)
		if err != nil {
			t.Fatalf("GetOpenContribution failed: %v", err)
		}

		c.Status = models.ContributionStatusPaid
		c.PaidDate = now
		c.PaymentProof = "receipt-42"
		settled, err := store.SettleContribution(ctx, c)
		if err != nil {
			t.Fatalf("SettleContribution failed: %v", err)
		}
		if !settled {
			t.Fatal("Expected first settlement to succeed")
		}

		_, err = store.GetOpenContribution(ctx, group.ID, owner.ID, 1)
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected ErrNotFound after payment, got %v", err)
		}

		// Racing duplicates hit the status guard and write nothing.
		settled, err = store.SettleContribution(ctx, c)
		if err != nil {
			t.Fatalf("SettleContribution replay failed: %v", err)
		}
		if settled {
			t.Error("Expected repeated settlement to be a no-op")
		}

		contributions, err := store.ListUserContributions(ctx, owner.ID)
		if err != nil {
			t.Fatalf("ListUserContributions failed: %v", err)
		}
		if len(contributions) != 1 || contributions[0].PaymentProof != "receipt-42" {
			t.Errorf("Expected paid contribution with proof, got %+v", contributions)
		}
	})

	t.Run("overdue sweep is idempotent", func(t *testing.T) {
		sweepTime := now + 7200

		n, err := store.MarkOverdue(ctx, sweepTime)
		if err != nil {
			t.Fatalf("MarkOverdue failed: %v", err)
		}
		if n != 1 {
			t.Fatalf("Expected 1 contribution marked late, got %d", n)
		}

		n, err = store.MarkOverdue(ctx, sweepTime)
		if err != nil {
			t.Fatalf("MarkOverdue failed: %v", err)
		}
		if n != 0 {
			t.Errorf("Expected repeated sweep to mark 0, got %d", n)
		}

		// A late contribution is still payable.
		c, err := store.GetOpenContribution(ctx, group.ID, peer.ID, 1)
		if err != nil {
			t.Fatalf("GetOpenContribution failed: %v", err)
		}
		if c.Status != models.ContributionStatusLate {
			t.Errorf("Expected status late, got %s", c.Status)
		}
	})

	t.Run("resolve missed at most once", func(t *testing.T) {
		lapsed, err := store.ListLapsed(ctx, now+7200)
		if err != nil {
			t.Fatalf("ListLapsed failed: %v", err)
		}
		if len(lapsed) != 1 {
			t.Fatalf("Expected 1 lapsed contribution, got %d", len(lapsed))
		}

		resolved, err := store.ResolveMissed(ctx, lapsed[0].ID)
		if err != nil {
			t.Fatalf("ResolveMissed failed: %v", err)
		}
		if !resolved {
			t.Fatal("Expected first resolve to succeed")
		}

		resolved, err = store.ResolveMissed(ctx, lapsed[0].ID)
		if err != nil {
			t.Fatalf("ResolveMissed failed: %v", err)
		}
		if resolved {
			t.Error("Expected repeated resolve to be a no-op")
		}
	})
}

// Terminal groups keep their contributions frozen: the sweep queries
// must not see them.
func TestSweepScopedToActiveGroups(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	owner := createTestUser(t, store, "frozen-owner@example.com")
	peer := createTestUser(t, store, "frozen-peer@example.com")
	group := createTestGroup(t, store, owner.ID, peer.ID)

	group.Status = models.GroupStatusCancelled
	if err := store.SetGroupStatus(ctx, group); err != nil {
		t.Fatalf("SetGroupStatus failed: %v", err)
	}

	past := time.Now().AddDate(0, 0, -5).Unix()
	batch := []*models.Contribution{
		{GroupID: group.ID, Round: 1, ContributorID: owner.ID, BeneficiaryID: owner.ID, Amount: 100, DueDate: past, Status: models.ContributionStatusPending},
		{GroupID: group.ID, Round: 1, ContributorID: peer.ID, BeneficiaryID: owner.ID, Amount: 100, DueDate: past, Status: models.ContributionStatusLate},
	}
	if err := store.CreateContributions(ctx, batch); err != nil {
		t.Fatalf("CreateContributions failed: %v", err)
	}

	n, err := store.MarkOverdue(ctx, time.Now().Unix())
	if err != nil {
		t.Fatalf("MarkOverdue failed: %v", err)
	}
	if n != 0 {
		t.Errorf("Expected sweep to skip cancelled group, marked %d", n)
	}

	lapsed, err := store.ListLapsed(ctx, time.Now().Unix())
	if err != nil {
		t.Fatalf("ListLapsed failed: %v", err)
	}
	if len(lapsed) != 0 {
		t.Errorf("Expected no lapsed candidates, got %d", len(lapsed))
	}

	contributions, err := store.ListRoundContributions(ctx, group.ID, 1)
	if err != nil {
		t.Fatalf("ListRoundContributions failed: %v", err)
	}
	for _, c := range contributions {
		if c.ContributorID == owner.ID && c.Status != models.ContributionStatusPending {
			t.Errorf("Expected pending to survive, got %s", c.Status)
		}
	}
}

func TestPayoutStore(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	owner := createTestUser(t, store, "payout-owner@example.com")
	group := createTestGroup(t, store, owner.ID)

	payout := &models.Payout{
		GroupID:     group.ID,
		Round:       1,
		RecipientID: owner.ID,
		Amount:      300,
	}

	stored, created, err := store.CreatePayout(ctx, payout)
	if err != nil {
		t.Fatalf("CreatePayout failed: %v", err)
	}
	if !created {
		t.Fatal("Expected first payout to be created")
	}
	if stored.ID == "" || stored.DistributedAt == 0 {
		t.Errorf("Expected ID and timestamp to be set, got %+v", stored)
	}

	// A racing replay of the same round returns the stored payout.
	replay, created, err := store.CreatePayout(ctx, &models.Payout{
		GroupID: group.ID, Round: 1, RecipientID: owner.ID, Amount: 300,
	})
	if err != nil {
		t.Fatalf("CreatePayout replay failed: %v", err)
	}
	if created {
		t.Error("Expected replay to not create a second payout")
	}
	if replay.ID != stored.ID {
		t.Errorf("Expected replay to return payout %s, got %s", stored.ID, replay.ID)
	}

	payouts, err := store.ListGroupPayouts(ctx, group.ID)
	if err != nil {
		t.Fatalf("ListGroupPayouts failed: %v", err)
	}
	if len(payouts) != 1 {
		t.Errorf("Expected exactly 1 payout, got %d", len(payouts))
	}
}

func TestScoreStore(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.GetScore(ctx, "unknown-user")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}

	score := &models.ReliabilityScore{
		UserID:             "user-1",
		Score:              90,
		TotalContributions: 10,
		OnTimePayments:     6,
		LatePayments:       4,
		AverageDelayDays:   1,
		LastUpdated:        time.Now().Unix(),
	}
	if err := store.PutScore(ctx, score); err != nil {
		t.Fatalf("PutScore failed: %v", err)
	}

	// Upsert overwrites in place.
	score.Score = 70
	score.MissedPayments = 1
	score.TotalContributions = 11
	if err := store.PutScore(ctx, score); err != nil {
		t.Fatalf("PutScore upsert failed: %v", err)
	}

	got, err := store.GetScore(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetScore failed: %v", err)
	}
	if got.Score != 70 || got.MissedPayments != 1 || got.TotalContributions != 11 {
		t.Errorf("Expected upserted counters, got %+v", got)
	}
}

// Keeps error wrapping honest when IDs appear in messages.
func TestErrorMessagesCarryIDs(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetGroup(context.Background(), "g-404")
	if err == nil || !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
	if !strings.Contains(err.Error(), "group g-404") {
		t.Errorf("Expected message to name the group, got %q", err.Error())
	}
}
