package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/mmynk/rosca/internal/models"
	"github.com/mmynk/rosca/internal/storage"
)

// DefaultMinReliabilityScore is the admission threshold applied when a
// group is created without one.
const DefaultMinReliabilityScore = 50

// GroupService creates groups, enforces the membership admission policy
// (capacity, score threshold, uniqueness) and starts groups.
type GroupService struct {
	store  storage.Store
	scores *ScoreService
}

// NewGroupService creates a GroupService with the given storage backend
// and score store.
func NewGroupService(store storage.Store, scores *ScoreService) *GroupService {
	return &GroupService{store: store, scores: scores}
}

// GroupParams is the validated creation/update payload for a group.
type GroupParams struct {
	Name               string           `json:"name"`
	ContributionAmount float64          `json:"contribution_amount"`
	Frequency          models.Frequency `json:"frequency"`
	// PeriodDays is required for custom frequency (1-90 days).
	PeriodDays int `json:"period_days"`
	MaxMembers int `json:"max_members"`
	// MinReliabilityScore of 0 selects the default threshold.
	MinReliabilityScore float64 `json:"min_reliability_score"`
}

func (p *GroupParams) validate() error {
	if p.Name == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if p.ContributionAmount <= 0 {
		return fmt.Errorf("%w: contribution amount must be positive", ErrValidation)
	}
	if p.MaxMembers < 2 || p.MaxMembers > 100 {
		return fmt.Errorf("%w: max members must be between 2 and 100", ErrValidation)
	}
	switch p.Frequency {
	case models.FrequencyWeekly, models.FrequencyMonthly:
		// period derives from the frequency
	case models.FrequencyCustom:
		if p.PeriodDays < 1 || p.PeriodDays > 90 {
			return fmt.Errorf("%w: custom frequency requires a period of 1-90 days", ErrValidation)
		}
	default:
		return fmt.Errorf("%w: unknown frequency %q", ErrValidation, p.Frequency)
	}
	if p.MinReliabilityScore < 0 || p.MinReliabilityScore > 100 {
		return fmt.Errorf("%w: min reliability score must be between 0 and 100", ErrValidation)
	}
	return nil
}

// CreateGroup creates a pending group with the owner as its sole member.
func (s *GroupService) CreateGroup(ctx context.Context, ownerID string, p GroupParams) (*models.Group, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	minScore := p.MinReliabilityScore
	if minScore == 0 {
		minScore = DefaultMinReliabilityScore
	}

	now := time.Now().Unix()
	group := &models.Group{
		Name:                p.Name,
		OwnerID:             ownerID,
		ContributionAmount:  p.ContributionAmount,
		Frequency:           p.Frequency,
		PeriodDays:          p.PeriodDays,
		MaxMembers:          p.MaxMembers,
		MinReliabilityScore: minScore,
		CurrentRound:        0,
		Status:              models.GroupStatusPending,
		Members: []models.Membership{{
			UserID:    ownerID,
			TurnOrder: 1,
			JoinedAt:  now,
		}},
		CreatedAt: now,
	}

	if err := s.store.CreateGroup(ctx, group); err != nil {
		return nil, err
	}

	slog.Info("Group created", "group_id", group.ID, "owner_id", ownerID, "name", group.Name)
	return group, nil
}

// JoinGroup admits a user into a pending group, appending them to the
// rotation. Admission requires free capacity and a reliability score at
// or above the group's threshold (users with no history score 100).
func (s *GroupService) JoinGroup(ctx context.Context, groupID, userID string) (*models.Group, error) {
	group, err := s.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	if group.Status != models.GroupStatusPending {
		return nil, fmt.Errorf("%w: group is not accepting new members", ErrInvalidState)
	}
	if group.Member(userID) != nil {
		return nil, ErrAlreadyMember
	}
	if len(group.Members) >= group.MaxMembers {
		return nil, ErrCapacityExceeded
	}

	score, err := s.scores.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	if score.Score < group.MinReliabilityScore {
		return nil, fmt.Errorf("%w: minimum score %.0f required, have %.1f",
			ErrPolicyViolation, group.MinReliabilityScore, score.Score)
	}

	m := &models.Membership{
		GroupID:   groupID,
		UserID:    userID,
		TurnOrder: len(group.Members) + 1,
		JoinedAt:  time.Now().Unix(),
	}
	if err := s.store.AddGroupMember(ctx, m); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, ErrAlreadyMember
		}
		return nil, err
	}

	slog.Info("Member joined group", "group_id", groupID, "user_id", userID, "turn_order", m.TurnOrder)
	return s.GetGroup(ctx, groupID)
}

// StartGroup activates a pending group: the rotation is fixed by sorting
// members by reliability score descending (ties keep join order), round 1
// opens and its contribution batch is created. All mutations commit
// atomically.
func (s *GroupService) StartGroup(ctx context.Context, groupID, callerID string) (*models.Group, error) {
	group, err := s.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	if group.OwnerID != callerID {
		return nil, ErrNotAuthorized
	}
	if group.Status != models.GroupStatusPending {
		return nil, fmt.Errorf("%w: group already started", ErrInvalidState)
	}
	if len(group.Members) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 members to start", ErrInvalidState)
	}

	if err := s.orderByScore(ctx, group); err != nil {
		return nil, err
	}

	now := time.Now()
	group.Status = models.GroupStatusActive
	group.CurrentRound = 1
	group.CurrentBeneficiaryID = group.Members[0].UserID
	group.StartDate = now.Unix()

	contributions := buildRoundContributions(group, now)
	if err := s.store.StartGroup(ctx, group, contributions); err != nil {
		if errors.Is(err, storage.ErrVersionConflict) {
			return nil, fmt.Errorf("%w: group changed concurrently", ErrInvalidState)
		}
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, ErrDuplicateRound
		}
		return nil, err
	}

	slog.Info("Group started",
		"group_id", groupID,
		"members", len(group.Members),
		"first_beneficiary", group.CurrentBeneficiaryID,
	)
	return group, nil
}

// orderByScore reorders the rotation by reliability score descending.
// The sort is stable, so equal scores keep their join order and the
// resulting rotation is reproducible.
func (s *GroupService) orderByScore(ctx context.Context, group *models.Group) error {
	scores := make(map[string]float64, len(group.Members))
	for i := range group.Members {
		score, err := s.scores.GetOrCreate(ctx, group.Members[i].UserID)
		if err != nil {
			return err
		}
		scores[group.Members[i].UserID] = score.Score
	}

	// Members arrive ordered by join-time turn order, which the stable
	// sort preserves as the tie-break.
	sort.SliceStable(group.Members, func(i, j int) bool {
		return scores[group.Members[i].UserID] > scores[group.Members[j].UserID]
	})
	for i := range group.Members {
		group.Members[i].TurnOrder = i + 1
	}
	return nil
}

// CancelGroup moves a pending or active group to cancelled. Owner only.
// Cancelled is terminal: no further mutation of the group is possible.
func (s *GroupService) CancelGroup(ctx context.Context, groupID, callerID string) (*models.Group, error) {
	group, err := s.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	if group.OwnerID != callerID {
		return nil, ErrNotAuthorized
	}
	if group.Status.Terminal() {
		return nil, fmt.Errorf("%w: group is already %s", ErrInvalidState, group.Status)
	}

	group.Status = models.GroupStatusCancelled
	if err := s.store.SetGroupStatus(ctx, group); err != nil {
		if errors.Is(err, storage.ErrVersionConflict) {
			return nil, fmt.Errorf("%w: group changed concurrently", ErrInvalidState)
		}
		return nil, err
	}

	slog.Info("Group cancelled", "group_id", groupID)
	return group, nil
}

// UpdateGroup applies configuration changes to a pending group. Owner
// only; active and terminal groups are immutable.
func (s *GroupService) UpdateGroup(ctx context.Context, groupID, callerID string, p GroupParams) (*models.Group, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	group, err := s.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	if group.OwnerID != callerID {
		return nil, ErrNotAuthorized
	}
	if group.Status != models.GroupStatusPending {
		return nil, fmt.Errorf("%w: only pending groups can be updated", ErrInvalidState)
	}
	if p.MaxMembers < len(group.Members) {
		return nil, fmt.Errorf("%w: max members cannot be below current member count", ErrValidation)
	}

	group.Name = p.Name
	group.ContributionAmount = p.ContributionAmount
	group.Frequency = p.Frequency
	group.PeriodDays = p.PeriodDays
	group.MaxMembers = p.MaxMembers
	if p.MinReliabilityScore != 0 {
		group.MinReliabilityScore = p.MinReliabilityScore
	}

	if err := s.store.UpdateGroupConfig(ctx, group); err != nil {
		if errors.Is(err, storage.ErrVersionConflict) {
			return nil, fmt.Errorf("%w: group changed concurrently", ErrInvalidState)
		}
		return nil, err
	}

	slog.Info("Group updated", "group_id", groupID)
	return group, nil
}

// GetGroup retrieves a group by ID.
func (s *GroupService) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("group %s: %w", groupID, ErrNotFound)
		}
		return nil, err
	}
	return group, nil
}

// ListUserGroups retrieves the non-cancelled groups the user belongs to,
// newest first.
func (s *GroupService) ListUserGroups(ctx context.Context, userID string) ([]*models.Group, error) {
	return s.store.ListGroupsByMember(ctx, userID)
}

// ListGroupPayouts retrieves a group's recorded payouts in round order.
func (s *GroupService) ListGroupPayouts(ctx context.Context, groupID string) ([]*models.Payout, error) {
	if _, err := s.GetGroup(ctx, groupID); err != nil {
		return nil, err
	}
	return s.store.ListGroupPayouts(ctx, groupID)
}
