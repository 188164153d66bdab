package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/stayloop/loyalty-backend/internal/models"
	"github.com/stayloop/loyalty-backend/internal/utils"
	"github.com/stayloop/loyalty-backend/pkg/tier"
)

const (
	// ReasonStay is the earn reason that counts as a completed stay
	ReasonStay = "stay"

	// Points of guests inactive this long count as expiring in stats
	expiryWindow = 12 * 30 * 24 * time.Hour // ~12 months

	// Window for the recent tier upgrade figure in stats
	upgradeStatsWindow = 30 * 24 * time.Hour

	topGuestsLimit = 10
)

// GuestStore is the persistence surface the loyalty engine needs for guest
// records. All balance mutations must be atomic at the store level; the
// engine never computes a new balance from a previously read one.
type GuestStore interface {
	GetByID(id uuid.UUID) (*models.Guest, error)
	ApplyEarn(id uuid.UUID, points int64, stayIncrement int, spendIncrement float64, now time.Time) (*models.Guest, error)
	ApplyRedeem(id uuid.UUID, points int64, now time.Time) (*models.Guest, error)
	ApplyBonus(id uuid.UUID, points int64, now time.Time) (*models.Guest, error)
	ApplyRemove(id uuid.UUID, points int64, now time.Time) (*models.Guest, error)
	OverrideTier(id uuid.UUID, newTier tier.Tier, now time.Time) (*models.Guest, error)
	List(filter models.GuestFilter) ([]*models.Guest, error)
	CountByTier(filter models.GuestFilter) ([]models.TierCount, error)
	PointsTotals() (int64, float64, error)
	ExpiringPoints(cutoff time.Time) (int64, error)
	TopBySpend(limit int) ([]*models.Guest, error)
	TopByStays(limit int) ([]*models.Guest, error)
}

// ActivityStore is the append-only audit trail surface
type ActivityStore interface {
	Append(staffID, branchID, guestID uuid.UUID, action models.LoyaltyAction, details map[string]interface{}) error
	CountAction(action models.LoyaltyAction, since time.Time) (int, error)
}

// NotificationStore creates staff notifications
type NotificationStore interface {
	Create(staffID, branchID uuid.UUID, kind, title, message string) (*models.Notification, error)
}

// LoyaltyService is the loyalty tier / points engine. It owns point accrual,
// tier transitions, redemption, manual adjustments, and the audit trail of
// every change.
type LoyaltyService struct {
	guests        GuestStore
	activity      ActivityStore
	notifications NotificationStore
	logger        *logrus.Logger
}

// NewLoyaltyService creates a new loyalty service
func NewLoyaltyService(guests GuestStore, activity ActivityStore, notifications NotificationStore, logger *logrus.Logger) *LoyaltyService {
	return &LoyaltyService{
		guests:        guests,
		activity:      activity,
		notifications: notifications,
		logger:        logger,
	}
}

// EarnPointsInput carries the parameters of an earn operation. At least one
// of Points or Amount must be set; Amount takes precedence when both are.
type EarnPointsInput struct {
	GuestID   uuid.UUID
	Points    *int64   // direct award, multiplier does NOT apply
	Amount    *float64 // spend-derived award, tier multiplier applies
	Reason    string
	StaffID   uuid.UUID
	BranchID  uuid.UUID
	UserAgent string
}

// EarnResult is returned so callers can display confirmation without
// re-querying the guest.
type EarnResult struct {
	NewBalance  int64     `json:"new_balance"`
	NewTier     tier.Tier `json:"new_tier"`
	Upgraded    bool      `json:"upgraded"`
	PointsAdded int64     `json:"points_added"`
}

// EarnPoints credits points to a guest, recomputes the tier, bumps the
// stay/spend accumulators, and records the change.
//
// Direct point awards deliberately ignore the tier multiplier; only
// amount-derived awards receive it. This asymmetry is longstanding desk
// policy, not an accident.
func (s *LoyaltyService) EarnPoints(input EarnPointsInput) (*EarnResult, error) {
	if input.Points == nil && input.Amount == nil {
		return nil, &ValidationError{Message: "either points or amount is required"}
	}
	if input.Points != nil && *input.Points <= 0 {
		return nil, &ValidationError{Field: "points", Message: "must be a positive integer"}
	}
	if input.Amount != nil && *input.Amount <= 0 {
		return nil, &ValidationError{Field: "amount", Message: "must be a positive amount"}
	}

	guest, err := s.guests.GetByID(input.GuestID)
	if err != nil {
		return nil, fmt.Errorf("failed to load guest: %w", err)
	}
	if guest == nil {
		return nil, &NotFoundError{Entity: "guest", ID: input.GuestID}
	}

	var pointsToAdd int64
	var spendIncrement float64
	if input.Amount != nil {
		pointsToAdd = tier.PointsForAmount(*input.Amount, guest.LoyaltyTier)
		spendIncrement = *input.Amount
	} else {
		pointsToAdd = *input.Points
	}

	stayIncrement := 0
	if input.Reason == ReasonStay {
		stayIncrement = 1
	}

	updated, err := s.guests.ApplyEarn(input.GuestID, pointsToAdd, stayIncrement, spendIncrement, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to credit points: %w", err)
	}
	if updated == nil {
		return nil, &ConflictError{Message: "guest record changed during update, retry the operation"}
	}

	upgraded := updated.LoyaltyTier != guest.LoyaltyTier

	action := models.ActionPointsEarned
	details := map[string]interface{}{
		"points_before": guest.LoyaltyPoints,
		"points_after":  updated.LoyaltyPoints,
		"points_added":  pointsToAdd,
		"reason":        input.Reason,
	}
	if input.Amount != nil {
		details["amount"] = *input.Amount
		details["multiplier"] = tier.EarnMultiplier(guest.LoyaltyTier)
	}
	if upgraded {
		action = models.ActionTierUpgrade
		details["tier_change"] = map[string]string{
			"from": string(guest.LoyaltyTier),
			"to":   string(updated.LoyaltyTier),
		}
	}
	if input.UserAgent != "" {
		details["device_info"] = utils.ParseUserAgent(input.UserAgent)
	}

	if err := s.activity.Append(input.StaffID, input.BranchID, input.GuestID, action, details); err != nil {
		// The balance update is already durable; surface the failure so
		// the operator learns the trail is short one entry.
		return nil, fmt.Errorf("points credited but audit log write failed: %w", err)
	}

	if upgraded {
		title := "Guest tier upgraded"
		message := fmt.Sprintf("%s moved from %s to %s (%d points)",
			guest.FullName, guest.LoyaltyTier, updated.LoyaltyTier, updated.LoyaltyPoints)
		if _, err := s.notifications.Create(input.StaffID, input.BranchID, models.NotificationKindTierUpgrade, title, message); err != nil {
			// Notifications are advisory; the upgrade itself is already
			// recorded in the audit trail.
			s.logger.WithError(err).WithField("guest_id", input.GuestID).Warn("Failed to create tier upgrade notification")
		}
	}

	s.logger.WithFields(logrus.Fields{
		"guest_id":     input.GuestID,
		"points_added": pointsToAdd,
		"new_balance":  updated.LoyaltyPoints,
		"new_tier":     updated.LoyaltyTier,
		"upgraded":     upgraded,
	}).Info("Points earned")

	return &EarnResult{
		NewBalance:  updated.LoyaltyPoints,
		NewTier:     updated.LoyaltyTier,
		Upgraded:    upgraded,
		PointsAdded: pointsToAdd,
	}, nil
}

// RedeemPointsInput carries the parameters of a redemption
type RedeemPointsInput struct {
	GuestID   uuid.UUID
	Points    int64
	RewardID  *uuid.UUID
	StaffID   uuid.UUID
	BranchID  uuid.UUID
	UserAgent string
}

// RedeemResult is the redemption response payload
type RedeemResult struct {
	NewBalance  int64     `json:"new_balance"`
	NewTier     tier.Tier `json:"new_tier"`
	RewardValue float64   `json:"reward_value"`
}

// RedeemPoints debits points against reward value at the fixed exchange
// rate and recomputes the tier downward where the new balance requires it.
// No notification is produced for a demotion.
func (s *LoyaltyService) RedeemPoints(input RedeemPointsInput) (*RedeemResult, error) {
	if input.Points <= 0 {
		return nil, &ValidationError{Field: "points", Message: "must be a positive integer"}
	}

	guest, err := s.guests.GetByID(input.GuestID)
	if err != nil {
		return nil, fmt.Errorf("failed to load guest: %w", err)
	}
	if guest == nil {
		return nil, &NotFoundError{Entity: "guest", ID: input.GuestID}
	}
	if guest.LoyaltyPoints < input.Points {
		return nil, &InsufficientBalanceError{Requested: input.Points, Available: guest.LoyaltyPoints}
	}

	updated, err := s.guests.ApplyRedeem(input.GuestID, input.Points, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to debit points: %w", err)
	}
	if updated == nil {
		// The guarded update matched no row: a concurrent operation drained
		// the balance (or the guest vanished) between read and write.
		// Re-read to classify.
		fresh, err := s.guests.GetByID(input.GuestID)
		if err != nil {
			return nil, fmt.Errorf("failed to reload guest: %w", err)
		}
		if fresh == nil {
			return nil, &NotFoundError{Entity: "guest", ID: input.GuestID}
		}
		if fresh.LoyaltyPoints < input.Points {
			return nil, &InsufficientBalanceError{Requested: input.Points, Available: fresh.LoyaltyPoints}
		}
		return nil, &ConflictError{Message: "redemption lost a concurrent update, retry the operation"}
	}

	rewardValue := tier.RedemptionValue(input.Points)

	details := map[string]interface{}{
		"points_before":   guest.LoyaltyPoints,
		"points_after":    updated.LoyaltyPoints,
		"points_redeemed": input.Points,
		"reward_value":    rewardValue,
	}
	if input.RewardID != nil {
		details["reward_id"] = input.RewardID.String()
	}
	if updated.LoyaltyTier != guest.LoyaltyTier {
		details["tier_change"] = map[string]string{
			"from": string(guest.LoyaltyTier),
			"to":   string(updated.LoyaltyTier),
		}
	}
	if input.UserAgent != "" {
		details["device_info"] = utils.ParseUserAgent(input.UserAgent)
	}

	if err := s.activity.Append(input.StaffID, input.BranchID, input.GuestID, models.ActionPointsRedeemed, details); err != nil {
		return nil, fmt.Errorf("points debited but audit log write failed: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"guest_id":        input.GuestID,
		"points_redeemed": input.Points,
		"reward_value":    rewardValue,
		"new_balance":     updated.LoyaltyPoints,
		"new_tier":        updated.LoyaltyTier,
	}).Info("Points redeemed")

	return &RedeemResult{
		NewBalance:  updated.LoyaltyPoints,
		NewTier:     updated.LoyaltyTier,
		RewardValue: rewardValue,
	}, nil
}

// AdjustTierInput carries the parameters of a manual tier override
type AdjustTierInput struct {
	GuestID   uuid.UUID
	NewTier   string
	Reason    string
	StaffID   uuid.UUID
	BranchID  uuid.UUID
	UserAgent string
}

// AdjustResult is the tier override response payload
type AdjustResult struct {
	PreviousTier tier.Tier `json:"previous_tier"`
	NewTier      tier.Tier `json:"new_tier"`
}

// AdjustTier unconditionally overwrites the stored tier regardless of the
// point balance. This is the administrative escape hatch; the next earn or
// redeem recomputes the tier from points again. No notification is created.
func (s *LoyaltyService) AdjustTier(input AdjustTierInput) (*AdjustResult, error) {
	newTier, err := tier.Parse(input.NewTier)
	if err != nil {
		return nil, &ValidationError{Field: "tier", Message: err.Error()}
	}

	guest, err := s.guests.GetByID(input.GuestID)
	if err != nil {
		return nil, fmt.Errorf("failed to load guest: %w", err)
	}
	if guest == nil {
		return nil, &NotFoundError{Entity: "guest", ID: input.GuestID}
	}

	updated, err := s.guests.OverrideTier(input.GuestID, newTier, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to override tier: %w", err)
	}
	if updated == nil {
		return nil, &ConflictError{Message: "guest record changed during update, retry the operation"}
	}

	details := map[string]interface{}{
		"from":   string(guest.LoyaltyTier),
		"to":     string(newTier),
		"reason": input.Reason,
	}
	if input.UserAgent != "" {
		details["device_info"] = utils.ParseUserAgent(input.UserAgent)
	}

	if err := s.activity.Append(input.StaffID, input.BranchID, input.GuestID, models.ActionTierAdjusted, details); err != nil {
		return nil, fmt.Errorf("tier adjusted but audit log write failed: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"guest_id": input.GuestID,
		"from":     guest.LoyaltyTier,
		"to":       newTier,
		"reason":   input.Reason,
	}).Info("Tier manually adjusted")

	return &AdjustResult{
		PreviousTier: guest.LoyaltyTier,
		NewTier:      newTier,
	}, nil
}

// BonusPointsInput carries the parameters of a bonus award
type BonusPointsInput struct {
	GuestID   uuid.UUID
	Points    int64
	Reason    string
	StaffID   uuid.UUID
	BranchID  uuid.UUID
	UserAgent string
}

// BonusResult is the bonus award response payload
type BonusResult struct {
	NewBalance  int64     `json:"new_balance"`
	Tier        tier.Tier `json:"tier"`
	PointsAdded int64     `json:"points_added"`
}

// AddBonusPoints credits points directly with no tier multiplier and no
// tier recomputation. Callers needing the tier recomputed must route the
// award through EarnPoints instead. Negative bonuses are rejected; point
// deductions go through RemovePoints, which names the intent.
func (s *LoyaltyService) AddBonusPoints(input BonusPointsInput) (*BonusResult, error) {
	if input.Points <= 0 {
		return nil, &ValidationError{Field: "points", Message: "must be a positive integer; use the removal operation for deductions"}
	}

	guest, err := s.guests.GetByID(input.GuestID)
	if err != nil {
		return nil, fmt.Errorf("failed to load guest: %w", err)
	}
	if guest == nil {
		return nil, &NotFoundError{Entity: "guest", ID: input.GuestID}
	}

	updated, err := s.guests.ApplyBonus(input.GuestID, input.Points, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to credit bonus points: %w", err)
	}
	if updated == nil {
		return nil, &ConflictError{Message: "guest record changed during update, retry the operation"}
	}

	details := map[string]interface{}{
		"points_before": guest.LoyaltyPoints,
		"points_after":  updated.LoyaltyPoints,
		"points_added":  input.Points,
		"reason":        input.Reason,
	}
	if input.UserAgent != "" {
		details["device_info"] = utils.ParseUserAgent(input.UserAgent)
	}

	if err := s.activity.Append(input.StaffID, input.BranchID, input.GuestID, models.ActionBonusPoints, details); err != nil {
		return nil, fmt.Errorf("bonus credited but audit log write failed: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"guest_id":     input.GuestID,
		"points_added": input.Points,
		"new_balance":  updated.LoyaltyPoints,
	}).Info("Bonus points added")

	return &BonusResult{
		NewBalance:  updated.LoyaltyPoints,
		Tier:        updated.LoyaltyTier,
		PointsAdded: input.Points,
	}, nil
}

// RemovePointsInput carries the parameters of a point removal (e.g. a
// booking cancellation clawback)
type RemovePointsInput struct {
	GuestID   uuid.UUID
	Points    int64
	Reason    string
	StaffID   uuid.UUID
	BranchID  uuid.UUID
	UserAgent string
}

// RemoveResult is the removal response payload
type RemoveResult struct {
	NewBalance    int64     `json:"new_balance"`
	Tier          tier.Tier `json:"tier"`
	PointsRemoved int64     `json:"points_removed"`
}

// RemovePoints debits points, clamping the balance at zero instead of
// failing. The stored tier is not recomputed on this path, matching the
// bonus path; only earn and redeem touch tiers.
func (s *LoyaltyService) RemovePoints(input RemovePointsInput) (*RemoveResult, error) {
	if input.Points <= 0 {
		return nil, &ValidationError{Field: "points", Message: "must be a positive integer"}
	}

	guest, err := s.guests.GetByID(input.GuestID)
	if err != nil {
		return nil, fmt.Errorf("failed to load guest: %w", err)
	}
	if guest == nil {
		return nil, &NotFoundError{Entity: "guest", ID: input.GuestID}
	}

	updated, err := s.guests.ApplyRemove(input.GuestID, input.Points, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to remove points: %w", err)
	}
	if updated == nil {
		return nil, &ConflictError{Message: "guest record changed during update, retry the operation"}
	}

	removed := guest.LoyaltyPoints - updated.LoyaltyPoints
	if removed < 0 {
		// A concurrent credit landed between read and write; the requested
		// amount was still debited.
		removed = input.Points
	}

	details := map[string]interface{}{
		"points_before":    guest.LoyaltyPoints,
		"points_after":     updated.LoyaltyPoints,
		"points_requested": input.Points,
		"points_removed":   removed,
		"reason":           input.Reason,
	}
	if input.UserAgent != "" {
		details["device_info"] = utils.ParseUserAgent(input.UserAgent)
	}

	if err := s.activity.Append(input.StaffID, input.BranchID, input.GuestID, models.ActionPointsRemoved, details); err != nil {
		return nil, fmt.Errorf("points removed but audit log write failed: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"guest_id":       input.GuestID,
		"points_removed": removed,
		"new_balance":    updated.LoyaltyPoints,
	}).Info("Points removed")

	return &RemoveResult{
		NewBalance:    updated.LoyaltyPoints,
		Tier:          updated.LoyaltyTier,
		PointsRemoved: removed,
	}, nil
}

// MemberList is the members listing response payload
type MemberList struct {
	Members    []*models.Guest      `json:"members"`
	TierCounts []models.TierCount   `json:"tier_counts"`
	Stats      *models.LoyaltyStats `json:"stats,omitempty"`
}

// ListMembers returns guests matching the filter with per-tier counts, and
// aggregate program figures when includeStats is set.
func (s *LoyaltyService) ListMembers(filter models.GuestFilter, includeStats bool) (*MemberList, error) {
	members, err := s.guests.List(filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}

	tierCounts, err := s.guests.CountByTier(filter)
	if err != nil {
		return nil, fmt.Errorf("failed to count tiers: %w", err)
	}

	result := &MemberList{
		Members:    members,
		TierCounts: tierCounts,
	}

	if !includeStats {
		return result, nil
	}

	totalPoints, totalSpend, err := s.guests.PointsTotals()
	if err != nil {
		return nil, fmt.Errorf("failed to compute totals: %w", err)
	}

	expiring, err := s.guests.ExpiringPoints(time.Now().Add(-expiryWindow))
	if err != nil {
		return nil, fmt.Errorf("failed to compute expiring points: %w", err)
	}

	upgrades, err := s.activity.CountAction(models.ActionTierUpgrade, time.Now().Add(-upgradeStatsWindow))
	if err != nil {
		return nil, fmt.Errorf("failed to count recent upgrades: %w", err)
	}

	topSpenders, err := s.guests.TopBySpend(topGuestsLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to rank guests by spend: %w", err)
	}

	topStayers, err := s.guests.TopByStays(topGuestsLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to rank guests by stays: %w", err)
	}

	result.Stats = &models.LoyaltyStats{
		TotalPointsOutstanding: totalPoints,
		TotalSpend:             totalSpend,
		ExpiringPoints:         expiring,
		RecentTierUpgrades:     upgrades,
		TopBySpend:             topSpenders,
		TopByStays:             topStayers,
	}

	return result, nil
}
