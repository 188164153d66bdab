package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// LoyaltyAction identifies the kind of loyalty mutation recorded in the
// activity log. New actions must be handled in the handler dispatch and in
// the log details builders; the compiler-visible constant set replaces the
// free-form action strings of earlier revisions.
type LoyaltyAction string

const (
	ActionPointsEarned   LoyaltyAction = "points_earned"
	ActionTierUpgrade    LoyaltyAction = "tier_upgrade"
	ActionPointsRedeemed LoyaltyAction = "points_redeemed"
	ActionTierAdjusted   LoyaltyAction = "tier_adjusted"
	ActionBonusPoints    LoyaltyAction = "bonus_points"
	ActionPointsRemoved  LoyaltyAction = "points_removed"
)

// ActivityLog is an append-only audit record of a loyalty mutation.
// Entries are never updated or deleted.
type ActivityLog struct {
	ID        int64           `json:"id" db:"id"`
	StaffID   uuid.UUID       `json:"staff_id" db:"staff_id"`
	BranchID  uuid.UUID       `json:"branch_id" db:"branch_id"`
	Action    LoyaltyAction   `json:"action" db:"action"`
	GuestID   uuid.UUID       `json:"guest_id" db:"guest_id"`
	Details   json.RawMessage `json:"details" db:"details"` // JSONB payload
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// NotificationKindTierUpgrade is the only notification kind this service
// produces. The inbox endpoints read whatever kinds exist.
const NotificationKindTierUpgrade = "tier_upgrade"

// Notification is a staff-facing message. The loyalty engine only creates
// tier-upgrade notifications; it never consumes them.
type Notification struct {
	ID        uuid.UUID `json:"id" db:"id"`
	StaffID   uuid.UUID `json:"staff_id" db:"staff_id"`
	BranchID  uuid.UUID `json:"branch_id" db:"branch_id"`
	Kind      string    `json:"kind" db:"kind"`
	Title     string    `json:"title" db:"title"`
	Message   string    `json:"message" db:"message"`
	Read      bool      `json:"read" db:"read"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
