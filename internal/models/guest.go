package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/stayloop/loyalty-backend/pkg/tier"
)

// Guest is the loyalty projection of a registered hotel guest. Guest
// records are created by the registration system; this service only reads
// and mutates the loyalty columns.
type Guest struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	BranchID      uuid.UUID  `json:"branch_id" db:"branch_id"`
	FullName      string     `json:"full_name" db:"full_name"`
	Email         NullString `json:"email,omitempty" db:"email"`
	LoyaltyPoints int64      `json:"loyalty_points" db:"loyalty_points"`
	LoyaltyTier   tier.Tier  `json:"loyalty_tier" db:"loyalty_tier"`
	TotalStays    int        `json:"total_stays" db:"total_stays"`
	TotalSpent    float64    `json:"total_spent" db:"total_spent"`
	LastVisit     NullTime   `json:"last_visit,omitempty" db:"last_visit"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

// TierCount is a per-tier membership count row
type TierCount struct {
	Tier  tier.Tier `json:"tier" db:"loyalty_tier"`
	Count int       `json:"count" db:"count"`
}

// GuestFilter narrows member listings
type GuestFilter struct {
	BranchID *uuid.UUID
	Tier     *tier.Tier
}

// LoyaltyStats holds the aggregate figures returned by the members listing
// when stats are requested
type LoyaltyStats struct {
	TotalPointsOutstanding int64    `json:"total_points_outstanding"`
	TotalSpend             float64  `json:"total_spend"`
	ExpiringPoints         int64    `json:"expiring_points"`
	RecentTierUpgrades     int      `json:"recent_tier_upgrades"`
	TopBySpend             []*Guest `json:"top_by_spend"`
	TopByStays             []*Guest `json:"top_by_stays"`
}
