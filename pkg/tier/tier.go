package tier

import (
	"fmt"
	"math"
)

// Tier represents a loyalty tier level
type Tier string

const (
	Bronze   Tier = "bronze"
	Silver   Tier = "silver"
	Gold     Tier = "gold"
	Platinum Tier = "platinum"
)

// Tier thresholds are closed, ordered, non-overlapping point ranges.
// A guest belongs to the highest tier whose minimum their balance meets.
const (
	SilverMinPoints   = 1000
	GoldMinPoints     = 5000
	PlatinumMinPoints = 15000
)

// Loyalty policy constants. These are fixed policy, not configuration.
const (
	// PointsPerCurrencyUnit is the base accrual rate for spend-derived awards.
	PointsPerCurrencyUnit = 1

	// Redemption exchange rate: RedemptionBlockPoints points are worth
	// RedemptionBlockValue currency units of reward value.
	RedemptionBlockPoints = 100
	RedemptionBlockValue  = 10
)

// All lists the defined tiers in ascending order.
var All = []Tier{Bronze, Silver, Gold, Platinum}

// Parse validates a tier string and returns the typed tier.
func Parse(s string) (Tier, error) {
	switch Tier(s) {
	case Bronze, Silver, Gold, Platinum:
		return Tier(s), nil
	}
	return "", fmt.Errorf("unknown tier: %q", s)
}

// IsValid reports whether t is one of the four defined tiers.
func (t Tier) IsValid() bool {
	_, err := Parse(string(t))
	return err == nil
}

// ForPoints returns the tier a point balance maps to, scanning thresholds
// from highest to lowest.
func ForPoints(points int64) Tier {
	switch {
	case points >= PlatinumMinPoints:
		return Platinum
	case points >= GoldMinPoints:
		return Gold
	case points >= SilverMinPoints:
		return Silver
	default:
		return Bronze
	}
}

// EarnMultiplier returns the spend-to-points bonus multiplier for a tier.
// It applies only to amount-derived awards, never to direct point awards.
func EarnMultiplier(t Tier) float64 {
	switch t {
	case Silver:
		return 1.25
	case Gold:
		return 1.5
	case Platinum:
		return 2.0
	default:
		return 1.0
	}
}

// PointsForAmount converts a spend amount into points for a guest at the
// given tier: floor(amount * PointsPerCurrencyUnit * multiplier).
func PointsForAmount(amount float64, t Tier) int64 {
	return int64(math.Floor(amount * PointsPerCurrencyUnit * EarnMultiplier(t)))
}

// RedemptionValue returns the monetary reward value of redeemed points at
// the fixed exchange rate.
func RedemptionValue(points int64) float64 {
	return float64(points) / RedemptionBlockPoints * RedemptionBlockValue
}
