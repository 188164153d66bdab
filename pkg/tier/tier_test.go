package tier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForPoints(t *testing.T) {
	tests := []struct {
		name   string
		points int64
		want   Tier
	}{
		{"Zero", 0, Bronze},
		{"Bronze Upper Bound", 999, Bronze},
		{"Silver Lower Bound", 1000, Silver},
		{"Silver Upper Bound", 4999, Silver},
		{"Gold Lower Bound", 5000, Gold},
		{"Gold Upper Bound", 14999, Gold},
		{"Platinum Lower Bound", 15000, Platinum},
		{"Far Above Platinum", 1000000, Platinum},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ForPoints(tt.points))
		})
	}
}

func TestParse(t *testing.T) {
	t.Run("Valid Tiers", func(t *testing.T) {
		for _, name := range []string{"bronze", "silver", "gold", "platinum"} {
			parsed, err := Parse(name)
			require.NoError(t, err)
			assert.Equal(t, Tier(name), parsed)
			assert.True(t, parsed.IsValid())
		}
	})

	t.Run("Invalid Tier", func(t *testing.T) {
		_, err := Parse("diamond")
		assert.Error(t, err)
		assert.False(t, Tier("diamond").IsValid())
	})

	t.Run("Case Sensitive", func(t *testing.T) {
		_, err := Parse("Gold")
		assert.Error(t, err)
	})
}

func TestEarnMultiplier(t *testing.T) {
	assert.Equal(t, 1.0, EarnMultiplier(Bronze))
	assert.Equal(t, 1.25, EarnMultiplier(Silver))
	assert.Equal(t, 1.5, EarnMultiplier(Gold))
	assert.Equal(t, 2.0, EarnMultiplier(Platinum))
}

func TestPointsForAmount(t *testing.T) {
	tests := []struct {
		name   string
		amount float64
		tier   Tier
		want   int64
	}{
		{"Bronze Base Rate", 1000, Bronze, 1000},
		{"Silver Bonus", 1000, Silver, 1250},
		{"Gold Bonus", 1000, Gold, 1500},
		{"Platinum Bonus", 1000, Platinum, 2000},
		{"Floors Fractions", 99.99, Bronze, 99},
		{"Floors After Multiplier", 99, Silver, 123}, // 99 * 1.25 = 123.75
		{"Zero Amount", 0, Gold, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PointsForAmount(tt.amount, tt.tier))
		})
	}
}

func TestRedemptionValue(t *testing.T) {
	assert.Equal(t, 10.0, RedemptionValue(100))
	assert.Equal(t, 200.0, RedemptionValue(2000))
	assert.Equal(t, 5.0, RedemptionValue(50))
	assert.Equal(t, 0.0, RedemptionValue(0))
}
