package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/stayloop/loyalty-backend/internal/models"
	"github.com/stayloop/loyalty-backend/pkg/tier"
)

// GuestRepository handles guest loyalty database operations.
//
// Every balance mutation is expressed as a single UPDATE with database-side
// arithmetic so that concurrent requests for the same guest can never lose
// updates. The stored tier is recomputed inside the same statement wherever
// the operation recomputes tiers at all.
type GuestRepository struct {
	db DB
}

// NewGuestRepository creates a new guest repository
func NewGuestRepository(db DB) *GuestRepository {
	return &GuestRepository{
		db: db,
	}
}

const guestColumns = `id, branch_id, full_name, email, loyalty_points, loyalty_tier,
	       total_stays, total_spent, last_visit, created_at, updated_at`

// tierCaseSQL renders the tier threshold table as a SQL CASE over the given
// balance expression, so the stored tier and pkg/tier can never disagree.
func tierCaseSQL(balanceExpr string) string {
	return fmt.Sprintf(`CASE
		WHEN %[1]s >= %[2]d THEN 'platinum'
		WHEN %[1]s >= %[3]d THEN 'gold'
		WHEN %[1]s >= %[4]d THEN 'silver'
		ELSE 'bronze'
	END`, balanceExpr, tier.PlatinumMinPoints, tier.GoldMinPoints, tier.SilverMinPoints)
}

// GetByID retrieves a guest by ID. Returns nil without error when the guest
// does not exist.
func (r *GuestRepository) GetByID(id uuid.UUID) (*models.Guest, error) {
	var guest models.Guest

	query := `
		SELECT ` + guestColumns + `
		FROM guests
		WHERE id = $1
	`

	err := r.db.Get(&guest, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get guest by ID: %w", err)
	}

	return &guest, nil
}

// ApplyEarn atomically credits points to a guest, recomputes the stored tier
// from the post-credit balance, and bumps the stay/spend accumulators and
// last visit, all in one statement. Returns the updated guest, or nil when
// no row matched.
func (r *GuestRepository) ApplyEarn(id uuid.UUID, points int64, stayIncrement int, spendIncrement float64, now time.Time) (*models.Guest, error) {
	query := `
		UPDATE guests
		SET loyalty_points = loyalty_points + $1,
		    loyalty_tier = ` + tierCaseSQL("loyalty_points + $1") + `,
		    total_stays = total_stays + $2,
		    total_spent = total_spent + $3,
		    last_visit = $4,
		    updated_at = $4
		WHERE id = $5
		RETURNING ` + guestColumns

	var guest models.Guest
	err := r.db.Get(&guest, query, points, stayIncrement, spendIncrement, now, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to apply earn: %w", err)
	}

	return &guest, nil
}

// ApplyRedeem atomically debits points from a guest, guarded so the balance
// can never go negative, and recomputes the stored tier from the post-debit
// balance in the same statement. Returns nil when the guard rejected the
// debit (insufficient balance) or the guest does not exist.
func (r *GuestRepository) ApplyRedeem(id uuid.UUID, points int64, now time.Time) (*models.Guest, error) {
	query := `
		UPDATE guests
		SET loyalty_points = loyalty_points - $1,
		    loyalty_tier = ` + tierCaseSQL("loyalty_points - $1") + `,
		    updated_at = $2
		WHERE id = $3
		  AND loyalty_points >= $1
		RETURNING ` + guestColumns

	var guest models.Guest
	err := r.db.Get(&guest, query, points, now, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to apply redeem: %w", err)
	}

	return &guest, nil
}

// ApplyBonus atomically credits points without recomputing the stored tier.
// Tier recomputation is deliberately skipped on this path; callers that need
// it must route the award through ApplyEarn.
func (r *GuestRepository) ApplyBonus(id uuid.UUID, points int64, now time.Time) (*models.Guest, error) {
	query := `
		UPDATE guests
		SET loyalty_points = loyalty_points + $1,
		    updated_at = $2
		WHERE id = $3
		RETURNING ` + guestColumns

	var guest models.Guest
	err := r.db.Get(&guest, query, points, now, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to apply bonus: %w", err)
	}

	return &guest, nil
}

// ApplyRemove atomically debits points, clamping the balance at zero instead
// of rejecting. The stored tier is left untouched.
func (r *GuestRepository) ApplyRemove(id uuid.UUID, points int64, now time.Time) (*models.Guest, error) {
	query := `
		UPDATE guests
		SET loyalty_points = GREATEST(0, loyalty_points - $1),
		    updated_at = $2
		WHERE id = $3
		RETURNING ` + guestColumns

	var guest models.Guest
	err := r.db.Get(&guest, query, points, now, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to apply removal: %w", err)
	}

	return &guest, nil
}

// OverrideTier unconditionally sets the stored tier regardless of the point
// balance (administrative escape hatch). The next earn or redeem recomputes
// the tier from points again.
func (r *GuestRepository) OverrideTier(id uuid.UUID, newTier tier.Tier, now time.Time) (*models.Guest, error) {
	query := `
		UPDATE guests
		SET loyalty_tier = $1,
		    updated_at = $2
		WHERE id = $3
		RETURNING ` + guestColumns

	var guest models.Guest
	err := r.db.Get(&guest, query, newTier, now, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to override tier: %w", err)
	}

	return &guest, nil
}

// List retrieves guests matching the filter, newest first
func (r *GuestRepository) List(filter models.GuestFilter) ([]*models.Guest, error) {
	query := `
		SELECT ` + guestColumns + `
		FROM guests
		WHERE ($1::uuid IS NULL OR branch_id = $1)
		  AND ($2::text IS NULL OR loyalty_tier = $2)
		ORDER BY created_at DESC
	`

	var branchID interface{}
	if filter.BranchID != nil {
		branchID = *filter.BranchID
	}
	var tierFilter interface{}
	if filter.Tier != nil {
		tierFilter = string(*filter.Tier)
	}

	var guests []*models.Guest
	err := r.db.Select(&guests, query, branchID, tierFilter)
	if err != nil {
		return nil, fmt.Errorf("failed to list guests: %w", err)
	}

	return guests, nil
}

// CountByTier returns per-tier membership counts for the filtered population
func (r *GuestRepository) CountByTier(filter models.GuestFilter) ([]models.TierCount, error) {
	query := `
		SELECT loyalty_tier, COUNT(*) AS count
		FROM guests
		WHERE ($1::uuid IS NULL OR branch_id = $1)
		GROUP BY loyalty_tier
	`

	var branchID interface{}
	if filter.BranchID != nil {
		branchID = *filter.BranchID
	}

	var counts []models.TierCount
	err := r.db.Select(&counts, query, branchID)
	if err != nil {
		return nil, fmt.Errorf("failed to count guests by tier: %w", err)
	}

	return counts, nil
}

// PointsTotals returns the total points outstanding and total spend across
// all guests
func (r *GuestRepository) PointsTotals() (int64, float64, error) {
	var totals struct {
		Points int64   `db:"points"`
		Spend  float64 `db:"spend"`
	}

	query := `
		SELECT COALESCE(SUM(loyalty_points), 0) AS points,
		       COALESCE(SUM(total_spent), 0) AS spend
		FROM guests
	`

	err := r.db.Get(&totals, query)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get points totals: %w", err)
	}

	return totals.Points, totals.Spend, nil
}

// ExpiringPoints sums positive balances of guests whose last visit predates
// the cutoff
func (r *GuestRepository) ExpiringPoints(cutoff time.Time) (int64, error) {
	var points int64

	query := `
		SELECT COALESCE(SUM(loyalty_points), 0)
		FROM guests
		WHERE loyalty_points > 0
		  AND last_visit IS NOT NULL
		  AND last_visit < $1
	`

	err := r.db.QueryRow(query, cutoff).Scan(&points)
	if err != nil {
		return 0, fmt.Errorf("failed to sum expiring points: %w", err)
	}

	return points, nil
}

// TopBySpend returns the biggest spenders, highest first
func (r *GuestRepository) TopBySpend(limit int) ([]*models.Guest, error) {
	query := `
		SELECT ` + guestColumns + `
		FROM guests
		ORDER BY total_spent DESC
		LIMIT $1
	`

	var guests []*models.Guest
	err := r.db.Select(&guests, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get top guests by spend: %w", err)
	}

	return guests, nil
}

// TopByStays returns the most frequent guests, highest first
func (r *GuestRepository) TopByStays(limit int) ([]*models.Guest, error) {
	query := `
		SELECT ` + guestColumns + `
		FROM guests
		ORDER BY total_stays DESC
		LIMIT $1
	`

	var guests []*models.Guest
	err := r.db.Select(&guests, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get top guests by stays: %w", err)
	}

	return guests, nil
}

// ListAll retrieves every guest, oldest first. Used by the tier backfill
// maintenance command.
func (r *GuestRepository) ListAll() ([]*models.Guest, error) {
	query := `
		SELECT ` + guestColumns + `
		FROM guests
		ORDER BY created_at ASC
	`

	var guests []*models.Guest
	err := r.db.Select(&guests, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list all guests: %w", err)
	}

	return guests, nil
}
