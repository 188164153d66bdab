package database

import (
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stayloop/loyalty-backend/internal/models"
	"github.com/stayloop/loyalty-backend/pkg/tier"
)

// setupMockDB creates a mock database for testing
func setupMockDB(t *testing.T) (DB, sqlmock.Sqlmock) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	sqlxDB := sqlx.NewDb(mockDB, "sqlmock")
	return &PostgresDB{DB: sqlxDB}, mock
}

var guestTestColumns = []string{
	"id", "branch_id", "full_name", "email", "loyalty_points", "loyalty_tier",
	"total_stays", "total_spent", "last_visit", "created_at", "updated_at",
}

func guestRow(id, branchID uuid.UUID, points int64, guestTier tier.Tier) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(guestTestColumns).
		AddRow(id, branchID, "Amara Fernando", "amara@example.com", points, string(guestTier),
			3, 1500.0, now, now, now)
}

func TestGuestRepository_GetByID(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewGuestRepository(db)

	guestID := uuid.New()
	branchID := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("FROM guests")).
		WithArgs(guestID).
		WillReturnRows(guestRow(guestID, branchID, 2500, tier.Silver))

	guest, err := repo.GetByID(guestID)
	require.NoError(t, err)
	require.NotNil(t, guest)

	assert.Equal(t, guestID, guest.ID)
	assert.Equal(t, int64(2500), guest.LoyaltyPoints)
	assert.Equal(t, tier.Silver, guest.LoyaltyTier)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGuestRepository_GetByID_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewGuestRepository(db)

	guestID := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("FROM guests")).
		WithArgs(guestID).
		WillReturnError(sql.ErrNoRows)

	guest, err := repo.GetByID(guestID)
	require.NoError(t, err)
	assert.Nil(t, guest)
}

func TestGuestRepository_ApplyEarn(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewGuestRepository(db)

	guestID := uuid.New()
	branchID := uuid.New()
	now := time.Now()

	// The credit and the tier recompute happen in one statement
	mock.ExpectQuery(regexp.QuoteMeta("SET loyalty_points = loyalty_points + $1")).
		WithArgs(int64(200), 1, 200.0, now, guestID).
		WillReturnRows(guestRow(guestID, branchID, 1150, tier.Silver))

	guest, err := repo.ApplyEarn(guestID, 200, 1, 200.0, now)
	require.NoError(t, err)
	require.NotNil(t, guest)

	assert.Equal(t, int64(1150), guest.LoyaltyPoints)
	assert.Equal(t, tier.Silver, guest.LoyaltyTier)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGuestRepository_ApplyRedeem_GuardRejects(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewGuestRepository(db)

	guestID := uuid.New()
	now := time.Now()

	// Guarded update matches no row when the balance is too small
	mock.ExpectQuery(regexp.QuoteMeta("AND loyalty_points >= $1")).
		WithArgs(int64(500), now, guestID).
		WillReturnError(sql.ErrNoRows)

	guest, err := repo.ApplyRedeem(guestID, 500, now)
	require.NoError(t, err)
	assert.Nil(t, guest)
}

func TestGuestRepository_ApplyRedeem(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewGuestRepository(db)

	guestID := uuid.New()
	branchID := uuid.New()
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("SET loyalty_points = loyalty_points - $1")).
		WithArgs(int64(400), now, guestID).
		WillReturnRows(guestRow(guestID, branchID, 4800, tier.Silver))

	guest, err := repo.ApplyRedeem(guestID, 400, now)
	require.NoError(t, err)
	require.NotNil(t, guest)

	assert.Equal(t, int64(4800), guest.LoyaltyPoints)
	assert.Equal(t, tier.Silver, guest.LoyaltyTier)
}

func TestGuestRepository_ApplyRemove_Clamps(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewGuestRepository(db)

	guestID := uuid.New()
	branchID := uuid.New()
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("SET loyalty_points = GREATEST(0, loyalty_points - $1)")).
		WithArgs(int64(250), now, guestID).
		WillReturnRows(guestRow(guestID, branchID, 0, tier.Bronze))

	guest, err := repo.ApplyRemove(guestID, 250, now)
	require.NoError(t, err)
	require.NotNil(t, guest)

	assert.Equal(t, int64(0), guest.LoyaltyPoints)
}

func TestGuestRepository_OverrideTier(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewGuestRepository(db)

	guestID := uuid.New()
	branchID := uuid.New()
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("SET loyalty_tier = $1")).
		WithArgs(tier.Platinum, now, guestID).
		WillReturnRows(guestRow(guestID, branchID, 100, tier.Platinum))

	guest, err := repo.OverrideTier(guestID, tier.Platinum, now)
	require.NoError(t, err)
	require.NotNil(t, guest)

	assert.Equal(t, tier.Platinum, guest.LoyaltyTier)
	assert.Equal(t, int64(100), guest.LoyaltyPoints)
}

func TestGuestRepository_CountByTier(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewGuestRepository(db)

	rows := sqlmock.NewRows([]string{"loyalty_tier", "count"}).
		AddRow("bronze", 12).
		AddRow("silver", 5).
		AddRow("gold", 2)

	mock.ExpectQuery(regexp.QuoteMeta("GROUP BY loyalty_tier")).
		WithArgs(nil).
		WillReturnRows(rows)

	counts, err := repo.CountByTier(models.GuestFilter{})
	require.NoError(t, err)
	require.Len(t, counts, 3)

	assert.Equal(t, tier.Bronze, counts[0].Tier)
	assert.Equal(t, 12, counts[0].Count)
}

func TestGuestRepository_PointsTotals(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewGuestRepository(db)

	rows := sqlmock.NewRows([]string{"points", "spend"}).
		AddRow(12345, 6789.5)

	mock.ExpectQuery(regexp.QuoteMeta("COALESCE(SUM(loyalty_points), 0)")).
		WillReturnRows(rows)

	points, spend, err := repo.PointsTotals()
	require.NoError(t, err)
	assert.Equal(t, int64(12345), points)
	assert.Equal(t, 6789.5, spend)
}

func TestTierCaseSQL(t *testing.T) {
	rendered := tierCaseSQL("loyalty_points + $1")

	assert.Contains(t, rendered, "loyalty_points + $1 >= 15000 THEN 'platinum'")
	assert.Contains(t, rendered, "loyalty_points + $1 >= 5000 THEN 'gold'")
	assert.Contains(t, rendered, "loyalty_points + $1 >= 1000 THEN 'silver'")
	assert.Contains(t, rendered, "ELSE 'bronze'")
}
