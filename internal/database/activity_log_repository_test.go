package database

import (
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stayloop/loyalty-backend/internal/models"
)

func TestActivityLogRepository_Append(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewActivityLogRepository(db)

	staffID := uuid.New()
	branchID := uuid.New()
	guestID := uuid.New()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO activity_logs")).
		WithArgs(staffID, branchID, models.ActionPointsEarned, guestID, []byte(`{"points_added":100}`)).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Append(staffID, branchID, guestID, models.ActionPointsEarned, map[string]interface{}{
		"points_added": 100,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityLogRepository_ListByGuest(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewActivityLogRepository(db)

	guestID := uuid.New()
	now := time.Now()

	rows := sqlmock.NewRows([]string{"id", "staff_id", "branch_id", "action", "guest_id", "details", "created_at"}).
		AddRow(2, uuid.New(), uuid.New(), "points_redeemed", guestID, []byte(`{"points_redeemed":300}`), now).
		AddRow(1, uuid.New(), uuid.New(), "points_earned", guestID, []byte(`{"points_added":500}`), now.Add(-time.Hour))

	mock.ExpectQuery(regexp.QuoteMeta("FROM activity_logs")).
		WithArgs(guestID, 50).
		WillReturnRows(rows)

	entries, err := repo.ListByGuest(guestID, 50)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, models.ActionPointsRedeemed, entries[0].Action)
	assert.Equal(t, models.ActionPointsEarned, entries[1].Action)
	assert.JSONEq(t, `{"points_added":500}`, string(entries[1].Details))
}

func TestActivityLogRepository_CountAction(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewActivityLogRepository(db)

	since := time.Now().Add(-30 * 24 * time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs(models.ActionTierUpgrade, since).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	count, err := repo.CountAction(models.ActionTierUpgrade, since)
	require.NoError(t, err)
	assert.Equal(t, 7, count)
}
