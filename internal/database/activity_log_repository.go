package database

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/stayloop/loyalty-backend/internal/models"
)

// ActivityLogRepository handles the append-only loyalty audit trail.
// Entries are never updated or deleted here.
type ActivityLogRepository struct {
	db DB
}

// NewActivityLogRepository creates a new activity log repository
func NewActivityLogRepository(db DB) *ActivityLogRepository {
	return &ActivityLogRepository{
		db: db,
	}
}

// Append writes one audit entry. Details are marshaled to JSONB.
func (r *ActivityLogRepository) Append(staffID, branchID, guestID uuid.UUID, action models.LoyaltyAction, details map[string]interface{}) error {
	payload, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("failed to marshal activity details: %w", err)
	}

	query := `
		INSERT INTO activity_logs (staff_id, branch_id, action, guest_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
	`

	_, err = r.db.Exec(query, staffID, branchID, action, guestID, payload)
	if err != nil {
		return fmt.Errorf("failed to append activity log: %w", err)
	}

	return nil
}

// ListByGuest retrieves the most recent audit entries for a guest
func (r *ActivityLogRepository) ListByGuest(guestID uuid.UUID, limit int) ([]*models.ActivityLog, error) {
	query := `
		SELECT id, staff_id, branch_id, action, guest_id, details, created_at
		FROM activity_logs
		WHERE guest_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	var entries []*models.ActivityLog
	err := r.db.Select(&entries, query, guestID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity logs: %w", err)
	}

	return entries, nil
}

// CountAction counts entries of one action kind since the given time.
// Used for the tier-upgrade figure in member stats.
func (r *ActivityLogRepository) CountAction(action models.LoyaltyAction, since time.Time) (int, error) {
	var count int

	query := `
		SELECT COUNT(*)
		FROM activity_logs
		WHERE action = $1
		  AND created_at >= $2
	`

	err := r.db.QueryRow(query, action, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count activity logs: %w", err)
	}

	return count, nil
}
