package database

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/stayloop/loyalty-backend/internal/models"
)

// NotificationRepository handles staff notification operations
type NotificationRepository struct {
	db DB
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db DB) *NotificationRepository {
	return &NotificationRepository{
		db: db,
	}
}

// Create inserts a new notification addressed to a staff member
func (r *NotificationRepository) Create(staffID, branchID uuid.UUID, kind, title, message string) (*models.Notification, error) {
	notification := &models.Notification{
		ID:        uuid.New(),
		StaffID:   staffID,
		BranchID:  branchID,
		Kind:      kind,
		Title:     title,
		Message:   message,
		Read:      false,
		CreatedAt: time.Now(),
	}

	query := `
		INSERT INTO notifications (id, staff_id, branch_id, kind, title, message, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.Exec(
		query,
		notification.ID,
		notification.StaffID,
		notification.BranchID,
		notification.Kind,
		notification.Title,
		notification.Message,
		notification.Read,
		notification.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}

	return notification, nil
}

// ListByStaff retrieves recent notifications for a staff member, newest first
func (r *NotificationRepository) ListByStaff(staffID uuid.UUID, limit int) ([]*models.Notification, error) {
	query := `
		SELECT id, staff_id, branch_id, kind, title, message, read, created_at
		FROM notifications
		WHERE staff_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	var notifications []*models.Notification
	err := r.db.Select(&notifications, query, staffID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}

	return notifications, nil
}

// MarkRead marks one notification as read, scoped to its recipient
func (r *NotificationRepository) MarkRead(id, staffID uuid.UUID) error {
	query := `
		UPDATE notifications
		SET read = TRUE
		WHERE id = $1
		  AND staff_id = $2
	`

	result, err := r.db.Exec(query, id, staffID)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("notification not found")
	}

	return nil
}
