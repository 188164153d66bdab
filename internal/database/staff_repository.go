package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/stayloop/loyalty-backend/internal/models"
)

// StaffRepository handles staff account database operations
type StaffRepository struct {
	db DB
}

// NewStaffRepository creates a new staff repository
func NewStaffRepository(db DB) *StaffRepository {
	return &StaffRepository{
		db: db,
	}
}

const staffColumns = `id, branch_id, full_name, username, password_hash, roles,
	       status, last_login_at, created_at, updated_at`

// GetByUsername retrieves a staff member by login name. Returns nil without
// error when no account exists.
func (r *StaffRepository) GetByUsername(username string) (*models.Staff, error) {
	var staff models.Staff

	query := `
		SELECT ` + staffColumns + `
		FROM staff
		WHERE username = $1
	`

	err := r.db.Get(&staff, query, username)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get staff by username: %w", err)
	}

	return &staff, nil
}

// GetByID retrieves a staff member by ID
func (r *StaffRepository) GetByID(id uuid.UUID) (*models.Staff, error) {
	var staff models.Staff

	query := `
		SELECT ` + staffColumns + `
		FROM staff
		WHERE id = $1
	`

	err := r.db.Get(&staff, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get staff by ID: %w", err)
	}

	return &staff, nil
}

// RecordLogin stamps a successful login
func (r *StaffRepository) RecordLogin(id uuid.UUID) error {
	query := `
		UPDATE staff
		SET last_login_at = $1,
		    updated_at = $1
		WHERE id = $2
	`

	result, err := r.db.Exec(query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to record login: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("staff not found")
	}

	return nil
}
