package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// StaffStatusActive is the only status allowed to authenticate
const StaffStatusActive = "active"

// Staff represents a staff member who can operate the loyalty desk
type Staff struct {
	ID           uuid.UUID      `json:"id" db:"id"`
	BranchID     uuid.UUID      `json:"branch_id" db:"branch_id"`
	FullName     string         `json:"full_name" db:"full_name"`
	Username     string         `json:"username" db:"username"`
	PasswordHash string         `json:"-" db:"password_hash"` // Never expose
	Roles        pq.StringArray `json:"roles" db:"roles"`
	Status       string         `json:"status" db:"status"`
	LastLoginAt  NullTime       `json:"last_login_at,omitempty" db:"last_login_at"`
	CreatedAt    time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at" db:"updated_at"`
}
