package services

import (
	"fmt"

	"github.com/google/uuid"
)

// ValidationError indicates malformed, missing, or out-of-range input.
// The caller can recover by correcting the request.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// NotFoundError indicates the referenced guest does not exist
type NotFoundError struct {
	Entity string
	ID     uuid.UUID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.ID)
}

// InsufficientBalanceError indicates a redemption exceeds the available
// balance. Kept distinct from ValidationError so callers can show a
// specific message.
type InsufficientBalanceError struct {
	Requested int64
	Available int64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: requested %d points, %d available", e.Requested, e.Available)
}

// ConflictError indicates the guarded update lost a concurrent race in a
// way that cannot be classified further. Callers should retry the whole
// operation once.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}
