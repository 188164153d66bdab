package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/stayloop/loyalty-backend/internal/database"
)

const (
	defaultActivityLimit = 50
	maxActivityLimit     = 200
)

// GuestHandler serves read-only guest profile and history endpoints
type GuestHandler struct {
	guestRepository       *database.GuestRepository
	activityLogRepository *database.ActivityLogRepository
}

// NewGuestHandler creates a new guest handler
func NewGuestHandler(guestRepository *database.GuestRepository, activityLogRepository *database.ActivityLogRepository) *GuestHandler {
	return &GuestHandler{
		guestRepository:       guestRepository,
		activityLogRepository: activityLogRepository,
	}
}

// GetGuest handles GET /api/v1/loyalty/guests/:id
func (h *GuestHandler) GetGuest(c *gin.Context) {
	guestID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "guest id must be a valid UUID",
		})
		return
	}

	guest, err := h.guestRepository.GetByID(guestID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to load guest",
		})
		return
	}
	if guest == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "guest not found",
		})
		return
	}

	c.JSON(http.StatusOK, guest)
}

// GetGuestActivity handles GET /api/v1/loyalty/guests/:id/activity
//
// The optional limit query parameter caps the number of entries returned,
// newest first.
func (h *GuestHandler) GetGuestActivity(c *gin.Context) {
	guestID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "guest id must be a valid UUID",
		})
		return
	}

	limit := defaultActivityLimit
	if limitParam := c.Query("limit"); limitParam != "" {
		parsed, err := strconv.Atoi(limitParam)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "validation_error",
				Message: "limit must be a positive integer",
			})
			return
		}
		if parsed > maxActivityLimit {
			parsed = maxActivityLimit
		}
		limit = parsed
	}

	guest, err := h.guestRepository.GetByID(guestID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to load guest",
		})
		return
	}
	if guest == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "guest not found",
		})
		return
	}

	entries, err := h.activityLogRepository.ListByGuest(guestID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to load activity history",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"guest_id": guestID,
		"entries":  entries,
	})
}
