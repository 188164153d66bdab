package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/stayloop/loyalty-backend/internal/database"
	"github.com/stayloop/loyalty-backend/internal/middleware"
)

const defaultNotificationLimit = 20

// NotificationHandler serves the staff notification inbox
type NotificationHandler struct {
	notificationRepository *database.NotificationRepository
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(notificationRepository *database.NotificationRepository) *NotificationHandler {
	return &NotificationHandler{
		notificationRepository: notificationRepository,
	}
}

// ListNotifications handles GET /api/v1/notifications
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	staffCtx, exists := middleware.GetStaffContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "Authentication required",
			Code:    "MISSING_STAFF_CONTEXT",
		})
		return
	}

	limit := defaultNotificationLimit
	if limitParam := c.Query("limit"); limitParam != "" {
		parsed, err := strconv.Atoi(limitParam)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "validation_error",
				Message: "limit must be a positive integer",
			})
			return
		}
		limit = parsed
	}

	notifications, err := h.notificationRepository.ListByStaff(staffCtx.StaffID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to load notifications",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"notifications": notifications,
	})
}

// MarkNotificationRead handles POST /api/v1/notifications/:id/read
func (h *NotificationHandler) MarkNotificationRead(c *gin.Context) {
	staffCtx, exists := middleware.GetStaffContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "Authentication required",
			Code:    "MISSING_STAFF_CONTEXT",
		})
		return
	}

	notificationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "notification id must be a valid UUID",
		})
		return
	}

	if err := h.notificationRepository.MarkRead(notificationID, staffCtx.StaffID); err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "notification not found",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "notification marked read",
	})
}
