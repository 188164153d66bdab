package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/stayloop/loyalty-backend/internal/middleware"
	"github.com/stayloop/loyalty-backend/internal/models"
	"github.com/stayloop/loyalty-backend/internal/services"
	"github.com/stayloop/loyalty-backend/pkg/tier"
)

// LoyaltyHandler handles loyalty program HTTP requests
type LoyaltyHandler struct {
	loyaltyService *services.LoyaltyService
	logger         *logrus.Logger
}

// NewLoyaltyHandler creates a new loyalty handler
func NewLoyaltyHandler(loyaltyService *services.LoyaltyService, logger *logrus.Logger) *LoyaltyHandler {
	return &LoyaltyHandler{
		loyaltyService: loyaltyService,
		logger:         logger,
	}
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// EarnPointsRequest represents a point accrual request. Amount wins when
// both amount and points are supplied.
type EarnPointsRequest struct {
	Points *int64   `json:"points"`
	Amount *float64 `json:"amount"`
	Reason string   `json:"reason"`
}

// RedeemPointsRequest represents a redemption request
type RedeemPointsRequest struct {
	Points   int64      `json:"points" binding:"required"`
	RewardID *uuid.UUID `json:"reward_id"`
}

// AdjustTierRequest represents a manual tier override request
type AdjustTierRequest struct {
	Tier   string `json:"tier" binding:"required"`
	Reason string `json:"reason" binding:"required"`
}

// BonusPointsRequest represents a bonus award request
type BonusPointsRequest struct {
	Points int64  `json:"points" binding:"required"`
	Reason string `json:"reason"`
}

// RemovePointsRequest represents a point removal request
type RemovePointsRequest struct {
	Points int64  `json:"points" binding:"required"`
	Reason string `json:"reason"`
}

// EarnPoints handles POST /api/v1/loyalty/guests/:id/earn
func (h *LoyaltyHandler) EarnPoints(c *gin.Context) {
	guestID, staffCtx, ok := h.requestContext(c)
	if !ok {
		return
	}

	var req EarnPointsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid request body",
		})
		return
	}

	result, err := h.loyaltyService.EarnPoints(services.EarnPointsInput{
		GuestID:   guestID,
		Points:    req.Points,
		Amount:    req.Amount,
		Reason:    req.Reason,
		StaffID:   staffCtx.StaffID,
		BranchID:  staffCtx.BranchID,
		UserAgent: c.GetHeader("User-Agent"),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// RedeemPoints handles POST /api/v1/loyalty/guests/:id/redeem
func (h *LoyaltyHandler) RedeemPoints(c *gin.Context) {
	guestID, staffCtx, ok := h.requestContext(c)
	if !ok {
		return
	}

	var req RedeemPointsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid request body",
		})
		return
	}

	result, err := h.loyaltyService.RedeemPoints(services.RedeemPointsInput{
		GuestID:   guestID,
		Points:    req.Points,
		RewardID:  req.RewardID,
		StaffID:   staffCtx.StaffID,
		BranchID:  staffCtx.BranchID,
		UserAgent: c.GetHeader("User-Agent"),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// AdjustTier handles POST /api/v1/loyalty/guests/:id/adjust-tier
func (h *LoyaltyHandler) AdjustTier(c *gin.Context) {
	guestID, staffCtx, ok := h.requestContext(c)
	if !ok {
		return
	}

	var req AdjustTierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "tier and reason are required",
		})
		return
	}

	result, err := h.loyaltyService.AdjustTier(services.AdjustTierInput{
		GuestID:   guestID,
		NewTier:   req.Tier,
		Reason:    req.Reason,
		StaffID:   staffCtx.StaffID,
		BranchID:  staffCtx.BranchID,
		UserAgent: c.GetHeader("User-Agent"),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// AddBonusPoints handles POST /api/v1/loyalty/guests/:id/bonus
func (h *LoyaltyHandler) AddBonusPoints(c *gin.Context) {
	guestID, staffCtx, ok := h.requestContext(c)
	if !ok {
		return
	}

	var req BonusPointsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "points is required",
		})
		return
	}

	result, err := h.loyaltyService.AddBonusPoints(services.BonusPointsInput{
		GuestID:   guestID,
		Points:    req.Points,
		Reason:    req.Reason,
		StaffID:   staffCtx.StaffID,
		BranchID:  staffCtx.BranchID,
		UserAgent: c.GetHeader("User-Agent"),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// RemovePoints handles POST /api/v1/loyalty/guests/:id/remove
func (h *LoyaltyHandler) RemovePoints(c *gin.Context) {
	guestID, staffCtx, ok := h.requestContext(c)
	if !ok {
		return
	}

	var req RemovePointsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "points is required",
		})
		return
	}

	result, err := h.loyaltyService.RemovePoints(services.RemovePointsInput{
		GuestID:   guestID,
		Points:    req.Points,
		Reason:    req.Reason,
		StaffID:   staffCtx.StaffID,
		BranchID:  staffCtx.BranchID,
		UserAgent: c.GetHeader("User-Agent"),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListMembers handles GET /api/v1/loyalty/members
//
// Query parameters:
//   - branch_id: restrict to one branch (UUID)
//   - tier: restrict to one tier (bronze|silver|gold|platinum)
//   - include_stats: "true" adds aggregate program figures
func (h *LoyaltyHandler) ListMembers(c *gin.Context) {
	var filter models.GuestFilter

	if branchParam := c.Query("branch_id"); branchParam != "" {
		branchID, err := uuid.Parse(branchParam)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "validation_error",
				Message: "branch_id must be a valid UUID",
			})
			return
		}
		filter.BranchID = &branchID
	}

	if tierParam := c.Query("tier"); tierParam != "" {
		parsed, err := tier.Parse(tierParam)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "validation_error",
				Message: err.Error(),
			})
			return
		}
		filter.Tier = &parsed
	}

	includeStats := c.Query("include_stats") == "true"

	result, err := h.loyaltyService.ListMembers(filter, includeStats)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// requestContext extracts the guest ID path parameter and the authenticated
// staff context, writing the error response itself on failure.
func (h *LoyaltyHandler) requestContext(c *gin.Context) (uuid.UUID, middleware.StaffContext, bool) {
	staffCtx, exists := middleware.GetStaffContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "Authentication required",
			Code:    "MISSING_STAFF_CONTEXT",
		})
		return uuid.Nil, middleware.StaffContext{}, false
	}

	guestID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "guest id must be a valid UUID",
		})
		return uuid.Nil, middleware.StaffContext{}, false
	}

	return guestID, staffCtx, true
}

// respondError maps service errors onto HTTP responses
func (h *LoyaltyHandler) respondError(c *gin.Context, err error) {
	var validationErr *services.ValidationError
	var notFoundErr *services.NotFoundError
	var insufficientErr *services.InsufficientBalanceError
	var conflictErr *services.ConflictError

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: validationErr.Error(),
		})
	case errors.As(err, &notFoundErr):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: notFoundErr.Error(),
		})
	case errors.As(err, &insufficientErr):
		c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "insufficient_balance",
			Message: insufficientErr.Error(),
			Code:    "INSUFFICIENT_BALANCE",
		})
	case errors.As(err, &conflictErr):
		c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "conflict",
			Message: conflictErr.Error(),
			Code:    "CONCURRENT_UPDATE",
		})
	default:
		h.logger.WithError(err).Error("Loyalty operation failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "An unexpected error occurred",
		})
	}
}
