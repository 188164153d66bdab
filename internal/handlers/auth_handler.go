package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/stayloop/loyalty-backend/internal/database"
	"github.com/stayloop/loyalty-backend/internal/models"
	"github.com/stayloop/loyalty-backend/pkg/jwt"
)

// AuthHandler handles staff authentication HTTP requests
type AuthHandler struct {
	jwtService      *jwt.Service
	staffRepository *database.StaffRepository
	logger          *logrus.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(jwtService *jwt.Service, staffRepository *database.StaffRepository, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{
		jwtService:      jwtService,
		staffRepository: staffRepository,
		logger:          logger,
	}
}

// LoginRequest represents a staff login request
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse represents a successful login
type LoginResponse struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	ExpiresIn    int      `json:"expires_in_seconds"`
	FullName     string   `json:"full_name"`
	Roles        []string `json:"roles"`
}

// RefreshRequest represents a token refresh request
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// RefreshResponse represents a refreshed token pair
type RefreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in_seconds"`
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "username and password are required",
		})
		return
	}

	staff, err := h.staffRepository.GetByUsername(req.Username)
	if err != nil {
		h.logger.WithError(err).Error("Failed to look up staff account")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "An unexpected error occurred",
		})
		return
	}

	// Identical response for unknown account and wrong password
	if staff == nil || bcrypt.CompareHashAndPassword([]byte(staff.PasswordHash), []byte(req.Password)) != nil {
		h.logger.WithField("username", req.Username).Warn("Failed login attempt")
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "invalid_credentials",
			Message: "Invalid username or password",
			Code:    "INVALID_CREDENTIALS",
		})
		return
	}

	if staff.Status != models.StaffStatusActive {
		c.JSON(http.StatusForbidden, ErrorResponse{
			Error:   "account_disabled",
			Message: "This account has been disabled",
			Code:    "ACCOUNT_DISABLED",
		})
		return
	}

	accessToken, err := h.jwtService.GenerateAccessToken(staff.ID, staff.BranchID, staff.Username, staff.Roles)
	if err != nil {
		h.logger.WithError(err).Error("Failed to generate access token")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to generate tokens",
		})
		return
	}

	refreshToken, err := h.jwtService.GenerateRefreshToken(staff.ID, staff.BranchID, staff.Username)
	if err != nil {
		h.logger.WithError(err).Error("Failed to generate refresh token")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to generate tokens",
		})
		return
	}

	if err := h.staffRepository.RecordLogin(staff.ID); err != nil {
		// Login still succeeds; the timestamp is informational
		h.logger.WithError(err).WithField("staff_id", staff.ID).Warn("Failed to record login time")
	}

	h.logger.WithFields(logrus.Fields{
		"staff_id": staff.ID,
		"username": staff.Username,
	}).Info("Staff logged in")

	c.JSON(http.StatusOK, LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(h.jwtService.AccessTokenTTL().Seconds()),
		FullName:     staff.FullName,
		Roles:        staff.Roles,
	})
}

// Refresh handles POST /api/v1/auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "refresh_token is required",
		})
		return
	}

	claims, err := h.jwtService.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "invalid_token",
			Message: "Invalid or expired refresh token",
			Code:    "INVALID_REFRESH_TOKEN",
		})
		return
	}

	// Re-read the account so revoked staff stop refreshing
	staff, err := h.staffRepository.GetByID(claims.StaffID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to look up staff account")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "An unexpected error occurred",
		})
		return
	}
	if staff == nil || staff.Status != models.StaffStatusActive {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "invalid_token",
			Message: "Account no longer active",
			Code:    "ACCOUNT_DISABLED",
		})
		return
	}

	accessToken, err := h.jwtService.GenerateAccessToken(staff.ID, staff.BranchID, staff.Username, staff.Roles)
	if err != nil {
		h.logger.WithError(err).Error("Failed to generate access token")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to generate tokens",
		})
		return
	}

	refreshToken, err := h.jwtService.GenerateRefreshToken(staff.ID, staff.BranchID, staff.Username)
	if err != nil {
		h.logger.WithError(err).Error("Failed to generate refresh token")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to generate tokens",
		})
		return
	}

	c.JSON(http.StatusOK, RefreshResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(h.jwtService.AccessTokenTTL().Seconds()),
	})
}
