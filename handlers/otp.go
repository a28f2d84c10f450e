// File: trustlink/handlers/otp.go
package handlers

import (
	"net/http"

	userRepo "trustlink/database/repository/user"
	"trustlink/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// OTPHandler issues purpose-bound OTPs for registration attempts.
type OTPHandler struct {
	Users userRepo.UserRepository
}

// NewOTPHandler creates an OTPHandler.
func NewOTPHandler(users userRepo.UserRepository) *OTPHandler {
	return &OTPHandler{Users: users}
}

// SendOTPHandler generates and delivers an OTP bound to the authenticated
// subject and the device being registered.
func (h *OTPHandler) SendOTPHandler(c *gin.Context) {
	logger := getLogger(c)

	var req struct {
		DeviceID string `json:"device_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.DeviceID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "Missing required parameter"})
		return
	}

	claims, err := utils.ValidateAccessToken(bearerToken(c))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_token", "error_description": "Access token is invalid"})
		return
	}
	subjectID, err := utils.StringClaim(claims, "sub")
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_token", "error_description": "Access token is invalid"})
		return
	}

	ctx := c.Request.Context()
	user, err := h.Users.GetByID(ctx, subjectID)
	if err != nil || user == nil {
		logger.Error("Failed to load user for OTP", zap.String("subjectID", subjectID), zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_target", "error_description": "User does not exist"})
		return
	}

	if err := utils.InitiateDeviceOTP(ctx, subjectID, req.DeviceID, user.PhoneNumber); err != nil {
		logger.Error("Failed to initiate OTP", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"otp_sent": true})
}
