// File: trustlink/handlers/registration.go
package handlers

import (
	"net/http"
	"time"

	deviceRepo "trustlink/database/repository/device"
	"trustlink/models"
	"trustlink/services/deviceauth"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// RegistrationHandler exposes the two-phase device enrollment flow.
type RegistrationHandler struct {
	Service *deviceauth.Service
	Devices deviceRepo.DeviceRepository
}

// NewRegistrationHandler creates a RegistrationHandler.
func NewRegistrationHandler(service *deviceauth.Service, devices deviceRepo.DeviceRepository) *RegistrationHandler {
	return &RegistrationHandler{Service: service, Devices: devices}
}

// InitHandler handles the first enrollment request and returns the issued
// single-use code.
func (h *RegistrationHandler) InitHandler(c *gin.Context) {
	logger := getLogger(c)

	var req struct {
		Mode                string `json:"mode"`
		DeviceID            string `json:"device_id"`
		CodeChallenge       string `json:"code_challenge"`
		CodeChallengeMethod string `json:"code_challenge_method"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "Invalid request body"})
		return
	}

	result, err := h.Service.InitiateRegistration(c.Request.Context(), deviceauth.RegistrationInitRequest{
		AccessToken:         bearerToken(c),
		Mode:                req.Mode,
		DeviceID:            req.DeviceID,
		CodeChallenge:       req.CodeChallenge,
		CodeChallengeMethod: req.CodeChallengeMethod,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	logger.Info("Device registration initiated",
		zap.String("deviceID", result.Transaction.DeviceID),
		zap.String("clientID", result.Client.ClientID))

	c.JSON(http.StatusOK, gin.H{
		"code":       result.Transaction.Code,
		"expires_in": int(result.Transaction.Lifetime / time.Second),
	})
}

// CompleteHandler handles the second enrollment request and persists the
// newly bound device on success.
func (h *RegistrationHandler) CompleteHandler(c *gin.Context) {
	logger := getLogger(c)

	var req struct {
		Code          string `json:"code"`
		CodeVerifier  string `json:"code_verifier"`
		PublicKey     string `json:"public_key"`
		CodeSignature string `json:"code_signature"`
		OTP           string `json:"otp"`
		DeviceName    string `json:"device_name"`
		Pin           string `json:"pin"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "Invalid request body"})
		return
	}

	result, err := h.Service.CompleteRegistration(c.Request.Context(), deviceauth.RegistrationCompleteRequest{
		AccessToken:   bearerToken(c),
		CodeSignature: req.CodeSignature,
		CodeVerifier:  req.CodeVerifier,
		PublicKey:     req.PublicKey,
		OTPCode:       req.OTP,
		Code:          req.Code,
		DeviceName:    req.DeviceName,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	device := &models.Device{
		DeviceID:        result.DeviceID,
		OwnerUserID:     result.SubjectID,
		DeviceName:      result.DeviceName,
		PublicKeyPEM:    req.PublicKey,
		InteractionMode: result.InteractionMode,
		GrantedScopes:   result.RequestedScopes,
	}

	// Pin mode devices keep a local secret for the recurring login path.
	if result.InteractionMode == models.InteractionModePin {
		if req.Pin == "" {
			respondError(c, &deviceauth.ValidationError{
				Kind:        deviceauth.ErrorInvalidRequest,
				Description: "Missing required parameter",
			})
			return
		}
		pinHash, err := bcrypt.GenerateFromPassword([]byte(req.Pin), bcrypt.DefaultCost)
		if err != nil {
			logger.Error("Failed to hash pin", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error"})
			return
		}
		device.PinHash = string(pinHash)
	}

	if err := h.Devices.Create(c.Request.Context(), device); err != nil {
		logger.Error("Failed to persist device", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error"})
		return
	}

	logger.Info("Device registration completed",
		zap.String("deviceID", result.DeviceID),
		zap.String("subjectID", result.SubjectID))

	c.JSON(http.StatusCreated, gin.H{
		"device_id":   result.DeviceID,
		"device_name": result.DeviceName,
		"mode":        string(result.InteractionMode),
	})
}
