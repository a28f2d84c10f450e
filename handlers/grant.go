// File: trustlink/handlers/grant.go
package handlers

import (
	"net/http"
	"time"

	clientRepo "trustlink/database/repository/client"
	"trustlink/services/deviceauth"
	"trustlink/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// tokenLifetime is the validity of tokens granted by a device login.
const tokenLifetime = 24 * time.Hour

// GrantHandler exposes the device login pre-auth step and the device grant.
type GrantHandler struct {
	Service *deviceauth.Service
	Clients clientRepo.ClientRepository
}

// NewGrantHandler creates a GrantHandler.
func NewGrantHandler(service *deviceauth.Service, clients clientRepo.ClientRepository) *GrantHandler {
	return &GrantHandler{Service: service, Clients: clients}
}

// PreAuthHandler issues a fresh single-use device login challenge.
func (h *GrantHandler) PreAuthHandler(c *gin.Context) {
	var req struct {
		RegistrationID      string `json:"registration_id"`
		ClientID            string `json:"client_id"`
		CodeChallenge       string `json:"code_challenge"`
		CodeChallengeMethod string `json:"code_challenge_method"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "Invalid request body"})
		return
	}

	result, err := h.Service.InitiateDeviceGrant(c.Request.Context(), deviceauth.PreAuthRequest{
		RegistrationID:      req.RegistrationID,
		ClientID:            req.ClientID,
		CodeChallenge:       req.CodeChallenge,
		CodeChallengeMethod: req.CodeChallengeMethod,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":       result.Challenge.Code,
		"expires_in": int(result.Challenge.Lifetime / time.Second),
	})
}

// DeviceGrantHandler validates a device login and returns a granted token.
func (h *GrantHandler) DeviceGrantHandler(c *gin.Context) {
	logger := getLogger(c)

	var req struct {
		ClientID             string `json:"client_id"`
		RegistrationID       string `json:"registration_id"`
		Code                 string `json:"code"`
		CodeSignature        string `json:"code_signature"`
		CodeVerifier         string `json:"code_verifier"`
		PublicKey            string `json:"public_key"`
		Pin                  string `json:"pin"`
		AuthorizationDetails string `json:"authorization_details"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "Invalid request body"})
		return
	}

	ctx := c.Request.Context()
	client, err := h.Clients.GetByClientID(ctx, req.ClientID)
	if err != nil {
		logger.Error("Failed to resolve client", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error"})
		return
	}
	if client == nil || !client.Enabled {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unauthorized_client", "error_description": "Client is not authorized"})
		return
	}

	result, err := h.Service.ValidateDeviceGrant(ctx, client, deviceauth.DeviceGrantRequest{
		RegistrationID:       req.RegistrationID,
		Code:                 req.Code,
		CodeSignature:        req.CodeSignature,
		CodeVerifier:         req.CodeVerifier,
		PublicKey:            req.PublicKey,
		Pin:                  req.Pin,
		AuthorizationDetails: req.AuthorizationDetails,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	token, err := utils.GenerateToken(result.SubjectID, client.ClientID, result.RequestedScopes, tokenLifetime)
	if err != nil {
		logger.Error("Failed to generate token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error"})
		return
	}

	logger.Info("Device login granted",
		zap.String("deviceID", result.Device.DeviceID),
		zap.String("subjectID", result.SubjectID),
		zap.String("method", result.Method))

	body := gin.H{
		"access_token": token,
		"token_type":   "Bearer",
		"expires_in":   int(tokenLifetime / time.Second),
	}
	for k, v := range result.ExtraClaims {
		body[k] = v
	}
	c.JSON(http.StatusOK, body)
}
