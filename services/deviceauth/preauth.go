// File: trustlink/services/deviceauth/preauth.go
package deviceauth

import (
	"context"

	"trustlink/config"
	"trustlink/models"
	"trustlink/utils"

	"go.uber.org/zap"
)

// PreAuthRequest asks for a fresh device login challenge ahead of a
// fingerprint login. It mirrors the registration init shape.
type PreAuthRequest struct {
	RegistrationID      string
	ClientID            string
	CodeChallenge       string
	CodeChallengeMethod string
}

// InitiateDeviceGrant validates the pre-auth request and persists a
// single-use device login challenge bound to the device, its owner, and the
// scopes granted at registration.
func (s *Service) InitiateDeviceGrant(ctx context.Context, req PreAuthRequest) (*PreAuthResult, error) {
	if req.RegistrationID == "" || req.ClientID == "" || req.CodeChallenge == "" || req.CodeChallengeMethod == "" {
		return nil, invalid(ErrorInvalidRequest, "Missing required parameter")
	}
	if req.CodeChallengeMethod != CodeChallengeMethodS256 {
		return nil, invalid(ErrorInvalidRequest, "Unsupported code challenge method")
	}

	client, verr := s.loadEnabledClient(ctx, req.ClientID)
	if verr != nil {
		return nil, verr
	}
	if !client.AllowsGrantType(models.GrantTypePassword) {
		return nil, invalid(ErrorUnauthorizedClient, "Client is not authorized")
	}

	device, err := s.Devices.GetByID(ctx, req.RegistrationID)
	if err != nil {
		utils.GetLogger().Error("Failed to load device", zap.Error(err))
		return nil, err
	}
	if device == nil {
		return nil, invalid(ErrorInvalidTarget, "Device is unknown")
	}
	if device.RequiresPassword {
		return nil, invalidWithExtra(ErrorInvalidTarget, "Password sign-in required",
			map[string]interface{}{"requires_password": true})
	}

	challenge := &models.DeviceGrantChallenge{
		CodeChallenge:   req.CodeChallenge,
		DeviceID:        device.DeviceID,
		ClientID:        client.ClientID,
		SubjectID:       device.OwnerUserID,
		RequestedScopes: device.GrantedScopes,
		CreatedAt:       s.now(),
		Lifetime:        config.AppConfig.DeviceCodeLifetime,
	}
	if err := s.Challenges.Create(ctx, challenge); err != nil {
		utils.GetLogger().Error("Failed to persist device login challenge", zap.Error(err))
		return nil, err
	}

	return &PreAuthResult{Challenge: challenge}, nil
}
