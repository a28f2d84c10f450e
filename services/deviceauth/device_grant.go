// File: trustlink/services/deviceauth/device_grant.go
package deviceauth

import (
	"context"
	"encoding/json"

	deviceRepo "trustlink/database/repository/device"
	"trustlink/models"
	"trustlink/utils"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// DeviceGrantRequest is the recurring login grant. Exactly one of the code
// path (code, codeSignature, codeVerifier, publicKey) and the pin path (pin)
// must be supplied.
type DeviceGrantRequest struct {
	RegistrationID       string
	Code                 string
	CodeSignature        string
	CodeVerifier         string
	PublicKey            string
	Pin                  string
	AuthorizationDetails string
}

// ValidateDeviceGrant validates a device login attempt against the resolved
// client and grants an identity on success. The fingerprint path rotates the
// device's stored public key to the one that just proved possession.
func (s *Service) ValidateDeviceGrant(ctx context.Context, client *models.Client, req DeviceGrantRequest) (*DeviceGrantResult, error) {
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

	owner, err := s.Users.GetByID(ctx, device.OwnerUserID)
	if err != nil {
		utils.GetLogger().Error("Failed to load device owner", zap.Error(err))
		return nil, err
	}
	if owner == nil {
		return nil, invalid(ErrorInvalidTarget, "User does not exist")
	}

	hasCode := req.Code != ""
	hasPin := req.Pin != ""
	if hasCode == hasPin {
		return nil, invalid(ErrorInvalidGrant, "Please provide either authorization code or pin")
	}

	extraClaims, verr := parseAuthorizationDetails(req.AuthorizationDetails)
	if verr != nil {
		return nil, verr
	}

	var result *DeviceGrantResult
	if hasCode {
		result, verr = s.validateCodePath(ctx, client, device, req)
	} else {
		result, verr = s.validatePinPath(device, req.Pin)
	}
	if verr != nil {
		s.recordLoginOutcome(ctx, client, device, result, verr)
		return nil, verr
	}
	result.ExtraClaims = extraClaims

	s.recordLoginOutcome(ctx, client, device, result, nil)
	return result, nil
}

// validateCodePath redeems the device login challenge and verifies proof of
// possession plus the code signature, then rotates the stored public key.
func (s *Service) validateCodePath(ctx context.Context, client *models.Client, device *models.Device, req DeviceGrantRequest) (*DeviceGrantResult, *ValidationError) {
	challenge, err := s.Challenges.Redeem(ctx, req.Code)
	if err != nil {
		utils.GetLogger().Error("Failed to redeem device login challenge", zap.Error(err))
		return nil, invalid(ErrorInvalidGrant, "Authorization code is invalid")
	}
	if challenge == nil {
		return nil, invalid(ErrorInvalidGrant, "Authorization code is invalid")
	}

	if challenge.ClientID != client.ClientID || challenge.DeviceID != device.DeviceID {
		return nil, invalid(ErrorInvalidGrant, "Authorization code is invalid")
	}
	if !s.codeFresh(challenge.CreatedAt, challenge.Lifetime, client) {
		return nil, invalid(ErrorInvalidGrant, "Authorization code is invalid")
	}
	if len(challenge.RequestedScopes) == 0 {
		return nil, invalid(ErrorInvalidGrant, "Authorization code is invalid")
	}

	if !CheckProofOfPossession(req.CodeVerifier, challenge.CodeChallenge) {
		return nil, invalid(ErrorInvalidGrant, "Transformed code verifier does not match code challenge")
	}
	if err := VerifySignature([]byte(req.PublicKey), req.Code, req.CodeSignature); err != nil {
		return nil, invalid(ErrorInvalidGrant, "Code signature is invalid")
	}

	// The supplied key just proved possession; it becomes the device's key.
	// A concurrent rotation loses here rather than being overwritten.
	if err := s.Devices.RotatePublicKey(ctx, device.DeviceID, device.Version, req.PublicKey); err != nil {
		if err == deviceRepo.ErrVersionConflict {
			return nil, invalid(ErrorInvalidGrant, "Device was updated concurrently, please retry")
		}
		utils.GetLogger().Error("Failed to rotate device public key", zap.Error(err))
		return nil, invalid(ErrorInvalidGrant, "Authorization code is invalid")
	}
	device.PublicKeyPEM = req.PublicKey

	return &DeviceGrantResult{
		Client:          client,
		Device:          device,
		SubjectID:       challenge.SubjectID,
		RequestedScopes: challenge.RequestedScopes,
		Method:          string(models.InteractionModeFingerprint),
	}, nil
}

// validatePinPath verifies the pin against the device's stored hash.
func (s *Service) validatePinPath(device *models.Device, pin string) (*DeviceGrantResult, *ValidationError) {
	if device.PinHash == "" {
		return nil, invalid(ErrorInvalidGrant, "Wrong pin")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(device.PinHash), []byte(pin)); err != nil {
		return nil, invalid(ErrorInvalidGrant, "Wrong pin")
	}
	return &DeviceGrantResult{
		Device:          device,
		SubjectID:       device.OwnerUserID,
		RequestedScopes: device.GrantedScopes,
		Method:          string(models.InteractionModePin),
	}, nil
}

// recordLoginOutcome stamps last sign-in on success and emits a login
// notification either way.
func (s *Service) recordLoginOutcome(ctx context.Context, client *models.Client, device *models.Device, result *DeviceGrantResult, verr *ValidationError) {
	logger := utils.GetLogger()
	now := s.now()

	event := models.LoginEventPayload{
		UserID:   device.OwnerUserID,
		DeviceID: device.DeviceID,
		ClientID: client.ClientID,
		Success:  verr == nil,
	}
	if verr != nil {
		event.Reason = verr.Description
	} else {
		event.Method = result.Method
		result.Client = client

		if err := s.Devices.UpdateLastSignIn(ctx, device.DeviceID, now); err != nil {
			logger.Error("Failed to update device last sign-in", zap.Error(err))
		}
		if err := s.Users.UpdateLastSignIn(ctx, device.OwnerUserID, now); err != nil {
			logger.Error("Failed to update user last sign-in", zap.Error(err))
		}
	}

	if s.Notifier != nil {
		if err := s.Notifier.NotifyLoginEvent(ctx, event); err != nil {
			logger.Error("Failed to emit login notification", zap.Error(err))
		}
	}
}

// parseAuthorizationDetails validates the RFC 9396 shaped parameter: a JSON
// object or array of objects where every element carries a type field. The
// raw JSON is attached as an additional claim on success.
func parseAuthorizationDetails(raw string) (map[string]interface{}, *ValidationError) {
	if raw == "" {
		return nil, nil
	}

	var parsed interface{}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, invalid(ErrorInvalidRequest, "Invalid json")
	}

	switch v := parsed.(type) {
	case map[string]interface{}:
		if !hasTypeField(v) {
			return nil, invalid(ErrorInvalidRequest, "Unknown type")
		}
	case []interface{}:
		for _, element := range v {
			obj, ok := element.(map[string]interface{})
			if !ok || !hasTypeField(obj) {
				return nil, invalid(ErrorInvalidRequest, "Unknown type")
			}
		}
	default:
		return nil, invalid(ErrorInvalidRequest, "Unknown type")
	}

	return map[string]interface{}{"authorization_details": json.RawMessage(raw)}, nil
}

func hasTypeField(obj map[string]interface{}) bool {
	t, ok := obj["type"].(string)
	return ok && t != ""
}
