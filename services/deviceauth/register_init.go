// File: trustlink/services/deviceauth/register_init.go
package deviceauth

import (
	"context"

	"trustlink/config"
	"trustlink/models"
	"trustlink/utils"

	"github.com/golang-jwt/jwt"
	"go.uber.org/zap"
)

// RegistrationInitRequest is the first enrollment request, carrying the
// caller's bearer access token.
type RegistrationInitRequest struct {
	AccessToken         string
	Mode                string
	DeviceID            string
	CodeChallenge       string
	CodeChallengeMethod string
}

// InitiateRegistration validates the first enrollment request and persists a
// single-use authorization transaction. The returned error is a
// *ValidationError for every expected failure.
func (s *Service) InitiateRegistration(ctx context.Context, req RegistrationInitRequest) (*RegistrationInitResult, error) {
	claims, verr := validateAccessToken(req.AccessToken)
	if verr != nil {
		return nil, verr
	}

	subjectID, clientID, verr := requiredIdentityClaims(claims)
	if verr != nil {
		return nil, verr
	}

	if req.Mode == "" || req.DeviceID == "" || req.CodeChallenge == "" || req.CodeChallengeMethod == "" {
		return nil, invalid(ErrorInvalidRequest, "Missing required parameter")
	}
	mode := models.InteractionMode(req.Mode)
	if !mode.Valid() {
		return nil, invalid(ErrorInvalidRequest, "Unknown interaction mode")
	}
	if req.CodeChallengeMethod != CodeChallengeMethodS256 {
		return nil, invalid(ErrorInvalidRequest, "Unsupported code challenge method")
	}

	client, verr := s.loadEnabledClient(ctx, clientID)
	if verr != nil {
		return nil, verr
	}

	requestedScopes := utils.TokenScopes(claims)
	principal := BuildPrincipal(claims)

	tx := &models.AuthorizationTransaction{
		CodeChallenge:       req.CodeChallenge,
		CodeChallengeMethod: req.CodeChallengeMethod,
		DeviceID:            req.DeviceID,
		ClientID:            client.ClientID,
		SubjectID:           subjectID,
		RequestedScopes:     requestedScopes,
		InteractionMode:     mode,
		CreatedAt:           s.now(),
		Lifetime:            config.AppConfig.AuthCodeLifetime,
	}
	if err := s.Transactions.Create(ctx, tx); err != nil {
		utils.GetLogger().Error("Failed to persist authorization transaction", zap.Error(err))
		return nil, err
	}

	return &RegistrationInitResult{
		Client:          client,
		Transaction:     tx,
		Principal:       principal,
		RequestedScopes: requestedScopes,
		SubjectID:       subjectID,
	}, nil
}

// validateAccessToken checks the bearer token's signature, expiry, and base
// authentication scope, returning the claim set.
func validateAccessToken(accessToken string) (jwt.MapClaims, *ValidationError) {
	if accessToken == "" {
		return nil, invalid(ErrorInvalidToken, "Access token is invalid")
	}
	claims, err := utils.ValidateAccessToken(accessToken)
	if err != nil {
		return nil, invalid(ErrorInvalidToken, "Access token is invalid")
	}
	if !utils.HasScope(claims, utils.ScopeAuthentication) {
		return nil, invalid(ErrorInvalidToken, "Access token is invalid")
	}
	return claims, nil
}

// requiredIdentityClaims extracts the sub and client_id claims.
func requiredIdentityClaims(claims jwt.MapClaims) (subjectID, clientID string, verr *ValidationError) {
	subjectID, err := utils.StringClaim(claims, "sub")
	if err != nil {
		return "", "", invalid(ErrorInvalidToken, "Access token is invalid")
	}
	clientID, err = utils.StringClaim(claims, "client_id")
	if err != nil {
		return "", "", invalid(ErrorInvalidToken, "Access token is invalid")
	}
	return subjectID, clientID, nil
}
