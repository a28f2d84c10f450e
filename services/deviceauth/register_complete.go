// File: trustlink/services/deviceauth/register_complete.go
package deviceauth

import (
	"context"

	"trustlink/models"
	"trustlink/utils"

	"go.uber.org/zap"
)

// RegistrationCompleteRequest is the second enrollment request. The code
// signature proves possession of the private key matching the submitted
// public key; the code verifier proves the caller initiated the flow.
type RegistrationCompleteRequest struct {
	AccessToken   string
	CodeSignature string
	CodeVerifier  string
	PublicKey     string
	OTPCode       string
	Code          string
	DeviceName    string
}

// CompleteRegistration validates the second enrollment request and yields
// the identity the new device binds to. The authorization transaction is
// consumed in step 4 no matter how later steps turn out, so a code can never
// be replayed after a failed completion.
func (s *Service) CompleteRegistration(ctx context.Context, req RegistrationCompleteRequest) (*RegistrationCompleteResult, error) {
	claims, verr := validateAccessToken(req.AccessToken)
	if verr != nil {
		return nil, verr
	}
	subjectID, clientID, verr := requiredIdentityClaims(claims)
	if verr != nil {
		return nil, verr
	}

	if req.CodeSignature == "" || req.CodeVerifier == "" || req.PublicKey == "" || req.OTPCode == "" || req.Code == "" {
		return nil, invalid(ErrorInvalidRequest, "Missing required parameter")
	}

	client, verr := s.loadEnabledClient(ctx, clientID)
	if verr != nil {
		return nil, verr
	}
	if !client.AllowsGrantType(models.GrantTypePassword) {
		return nil, invalid(ErrorUnauthorizedClient, "Client is not authorized")
	}

	// Single-use redemption. The transaction is gone after this call even
	// if a later check fails.
	tx, err := s.Transactions.Redeem(ctx, req.Code)
	if err != nil {
		utils.GetLogger().Error("Failed to redeem authorization transaction", zap.Error(err))
		return nil, err
	}
	if tx == nil {
		return nil, invalid(ErrorInvalidGrant, "Authorization code is invalid")
	}

	if tx.ClientID != client.ClientID {
		return nil, invalid(ErrorInvalidGrant, "Authorization code is invalid")
	}
	if !s.codeFresh(tx.CreatedAt, tx.Lifetime, client) {
		return nil, invalid(ErrorInvalidGrant, "Authorization code is invalid")
	}
	if len(tx.RequestedScopes) == 0 {
		return nil, invalid(ErrorInvalidGrant, "Authorization code is invalid")
	}

	if !CheckProofOfPossession(req.CodeVerifier, tx.CodeChallenge) {
		return nil, invalid(ErrorInvalidGrant, "Transformed code verifier does not match code challenge")
	}

	if err := VerifySignature([]byte(req.PublicKey), req.Code, req.CodeSignature); err != nil {
		return nil, invalid(ErrorInvalidGrant, "Code signature is invalid")
	}

	requestedScopes := utils.TokenScopes(claims)
	principal := BuildPrincipal(claims)

	// The OTP is bound to exactly this (subject, device) registration
	// attempt; a code issued for another device or user will not verify.
	if err := s.OTP.Verify(ctx, subjectID, tx.DeviceID, req.OTPCode); err != nil {
		return nil, invalid(ErrorInvalidGrant, "OTP verification failed")
	}

	return &RegistrationCompleteResult{
		Client:          client,
		DeviceID:        tx.DeviceID,
		DeviceName:      req.DeviceName,
		InteractionMode: tx.InteractionMode,
		Principal:       principal,
		RequestedScopes: requestedScopes,
		SubjectID:       subjectID,
	}, nil
}
