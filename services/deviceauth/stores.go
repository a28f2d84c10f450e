// File: trustlink/services/deviceauth/stores.go
package deviceauth

import (
	"context"

	"trustlink/models"
)

// AuthorizationTransactionStore persists single-use enrollment codes.
type AuthorizationTransactionStore interface {
	// Create persists the transaction, generating its opaque code. The
	// populated code is written back onto the transaction.
	Create(ctx context.Context, tx *models.AuthorizationTransaction) error
	// Redeem atomically fetches and deletes the transaction for a code.
	// Exactly one of two concurrent redeemers wins; the loser and any
	// unknown code get (nil, nil).
	Redeem(ctx context.Context, code string) (*models.AuthorizationTransaction, error)
}

// DeviceGrantChallengeStore persists single-use device login codes with the
// same single-winner redemption semantics.
type DeviceGrantChallengeStore interface {
	Create(ctx context.Context, challenge *models.DeviceGrantChallenge) error
	Redeem(ctx context.Context, code string) (*models.DeviceGrantChallenge, error)
}

// OTPVerifier checks a one-time password against its purpose binding.
type OTPVerifier interface {
	// Verify consumes the OTP stored for (subjectID, deviceID) if it
	// matches the provided value.
	Verify(ctx context.Context, subjectID, deviceID, otp string) error
}
