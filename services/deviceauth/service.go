// File: trustlink/services/deviceauth/service.go
package deviceauth

import (
	"context"
	"time"

	clientRepo "trustlink/database/repository/client"
	deviceRepo "trustlink/database/repository/device"
	userRepo "trustlink/database/repository/user"
	"trustlink/models"
	"trustlink/services/notification"
	"trustlink/utils"
)

// Service validates device registration and device login grants. All state
// flows through explicit parameters and results; a single Service value is
// safe for concurrent use.
type Service struct {
	Devices      deviceRepo.DeviceRepository
	Users        userRepo.UserRepository
	Clients      clientRepo.ClientRepository
	Transactions AuthorizationTransactionStore
	Challenges   DeviceGrantChallengeStore
	OTP          OTPVerifier
	Notifier     notification.LoginNotifier

	// Now is the clock used for freshness checks; defaults to time.Now.
	Now func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// loadEnabledClient resolves a client by id and requires it to be enabled.
func (s *Service) loadEnabledClient(ctx context.Context, clientID string) (*models.Client, *ValidationError) {
	client, err := s.Clients.GetByClientID(ctx, clientID)
	if err != nil {
		utils.GetLogger().Error("Failed to resolve client: " + err.Error())
		return nil, invalid(ErrorUnauthorizedClient, "Client is not authorized")
	}
	if client == nil || !client.Enabled {
		return nil, invalid(ErrorUnauthorizedClient, "Client is not authorized")
	}
	return client, nil
}

// codeFresh reports whether a code issued at createdAt is still within both
// its own lifetime and the client's configured authorization-code lifetime.
func (s *Service) codeFresh(createdAt time.Time, lifetime time.Duration, client *models.Client) bool {
	age := s.now().Sub(createdAt)
	if age > lifetime {
		return false
	}
	if client.AuthorizationCodeLifetime > 0 && age > client.AuthorizationCodeLifetime {
		return false
	}
	return true
}

// RedisOTPVerifier verifies OTPs against the purpose-bound Redis records.
type RedisOTPVerifier struct{}

// NewRedisOTPVerifier returns the production OTP verifier.
func NewRedisOTPVerifier() OTPVerifier {
	return RedisOTPVerifier{}
}

func (RedisOTPVerifier) Verify(ctx context.Context, subjectID, deviceID, otp string) error {
	return utils.VerifyDeviceOTPRecord(ctx, subjectID, deviceID, otp)
}
