package utils

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base32"
	"errors"
	"fmt"

	"trustlink/config"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// ErrOTPMismatch is returned when the provided OTP does not match the stored record.
var ErrOTPMismatch = errors.New("OTP does not match")

// ErrOTPNotFound is returned when no OTP record exists for the purpose key.
var ErrOTPNotFound = errors.New("OTP not found or expired")

// generateSecureOTP generates a secure random OTP of the specified length.
// It returns a base32 encoded string (without padding) truncated to the desired length.
func generateSecureOTP(length int) (string, error) {
	numBytes := (length*5 + 7) / 8 // Calculate the required number of bytes.
	randomBytes := make([]byte, numBytes)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	otp := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(randomBytes)
	if len(otp) > length {
		otp = otp[:length]
	}
	return otp, nil
}

// otpPurposeKey derives the Redis key binding an OTP to exactly one
// (subject, device) pair, so a code cannot be replayed across contexts.
func otpPurposeKey(subjectID, deviceID string) string {
	return fmt.Sprintf("%s%s:%s", OTPPrefix, subjectID, deviceID)
}

// SendOTPMessage delivers the OTP out of band. Delivery transports (SMS,
// push) live outside this service; the outgoing message is logged.
func SendOTPMessage(phoneNumber, message string) error {
	GetLogger().Sugar().Infof("Sending OTP message to %s: %s", phoneNumber, message)
	return nil
}

// InitiateDeviceOTP generates an OTP bound to (subjectID, deviceID), stores
// it in Redis with a TTL, and hands it to the delivery transport.
func InitiateDeviceOTP(ctx context.Context, subjectID, deviceID, phoneNumber string) error {
	// Generate a secure 6-character OTP.
	otp, err := generateSecureOTP(6)
	if err != nil {
		return fmt.Errorf("failed to generate OTP: %w", err)
	}
	ttl := config.AppConfig.OTPLifetime
	otpKey := otpPurposeKey(subjectID, deviceID)

	client := GetOTPCacheClient()
	if client == nil {
		return fmt.Errorf("OTP cache client not initialized")
	}

	if err := client.Set(ctx, otpKey, otp, ttl).Err(); err != nil {
		GetLogger().Error("Failed to cache OTP", zap.Error(err))
		return fmt.Errorf("failed to initiate device OTP")
	}

	message := fmt.Sprintf("Your Trustlink verification code is: %s. It expires in %v.", otp, ttl)
	if err := SendOTPMessage(phoneNumber, message); err != nil {
		GetLogger().Error("Failed to send OTP", zap.Error(err))
		return fmt.Errorf("failed to send OTP")
	}

	GetLogger().Sugar().Infof("Sent OTP for subject %s, device %s (expires in %v)", subjectID, deviceID, ttl)
	return nil
}

// VerifyDeviceOTPRecord retrieves the stored OTP for the (subject, device)
// purpose and compares it to the provided OTP in constant time.
// If they match, it deletes the OTP from the cache.
func VerifyDeviceOTPRecord(ctx context.Context, subjectID, deviceID, providedOTP string) error {
	otpKey := otpPurposeKey(subjectID, deviceID)
	client := GetOTPCacheClient()
	if client == nil {
		return fmt.Errorf("OTP cache client not initialized")
	}

	storedOTP, err := client.Get(ctx, otpKey).Result()
	if err != nil {
		if err == redis.Nil {
			return ErrOTPNotFound
		}
		return fmt.Errorf("failed to retrieve OTP: %w", err)
	}

	if subtle.ConstantTimeCompare([]byte(storedOTP), []byte(providedOTP)) != 1 {
		return ErrOTPMismatch
	}

	// Delete the OTP after successful verification.
	if err := client.Del(ctx, otpKey).Err(); err != nil {
		GetLogger().Error("Failed to delete OTP after verification", zap.Error(err))
	}
	return nil
}
