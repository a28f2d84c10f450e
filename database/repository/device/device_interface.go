package deviceRepo

import (
	"context"
	"time"

	"trustlink/models"
)

// DeviceRepository defines methods for device registry access.
type DeviceRepository interface {
	// GetByID retrieves a device by its unique ID. Returns nil when absent.
	GetByID(ctx context.Context, deviceID string) (*models.Device, error)
	// ListByOwner retrieves all devices bound to a user.
	ListByOwner(ctx context.Context, ownerUserID string) ([]models.Device, error)
	// Create inserts a new device record.
	Create(ctx context.Context, device *models.Device) error
	// RotatePublicKey replaces the stored public key, guarded by the
	// device's version so a concurrent update is never silently overwritten.
	RotatePublicKey(ctx context.Context, deviceID string, version int64, publicKeyPEM string) error
	// SetRequiresPassword flips the password fallback kill switch.
	SetRequiresPassword(ctx context.Context, deviceID string, required bool) error
	// UpdateLastSignIn records a successful sign-in time.
	UpdateLastSignIn(ctx context.Context, deviceID string, at time.Time) error
	// Delete removes a device record by its ID.
	Delete(ctx context.Context, deviceID string) error
}
