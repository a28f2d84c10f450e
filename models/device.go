// File: trustlink/models/device.go
package models

import "time"

// InteractionMode selects how a bound device re-authenticates its owner.
type InteractionMode string

const (
	// InteractionModeFingerprint re-authenticates with an asymmetric key signature.
	InteractionModeFingerprint InteractionMode = "fingerprint"
	// InteractionModePin re-authenticates with a locally held secret.
	InteractionModePin InteractionMode = "pin"
)

// Valid reports whether the mode is one of the supported interaction modes.
func (m InteractionMode) Valid() bool {
	return m == InteractionModeFingerprint || m == InteractionModePin
}

// Device is a physical device bound to a user at registration completion.
type Device struct {
	DeviceID    string `bson:"device_id" json:"deviceId"`
	OwnerUserID string `bson:"owner_user_id" json:"ownerUserId"`
	DeviceName  string `bson:"device_name" json:"deviceName"`

	// PublicKeyPEM is rotated on every successful fingerprint login.
	PublicKeyPEM string `bson:"public_key_pem,omitempty" json:"-"`
	// PinHash is the bcrypt hash backing the pin login path.
	PinHash string `bson:"pin_hash,omitempty" json:"-"`

	// RequiresPassword is a kill switch forcing password fallback login.
	RequiresPassword bool `bson:"requires_password" json:"requiresPassword"`

	InteractionMode InteractionMode `bson:"interaction_mode" json:"interactionMode"`
	GrantedScopes   []string        `bson:"granted_scopes" json:"grantedScopes"`

	LastSignInAt time.Time `bson:"last_sign_in_at" json:"lastSignInAt"`

	// Version guards public-key rotation against concurrent overwrites.
	Version   int64     `bson:"version" json:"-"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}
