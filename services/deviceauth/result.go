// File: trustlink/services/deviceauth/result.go
package deviceauth

import "trustlink/models"

// ErrorKind identifies the class of a validation failure. The wire-level
// error strings stay coarse so responses never become an oracle for probing
// device state.
type ErrorKind string

const (
	ErrorInvalidToken       ErrorKind = "invalid_token"
	ErrorInvalidRequest     ErrorKind = "invalid_request"
	ErrorUnauthorizedClient ErrorKind = "unauthorized_client"
	ErrorInvalidGrant       ErrorKind = "invalid_grant"
	ErrorInvalidTarget      ErrorKind = "invalid_target"
)

// ValidationError is an expected validation failure, carried as data rather
// than a fault. Extra holds response flags such as requires_password.
type ValidationError struct {
	Kind        ErrorKind
	Description string
	Extra       map[string]interface{}
}

func (e *ValidationError) Error() string {
	if e.Description == "" {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Description
}

func invalid(kind ErrorKind, description string) *ValidationError {
	return &ValidationError{Kind: kind, Description: description}
}

func invalidWithExtra(kind ErrorKind, description string, extra map[string]interface{}) *ValidationError {
	return &ValidationError{Kind: kind, Description: description, Extra: extra}
}

// RegistrationInitResult is the outcome of a successful registration init.
// The enrollment code itself lives on the persisted transaction; the store
// generates it.
type RegistrationInitResult struct {
	Client          *models.Client
	Transaction     *models.AuthorizationTransaction
	Principal       map[string]interface{}
	RequestedScopes []string
	SubjectID       string
}

// RegistrationCompleteResult is the outcome of a successful registration
// completion. The caller persists the new device record from it.
type RegistrationCompleteResult struct {
	Client          *models.Client
	DeviceID        string
	DeviceName      string
	InteractionMode models.InteractionMode
	Principal       map[string]interface{}
	RequestedScopes []string
	SubjectID       string
}

// DeviceGrantResult is the outcome of a successful device login grant.
type DeviceGrantResult struct {
	Client          *models.Client
	Device          *models.Device
	SubjectID       string
	RequestedScopes []string
	Method          string
	// ExtraClaims carries additional claims to attach to the granted token,
	// such as validated authorization_details.
	ExtraClaims map[string]interface{}
}

// PreAuthResult is the outcome of a device login pre-auth step.
type PreAuthResult struct {
	Challenge *models.DeviceGrantChallenge
}
