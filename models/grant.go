// File: trustlink/models/grant.go
package models

import "time"

// AuthorizationTransaction is the single-use enrollment code created by the
// registration init step and redeemed exactly once by registration complete.
type AuthorizationTransaction struct {
	Code                string          `json:"code"`
	CodeChallenge       string          `json:"codeChallenge"`
	CodeChallengeMethod string          `json:"codeChallengeMethod"`
	DeviceID            string          `json:"deviceId"`
	ClientID            string          `json:"clientId"`
	SubjectID           string          `json:"subjectId"`
	RequestedScopes     []string        `json:"requestedScopes"`
	InteractionMode     InteractionMode `json:"interactionMode"`
	CreatedAt           time.Time       `json:"createdAt"`
	Lifetime            time.Duration   `json:"lifetime"`
}

// DeviceGrantChallenge is the single-use login code created by the device
// login pre-auth step and redeemed exactly once by the device grant.
type DeviceGrantChallenge struct {
	Code            string        `json:"code"`
	CodeChallenge   string        `json:"codeChallenge"`
	DeviceID        string        `json:"deviceId"`
	ClientID        string        `json:"clientId"`
	SubjectID       string        `json:"subjectId"`
	RequestedScopes []string      `json:"requestedScopes"`
	CreatedAt       time.Time     `json:"createdAt"`
	Lifetime        time.Duration `json:"lifetime"`
}

// LoginEventPayload is the asynq task payload for login notifications.
type LoginEventPayload struct {
	UserID   string `json:"userId"`
	DeviceID string `json:"deviceId"`
	ClientID string `json:"clientId"`
	Success  bool   `json:"success"`
	Reason   string `json:"reason,omitempty"`
	Method   string `json:"method"` // "fingerprint" or "pin"
}
