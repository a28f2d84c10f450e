// File: trustlink/services/deviceauth/pkce.go
package deviceauth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
)

// CodeChallengeMethodS256 is the only supported code challenge method.
const CodeChallengeMethodS256 = "S256"

// ComputeCodeChallenge computes the S256 code challenge for a verifier.
func ComputeCodeChallenge(verifier string) string {
	hash := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(hash[:])
}

// CheckProofOfPossession reports whether the code verifier transforms to the
// stored code challenge. The comparison is constant time.
func CheckProofOfPossession(codeVerifier, codeChallenge string) bool {
	transformed := ComputeCodeChallenge(codeVerifier)
	return subtle.ConstantTimeCompare([]byte(transformed), []byte(codeChallenge)) == 1
}
