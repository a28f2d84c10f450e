package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"trustlink/config"

	"github.com/golang-jwt/jwt"
	"github.com/google/uuid"
)

// ScopeAuthentication is the base scope every access token presented to the
// device-binding endpoints must carry.
const ScopeAuthentication = "authentication"

// Load the secret from config or an environment variable.
func getSecret() []byte {
	secret := config.AppConfig.JWTSecret
	if secret == "" {
		secret = os.Getenv("JWT_SECRET")
	}
	return []byte(secret)
}

// GenerateToken creates a signed JWT for the given subject and client with
// the granted scopes. The token expires after the specified duration.
func GenerateToken(subject, clientID string, scopes []string, duration time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub":       subject,
		"client_id": clientID,
		"scope":     strings.Join(scopes, " "),
		"jti":       uuid.NewString(),
		"iat":       time.Now().Unix(),
		"exp":       time.Now().Add(duration).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(getSecret())
}

// HashToken computes a SHA-256 hash of the token string.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// ValidateToken parses and validates a token string and returns the token if valid.
func ValidateToken(tokenString string) (*jwt.Token, error) {
	return jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// Ensure that the token's signing method is HMAC.
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return getSecret(), nil
	})
}

// ValidateAccessToken validates a token string and returns its claim set.
func ValidateAccessToken(tokenString string) (jwt.MapClaims, error) {
	token, err := ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// TokenScopes extracts the scope claim as a list. The claim may be a
// space-separated string or a list of strings.
func TokenScopes(claims jwt.MapClaims) []string {
	switch v := claims["scope"].(type) {
	case string:
		return strings.Fields(v)
	case []interface{}:
		scopes := make([]string, 0, len(v))
		for _, s := range v {
			if str, ok := s.(string); ok {
				scopes = append(scopes, str)
			}
		}
		return scopes
	}
	return nil
}

// HasScope reports whether the claim set carries the given scope.
func HasScope(claims jwt.MapClaims, scope string) bool {
	for _, s := range TokenScopes(claims) {
		if s == scope {
			return true
		}
	}
	return false
}

// StringClaim returns the named claim if present and a non-empty string.
func StringClaim(claims jwt.MapClaims, name string) (string, error) {
	v, ok := claims[name].(string)
	if !ok || v == "" {
		return "", fmt.Errorf("token does not contain a valid '%s' claim", name)
	}
	return v, nil
}
