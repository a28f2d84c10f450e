// File: trustlink/services/deviceauth/principal.go
package deviceauth

import "github.com/golang-jwt/jwt"

// reservedClaims are protocol plumbing, stripped when deriving the
// authenticated principal from an access token's claim set.
var reservedClaims = map[string]struct{}{
	"aud":       {},
	"iss":       {},
	"jti":       {},
	"nonce":     {},
	"sid":       {},
	"scope":     {},
	"client_id": {},
	"iat":       {},
	"exp":       {},
	"nbf":       {},
	"auth_time": {},
}

// BuildPrincipal derives the authenticated principal from a validated claim
// set by dropping protocol-reserved claims.
func BuildPrincipal(claims jwt.MapClaims) map[string]interface{} {
	principal := make(map[string]interface{}, len(claims))
	for name, value := range claims {
		if _, reserved := reservedClaims[name]; reserved {
			continue
		}
		principal[name] = value
	}
	return principal
}
