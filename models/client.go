package models

import "time"

// Grant type identifiers clients may be allowed to use.
const (
	GrantTypePassword    = "password"
	GrantTypeDeviceLogin = "device_login"
)

// Client is an application allowed to call the authentication endpoints.
// Client records are read-only for the device-binding flows.
type Client struct {
	ClientID          string   `bson:"client_id" json:"clientId"`
	Name              string   `bson:"name" json:"name"`
	Enabled           bool     `bson:"enabled" json:"enabled"`
	AllowedGrantTypes []string `bson:"allowed_grant_types" json:"allowedGrantTypes"`

	// AuthorizationCodeLifetime caps the age of any code redeemed on behalf
	// of this client, in addition to the code's own lifetime.
	AuthorizationCodeLifetime time.Duration `bson:"authorization_code_lifetime" json:"authorizationCodeLifetime"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// AllowsGrantType reports whether the client may use the given grant type.
func (c *Client) AllowsGrantType(grantType string) bool {
	for _, g := range c.AllowedGrantTypes {
		if g == grantType {
			return true
		}
	}
	return false
}
