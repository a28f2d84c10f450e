package models

import "time"

// User represents an account that devices can be bound to.
type User struct {
	ID           string    `bson:"id" json:"id"`
	Email        string    `bson:"email" json:"email"`
	Username     string    `bson:"username" json:"username"`
	PhoneNumber  string    `bson:"phone_number" json:"phoneNumber,omitempty"`
	PasswordHash string    `bson:"password_hash" json:"-"`
	FCMToken     string    `bson:"fcm_token" json:"-"`
	LastSignInAt time.Time `bson:"last_sign_in_at" json:"lastSignInAt"`
	CreatedAt    time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `bson:"updated_at" json:"updatedAt"`
}
