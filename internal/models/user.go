package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a registered account of the identity provider.
type User struct {
	// ID is the unique identifier for the user (UUID format).
	ID string

	// Email is the user's sign-in address (unique).
	// It is also the key of the user's document in the "users" collection.
	Email string

	// Username is the name chosen at sign-up.
	Username string

	// PasswordHash is the bcrypt hash of the user's password.
	PasswordHash string

	// CreatedAt is the Unix timestamp when the account was created.
	CreatedAt int64

	// UpdatedAt is the Unix timestamp of the last account change.
	UpdatedAt int64
}

// NewUser builds a User with a fresh ID and timestamps.
func NewUser(email, username, passwordHash string) *User {
	now := time.Now().Unix()
	return &User{
		ID:           uuid.New().String(),
		Email:        email,
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
