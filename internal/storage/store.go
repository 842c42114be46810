// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"

	"github.com/mmynk/emergencyclick/internal/models"
)

// UserStorage persists identity provider accounts.
type UserStorage interface {
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByEmail returns nil and no error when the user does not exist.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// GetUserByID returns nil and no error when the user does not exist.
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// DocumentStore holds one document per user in the "users" collection,
// keyed by the user's email.
type DocumentStore interface {
	// CreateUserRecord writes the profile fields of a new document.
	// An existing document keeps its emails mapping.
	CreateUserRecord(ctx context.Context, email, username string) error

	// GetUserRecord returns nil and no error when the document does not exist.
	GetUserRecord(ctx context.Context, email string) (*models.UserRecord, error)

	// SetContactField upserts emails.<key>, creating the document if needed.
	SetContactField(ctx context.Context, userEmail, key, email string) error

	// DeleteContactField removes emails.<key>. Deleting a missing key is not an error.
	DeleteContactField(ctx context.Context, userEmail, key string) error
}

// SharedTable is a key-value node addressed by path.
type SharedTable interface {
	// UpdateFields upserts the named fields; a nil value deletes the field.
	UpdateFields(ctx context.Context, path string, fields map[string]*string) error
}

// SharedSnapshotter reads a whole shared node back. Not every SharedTable
// backend can do this.
type SharedSnapshotter interface {
	GetFields(ctx context.Context, path string) (map[string]string, error)
}

// ClickStore records emergency clicks.
type ClickStore interface {
	CreateClick(ctx context.Context, click *models.Click) error

	// ListClicks returns a user's clicks, newest first, at most limit of them.
	ListClicks(ctx context.Context, userEmail string, limit int) ([]*models.Click, error)
}

// Store is everything the SQLite backend provides.
type Store interface {
	UserStorage
	DocumentStore
	SharedTable
	SharedSnapshotter
	ClickStore

	// Close releases any resources held by the store.
	Close() error
}
