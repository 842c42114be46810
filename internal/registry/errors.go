package registry

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by a Registry matches exactly one of
// these with errors.Is.
var (
	ErrNotAuthenticated = errors.New("not logged in")
	ErrInvalidInput     = errors.New("invalid email address")
	ErrDuplicateEntry   = errors.New("email already added")
	ErrStoreWrite       = errors.New("store write failed")
	ErrStoreRead        = errors.New("store read failed")
	ErrInFlight         = errors.New("operation already in progress")
)

// Store names used in StoreError.
const (
	StoreShared   = "shared"
	StoreDocument = "document"
)

// StoreError reports a failed call to one of the backing stores.
type StoreError struct {
	Op    string
	Store string
	Key   string
	Kind  error
	Err   error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s %s store (key %q): %v", e.Op, e.Store, e.Key, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Is matches the error kind so callers can test errors.Is(err, ErrStoreWrite).
func (e *StoreError) Is(target error) bool {
	return target == e.Kind
}

// Alert maps an error to the title and body of the modal shown to the user.
// Both stores collapse to the same failure message.
func Alert(op string, err error) (title, message string) {
	switch {
	case errors.Is(err, ErrNotAuthenticated):
		return "Not logged in", "Please log in to add emails."
	case errors.Is(err, ErrInvalidInput):
		return "Invalid Input", "Please enter a valid email address."
	case errors.Is(err, ErrDuplicateEntry):
		return "Duplicate", "Email already added."
	case errors.Is(err, ErrInFlight):
		return "Please wait", "The previous request is still in progress."
	case errors.Is(err, ErrStoreRead):
		return "Error", "Failed to load emails."
	}
	if op == OpRemove {
		return "Error", "Failed to remove email."
	}
	return "Error", "Failed to save email."
}
