package client

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mmynk/emergencyclick/internal/models"
)

// Session is the signed-in state persisted between CLI invocations.
type Session struct {
	Server    string      `yaml:"server"`
	Token     string      `yaml:"token"`
	ExpiresAt time.Time   `yaml:"expires_at"`
	User      SessionUser `yaml:"user"`
}

// SessionUser is the part of the account kept in the session file.
type SessionUser struct {
	ID       string `yaml:"id"`
	Email    string `yaml:"email"`
	Username string `yaml:"username"`
}

// Valid reports whether the session holds a token that has not expired at now.
func (s *Session) Valid(now time.Time) bool {
	return s != nil && s.Token != "" && now.Before(s.ExpiresAt)
}

// AsUser returns the session's account as a model.
func (s *Session) AsUser() *models.User {
	return &models.User{ID: s.User.ID, Email: s.User.Email, Username: s.User.Username}
}

// LoadSession reads a session file. A missing file yields nil and no error.
func LoadSession(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}

	var s Session
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", path, err)
	}
	return &s, nil
}

// Save writes the session file, readable only by the owner.
func (s *Session) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// ClearSession deletes the session file if present.
func ClearSession(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}
