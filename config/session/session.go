// Package session keeps the CLI login marker that identifies the current user
// for the account-scoped configuration backend.
package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const markerFile = "session.json"

// Marker records who is logged in on this machine
type Marker struct {
	UserID    string    `json:"userId"`
	Timestamp time.Time `json:"timestamp"`
}

// Login writes a session marker for userID into dir
func Login(dir, userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return fmt.Errorf("user id cannot be empty")
	}

	data, err := json.MarshalIndent(Marker{UserID: userID, Timestamp: time.Now().UTC()}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize session marker: %w", err)
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, markerFile), data, 0600); err != nil {
		return fmt.Errorf("failed to write session marker: %w", err)
	}
	return nil
}

// Logout removes the session marker; logging out twice is not an error
func Logout(dir string) error {
	err := os.Remove(filepath.Join(dir, markerFile))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove session marker: %w", err)
	}
	return nil
}

// Current returns the active marker, or nil when nobody is logged in.
// A corrupt marker counts as logged out.
func Current(dir string) (*Marker, error) {
	data, err := os.ReadFile(filepath.Join(dir, markerFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read session marker: %w", err)
	}

	var m Marker
	if err := json.Unmarshal(data, &m); err != nil || m.UserID == "" {
		return nil, nil
	}
	return &m, nil
}

// Identity resolves the current user from the marker in dir on every call,
// so a login or logout from another process is picked up.
type Identity struct {
	dir string
}

// NewIdentity creates an Identity reading markers from dir
func NewIdentity(dir string) *Identity {
	return &Identity{dir: dir}
}

// CurrentUser returns the logged-in user id
func (i *Identity) CurrentUser() (string, bool) {
	m, err := Current(i.dir)
	if err != nil || m == nil {
		return "", false
	}
	return m.UserID, true
}
