package config

import "modelkombat/config/models"

// Identity reports the currently authenticated user
type Identity interface {
	CurrentUser() (userID string, ok bool)
}

// LocalIdentity is the identity of the local-only backend: always authenticated
// as the fixed local user.
type LocalIdentity struct{}

// CurrentUser returns models.LocalUserID
func (LocalIdentity) CurrentUser() (string, bool) {
	return models.LocalUserID, true
}

// StaticIdentity is a fixed user id; the empty value means nobody is signed in
type StaticIdentity string

// CurrentUser returns the id, ok is false when it is empty
func (s StaticIdentity) CurrentUser() (string, bool) {
	return string(s), s != ""
}
