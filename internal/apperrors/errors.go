// Package apperrors defines the error taxonomy shared by the configuration
// state, the remote client and the HTTP API.
package apperrors

import (
	"errors"
	"fmt"
)

// Sentinel errors. Concrete errors wrap one of these with fmt.Errorf("...: %w").
var (
	ErrCredentialInvalid  = errors.New("credential invalid")
	ErrNetworkFailure     = errors.New("network failure")
	ErrValidationFailure  = errors.New("validation failure")
	ErrPersistenceFailure = errors.New("persistence failure")

	// ErrNotAuthenticated is a validation failure: a mutation was attempted
	// with no authenticated user.
	ErrNotAuthenticated = fmt.Errorf("%w: no authenticated user", ErrValidationFailure)
)

// Kind names an error category
type Kind string

const (
	KindNone               Kind = ""
	KindCredentialInvalid  Kind = "CredentialInvalid"
	KindNetworkFailure     Kind = "NetworkFailure"
	KindValidationFailure  Kind = "ValidationFailure"
	KindPersistenceFailure Kind = "PersistenceFailure"
	KindUnknown            Kind = "Unknown"
)

// KindOf returns the category of err, KindNone for nil
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrCredentialInvalid):
		return KindCredentialInvalid
	case errors.Is(err, ErrNetworkFailure):
		return KindNetworkFailure
	case errors.Is(err, ErrValidationFailure):
		return KindValidationFailure
	case errors.Is(err, ErrPersistenceFailure):
		return KindPersistenceFailure
	default:
		return KindUnknown
	}
}

// Validation wraps a message as a validation failure
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidationFailure, fmt.Sprintf(format, args...))
}
