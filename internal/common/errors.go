// Package common defines the error taxonomy shared by every layer of the
// service. Callers wrap these values with fmt.Errorf("%w: ...") and match
// them with errors.Is.
package common

import "errors"

var (
	// Input rejected before any state change.
	ErrValidation = errors.New("validation error")

	// Entity does not exist or belongs to another user.
	ErrNotFound = errors.New("not found")

	// Entity exists but the caller may not act on it.
	ErrForbidden = errors.New("forbidden")

	// Operation not allowed in the current state.
	ErrConflict = errors.New("conflict")

	// A collaborator (AI, mail, SMS, storage) failed.
	ErrExternalService = errors.New("external service error")

	// Timeout or other retryable failure.
	ErrTransient = errors.New("transient error")

	// Missing or invalid credentials.
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
