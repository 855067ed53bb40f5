package application

import (
	"errors"
	"fmt"
)

// Error taxonomy returned by every application operation. Store and provider
// failures are converted at the boundary; callers match with errors.Is.
var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("conflict")
	ErrUpstream     = errors.New("upstream failure")
	ErrInvalidInput = errors.New("invalid input")
)

var (
	ErrUserNotFound       = fmt.Errorf("user %w", ErrNotFound)
	ErrEmailRegistered    = fmt.Errorf("email already registered: %w", ErrConflict)
	ErrInactiveUser       = fmt.Errorf("inactive user: %w", ErrForbidden)
	ErrInvalidCredentials = fmt.Errorf("could not validate credentials: %w", ErrUnauthorized)
	ErrOAuthNotConfigured = fmt.Errorf("google oauth not configured: %w", ErrUpstream)
)

func upstream(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUpstream, err)
}
