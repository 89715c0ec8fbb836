package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrUserNotFound        = fmt.Errorf("user %w", ErrNotFound)
	ErrAdminNotFound       = fmt.Errorf("admin user %w", ErrNotFound)
	ErrTargetNotFound      = fmt.Errorf("target user %w", ErrNotFound)
	ErrDuplicateEmail      = errors.New("email already exists")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrInvalidCredentials  = fmt.Errorf("%w: invalid email or password", ErrUnauthorized)
	ErrForbidden           = errors.New("user does not have admin privileges")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrInvalidInput        = errors.New("invalid input")
	ErrStoreUnavailable    = errors.New("store unavailable")
)

// StoreError wraps a persistence failure. It matches both ErrStoreUnavailable
// and the underlying driver error under errors.Is.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() []error {
	return []error{ErrStoreUnavailable, e.Err}
}

// NewStoreError returns nil when err is nil.
func NewStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}
