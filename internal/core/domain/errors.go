package domain

import (
	"errors"
	"fmt"
)

var (
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidInput       = errors.New("invalid input")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrStoreFailure       = errors.New("store failure")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// PolicyError is a Forbidden or InvalidInput failure carrying a
// human-readable reason. errors.Is matches it against its Kind.
type PolicyError struct {
	Kind   error
	Reason string
}

func (e *PolicyError) Error() string {
	if e.Reason == "" {
		return e.Kind.Error()
	}
	return e.Reason
}

func (e *PolicyError) Unwrap() error { return e.Kind }

// Forbidden returns a permission failure with the given reason.
func Forbidden(reason string) error {
	return &PolicyError{Kind: ErrForbidden, Reason: reason}
}

// InvalidInput returns a validation failure with the given reason.
func InvalidInput(reason string) error {
	return &PolicyError{Kind: ErrInvalidInput, Reason: reason}
}

// StoreError wraps an opaque failure from the user store.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Is(target error) bool { return target == ErrStoreFailure }

// StoreFailure wraps err as a store failure for operation op.
func StoreFailure(op string, err error) error {
	return &StoreError{Op: op, Err: err}
}
