package model

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("record not found")
	ErrDuplicateID      = errors.New("id already exists")
	ErrWrongCredential  = errors.New("current password is incorrect")
	ErrUnknownIdentity  = errors.New("no account exists for this identity")
	ErrNotAuthenticated = errors.New("not logged in")
)

// ValidationError is bad user input. It never reaches the backing store.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// AuthError is a failed identity check. Message is safe to show to the user.
type AuthError struct {
	Message string
	Err     error
}

func (e *AuthError) Error() string { return e.Message }

func (e *AuthError) Unwrap() error { return e.Err }

// StoreError is a failed create/update/delete/transaction against the backing store.
type StoreError struct {
	Op   string
	Kind Kind
	Err  error
}

func (e *StoreError) Error() string {
	if e.Kind == "" {
		return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s failed: %v", e.Op, e.Kind, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// ImportFormatError is an unparsable or schema-mismatched import file.
type ImportFormatError struct {
	Err error
}

func (e *ImportFormatError) Error() string {
	return fmt.Sprintf("invalid import file: %v", e.Err)
}

func (e *ImportFormatError) Unwrap() error { return e.Err }
