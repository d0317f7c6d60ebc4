package service

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals that a referenced entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrForbidden signals that the acting user is not allowed to mutate
	// the target object.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidCredentials is returned by Login for a bad email/password
	// pair without revealing which part was wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// ValidationError is a field-scoped input error. Handlers render it as
// {"<field>": ["<message>"]} with status 400.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ConflictError reports a duplicate toggle or follow attempt. The surface
// responds 400 with a descriptive message, not 409.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }
