package engine

import (
	"errors"
	"fmt"
)

// ErrNotFound marks a referenced engineer, query, or assignment that does
// not exist. Wrap it with the entity detail via NotFoundError.
var ErrNotFound = errors.New("not found")

// NotFoundError reports which entity was missing.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// ErrConflict marks a state-machine violation: completing a non-active
// assignment, assigning a non-pending query, and similar double-processing.
var ErrConflict = errors.New("conflict")

// ConflictError carries enough detail to identify the offending entity.
type ConflictError struct {
	Entity string
	ID     string
	Reason string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Entity, e.ID, e.Reason)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// ErrValidation marks malformed input rejected before it reaches the engine.
var ErrValidation = errors.New("validation")

// ValidationError names the offending field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }
