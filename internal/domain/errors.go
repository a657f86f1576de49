package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by repository implementations.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrConflict      = errors.New("concurrent modification conflict")
)

// ValidationError reports a single value or entity that failed its
// construction-time checks (format, range, required field).
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
}

// InvalidStateTransitionError reports a status move that the transition
// table does not allow.
type InvalidStateTransitionError struct {
	From string
	To   string
}

// NewInvalidStateTransitionError creates a new invalid transition error
func NewInvalidStateTransitionError(from, to string) *InvalidStateTransitionError {
	return &InvalidStateTransitionError{From: from, To: to}
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("invalid state transition from %s to %s", e.From, e.To)
}

// ImmutableEntityError reports a mutation attempted after an entity
// crossed its immutability boundary.
type ImmutableEntityError struct {
	Entity  string
	Message string
}

// NewImmutableEntityError creates a new immutability violation error
func NewImmutableEntityError(entity, message string) *ImmutableEntityError {
	return &ImmutableEntityError{Entity: entity, Message: message}
}

func (e *ImmutableEntityError) Error() string {
	return fmt.Sprintf("%s is immutable: %s", e.Entity, e.Message)
}

// BusinessRuleViolationError reports a failed rule spanning multiple
// fields or entities.
type BusinessRuleViolationError struct {
	Rule    string
	Message string
}

// NewBusinessRuleViolationError creates a new business rule violation error
func NewBusinessRuleViolationError(rule, message string) *BusinessRuleViolationError {
	return &BusinessRuleViolationError{Rule: rule, Message: message}
}

func (e *BusinessRuleViolationError) Error() string {
	return fmt.Sprintf("business rule %s violated: %s", e.Rule, e.Message)
}

// IsValidationError reports whether err is or wraps a ValidationError
func IsValidationError(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsInvalidStateTransitionError reports whether err is or wraps an InvalidStateTransitionError
func IsInvalidStateTransitionError(err error) bool {
	var target *InvalidStateTransitionError
	return errors.As(err, &target)
}

// IsImmutableEntityError reports whether err is or wraps an ImmutableEntityError
func IsImmutableEntityError(err error) bool {
	var target *ImmutableEntityError
	return errors.As(err, &target)
}

// IsBusinessRuleViolationError reports whether err is or wraps a BusinessRuleViolationError
func IsBusinessRuleViolationError(err error) bool {
	var target *BusinessRuleViolationError
	return errors.As(err, &target)
}
