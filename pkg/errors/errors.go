// Package errors defines error types and utilities for authdb
package errors

import (
	"errors"
	"fmt"
)

// Common errors that can occur in authdb operations
var (
	// ErrUnsupportedRequest is returned when a request asks for something the
	// adapter cannot translate: offsets, OR mixed with additional clauses,
	// more than one bound per direction, bounds on different fields, or a
	// nested transaction.
	ErrUnsupportedRequest = errors.New("unsupported request")

	// ErrConstraintViolation is returned when a write would duplicate a value
	// in a field declared unique.
	ErrConstraintViolation = errors.New("unique constraint violation")

	// ErrMissingIndex is returned when a field declared unique has no backing
	// index. This is a schema configuration defect, never degraded silently.
	ErrMissingIndex = errors.New("no index backs unique field")

	// ErrDocumentNotFound is returned by stores when a document id does not
	// exist. Singular update/delete map this to a benign empty result.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrInvalidCursor is returned when a continuation cursor cannot be
	// decoded or was issued for a different plan shape.
	ErrInvalidCursor = errors.New("invalid cursor")

	// ErrInvalidFilter is returned when a filter is malformed (unknown
	// operator, in/not_in without a list value).
	ErrInvalidFilter = errors.New("invalid filter")
)

// AdapterError represents a detailed error with operation context
type AdapterError struct {
	Err   error
	Op    string
	Model string
}

// Error implements the error interface. Model names and payload data stay
// out of the message; only the operation and underlying error are exposed.
func (e *AdapterError) Error() string {
	return fmt.Sprintf("authdb: %s operation failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error
func (e *AdapterError) Unwrap() error {
	return e.Err
}

// Is checks if the error matches the target error
func (e *AdapterError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewError creates a new AdapterError
func NewError(op, model string, err error) *AdapterError {
	return &AdapterError{
		Op:    op,
		Model: model,
		Err:   err,
	}
}

// IsUnsupportedRequest checks if an error indicates an untranslatable request
func IsUnsupportedRequest(err error) bool {
	return errors.Is(err, ErrUnsupportedRequest)
}

// IsConstraintViolation checks if an error indicates a unique collision
func IsConstraintViolation(err error) bool {
	return errors.Is(err, ErrConstraintViolation)
}

// IsMissingIndex checks if an error indicates an unbacked unique field
func IsMissingIndex(err error) bool {
	return errors.Is(err, ErrMissingIndex)
}

// IsNotFound checks if an error indicates a missing document
func IsNotFound(err error) bool {
	return errors.Is(err, ErrDocumentNotFound)
}
