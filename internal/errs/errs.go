// Package errs defines the error taxonomy surfaced by the core: field-level
// validation errors, not-found, conflicts, and opaque internal errors. Every
// error carries a machine-readable kind and a human-readable message; stack
// traces and backend detail are never exposed to callers.
package errs

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Kind strings returned in error envelopes.
const (
	KindValidation = "VALIDATION"
	KindNotFound   = "NOT_FOUND"
	KindConflict   = "CONFLICT"
	KindInternal   = "INTERNAL"
)

// ValidationError reports one or more client-fixable field violations.
// The prior state of the record is always left unchanged.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, field+": "+msg)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// NewValidation builds a single-field validation error.
func NewValidation(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

// NotFoundError reports a missing or soft-deleted record.
type NotFoundError struct {
	Kind string // "vehicle" or "driver"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

// NewNotFound builds a not-found error for a record kind and id.
func NewNotFound(kind, id string) *NotFoundError {
	return &NotFoundError{Kind: kind, ID: id}
}

// ConflictError reports a uniqueness or exclusivity violation: a duplicate
// vehicle number, or a driver already assigned to another vehicle.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string {
	return e.Reason
}

// NewConflict builds a conflict error.
func NewConflict(format string, args ...any) *ConflictError {
	return &ConflictError{Reason: fmt.Sprintf(format, args...)}
}

// InternalError wraps a backend failure behind an opaque correlation id.
// The cause is logged server-side; callers only ever see the id.
type InternalError struct {
	CorrelationID string
	cause         error
}

func (e *InternalError) Error() string {
	return "internal error (correlation id " + e.CorrelationID + ")"
}

func (e *InternalError) Unwrap() error {
	return e.cause
}

// NewInternal wraps err with a fresh correlation id.
func NewInternal(err error) *InternalError {
	return &InternalError{CorrelationID: uuid.NewString(), cause: err}
}

// AsValidation extracts a ValidationError if err is one.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	ok := errors.As(err, &ve)
	return ve, ok
}

// AsNotFound extracts a NotFoundError if err is one.
func AsNotFound(err error) (*NotFoundError, bool) {
	var nf *NotFoundError
	ok := errors.As(err, &nf)
	return nf, ok
}

// AsConflict extracts a ConflictError if err is one.
func AsConflict(err error) (*ConflictError, bool) {
	var ce *ConflictError
	ok := errors.As(err, &ce)
	return ce, ok
}

// AsInternal extracts an InternalError if err is one.
func AsInternal(err error) (*InternalError, bool) {
	var ie *InternalError
	ok := errors.As(err, &ie)
	return ie, ok
}
