package ledger

import (
	"errors"  // Sentinel errors
	"sort"    // Stable field order in messages
	"strings" // Message joining
)

// Error categories surfaced to API callers
var (
	ErrForbidden = errors.New("permission denied")
	ErrNotFound  = errors.New("not found")
	ErrConflict  = errors.New("conflict")
)

// ValidationError carries one message per offending field
type ValidationError struct {
	Fields map[string]string
}

// Invalid builds a ValidationError for a single field
func Invalid(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

// Add records a message for field and returns the error for chaining
func (e *ValidationError) Add(field, msg string) *ValidationError {
	if e.Fields == nil {
		e.Fields = map[string]string{}
	}
	e.Fields[field] = msg
	return e
}

// OrNil returns nil when no field failed
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// ConflictError explains which state transition was refused
type ConflictError struct{ Msg string }

func (e *ConflictError) Error() string { return e.Msg }

// Is lets errors.Is(err, ErrConflict) match
func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

func conflict(msg string) error { return &ConflictError{Msg: msg} }

// ForbiddenError explains why an action was refused
type ForbiddenError struct{ Msg string }

func (e *ForbiddenError) Error() string { return e.Msg }

// Is lets errors.Is(err, ErrForbidden) match
func (e *ForbiddenError) Is(target error) bool { return target == ErrForbidden }

func forbidden(msg string) error { return &ForbiddenError{Msg: msg} }

// NotFoundError names the missing record
type NotFoundError struct{ Msg string }

func (e *NotFoundError) Error() string { return e.Msg }

// Is lets errors.Is(err, ErrNotFound) match
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

func notFound(msg string) error { return &NotFoundError{Msg: msg} }
