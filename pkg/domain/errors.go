package domain

import (
	"errors"
	"fmt"
	"strings"
)

// FieldError describes a single violated field constraint.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError reports every violated field constraint for a proposed
// record, not just the first. Callers correct the input and retry.
type ValidationError struct {
	Entity EntityType
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, fmt.Sprintf("%s: %s", f.Field, f.Message))
	}
	return fmt.Sprintf("%s validation failed: %s", e.Entity, strings.Join(msgs, "; "))
}

// Add appends a field violation.
func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// FieldMessage returns the message recorded for a field, if any.
func (e *ValidationError) FieldMessage(field string) (string, bool) {
	for _, f := range e.Fields {
		if f.Field == field {
			return f.Message, true
		}
	}
	return "", false
}

// Empty reports whether no violations were recorded.
func (e *ValidationError) Empty() bool { return len(e.Fields) == 0 }

// ReferentialIntegrityError reports a delete blocked by dependent records.
// Dependents carries the blocking record count for user-facing messages.
type ReferentialIntegrityError struct {
	Entity     EntityType
	EntityID   string
	Name       string
	Dependents int
}

func (e *ReferentialIntegrityError) Error() string {
	return fmt.Sprintf("cannot delete %s %q: in use by %d products", e.Entity, e.Name, e.Dependents)
}

// PermissionDeniedError reports a mutating call made without the required
// capability. Recoverable by switching principal.
type PermissionDeniedError struct {
	Capability Capability
}

func (e *PermissionDeniedError) Error() string {
	return fmt.Sprintf("permission denied: %s required", e.Capability)
}

// NotFoundError reports a missing record.
type NotFoundError struct {
	Entity EntityType
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// StoreError wraps a transport failure from the document store. Both reads
// and writes are independently retryable by the caller.
type StoreError struct {
	Op     string // "read" or "write"
	Entity EntityType
	Err    error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s failed for %s: %v", e.Op, e.Entity, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// IsRetryable reports whether the error is a transient store failure.
func IsRetryable(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}
