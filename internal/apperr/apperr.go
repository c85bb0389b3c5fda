// Package apperr defines the error kinds that cross the service boundary.
// Handlers map them to HTTP status codes with errors.As.
package apperr

import (
	"fmt"
	"sort"
	"strings"
)

// ValidationError reports bad or missing input. Fields is keyed by the JSON
// field name.
type ValidationError struct {
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	if e.Message == "" {
		return strings.Join(parts, "; ")
	}
	return e.Message + " (" + strings.Join(parts, "; ") + ")"
}

func Validation(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

func ValidationFields(fields map[string]string) *ValidationError {
	return &ValidationError{Message: "invalid input", Fields: fields}
}

// NotFoundError is returned for absent and for soft-deleted entities.
type NotFoundError struct {
	Entity string
	Key    string
}

func (e *NotFoundError) Error() string {
	if e.Key == "" {
		return e.Entity + " not found"
	}
	return fmt.Sprintf("%s %s not found", e.Entity, e.Key)
}

func NotFound(entity, key string) *NotFoundError {
	return &NotFoundError{Entity: entity, Key: key}
}

type PermissionError struct {
	Role   string
	Action string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("role %s may not %s", e.Role, e.Action)
}

func Permission(role, action string) *PermissionError {
	return &PermissionError{Role: role, Action: action}
}

// IntegrityError is a uniqueness violation in the relational store.
type IntegrityError struct {
	Message string
	Err     error
}

func (e *IntegrityError) Error() string {
	return e.Message
}

func (e *IntegrityError) Unwrap() error {
	return e.Err
}

func Integrity(msg string, err error) *IntegrityError {
	return &IntegrityError{Message: msg, Err: err}
}

// ExternalSyncError wraps a replica write failure. It never fails a primary
// operation; callers log it.
type ExternalSyncError struct {
	Target string
	Err    error
}

func (e *ExternalSyncError) Error() string {
	return fmt.Sprintf("sync to %s failed: %v", e.Target, e.Err)
}

func (e *ExternalSyncError) Unwrap() error {
	return e.Err
}

func ExternalSync(target string, err error) *ExternalSyncError {
	return &ExternalSyncError{Target: target, Err: err}
}
