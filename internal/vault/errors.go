package vault

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a store error. Callers match on it with errors.Is against
// the Err* sentinels below.
type Kind string

const (
	KindValidation   Kind = "validation_failed"
	KindUniqueness   Kind = "uniqueness_violation"
	KindReferential  Kind = "referential_violation"
	KindStorageScope Kind = "storage_scope_violation"
	KindHasChildren  Kind = "has_children"
	KindNotFound     Kind = "not_found"
	KindNotImpl      Kind = "not_implemented"
)

// FieldError is a single (field, reason) pair.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// Error is the structured error returned for every rule violation. It is
// always produced before any row is written.
type Error struct {
	Kind   Kind         `json:"kind"`
	Fields []FieldError `json:"fields,omitempty"`
}

func (e *Error) Error() string {
	if len(e.Fields) == 0 {
		return string(e.Kind)
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+" "+f.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Kind, strings.Join(parts, "; "))
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrValidation   = &Error{Kind: KindValidation}
	ErrUniqueness   = &Error{Kind: KindUniqueness}
	ErrReferential  = &Error{Kind: KindReferential}
	ErrStorageScope = &Error{Kind: KindStorageScope}
	ErrHasChildren  = &Error{Kind: KindHasChildren}
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrNotImpl      = &Error{Kind: KindNotImpl}
)

// KindOf returns the Kind of err, or "" when err is not a store error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func newError(kind Kind, field, reason string) *Error {
	return &Error{Kind: kind, Fields: []FieldError{{Field: field, Reason: reason}}}
}

func notFound(field, id string) *Error {
	return newError(KindNotFound, field, fmt.Sprintf("%q not found", id))
}

// NotImplemented reports a feature with no available implementation, such as
// a catalog source type without an adapter.
func NotImplemented(field, reason string) *Error {
	return newError(KindNotImpl, field, reason)
}

// validator accumulates field errors for a single write.
type validator struct {
	fields []FieldError
}

func (v *validator) add(field, reason string) {
	v.fields = append(v.fields, FieldError{Field: field, Reason: reason})
}

func (v *validator) required(field, value string) {
	if strings.TrimSpace(value) == "" {
		v.add(field, "can't be blank")
	}
}

func (v *validator) oneOf(field, value string, allowed []string) {
	for _, a := range allowed {
		if value == a {
			return
		}
	}
	v.add(field, fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", ")))
}

func (v *validator) err() error {
	if len(v.fields) == 0 {
		return nil
	}
	return &Error{Kind: KindValidation, Fields: v.fields}
}

// isUniqueViolation checks if an error is a SQLite UNIQUE constraint violation.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// isForeignKeyViolation checks if an error is a SQLite FOREIGN KEY violation.
func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

// mapConstraint turns constraint failures that slipped past the pre-checks
// (concurrent writers) into structured errors.
func mapConstraint(err error, field string) error {
	switch {
	case isUniqueViolation(err):
		return newError(KindUniqueness, field, "has already been taken")
	case isForeignKeyViolation(err):
		return newError(KindReferential, field, "references a missing or dependent record")
	default:
		return err
	}
}
