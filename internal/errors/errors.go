// Package errors defines the typed error taxonomy shared by the registry
// client, the entity schema, and the CLI. The core never logs or prints;
// callers map these errors to output.
package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Kind classifies a registry error. The values mirror the registry client's
// observable failure modes so callers can switch on them.
type Kind string

const (
	KindConnection           Kind = "connection"
	KindTimeout              Kind = "timeout"
	KindRateLimit            Kind = "rate_limit"
	KindInvalidResponse      Kind = "invalid_response"
	KindParcelNotFound       Kind = "parcel_not_found"
	KindMunicipalityNotFound Kind = "municipality_not_found"
	KindLRUnitNotFound       Kind = "lr_unit_not_found"
	KindServerError          Kind = "server_error"
	KindInternal             Kind = "internal"
)

// Error is the structured error returned across package boundaries.
// Details carry request/field context; Err is the wrapped cause, if any.
type Error struct {
	Kind    Kind
	Details map[string]interface{}
	Err     error
}

// New creates an Error of the given kind with optional detail context.
func New(kind Kind, details map[string]interface{}) *Error {
	return &Error{Kind: kind, Details: details}
}

// Wrap creates an Error of the given kind caused by err.
func Wrap(kind Kind, err error, details map[string]interface{}) *Error {
	return &Error{Kind: kind, Details: details, Err: err}
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))

	if len(e.Details) > 0 {
		keys := make([]string, 0, len(e.Details))
		for k := range e.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		pairs := make([]string, 0, len(keys))
		for _, k := range keys {
			if v := e.Details[k]; v != nil {
				pairs = append(pairs, fmt.Sprintf("%s=%v", k, v))
			}
		}
		if len(pairs) > 0 {
			b.WriteString(" (")
			b.WriteString(strings.Join(pairs, ", "))
			b.WriteString(")")
		}
	}

	if e.Err != nil {
		b.WriteString(" - caused by: ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes the cause for errors.Is/errors.As chains.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is (or wraps) an Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf returns the kind of err, or an empty Kind when err is not an Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// FieldError describes a single malformed field in a wire payload: where it
// sits (dotted path with indexes, e.g. "parcelParts[2].area"), the raw value
// received, and why it was rejected.
type FieldError struct {
	Field  string
	Value  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %q: %s (raw value %q)", e.Field, e.Reason, e.Value)
}

// InvalidField builds the standard invalid-response error for a malformed
// field, keeping the field path and raw value addressable via errors.As.
func InvalidField(field, value, reason string) *Error {
	return &Error{
		Kind: KindInvalidResponse,
		Details: map[string]interface{}{
			"field": field,
			"value": value,
		},
		Err: &FieldError{Field: field, Value: value, Reason: reason},
	}
}
