// Package fault defines the structured fault taxonomy returned by every
// recordsim operation.
//
// A Fault is never retried. Callers match on Code with Is or CodeOf, which
// see through fmt.Errorf %w wrapping.
package fault

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Code categorizes faults.
type Code string

const (
	// NotFound indicates a referenced record or entity does not exist.
	NotFound Code = "NOT_FOUND"

	// DuplicateID indicates a create with an id already used in that logical name.
	DuplicateID Code = "DUPLICATE_ID"

	// ReferenceIntegrity indicates a reference attribute points at a missing record.
	ReferenceIntegrity Code = "REFERENCE_INTEGRITY"

	// TypeMismatch indicates an attribute value kind does not fit its metadata type.
	TypeMismatch Code = "TYPE_MISMATCH"

	// MissingRequiredParameter indicates a request lacks a required parameter.
	MissingRequiredParameter Code = "MISSING_REQUIRED_PARAMETER"

	// UnsupportedRequest indicates no executor accepts the request.
	UnsupportedRequest Code = "UNSUPPORTED_REQUEST"

	// DomainFault wraps an error raised by a plugin step.
	DomainFault Code = "DOMAIN_FAULT"

	// InfiniteLoopGuard indicates nested invocation depth exceeded the ceiling.
	InfiniteLoopGuard Code = "INFINITE_LOOP_GUARD"

	// InvalidQuery indicates a structurally invalid query expression.
	InvalidQuery Code = "INVALID_QUERY"
)

// Fault is a structured error with a code, a message and optional details.
type Fault struct {
	Code    Code
	Message string

	// Details carries machine-readable context (attribute, id, depth ...).
	Details map[string]string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (f *Fault) Error() string {
	var b strings.Builder
	b.WriteString(string(f.Code))
	b.WriteString(": ")
	b.WriteString(f.Message)
	if len(f.Details) > 0 {
		b.WriteString(" (")
		for i, k := range slices.Sorted(maps.Keys(f.Details)) {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s=%s", k, f.Details[k])
		}
		b.WriteString(")")
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (f *Fault) Unwrap() error {
	return f.Err
}

// Detail returns a detail value, or "" when absent.
func (f *Fault) Detail(key string) string {
	return f.Details[key]
}

// New creates a fault with a formatted message.
func New(code Code, format string, args ...any) *Fault {
	return &Fault{Code: code, Message: fmt.Sprintf(format, args...)}
}

// With returns the fault with one more detail set. It mutates and returns f
// so constructors can chain.
func (f *Fault) With(key, value string) *Fault {
	if f.Details == nil {
		f.Details = make(map[string]string)
	}
	f.Details[key] = value
	return f
}

// As returns the first Fault in err's chain.
func As(err error) (*Fault, bool) {
	var f *Fault
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

// Is reports whether err carries a Fault with the given code.
func Is(err error, code Code) bool {
	f, ok := As(err)
	return ok && f.Code == code
}

// CodeOf returns the fault code of err, or "" if err is not a fault.
func CodeOf(err error) Code {
	if f, ok := As(err); ok {
		return f.Code
	}
	return ""
}
