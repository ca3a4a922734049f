package errors

import (
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
)

// ValidationError reports malformed or missing input. It never reaches the store.
type ValidationError struct {
	Fields map[string]string
}

// NewValidation builds a ValidationError from field -> message pairs
func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Fields: fields}
}

// NewFieldValidation builds a ValidationError for a single field
func NewFieldValidation(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Details(), ", ")
}

// Details returns "field: message" entries sorted by field
func (e *ValidationError) Details() []string {
	details := make([]string, 0, len(e.Fields))
	for field, message := range e.Fields {
		details = append(details, fmt.Sprintf("%s: %s", field, message))
	}
	sort.Strings(details)
	return details
}

// AuthError reports an operation attempted without an authenticated caller
type AuthError struct {
	Reason string
}

// ErrNoCaller is returned by every store-dependent operation invoked without an owner
var ErrNoCaller = &AuthError{Reason: "no authenticated caller"}

func (e *AuthError) Error() string {
	return "authentication required: " + e.Reason
}

// StoreError wraps a failure reported by the backing store. Operations are not retried.
type StoreError struct {
	Op  string
	Err error
}

// NewStoreError wraps err as a failure of the named store operation
func NewStoreError(op string, err error) *StoreError {
	return &StoreError{Op: op, Err: err}
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// ParseError describes a stored record field that could not be interpreted
type ParseError struct {
	Field string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// AsValidation extracts a ValidationError from err's chain
func AsValidation(err error) (*ValidationError, bool) {
	var target *ValidationError
	ok := stderrors.As(err, &target)
	return target, ok
}

// AsAuth extracts an AuthError from err's chain
func AsAuth(err error) (*AuthError, bool) {
	var target *AuthError
	ok := stderrors.As(err, &target)
	return target, ok
}

// AsStore extracts a StoreError from err's chain
func AsStore(err error) (*StoreError, bool) {
	var target *StoreError
	ok := stderrors.As(err, &target)
	return target, ok
}
