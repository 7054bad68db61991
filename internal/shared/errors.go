// ============================================================================
// internal/shared/errors.go
// Typed service errors shared by all services and mapped to HTTP responses
// in the gateway.
// ============================================================================

package shared

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a service failure for transport mapping.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindInvalidArgument
	KindUnauthenticated
	KindPermissionDenied
	KindNotFound
	KindAlreadyExists
	KindFailedPrecondition
	KindValidation
)

// ServiceError carries a kind alongside a caller-facing message.
type ServiceError struct {
	Kind    ErrorKind
	Message string
	Err     error // wrapped cause, optional
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ServiceError) Unwrap() error { return e.Err }

// Constructors, named after the conditions they report.

func InvalidArgumentf(format string, args ...interface{}) error {
	return &ServiceError{Kind: KindInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

func Unauthenticatedf(format string, args ...interface{}) error {
	return &ServiceError{Kind: KindUnauthenticated, Message: fmt.Sprintf(format, args...)}
}

func PermissionDeniedf(format string, args ...interface{}) error {
	return &ServiceError{Kind: KindPermissionDenied, Message: fmt.Sprintf(format, args...)}
}

func NotFoundf(format string, args ...interface{}) error {
	return &ServiceError{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func AlreadyExistsf(format string, args ...interface{}) error {
	return &ServiceError{Kind: KindAlreadyExists, Message: fmt.Sprintf(format, args...)}
}

func FailedPreconditionf(format string, args ...interface{}) error {
	return &ServiceError{Kind: KindFailedPrecondition, Message: fmt.Sprintf(format, args...)}
}

func Internalf(format string, args ...interface{}) error {
	return &ServiceError{Kind: KindInternal, Message: fmt.Sprintf(format, args...)}
}

// InternalWrap wraps a cause with a caller-facing message.
func InternalWrap(err error, message string) error {
	return &ServiceError{Kind: KindInternal, Message: message, Err: err}
}

// KindOf extracts the kind from an error chain; unknown errors are internal.
func KindOf(err error) ErrorKind {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Kind
	}
	var ve ValidationErrors
	if errors.As(err, &ve) {
		return KindValidation
	}
	return KindInternal
}

// ============================================================================
// Row-level validation errors (score ingestion)
// ============================================================================

// RowError describes one invalid row in a submitted score sheet. Row numbers
// are 1-based and include the header line, so the first data row is row 2.
type RowError struct {
	Row     int    `json:"row"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is the complete list of row errors for a rejected batch.
// A batch with any row error is rejected whole; no registration is mutated.
type ValidationErrors []RowError

func (v ValidationErrors) Error() string {
	if len(v) == 1 {
		return fmt.Sprintf("1 invalid row: row %d %s: %s", v[0].Row, v[0].Field, v[0].Message)
	}
	return fmt.Sprintf("%d invalid rows", len(v))
}
