// Package errs provides the unified error type used across all of dbinspect.
//
// Every subsystem (database drivers, inspectors, dispatcher, filestore, …)
// wraps its native errors into *errs.Error before returning them to callers.
// Callers use the Is* predicates to handle errors without importing
// driver-specific packages.
//
// Usage:
//
//	// In a driver, wrap native errors:
//	return errs.Wrap(errs.ErrKindQueryFailed, "list tables", pgErr)
//
//	// In a caller, check the error kind:
//	if errs.IsUnsupportedScheme(err) {
//	    fmt.Fprintln(os.Stderr, "unknown database scheme")
//	}
package errs

import (
	"errors"
	"fmt"
)

// ErrKind categorises an error without exposing backend-specific codes.
// All backends (Postgres, MySQL, SQL Server, SQLite, MinIO) map their native
// errors to one of these kinds, giving callers a single consistent API.
type ErrKind int

const (
	ErrKindUnknown             ErrKind = iota
	ErrKindNotFound                    // no rows, no object, no bucket
	ErrKindConnectionFailed            // cannot establish or keep the session
	ErrKindTimeout                     // context deadline / cancellation
	ErrKindQueryFailed                 // catalog query or storage operation error
	ErrKindInvalidInput                // bad arguments from the caller
	ErrKindPermissionDenied            // access denied / auth failure
	ErrKindUnsupportedScheme           // URI names a backend we do not know
	ErrKindNotImplemented              // backend known, but has no inspector
	ErrKindInconsistentCatalog         // catalog rows violate an expected cardinality
)

func (k ErrKind) String() string {
	switch k {
	case ErrKindNotFound:
		return "not_found"
	case ErrKindConnectionFailed:
		return "connection_failed"
	case ErrKindTimeout:
		return "timeout"
	case ErrKindQueryFailed:
		return "query_failed"
	case ErrKindInvalidInput:
		return "invalid_input"
	case ErrKindPermissionDenied:
		return "permission_denied"
	case ErrKindUnsupportedScheme:
		return "unsupported_scheme"
	case ErrKindNotImplemented:
		return "not_implemented"
	case ErrKindInconsistentCatalog:
		return "inconsistent_catalog"
	default:
		return "unknown"
	}
}

// Error is the single error type returned by all dbinspect subsystems.
// Drivers produce it; callers inspect it via the Is* predicates below.
type Error struct {
	Kind    ErrKind
	Message string
	Query   string // originating catalog query, when there is one
	Cause   error  // original driver-level error, preserved for logging
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap allows errors.Is / errors.As to traverse the cause chain.
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithQuery attaches the originating query text and returns e.
func (e *Error) WithQuery(q string) *Error {
	e.Query = q
	return e
}

// --- Constructors ---

// New creates an *Error with the given kind and message and no cause.
func New(kind ErrKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Newf is New with a formatted message.
func Newf(kind ErrKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an *Error with the given kind, message, and an underlying cause.
func Wrap(kind ErrKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// --- Predicates ---

// IsNotFound reports whether err represents a "not found" result.
func IsNotFound(err error) bool {
	return KindOf(err) == ErrKindNotFound
}

// IsTimeout reports whether err was caused by a deadline or context cancellation.
func IsTimeout(err error) bool {
	return KindOf(err) == ErrKindTimeout
}

// IsConnectionFailed reports whether err is a connectivity or auth failure.
func IsConnectionFailed(err error) bool {
	return KindOf(err) == ErrKindConnectionFailed
}

// IsQueryFailed reports whether err is a catalog query failure.
func IsQueryFailed(err error) bool {
	return KindOf(err) == ErrKindQueryFailed
}

// IsInvalidInput reports whether err was caused by bad input from the caller.
func IsInvalidInput(err error) bool {
	return KindOf(err) == ErrKindInvalidInput
}

// IsPermissionDenied reports whether err is an access control failure.
func IsPermissionDenied(err error) bool {
	return KindOf(err) == ErrKindPermissionDenied
}

// IsUnsupportedScheme reports whether err names an unknown URI scheme.
func IsUnsupportedScheme(err error) bool {
	return KindOf(err) == ErrKindUnsupportedScheme
}

// IsNotImplemented reports whether err names a backend without an inspector.
func IsNotImplemented(err error) bool {
	return KindOf(err) == ErrKindNotImplemented
}

// IsInconsistentCatalog reports whether err is an unexpected catalog cardinality.
func IsInconsistentCatalog(err error) bool {
	return KindOf(err) == ErrKindInconsistentCatalog
}

// KindOf extracts the ErrKind from the first *Error in the chain.
func KindOf(err error) ErrKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrKindUnknown
}

// QueryOf returns the innermost query text recorded in err's chain, if any.
func QueryOf(err error) string {
	var q string
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			break
		}
		if e.Query != "" {
			q = e.Query
		}
		err = e.Cause
	}
	return q
}
