// Package kerrors provides the structured error type shared across the
// indexing and search core. Errors are values, never exceptions: every
// fallible operation returns an error the caller inspects by Kind.
package kerrors

import (
	stderrors "errors"
	"fmt"
)

// Kind classifies an error the way callers need to branch on it.
type Kind string

const (
	// NotFound: a repository, path, or file referenced by the caller does
	// not exist.
	NotFound Kind = "not_found"
	// InvalidInput: malformed remote URL, unsupported import version,
	// unknown config key, unparseable regex.
	InvalidInput Kind = "invalid_input"
	// Conflict: attempt to add a repository whose path is already indexed.
	Conflict Kind = "conflict"
	// IO: filesystem read/write failure, permission denied.
	IO Kind = "io"
	// Storage: underlying database engine error. Always fatal for the
	// current operation.
	Storage Kind = "storage"
	// CapabilityUnavailable: semantic search requested but embeddings are
	// disabled, or the embedding model failed to load.
	CapabilityUnavailable Kind = "capability_unavailable"
)

// Error is the structured error type returned by every core package.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

// New creates an Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an Error of the given kind around a causing error.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is supports errors.Is by comparing Kind against a sentinel created via New.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Of reports whether err is a *Error of the given Kind. Callers that already
// have errors.As imported should prefer it directly; Of exists for the
// common one-line check.
func Of(err error, kind Kind) bool {
	var e *Error
	if !stderrors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}
