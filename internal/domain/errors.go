package domain

import (
	"errors"
	"fmt"
)

// Kind is a machine-readable classification of a domain error. Callers
// branch on kinds rather than error strings; the API layer maps kinds to
// transport codes on its side of the boundary.
type Kind string

const (
	// KindNotFound means an experiment id did not resolve.
	KindNotFound Kind = "NOT_FOUND"
	// KindValidation means input was rejected (too few variants,
	// out-of-range traffic percentage).
	KindValidation Kind = "VALIDATION"
	// KindDuplicateName means an experiment name collides within an
	// organization.
	KindDuplicateName Kind = "DUPLICATE_NAME"
	// KindInvalidState means an operation was attempted in the wrong
	// lifecycle state.
	KindInvalidState Kind = "INVALID_STATE"
	// KindTrafficExcluded means a subject was not admitted by the
	// experiment's traffic percentage. No assignment is recorded.
	KindTrafficExcluded Kind = "TRAFFIC_EXCLUDED"
	// KindConflict means the storage layer rejected an insert on a
	// uniqueness constraint. On assignments this signals a lost race:
	// re-read and return the winner's row.
	KindConflict Kind = "CONFLICT"
)

// Error is a kind-tagged domain error.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

// Errorf builds a kind-tagged error with a formatted message.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// IsKind reports whether err is (or wraps) a domain error of the given kind.
func IsKind(err error, kind Kind) bool {
	var de *Error
	return errors.As(err, &de) && de.Kind == kind
}
