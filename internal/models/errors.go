package models

import (
	"errors"
	"fmt"
)

// Error kinds. Every engine failure wraps exactly one of these so callers can
// tell bad input from infeasible constraints from a cancelled run.
var (
	ErrValidation          = errors.New("validation error")
	ErrMissingConsensus    = errors.New("missing consensus probability")
	ErrConstraintViolation = errors.New("constraint violation")
	ErrCancelled           = errors.New("cancelled")
	ErrInternalInvariant   = errors.New("internal invariant violated")
)

// Repository errors
var (
	ErrNotFound  = errors.New("record not found")
	ErrInvalidID = errors.New("invalid ID format")
	ErrConflict  = errors.New("record changed concurrently")
)

// Error carries the kind of failure plus the offending identifier, if any.
type Error struct {
	Kind    error
	MatchID string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.MatchID != "" {
		msg = fmt.Sprintf("%s (match %s)", msg, e.MatchID)
	}
	if e.Message != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Message)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Is reports a match against the kind sentinel.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ValidationError reports malformed or out-of-range probability input.
func ValidationError(matchID, format string, args ...interface{}) error {
	return &Error{Kind: ErrValidation, MatchID: matchID, Message: fmt.Sprintf(format, args...)}
}

// MissingConsensusError reports a match without a consensus-source observation.
func MissingConsensusError(matchID, source string) error {
	return &Error{Kind: ErrMissingConsensus, MatchID: matchID, Message: fmt.Sprintf("no active %q observation", source)}
}

// ConstraintViolation reports constraints that no scenario can satisfy.
func ConstraintViolation(format string, args ...interface{}) error {
	return &Error{Kind: ErrConstraintViolation, Message: fmt.Sprintf(format, args...)}
}

// Cancelled reports cooperative cancellation observed mid-computation.
func Cancelled(cause error) error {
	return &Error{Kind: ErrCancelled, Err: cause}
}

// InternalInvariantError reports a generated scenario that breaks its own invariants.
func InternalInvariantError(format string, args ...interface{}) error {
	return &Error{Kind: ErrInternalInvariant, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns a short machine-readable name for the error's kind.
func KindOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrMissingConsensus):
		return "missing_consensus"
	case errors.Is(err, ErrConstraintViolation):
		return "constraint_violation"
	case errors.Is(err, ErrCancelled):
		return "cancelled"
	case errors.Is(err, ErrInternalInvariant):
		return "internal_invariant"
	default:
		return "internal"
	}
}

// IsUserError reports whether err was caused by the caller's input.
func IsUserError(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrMissingConsensus) || errors.Is(err, ErrConstraintViolation)
}
