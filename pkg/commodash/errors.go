package commodash

import (
	"errors"
	"fmt"
)

// Kind classifies client errors.
type Kind int

const (
	// FetchFailed covers transport errors, timeouts, non-2xx statuses and
	// undecodable bodies.
	FetchFailed Kind = iota + 1
	// Duplicate is returned when adding a symbol that is already watched.
	Duplicate
)

func (k Kind) String() string {
	switch k {
	case FetchFailed:
		return "fetch failed"
	case Duplicate:
		return "duplicate"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is.
var (
	ErrFetchFailed = &Error{Kind: FetchFailed}
	ErrDuplicate   = &Error{Kind: Duplicate}
)

// Error is returned by every Client operation.
type Error struct {
	Kind   Kind
	Op     string // e.g. "GET /commodities"
	Status int    // HTTP status, 0 when no response arrived
	Err    error
}

func (e *Error) Error() string {
	switch {
	case e.Status != 0 && e.Err != nil:
		return fmt.Sprintf("%s: %s (status %d): %v", e.Op, e.Kind, e.Status, e.Err)
	case e.Status != 0:
		return fmt.Sprintf("%s: %s (status %d)", e.Op, e.Kind, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same Kind, so errors.Is(err, ErrDuplicate)
// works regardless of Op or Status.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return 0
}
