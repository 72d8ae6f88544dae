package models

import (
	"errors"
	"fmt"
	"time"
)

// Error taxonomy shared by services, repositories and handlers.
var (
	// Authorization
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")

	// State conflict: the action is not valid for the current state.
	ErrConflict = errors.New("state conflict")

	// Validation
	ErrInvalid           = errors.New("invalid input")
	ErrInsufficientFunds = fmt.Errorf("%w: insufficient funds", ErrInvalid)

	ErrNotFound = errors.New("not found")
)

// Nanos converts t to the wire timestamp format (nanoseconds since epoch).
func Nanos(t time.Time) int64 {
	return t.UnixNano()
}
