package domain

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

var (
	ErrSerializationFailure = errors.New("serialization failure")
	ErrNotFound             = errors.New("not found")
	ErrConflict             = errors.New("conflict")
	ErrInvalidInput         = errors.New("invalid input")
)

// InsufficientSeatsError is the Conflict raised when a reservation asks for
// more seats than the travel has left. It carries the availability observed
// under the inventory lock so callers can offer fewer seats.
type InsufficientSeatsError struct {
	Available int
	Requested int
}

func (e *InsufficientSeatsError) Error() string {
	return fmt.Sprintf("only %d seats available, requested %d", e.Available, e.Requested)
}

func (e *InsufficientSeatsError) Unwrap() error { return ErrConflict }
