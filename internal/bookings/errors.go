package bookings

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("booking not found")
	ErrDuplicate         = errors.New("duplicate booking")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// DuplicateError is returned by Put when an active booking already holds the
// same fingerprint.
type DuplicateError struct {
	ExistingID string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate booking: existing id %s", e.ExistingID)
}

func (e *DuplicateError) Is(target error) bool { return target == ErrDuplicate }

type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition %s -> %s", e.From, e.To)
}

func (e *InvalidTransitionError) Is(target error) bool { return target == ErrInvalidTransition }
