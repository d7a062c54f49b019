package model

// errors.go holds the failure taxonomy shared by the engine, the guard and
// the workflow machines.  Callers compare with errors.Is; the typed
// variants carry the detail a transport layer may want to surface.

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when an entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNoSuchDate is returned when a product has no calendar row for the
	// requested travel date.  It is a kind of ErrNotFound.
	ErrNoSuchDate = fmt.Errorf("%w: no schedule for travel date", ErrNotFound)

	// ErrInsufficient is returned when a reservation does not fit the
	// remaining capacity.  The concrete value is an *InsufficientError.
	ErrInsufficient = errors.New("insufficient stock")

	// ErrCapacityBelowReserved rejects a calendar edit that would put total
	// stock under what is already reserved.
	ErrCapacityBelowReserved = errors.New("capacity below reserved stock")

	// ErrInvalidTransition is returned when a workflow event is not legal
	// from the current state.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrDenied is returned when the authorization guard refuses an action.
	// The concrete value is a *DeniedError.
	ErrDenied = errors.New("denied")

	// ErrConflict is returned when a transaction kept losing to concurrent
	// writers and the retry budget ran out.  Nothing was written.
	ErrConflict = errors.New("conflict")

	// ErrValidation marks malformed input.  The concrete value is a
	// *ValidationError.
	ErrValidation = errors.New("validation failed")

	// ErrProductNotApproved is returned when booking or checking a product
	// that is not in the approved state.
	ErrProductNotApproved = errors.New("product not approved")
)

// InsufficientError reports how many places were left when a reservation
// was refused.
type InsufficientError struct {
	Requested int
	Available int
}

func (e *InsufficientError) Error() string {
	return fmt.Sprintf("insufficient stock: requested %d, available %d", e.Requested, e.Available)
}

func (e *InsufficientError) Is(target error) bool { return target == ErrInsufficient }

// DeniedError carries the reason the guard refused an action.
type DeniedError struct {
	Reason string
}

func (e *DeniedError) Error() string { return "denied: " + e.Reason }

func (e *DeniedError) Is(target error) bool { return target == ErrDenied }

// Denied builds a *DeniedError.
func Denied(reason string) error { return &DeniedError{Reason: reason} }

// ValidationError names the offending field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NewValidationError builds a *ValidationError.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
