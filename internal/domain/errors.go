// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict indicates a concurrent modification conflict (optimistic locking).
var ErrConflict = errors.New("conflict: resource was modified by another request")

// ErrValidation indicates malformed input, resolved locally without a store call.
var ErrValidation = errors.New("validation failed")

// ErrIllegalTransition indicates a status change not permitted from the current state.
var ErrIllegalTransition = errors.New("illegal status transition")

// ErrTransitionInFlight indicates another transition for the same task has not
// yet been confirmed or rolled back.
var ErrTransitionInFlight = errors.New("transition already in flight for task")
