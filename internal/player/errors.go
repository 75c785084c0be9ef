package player

import (
	"errors"
	"fmt"
)

var (
	ErrNotInProgress   = errors.New("session is not in progress")
	ErrAlreadyStarted  = errors.New("session already started")
	ErrUnknownExercise = errors.New("unknown exercise entry")
	ErrSetOutOfRange   = errors.New("set index out of range")
	ErrExerciseRange   = errors.New("exercise index out of range")
	ErrSetNotRecorded  = errors.New("active set has not been recorded")
	ErrSetCompleted    = errors.New("set already completed")
	ErrEmptyPlan       = errors.New("planned workout has no exercises")
	ErrDuplicateEntry  = errors.New("duplicate planned exercise entry")
	ErrNotGroupWorkout = errors.New("not a group workout")
	ErrOwnerCannotJoin = errors.New("owner cannot join own workout")
	ErrAlreadyJoined   = errors.New("already a participant")
	ErrNegativeValue   = errors.New("set values must not be negative")
)

// ValidationError is returned before any persistence call when a request
// is malformed or not allowed in the current state.
type ValidationError struct {
	Op  string
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// PersistenceError wraps a gateway failure. Local state is left as it was
// before the call; the caller decides whether to retry.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: persistence: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func invalid(op string, err error) error {
	return &ValidationError{Op: op, Err: err}
}

func persistence(op string, err error) error {
	return &PersistenceError{Op: op, Err: err}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsPersistence reports whether err is a PersistenceError.
func IsPersistence(err error) bool {
	var p *PersistenceError
	return errors.As(err, &p)
}
