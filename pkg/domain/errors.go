package domain

import (
	"errors"
	"fmt"
)

// ErrStateNotFound is returned by a store when no record exists under the key.
// Absence is a normal condition on the first deployment.
var ErrStateNotFound = errors.New("rotation state not found")

// ErrMissingPrimedState is returned when the synchronous phase runs before priming completed.
var ErrMissingPrimedState = errors.New("rotation state was not primed before use")

// ErrConcurrentModification is returned when the stored record changed between priming and commit.
var ErrConcurrentModification = errors.New("rotation state was modified concurrently")

// ErrCorruptState matches any CorruptStateError via errors.Is.
var ErrCorruptState = errors.New("corrupt rotation state")

// CorruptStateError indicates a persisted record that violates the data model.
type CorruptStateError struct {
	Reason string
	Err    error
}

func (e *CorruptStateError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", ErrCorruptState, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", ErrCorruptState, e.Reason)
}

func (e *CorruptStateError) Unwrap() error { return e.Err }

func (e *CorruptStateError) Is(target error) bool { return target == ErrCorruptState }

// RetrievalError indicates the store could not be reached while priming.
type RetrievalError struct {
	Key string
	Err error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("retrieve rotation state %q: %v", e.Key, e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }

// PersistError indicates the new state could not be written.
// Slot construction may already have happened when this is returned.
type PersistError struct {
	Key string
	Err error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist rotation state %q: %v", e.Key, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }

// IsRetrievalError reports whether err is a RetrievalError.
func IsRetrievalError(err error) bool {
	var target *RetrievalError
	return errors.As(err, &target)
}

// IsPersistError reports whether err is a PersistError.
func IsPersistError(err error) bool {
	var target *PersistError
	return errors.As(err, &target)
}
