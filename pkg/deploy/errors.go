package deploy

import (
	"errors"
	"fmt"
)

// Phase names the step of a run that failed.
type Phase string

const (
	PhaseLock   Phase = "lock"
	PhasePrime  Phase = "prime"
	PhasePlan   Phase = "plan"
	PhaseBuild  Phase = "build"
	PhaseCommit Phase = "commit"
)

// PhaseError wraps an error with the phase it occurred in.
type PhaseError struct {
	Phase Phase
	Err   error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s phase failed: %v", e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error { return e.Err }

// FailedPhase returns the phase recorded in err, if any.
func FailedPhase(err error) (Phase, bool) {
	var pe *PhaseError
	if errors.As(err, &pe) {
		return pe.Phase, true
	}
	return "", false
}

func phaseErr(phase Phase, err error) error {
	if err == nil {
		return nil
	}
	return &PhaseError{Phase: phase, Err: err}
}
