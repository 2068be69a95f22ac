// Package rotation implements the blue-green slot transition.
//
// Rotate is a pure function of the prior state and the requested version. It
// keeps exactly two versions: the requested one and the one that was current
// before it. Anything older is dropped.
package rotation

import "github.com/aretw0/bluegreen/pkg/domain"

// Rotate computes the next state and the per-slot assignment for requested.
//
// A nil prior means no record exists yet and bootstrap defaults are used.
// When requested equals the prior current version the prior state is returned
// unchanged, so repeated runs converge instead of flipping slots. The result is
// always meant to be persisted, even when unchanged.
func Rotate(prior *domain.RotationState, requested int) (domain.RotationState, domain.SlotAssignment, error) {
	effective := domain.BootstrapState()
	if prior != nil {
		effective = *prior
	}
	if err := effective.Validate(); err != nil {
		return domain.RotationState{}, domain.SlotAssignment{}, err
	}

	next := effective
	if requested != effective.CurrentVersion {
		next = domain.RotationState{
			ActiveSlot:      effective.ActiveSlot.Other(),
			CurrentVersion:  requested,
			PreviousVersion: effective.CurrentVersion,
		}
	}

	return next, next.Assignment(), nil
}
