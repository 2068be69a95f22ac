package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

const (
	// DefaultStateKey is the well-known key under which the rotation state is stored.
	DefaultStateKey = "blue-green-state"

	bootstrapVersion = 1
)

// RotationState is the persisted record of the rotation.
type RotationState struct {
	// ActiveSlot is the slot that received CurrentVersion in the last transition.
	ActiveSlot Slot `json:"activeSlot" yaml:"activeSlot"`
	// CurrentVersion is the version assigned to ActiveSlot.
	CurrentVersion int `json:"currentVersion" yaml:"currentVersion"`
	// PreviousVersion is the version assigned to the other slot.
	PreviousVersion int `json:"previousVersion" yaml:"previousVersion"`
}

// BootstrapState returns the state used when no record exists yet.
func BootstrapState() RotationState {
	return RotationState{
		ActiveSlot:      SlotBlue,
		CurrentVersion:  bootstrapVersion,
		PreviousVersion: bootstrapVersion,
	}
}

// Validate checks the data-model invariants.
func (s RotationState) Validate() error {
	if !s.ActiveSlot.Valid() {
		return &CorruptStateError{Reason: fmt.Sprintf("invalid active slot %q", string(s.ActiveSlot))}
	}
	return nil
}

// Assignment derives the version each slot should host.
func (s RotationState) Assignment() SlotAssignment {
	if s.ActiveSlot == SlotGreen {
		return SlotAssignment{Blue: s.PreviousVersion, Green: s.CurrentVersion}
	}
	return SlotAssignment{Blue: s.CurrentVersion, Green: s.PreviousVersion}
}

func (s RotationState) String() string {
	return fmt.Sprintf("{%s current=%d previous=%d}", s.ActiveSlot, s.CurrentVersion, s.PreviousVersion)
}

// SlotAssignment maps each slot to the version it should host. It is derived, never persisted.
type SlotAssignment struct {
	Blue  int `json:"BLUE" yaml:"BLUE"`
	Green int `json:"GREEN" yaml:"GREEN"`
}

// For returns the version assigned to slot.
func (a SlotAssignment) For(slot Slot) int {
	if slot == SlotGreen {
		return a.Green
	}
	return a.Blue
}

// wireState mirrors the JSON record with pointers so missing fields can be detected.
// NextUpdate is the field name used by the first release of the tool.
type wireState struct {
	ActiveSlot      *string `json:"activeSlot,omitempty"`
	NextUpdate      *string `json:"nextUpdate,omitempty"`
	CurrentVersion  *int    `json:"currentVersion"`
	PreviousVersion *int    `json:"previousVersion"`
}

// DecodeState parses a persisted record. Any deviation from the expected shape
// is reported as a CorruptStateError.
func DecodeState(data []byte) (RotationState, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var w wireState
	if err := dec.Decode(&w); err != nil {
		return RotationState{}, &CorruptStateError{Reason: "malformed record", Err: err}
	}
	if dec.More() {
		return RotationState{}, &CorruptStateError{Reason: "trailing data after record"}
	}

	slotName := w.ActiveSlot
	if slotName == nil {
		slotName = w.NextUpdate
	}
	switch {
	case slotName == nil:
		return RotationState{}, &CorruptStateError{Reason: "missing activeSlot"}
	case w.CurrentVersion == nil:
		return RotationState{}, &CorruptStateError{Reason: "missing currentVersion"}
	case w.PreviousVersion == nil:
		return RotationState{}, &CorruptStateError{Reason: "missing previousVersion"}
	}

	slot, err := ParseSlot(*slotName)
	if err != nil {
		return RotationState{}, err
	}

	return RotationState{
		ActiveSlot:      slot,
		CurrentVersion:  *w.CurrentVersion,
		PreviousVersion: *w.PreviousVersion,
	}, nil
}

// EncodeState serializes a state into its canonical JSON record.
func EncodeState(s RotationState) ([]byte, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(s)
}
