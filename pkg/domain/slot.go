package domain

import (
	"fmt"
	"strings"
)

// Slot identifies one of the two parallel deployment targets.
type Slot string

const (
	SlotBlue  Slot = "BLUE"
	SlotGreen Slot = "GREEN"
)

// Slots lists both slots in a stable order.
var Slots = []Slot{SlotBlue, SlotGreen}

// Valid reports whether s is BLUE or GREEN.
func (s Slot) Valid() bool {
	return s == SlotBlue || s == SlotGreen
}

// Other returns the opposite slot.
// It panics on an invalid slot; callers validate first.
func (s Slot) Other() Slot {
	switch s {
	case SlotBlue:
		return SlotGreen
	case SlotGreen:
		return SlotBlue
	}
	panic(fmt.Sprintf("domain: invalid slot %q", string(s)))
}

// ID returns the lowercase identifier used for naming slot resources ("blue", "green").
func (s Slot) ID() string {
	return strings.ToLower(string(s))
}

func (s Slot) String() string {
	return string(s)
}

// ParseSlot converts a persisted slot name into a Slot.
// The legacy lowercase names written by earlier releases are accepted too.
func ParseSlot(value string) (Slot, error) {
	switch value {
	case "BLUE", "blue":
		return SlotBlue, nil
	case "GREEN", "green":
		return SlotGreen, nil
	}
	return "", &CorruptStateError{Reason: fmt.Sprintf("invalid active slot %q", value)}
}
