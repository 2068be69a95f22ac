package tui

import (
	"fmt"
	"io"

	"github.com/aretw0/bluegreen/pkg/domain"
	"github.com/muesli/termenv"
)

var slotColors = map[domain.Slot]string{
	domain.SlotBlue:  "#3b82f6",
	domain.SlotGreen: "#22c55e",
}

// SlotLabel returns the slot name, colored for the terminal when color is set.
func SlotLabel(slot domain.Slot, color bool) string {
	if !color {
		return slot.String()
	}
	p := termenv.ColorProfile()
	return termenv.String(slot.String()).Foreground(p.Color(slotColors[slot])).Bold().String()
}

// PrintSlots writes one line per slot with its version, marking the current slot.
func PrintSlots(w io.Writer, state domain.RotationState, color bool) {
	assignment := state.Assignment()
	for _, slot := range domain.Slots {
		marker := ""
		if slot == state.ActiveSlot {
			marker = "  <- current"
		}
		fmt.Fprintf(w, "%-5s v%d%s\n", SlotLabel(slot, color), assignment.For(slot), marker)
	}
}

// PrintSummary writes the slot lines of a run followed by its outcome.
func PrintSummary(w io.Writer, state domain.RotationState, rotated, color bool) {
	PrintSlots(w, state, color)
	if rotated {
		fmt.Fprintf(w, "rotated into %s\n", SlotLabel(state.ActiveSlot, color))
	} else {
		fmt.Fprintln(w, "no rotation: version already current")
	}
}
