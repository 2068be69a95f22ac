package tui

import (
	"fmt"
	"strings"

	"github.com/aretw0/bluegreen/pkg/domain"
	"github.com/charmbracelet/glamour"
)

// NewRenderer returns a function that renders markdown using glamour.
func NewRenderer() func(string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(), // Automatically detect light/dark background
	)

	return func(markdown string) (string, error) {
		if err != nil {
			return "", err
		}
		return r.Render(markdown)
	}
}

// StatusMarkdown describes the stored state as a markdown table.
func StatusMarkdown(key, service string, state domain.RotationState) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## Rotation state `%s`\n\n", key)
	sb.WriteString("| Slot | Service | Version | |\n")
	sb.WriteString("|---|---|---|---|\n")

	assignment := state.Assignment()
	for _, slot := range domain.Slots {
		marker := ""
		if slot == state.ActiveSlot {
			marker = "current"
		}
		fmt.Fprintf(&sb, "| %s | %s-%s | %d | %s |\n", slot, service, slot.ID(), assignment.For(slot), marker)
	}
	return sb.String()
}
