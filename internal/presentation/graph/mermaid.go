package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/bluegreen/pkg/domain"
)

// GenerateMermaid produces a Mermaid flowchart of the router in front of both slots.
// Each slot node is labeled with its service name and version; the slot that
// received the current version is highlighted.
func GenerateMermaid(service string, state domain.RotationState) string {
	var sb strings.Builder
	sb.WriteString("graph LR\n")
	sb.WriteString("    router((\"router\"))\n")

	assignment := state.Assignment()
	for _, slot := range domain.Slots {
		id := slot.ID()
		fmt.Fprintf(&sb, "    %s[\"%s <br/> v%d\"]\n", id, serviceName(service, slot), assignment.For(slot))
	}
	for _, slot := range domain.Slots {
		fmt.Fprintf(&sb, "    router --> %s\n", slot.ID())
	}

	sb.WriteString("    classDef active fill:#dcfce7,stroke:#16a34a,stroke-width:2px\n")
	fmt.Fprintf(&sb, "    class %s active\n", state.ActiveSlot.ID())
	return sb.String()
}

func serviceName(service string, slot domain.Slot) string {
	sanitized := strings.ReplaceAll(service, "\"", "'")
	if sanitized == "" {
		return slot.ID()
	}
	return sanitized + "-" + slot.ID()
}
