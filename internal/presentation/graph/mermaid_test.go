package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/bluegreen/internal/presentation/graph"
	"github.com/aretw0/bluegreen/pkg/domain"
)

func TestGenerateMermaid(t *testing.T) {
	tests := []struct {
		name     string
		service  string
		state    domain.RotationState
		contains []string
	}{
		{
			name:    "Green Active",
			service: "shop",
			state:   domain.RotationState{ActiveSlot: domain.SlotGreen, CurrentVersion: 6, PreviousVersion: 5},
			contains: []string{
				"blue[\"shop-blue <br/> v5\"]",
				"green[\"shop-green <br/> v6\"]",
				"router --> blue",
				"router --> green",
				"class green active",
			},
		},
		{
			name:    "Bootstrap Without Service",
			service: "",
			state:   domain.BootstrapState(),
			contains: []string{
				"blue[\"blue <br/> v1\"]",
				"green[\"green <br/> v1\"]",
				"class blue active",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := graph.GenerateMermaid(tt.service, tt.state)
			if !strings.HasPrefix(got, "graph LR\n") {
				t.Errorf("expected flowchart header, got:\n%s", got)
			}
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("expected output to contain %q, got:\n%s", want, got)
				}
			}
		})
	}
}
