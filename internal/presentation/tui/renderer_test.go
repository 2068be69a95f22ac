package tui_test

import (
	"bytes"
	"testing"

	"github.com/aretw0/bluegreen/internal/presentation/tui"
	"github.com/aretw0/bluegreen/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestStatusMarkdown(t *testing.T) {
	md := tui.StatusMarkdown("blue-green-state", "shop", domain.RotationState{ActiveSlot: domain.SlotGreen, CurrentVersion: 6, PreviousVersion: 5})

	assert.Contains(t, md, "`blue-green-state`")
	assert.Contains(t, md, "| BLUE | shop-blue | 5 |  |")
	assert.Contains(t, md, "| GREEN | shop-green | 6 | current |")
}

func TestPrintSummary_Plain(t *testing.T) {
	var buf bytes.Buffer
	tui.PrintSummary(&buf, domain.RotationState{ActiveSlot: domain.SlotBlue, CurrentVersion: 3, PreviousVersion: 2}, true, false)

	assert.Equal(t, "BLUE  v3  <- current\nGREEN v2\nrotated into BLUE\n", buf.String())
}
