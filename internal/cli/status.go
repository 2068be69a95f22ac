package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/aretw0/bluegreen/internal/config"
	"github.com/aretw0/bluegreen/internal/presentation/graph"
	"github.com/aretw0/bluegreen/internal/presentation/tui"
	"github.com/aretw0/bluegreen/pkg/domain"
)

// Status output formats.
const (
	FormatText     = "text"
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
	FormatMermaid  = "mermaid"
)

// StatusOptions configures RunStatus.
type StatusOptions struct {
	Format string
	Color  bool
	Out    io.Writer
}

// StatusReport is the JSON form of `bluegreen status`.
type StatusReport struct {
	Key        string                 `json:"key"`
	Found      bool                   `json:"found"`
	State      *domain.RotationState  `json:"state,omitempty"`
	Assignment *domain.SlotAssignment `json:"assignment,omitempty"`
}

// RunStatus prints the stored rotation state without writing anything.
func RunStatus(ctx context.Context, cfg *config.Config, opts StatusOptions) error {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}

	b, err := OpenBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	state, err := b.Store.Load(ctx, cfg.Key)
	if err != nil && !errors.Is(err, domain.ErrStateNotFound) {
		if errors.Is(err, domain.ErrCorruptState) {
			return err
		}
		return &domain.RetrievalError{Key: cfg.Key, Err: err}
	}

	switch opts.Format {
	case FormatJSON:
		report := StatusReport{Key: cfg.Key}
		if state != nil {
			assignment := state.Assignment()
			report.Found = true
			report.State = state
			report.Assignment = &assignment
		}
		enc := json.NewEncoder(opts.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case "", FormatText, FormatMarkdown, FormatMermaid:
	default:
		return fmt.Errorf("unknown status format %q", opts.Format)
	}

	if state == nil {
		fmt.Fprintf(opts.Out, "no rotation state stored under %q; the next deploy bootstraps %s\n", cfg.Key, domain.SlotBlue)
		return nil
	}

	switch opts.Format {
	case FormatMermaid:
		fmt.Fprint(opts.Out, graph.GenerateMermaid(cfg.Service, *state))
	case FormatMarkdown:
		rendered, err := tui.NewRenderer()(tui.StatusMarkdown(cfg.Key, cfg.Service, *state))
		if err != nil {
			return fmt.Errorf("render status: %w", err)
		}
		fmt.Fprint(opts.Out, rendered)
	default:
		fmt.Fprintf(opts.Out, "key: %s\n", cfg.Key)
		tui.PrintSlots(opts.Out, *state, opts.Color)
	}
	return nil
}
