package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aretw0/bluegreen/internal/config"
	"github.com/aretw0/bluegreen/internal/logging"
	"github.com/aretw0/bluegreen/internal/presentation/graph"
	"github.com/aretw0/bluegreen/internal/presentation/tui"
	"github.com/aretw0/bluegreen/pkg/deploy"
	"github.com/aretw0/bluegreen/pkg/observability"
	"github.com/aretw0/bluegreen/pkg/priming"
)

// DeployOptions configures RunDeploy.
type DeployOptions struct {
	// Version is the requested version. Required.
	Version int
	// PlanPath receives the YAML plan. Empty writes it to Out.
	PlanPath string
	// Graph appends a mermaid diagram of the new state.
	Graph bool
	// Color enables ANSI styling of the summary.
	Color bool
	// Quiet suppresses the summary; the plan is still written.
	Quiet bool

	Out     io.Writer
	Logger  *slog.Logger
	Metrics *observability.Metrics
}

// NewDeployer wires a Deployer from cfg over an opened backend.
// When useOverride is false, cfg.Override is ignored.
func NewDeployer(cfg *config.Config, b *Backend, useOverride bool, logger *slog.Logger, metrics *observability.Metrics) (*deploy.Deployer, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	primeOpts := []priming.Option{
		priming.WithPolicy(cfg.PrimingPolicy()),
		priming.WithTimeout(cfg.Timeout),
	}
	if useOverride {
		override, err := cfg.OverrideState()
		if err != nil {
			return nil, err
		}
		if override != nil {
			primeOpts = append(primeOpts, priming.WithOverride(*override))
		}
	}

	opts := []deploy.Option{
		deploy.WithKey(cfg.Key),
		deploy.WithCompareAndSwap(cfg.CompareAndSwap),
		deploy.WithPrimingOptions(primeOpts...),
		deploy.WithLogger(logger),
		deploy.WithMetrics(metrics),
	}
	if b.Locker != nil {
		opts = append(opts, deploy.WithLocker(b.Locker, cfg.Lock.TTL))
	}
	return deploy.New(b.Store, opts...), nil
}

// RunDeploy performs one deployment run and prints its outcome.
// A failed commit still prints the summary: the slots were built but the run must be retried.
func RunDeploy(ctx context.Context, cfg *config.Config, opts DeployOptions) (*deploy.Result, error) {
	if opts.Version < 1 {
		return nil, fmt.Errorf("version must be a positive integer, got %d", opts.Version)
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	b, err := OpenBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := b.Close(); err != nil {
			logger.Warn("Failed to close state backend", "err", err)
		}
	}()

	d, err := NewDeployer(cfg, b, true, logger, opts.Metrics)
	if err != nil {
		return nil, err
	}

	logger.Info("Deployment run started",
		"key", cfg.Key,
		"backend", cfg.Store.Backend,
		"version", opts.Version,
	)
	build, err := NewBuilder(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	res, runErr := d.Run(ctx, opts.Version, build)
	if res == nil {
		return nil, runErr
	}

	if !opts.Quiet {
		tui.PrintSummary(opts.Out, res.Next, res.Rotated(), opts.Color)
		if runErr != nil {
			printSystemMessage(opts.Out, "state was not saved; retry the run")
		}
	}

	if err := writePlanTo(opts.PlanPath, opts.Out, NewDeploymentPlan(res)); err != nil {
		if runErr != nil {
			return res, runErr
		}
		return res, err
	}

	if opts.Graph {
		fmt.Fprintln(opts.Out, graph.GenerateMermaid(cfg.Service, res.Next))
	}

	if runErr == nil {
		logger.Info("Deployment run finished",
			"key", cfg.Key,
			"active_slot", res.Next.ActiveSlot,
			"rotated", res.Rotated(),
		)
	}
	return res, runErr
}

func writePlanTo(path string, out io.Writer, plan DeploymentPlan) error {
	if path == "" || path == "-" {
		return WritePlan(out, plan)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create plan file: %w", err)
	}
	if err := WritePlan(f, plan); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
