package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/bluegreen/internal/config"
	"github.com/aretw0/bluegreen/internal/logging"
	"github.com/aretw0/bluegreen/pkg/adapters/process"
	"github.com/aretw0/bluegreen/pkg/deploy"
	"github.com/aretw0/bluegreen/pkg/domain"
)

// SlotManifest describes the deployment of one slot.
type SlotManifest struct {
	Slot    domain.Slot `yaml:"slot" json:"slot"`
	Service string      `yaml:"service" json:"service"`
	Version int         `yaml:"version" json:"version"`
	Image   string      `yaml:"image" json:"image"`
	// HookOutput is the stdout of the deploy hook, when one is configured.
	HookOutput string `yaml:"hookOutput,omitempty" json:"hookOutput,omitempty"`
}

// DeploymentPlan is the document written by `bluegreen deploy`.
type DeploymentPlan struct {
	Key     string               `yaml:"key" json:"key"`
	Rotated bool                 `yaml:"rotated" json:"rotated"`
	Outcome string               `yaml:"outcome" json:"outcome"`
	State   domain.RotationState `yaml:"state" json:"state"`
	Slots   []SlotManifest       `yaml:"slots" json:"slots"`
}

// ManifestBuilder returns a deploy.Builder that renders a SlotManifest per slot.
// Service names are <service>-<slot>; "{version}" in the image template is
// replaced with the slot version.
func ManifestBuilder(cfg *config.Config) deploy.Builder {
	service := cfg.Service
	image := cfg.Image
	return func(slot domain.Slot, version int) (deploy.Handle, error) {
		if !slot.Valid() {
			return nil, fmt.Errorf("build manifest: invalid slot %q", slot)
		}
		if version < 1 {
			return nil, fmt.Errorf("build manifest for %s: version must be positive, got %d", slot, version)
		}
		return SlotManifest{
			Slot:    slot,
			Service: service + "-" + slot.ID(),
			Version: version,
			Image:   strings.ReplaceAll(image, "{version}", strconv.Itoa(version)),
		}, nil
	}
}

// NewBuilder returns the builder used by deploy and serve: ManifestBuilder,
// followed by the configured hook for each slot. ctx bounds the hook processes.
func NewBuilder(ctx context.Context, cfg *config.Config, logger *slog.Logger) (deploy.Builder, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	build := ManifestBuilder(cfg)
	if len(cfg.Hook) == 0 {
		return build, nil
	}

	hook, err := process.NewHook(cfg.Hook)
	if err != nil {
		return nil, err
	}
	return func(slot domain.Slot, version int) (deploy.Handle, error) {
		h, err := build(slot, version)
		if err != nil {
			return nil, err
		}
		m := h.(SlotManifest)

		logger.Debug("Running deploy hook", "slot", slot, "version", version, "command", hook.Command)
		out, err := hook.Run(ctx, map[string]string{
			"BLUEGREEN_SLOT":    slot.String(),
			"BLUEGREEN_VERSION": strconv.Itoa(version),
			"BLUEGREEN_SERVICE": m.Service,
			"BLUEGREEN_IMAGE":   m.Image,
		})
		if err != nil {
			return nil, err
		}
		m.HookOutput = out
		return m, nil
	}, nil
}

// NewDeploymentPlan collects the manifests of a run in slot order.
func NewDeploymentPlan(res *deploy.Result) DeploymentPlan {
	plan := DeploymentPlan{
		Key:     res.Key,
		Rotated: res.Rotated(),
		Outcome: res.Outcome.String(),
		State:   res.Next,
	}
	for _, slot := range domain.Slots {
		if m, ok := res.Handles[slot].(SlotManifest); ok {
			plan.Slots = append(plan.Slots, m)
		}
	}
	return plan
}

// WritePlan encodes plan as YAML.
func WritePlan(w io.Writer, plan DeploymentPlan) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(plan); err != nil {
		return fmt.Errorf("encode plan: %w", err)
	}
	return enc.Close()
}
