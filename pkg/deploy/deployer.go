package deploy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/bluegreen/internal/logging"
	"github.com/aretw0/bluegreen/pkg/domain"
	"github.com/aretw0/bluegreen/pkg/observability"
	"github.com/aretw0/bluegreen/pkg/ports"
	"github.com/aretw0/bluegreen/pkg/priming"
	"github.com/aretw0/bluegreen/pkg/rotation"
)

const defaultLockTTL = 5 * time.Minute

// Handle is the opaque artifact a Builder returns for a slot.
type Handle any

// Builder constructs or updates the deployment of one slot at the given version.
// It is called once per slot; the order of calls carries no meaning.
type Builder func(slot domain.Slot, version int) (Handle, error)

// Plan is the outcome of the synchronous decision step.
type Plan struct {
	Key        string
	Prior      domain.RotationState
	Next       domain.RotationState
	Assignment domain.SlotAssignment
	Revision   ports.Revision
	Outcome    priming.Outcome
}

// Rotated reports whether the plan flips slots.
func (p Plan) Rotated() bool {
	return p.Prior != p.Next
}

// Result is a completed run.
type Result struct {
	Plan
	Handles map[domain.Slot]Handle
}

// Deployer orchestrates deployment runs against a state store.
type Deployer struct {
	store     ports.StateStore
	key       string
	locker    ports.DistributedLocker
	lockTTL   time.Duration
	cas       bool
	primeOpts []priming.Option
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// Option configures the Deployer.
type Option func(*Deployer)

// WithKey sets the state key. Defaults to domain.DefaultStateKey.
func WithKey(key string) Option {
	return func(d *Deployer) {
		d.key = key
	}
}

// WithLocker serializes runs through a distributed lock held from priming until commit.
func WithLocker(locker ports.DistributedLocker, ttl time.Duration) Option {
	return func(d *Deployer) {
		d.locker = locker
		if ttl > 0 {
			d.lockTTL = ttl
		}
	}
}

// WithCompareAndSwap toggles conditional commits on stores that support them. Enabled by default.
func WithCompareAndSwap(enabled bool) Option {
	return func(d *Deployer) {
		d.cas = enabled
	}
}

// WithPrimingOptions passes options to the Bridge created by Run.
func WithPrimingOptions(opts ...priming.Option) Option {
	return func(d *Deployer) {
		d.primeOpts = append(d.primeOpts, opts...)
	}
}

// WithLogger configures a logger for the Deployer.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Deployer) {
		d.logger = logger
	}
}

// WithMetrics records run metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(d *Deployer) {
		d.metrics = m
	}
}

// New creates a Deployer persisting to store.
func New(store ports.StateStore, opts ...Option) *Deployer {
	d := &Deployer{
		store:   store,
		key:     domain.DefaultStateKey,
		lockTTL: defaultLockTTL,
		cas:     true,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Key returns the state key the Deployer operates on.
func (d *Deployer) Key() string {
	return d.key
}

// Run performs a full deployment run for version.
// If commit fails the returned Result is still populated: the slots were built
// but the stored state is stale, and the whole run should be retried.
func (d *Deployer) Run(ctx context.Context, version int, build Builder) (*Result, error) {
	if d.locker != nil {
		unlock, err := d.locker.Lock(ctx, d.key, d.lockTTL)
		if err != nil {
			d.metrics.RecordRun(observability.ResultFailed)
			return nil, phaseErr(PhaseLock, fmt.Errorf("failed to acquire deployment lock: %w", err))
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				d.logger.Warn("Failed to release deployment lock (will expire via TTL)",
					"key", d.key,
					"err", err,
				)
			}
		}()
	}

	opts := append([]priming.Option{priming.WithKey(d.key), priming.WithLogger(d.logger)}, d.primeOpts...)
	primed, err := priming.NewBridge(d.store, opts...).Prime(ctx)
	if err != nil {
		d.metrics.RecordRun(observability.ResultFailed)
		return nil, phaseErr(PhasePrime, err)
	}
	d.metrics.RecordPrime(primed.Outcome.String())

	return d.Deploy(ctx, primed, version, build)
}

// Deploy runs plan, build and commit on an already primed state.
func (d *Deployer) Deploy(ctx context.Context, primed *priming.Primed, version int, build Builder) (*Result, error) {
	plan, err := d.Plan(primed, version)
	if err != nil {
		d.metrics.RecordRun(observability.ResultFailed)
		return nil, phaseErr(PhasePlan, err)
	}

	handles, err := d.Build(plan, build)
	if err != nil {
		d.metrics.RecordRun(observability.ResultFailed)
		return nil, phaseErr(PhaseBuild, err)
	}

	res := &Result{Plan: plan, Handles: handles}
	if err := d.Commit(ctx, plan); err != nil {
		d.metrics.RecordRun(observability.ResultFailed)
		return res, phaseErr(PhaseCommit, err)
	}

	if plan.Rotated() {
		d.metrics.RecordRun(observability.ResultRotated)
	} else {
		d.metrics.RecordRun(observability.ResultUnchanged)
	}
	return res, nil
}

// Plan computes the next state for version. It does not block.
// An unprimed state yields domain.ErrMissingPrimedState.
func (d *Deployer) Plan(primed *priming.Primed, version int) (Plan, error) {
	prior, err := primed.Resolve()
	if err != nil {
		return Plan{}, err
	}

	next, assignment, err := rotation.Rotate(&prior, version)
	if err != nil {
		return Plan{}, err
	}

	plan := Plan{
		Key:        d.key,
		Prior:      prior,
		Next:       next,
		Assignment: assignment,
		Revision:   primed.Revision,
		Outcome:    primed.Outcome,
	}

	d.logger.Info("planned rotation",
		"key", d.key,
		"version", version,
		"rotated", plan.Rotated(),
		"active_slot", next.ActiveSlot.String(),
		"blue", assignment.Blue,
		"green", assignment.Green,
	)
	return plan, nil
}

// Build invokes build once per slot with its assigned version.
func (d *Deployer) Build(plan Plan, build Builder) (map[domain.Slot]Handle, error) {
	if build == nil {
		return nil, errors.New("no builder configured")
	}

	handles := make(map[domain.Slot]Handle, len(domain.Slots))
	for _, slot := range domain.Slots {
		version := plan.Assignment.For(slot)
		h, err := build(slot, version)
		if err != nil {
			return nil, fmt.Errorf("build %s slot at version %d: %w", slot, version, err)
		}
		handles[slot] = h
	}
	return handles, nil
}

// Commit persists plan.Next, even when unchanged.
// Errors are wrapped in *domain.PersistError.
func (d *Deployer) Commit(ctx context.Context, plan Plan) error {
	var err error
	vs, versioned := d.store.(ports.VersionedStateStore)
	if d.cas && versioned && plan.Outcome != priming.OutcomeOverride {
		err = vs.SaveIfRevision(ctx, d.key, plan.Next, plan.Revision)
	} else {
		err = d.store.Save(ctx, d.key, plan.Next)
	}

	if err != nil {
		if errors.Is(err, domain.ErrConcurrentModification) {
			d.metrics.RecordConflict()
			d.logger.Warn("rotation state changed since priming, refusing to overwrite",
				"key", d.key,
				"err", err,
			)
		}
		return &domain.PersistError{Key: d.key, Err: err}
	}

	d.metrics.RecordState(plan.Next)
	d.logger.Info("committed rotation state",
		"key", d.key,
		"state", plan.Next.String(),
	)
	return nil
}
