package priming

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/bluegreen/internal/logging"
	"github.com/aretw0/bluegreen/pkg/domain"
	"github.com/aretw0/bluegreen/pkg/ports"
)

// ErrAlreadyPrimed is returned when Prime is called a second time on the same Bridge.
var ErrAlreadyPrimed = errors.New("rotation state already primed")

// Outcome describes where the primed state came from.
type Outcome int

const (
	OutcomeFound Outcome = iota + 1
	OutcomeAbsent
	OutcomeUnknown
	OutcomeOverride
)

func (o Outcome) String() string {
	switch o {
	case OutcomeFound:
		return "found"
	case OutcomeAbsent:
		return "absent"
	case OutcomeUnknown:
		return "unknown"
	case OutcomeOverride:
		return "override"
	}
	return "unprimed"
}

// Policy decides what happens when the store cannot be reached.
type Policy int

const (
	// PolicyStrict fails priming when the store is unreachable.
	PolicyStrict Policy = iota
	// PolicyLenient treats an unreachable store as a first deployment.
	PolicyLenient
)

func (p Policy) String() string {
	if p == PolicyLenient {
		return "lenient"
	}
	return "strict"
}

// ParsePolicy converts "strict" or "lenient" into a Policy. Empty means strict.
func ParsePolicy(value string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "strict":
		return PolicyStrict, nil
	case "lenient":
		return PolicyLenient, nil
	}
	return PolicyStrict, fmt.Errorf("unknown priming policy %q (expected strict or lenient)", value)
}

// Primed is the resolved result of priming.
type Primed struct {
	Key      string
	State    domain.RotationState
	Revision ports.Revision
	Outcome  Outcome
	// Cause is the retrieval error that was tolerated under PolicyLenient.
	Cause error
}

// Resolve returns the primed state.
// A nil or zero Primed yields domain.ErrMissingPrimedState.
func (p *Primed) Resolve() (domain.RotationState, error) {
	if p == nil || p.Outcome == 0 {
		return domain.RotationState{}, domain.ErrMissingPrimedState
	}
	return p.State, nil
}

// Bootstrapped reports whether State holds bootstrap defaults rather than a stored record.
func (p *Primed) Bootstrapped() bool {
	return p != nil && (p.Outcome == OutcomeAbsent || p.Outcome == OutcomeUnknown)
}

// Bridge performs the one-time fetch of the rotation state.
type Bridge struct {
	store    ports.StateStore
	key      string
	policy   Policy
	override *domain.RotationState
	timeout  time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	primed *Primed
	done   bool
}

// Option configures the Bridge.
type Option func(*Bridge)

// WithKey sets the state key. Defaults to domain.DefaultStateKey.
func WithKey(key string) Option {
	return func(b *Bridge) {
		b.key = key
	}
}

// WithPolicy sets the unreachable-store policy.
func WithPolicy(policy Policy) Option {
	return func(b *Bridge) {
		b.policy = policy
	}
}

// WithOverride injects a state, skipping retrieval.
func WithOverride(state domain.RotationState) Option {
	return func(b *Bridge) {
		b.override = &state
	}
}

// WithTimeout bounds the retrieval call. A timeout is handled like any other retrieval failure.
func WithTimeout(d time.Duration) Option {
	return func(b *Bridge) {
		b.timeout = d
	}
}

// WithLogger configures a logger for the Bridge.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bridge) {
		b.logger = logger
	}
}

// NewBridge creates a Bridge reading from store.
func NewBridge(store ports.StateStore, opts ...Option) *Bridge {
	b := &Bridge{
		store:  store,
		key:    domain.DefaultStateKey,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Prime fetches the state. It may be called once; later calls return ErrAlreadyPrimed
// without touching the store, even if the first call failed.
func (b *Bridge) Prime(ctx context.Context) (*Primed, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.done {
		return nil, ErrAlreadyPrimed
	}
	b.done = true

	p, err := b.fetch(ctx)
	if err != nil {
		return nil, err
	}

	b.logger.Info("primed rotation state",
		"key", b.key,
		"outcome", p.Outcome.String(),
		"active_slot", p.State.ActiveSlot.String(),
		"current_version", p.State.CurrentVersion,
		"previous_version", p.State.PreviousVersion,
	)

	b.primed = p
	return p, nil
}

// Resolved returns the result of a completed Prime, or domain.ErrMissingPrimedState.
func (b *Bridge) Resolved() (*Primed, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.primed == nil {
		return nil, domain.ErrMissingPrimedState
	}
	return b.primed, nil
}

func (b *Bridge) fetch(ctx context.Context) (*Primed, error) {
	if b.override != nil {
		if err := b.override.Validate(); err != nil {
			return nil, err
		}
		return &Primed{Key: b.key, State: *b.override, Outcome: OutcomeOverride}, nil
	}

	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	state, rev, err := load(ctx, b.store, b.key)
	switch {
	case err == nil:
		return &Primed{Key: b.key, State: *state, Revision: rev, Outcome: OutcomeFound}, nil

	case errors.Is(err, domain.ErrStateNotFound):
		return &Primed{Key: b.key, State: domain.BootstrapState(), Outcome: OutcomeAbsent}, nil

	case errors.Is(err, domain.ErrCorruptState):
		return nil, err
	}

	retrieval := &domain.RetrievalError{Key: b.key, Err: err}
	if b.policy != PolicyLenient {
		return nil, retrieval
	}

	b.logger.Warn("state store unreachable, assuming first deployment",
		"key", b.key,
		"err", retrieval,
	)
	return &Primed{Key: b.key, State: domain.BootstrapState(), Outcome: OutcomeUnknown, Cause: retrieval}, nil
}

func load(ctx context.Context, store ports.StateStore, key string) (*domain.RotationState, ports.Revision, error) {
	if vs, ok := store.(ports.VersionedStateStore); ok {
		return vs.LoadRevision(ctx, key)
	}
	state, err := store.Load(ctx, key)
	return state, "", err
}
