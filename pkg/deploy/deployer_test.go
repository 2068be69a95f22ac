package deploy_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/bluegreen/pkg/adapters/memory"
	"github.com/aretw0/bluegreen/pkg/deploy"
	"github.com/aretw0/bluegreen/pkg/domain"
	"github.com/aretw0/bluegreen/pkg/observability"
	"github.com/aretw0/bluegreen/pkg/ports"
	"github.com/aretw0/bluegreen/pkg/priming"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	Slot    domain.Slot
	Version int
}

// recorder is a Builder that remembers its calls.
type recorder struct {
	mu    sync.Mutex
	calls []call
	fail  domain.Slot
}

func (r *recorder) build(slot domain.Slot, version int) (deploy.Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if slot == r.fail {
		return nil, errors.New("image not found")
	}
	r.calls = append(r.calls, call{slot, version})
	return slot.ID() + "-service", nil
}

func (r *recorder) versions() map[domain.Slot]int {
	out := map[domain.Slot]int{}
	for _, c := range r.calls {
		out[c.Slot] = c.Version
	}
	return out
}

// failingStore loads from an inner store but cannot save.
type failingStore struct {
	ports.StateStore
	err error
}

func (s *failingStore) Save(ctx context.Context, key string, state domain.RotationState) error {
	return s.err
}

// fakeLocker counts lock acquisitions and releases.
type fakeLocker struct {
	locked, unlocked int
	err              error
}

func (l *fakeLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	if l.err != nil {
		return nil, l.err
	}
	l.locked++
	return func(context.Context) error {
		l.unlocked++
		return nil
	}, nil
}

func TestRun_BootstrapThenRotate(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	d := deploy.New(store)

	rec := &recorder{}
	res, err := d.Run(ctx, 1, rec.build)
	require.NoError(t, err)
	assert.Equal(t, priming.OutcomeAbsent, res.Outcome)
	assert.False(t, res.Rotated())
	assert.Equal(t, map[domain.Slot]int{domain.SlotBlue: 1, domain.SlotGreen: 1}, rec.versions())
	assert.Equal(t, "blue-service", res.Handles[domain.SlotBlue])

	stored, err := store.Load(ctx, domain.DefaultStateKey)
	require.NoError(t, err)
	assert.Equal(t, domain.BootstrapState(), *stored, "bootstrap state is written back")

	rec = &recorder{}
	res, err = d.Run(ctx, 2, rec.build)
	require.NoError(t, err)
	assert.True(t, res.Rotated())
	assert.Equal(t, map[domain.Slot]int{domain.SlotBlue: 1, domain.SlotGreen: 2}, rec.versions())
	assert.Len(t, rec.calls, 2, "builder is called exactly once per slot")

	_, err = d.Run(ctx, 3, (&recorder{}).build)
	require.NoError(t, err)

	stored, err = store.Load(ctx, domain.DefaultStateKey)
	require.NoError(t, err)
	assert.Equal(t, domain.RotationState{ActiveSlot: domain.SlotBlue, CurrentVersion: 3, PreviousVersion: 2}, *stored)
}

func TestRun_SameVersionConverges(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	start := domain.RotationState{ActiveSlot: domain.SlotGreen, CurrentVersion: 6, PreviousVersion: 5}
	require.NoError(t, store.Save(ctx, domain.DefaultStateKey, start))

	d := deploy.New(store)
	for i := 0; i < 3; i++ {
		rec := &recorder{}
		res, err := d.Run(ctx, 6, rec.build)
		require.NoError(t, err)
		assert.False(t, res.Rotated())
		assert.Equal(t, map[domain.Slot]int{domain.SlotBlue: 5, domain.SlotGreen: 6}, rec.versions())
	}

	stored, err := store.Load(ctx, domain.DefaultStateKey)
	require.NoError(t, err)
	assert.Equal(t, start, *stored)
}

func TestPlan_RequiresPrimedState(t *testing.T) {
	d := deploy.New(memory.NewStore())

	for i := 0; i < 3; i++ {
		_, err := d.Plan(nil, 2)
		assert.ErrorIs(t, err, domain.ErrMissingPrimedState)
	}

	_, err := d.Deploy(context.Background(), &priming.Primed{}, 2, (&recorder{}).build)
	assert.ErrorIs(t, err, domain.ErrMissingPrimedState)
	phase, ok := deploy.FailedPhase(err)
	assert.True(t, ok)
	assert.Equal(t, deploy.PhasePlan, phase)
}

func TestRun_CorruptStateAborts(t *testing.T) {
	store := memory.NewStore()
	raw := []byte(`{"activeSlot":"PURPLE","currentVersion":1,"previousVersion":1}`)
	store.Put(domain.DefaultStateKey, raw)

	rec := &recorder{}
	_, err := deploy.New(store).Run(context.Background(), 2, rec.build)
	assert.ErrorIs(t, err, domain.ErrCorruptState)
	assert.Empty(t, rec.calls, "nothing is built from a corrupt state")

	phase, _ := deploy.FailedPhase(err)
	assert.Equal(t, deploy.PhasePrime, phase)
}

func TestRun_BuildFailureDoesNotPersist(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	d := deploy.New(store)

	_, err := d.Run(ctx, 4, (&recorder{fail: domain.SlotGreen}).build)
	require.Error(t, err)
	phase, _ := deploy.FailedPhase(err)
	assert.Equal(t, deploy.PhaseBuild, phase)

	_, err = store.Load(ctx, domain.DefaultStateKey)
	assert.ErrorIs(t, err, domain.ErrStateNotFound)
}

func TestRun_PersistFailure(t *testing.T) {
	cause := errors.New("throttled")
	store := &failingStore{StateStore: memory.NewStore(), err: cause}

	rec := &recorder{}
	res, err := deploy.New(store).Run(context.Background(), 2, rec.build)
	require.Error(t, err)
	assert.True(t, domain.IsPersistError(err))
	assert.ErrorIs(t, err, cause)

	require.NotNil(t, res, "slots were built even though state tracking is stale")
	assert.Len(t, res.Handles, 2)
	assert.Equal(t, domain.SlotGreen, res.Next.ActiveSlot)
}

func TestDeploy_ConcurrentRunsConflict(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	require.NoError(t, store.Save(ctx, domain.DefaultStateKey, domain.BootstrapState()))

	reg := prometheus.NewRegistry()
	d := deploy.New(store, deploy.WithMetrics(observability.NewMetrics(reg)))

	// Both runs read the same prior state before either commits.
	first, err := priming.NewBridge(store).Prime(ctx)
	require.NoError(t, err)
	second, err := priming.NewBridge(store).Prime(ctx)
	require.NoError(t, err)

	_, err = d.Deploy(ctx, first, 2, (&recorder{}).build)
	require.NoError(t, err)

	_, err = d.Deploy(ctx, second, 3, (&recorder{}).build)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConcurrentModification)
	assert.True(t, domain.IsPersistError(err))

	stored, err := store.Load(ctx, domain.DefaultStateKey)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.CurrentVersion, "losing run must not overwrite the winner")

	count, err := testutil.GatherAndCount(reg, "bluegreen_commit_conflicts_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestDeploy_LastWriterWinsWithoutCAS(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	d := deploy.New(store, deploy.WithCompareAndSwap(false))

	first, err := priming.NewBridge(store).Prime(ctx)
	require.NoError(t, err)
	second, err := priming.NewBridge(store).Prime(ctx)
	require.NoError(t, err)

	_, err = d.Deploy(ctx, first, 2, (&recorder{}).build)
	require.NoError(t, err)
	_, err = d.Deploy(ctx, second, 3, (&recorder{}).build)
	require.NoError(t, err)

	stored, err := store.Load(ctx, domain.DefaultStateKey)
	require.NoError(t, err)
	assert.Equal(t, domain.RotationState{ActiveSlot: domain.SlotGreen, CurrentVersion: 3, PreviousVersion: 1}, *stored)
}

func TestRun_Override(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	require.NoError(t, store.Save(ctx, domain.DefaultStateKey, domain.BootstrapState()))

	injected := domain.RotationState{ActiveSlot: domain.SlotGreen, CurrentVersion: 8, PreviousVersion: 7}
	d := deploy.New(store, deploy.WithPrimingOptions(priming.WithOverride(injected)))

	res, err := d.Run(ctx, 9, (&recorder{}).build)
	require.NoError(t, err)
	assert.Equal(t, priming.OutcomeOverride, res.Outcome)
	assert.Equal(t, domain.RotationState{ActiveSlot: domain.SlotBlue, CurrentVersion: 9, PreviousVersion: 8}, res.Next)
}

func TestRun_Locking(t *testing.T) {
	locker := &fakeLocker{}
	d := deploy.New(memory.NewStore(), deploy.WithLocker(locker, time.Minute))

	_, err := d.Run(context.Background(), 2, (&recorder{}).build)
	require.NoError(t, err)
	assert.Equal(t, 1, locker.locked)
	assert.Equal(t, 1, locker.unlocked)

	locker.err = context.DeadlineExceeded
	_, err = d.Run(context.Background(), 3, (&recorder{}).build)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	phase, _ := deploy.FailedPhase(err)
	assert.Equal(t, deploy.PhaseLock, phase)
}

func TestBuild_NilBuilder(t *testing.T) {
	d := deploy.New(memory.NewStore())
	_, err := d.Build(deploy.Plan{Assignment: domain.SlotAssignment{Blue: 1, Green: 1}}, nil)
	assert.Error(t, err)
}
