package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/bluegreen/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunStateStoreContract runs a suite of tests to verify that a StateStore implementation
// adheres to the defined interface contract.
func RunStateStoreContract(t *testing.T, store StateStore) {
	ctx := context.Background()
	key := "contract-test-" + time.Now().Format("20060102150405.000000000")

	t.Run("Load Absent", func(t *testing.T) {
		loaded, err := store.Load(ctx, "absent-"+key)
		assert.ErrorIs(t, err, domain.ErrStateNotFound)
		assert.Nil(t, loaded)
	})

	t.Run("Save and Load", func(t *testing.T) {
		state := domain.RotationState{ActiveSlot: domain.SlotGreen, CurrentVersion: 6, PreviousVersion: 5}

		err := store.Save(ctx, key, state)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, key)
		require.NoError(t, err, "Load should not return error")
		require.NotNil(t, loaded)
		assert.Equal(t, state, *loaded)
	})

	t.Run("Overwrite", func(t *testing.T) {
		first := domain.BootstrapState()
		second := domain.RotationState{ActiveSlot: domain.SlotGreen, CurrentVersion: 2, PreviousVersion: 1}

		require.NoError(t, store.Save(ctx, key, first))
		require.NoError(t, store.Save(ctx, key, second))

		loaded, err := store.Load(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, second, *loaded, "last writer should win")
	})

	t.Run("Loaded Copy Is Isolated", func(t *testing.T) {
		state := domain.BootstrapState()
		require.NoError(t, store.Save(ctx, key, state))

		loaded, err := store.Load(ctx, key)
		require.NoError(t, err)
		loaded.CurrentVersion = 99

		again, err := store.Load(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, state, *again)
	})

	t.Run("Reject Invalid State", func(t *testing.T) {
		err := store.Save(ctx, key, domain.RotationState{ActiveSlot: "PURPLE"})
		assert.ErrorIs(t, err, domain.ErrCorruptState)
	})
}

// RunVersionedStateStoreContract verifies the optimistic concurrency behaviour of a
// VersionedStateStore, in addition to the plain StateStore contract.
func RunVersionedStateStoreContract(t *testing.T, store VersionedStateStore) {
	RunStateStoreContract(t, store)

	ctx := context.Background()
	key := "contract-cas-" + time.Now().Format("20060102150405.000000000")

	t.Run("Absent Has Empty Revision", func(t *testing.T) {
		loaded, rev, err := store.LoadRevision(ctx, key)
		assert.ErrorIs(t, err, domain.ErrStateNotFound)
		assert.Nil(t, loaded)
		assert.Empty(t, rev)
	})

	t.Run("Create With Empty Revision", func(t *testing.T) {
		require.NoError(t, store.SaveIfRevision(ctx, key, domain.BootstrapState(), ""))

		err := store.SaveIfRevision(ctx, key, domain.BootstrapState(), "")
		assert.ErrorIs(t, err, domain.ErrConcurrentModification, "creating an existing record should conflict")
	})

	t.Run("Matching Revision Wins", func(t *testing.T) {
		_, rev, err := store.LoadRevision(ctx, key)
		require.NoError(t, err)
		require.NotEmpty(t, rev)

		next := domain.RotationState{ActiveSlot: domain.SlotGreen, CurrentVersion: 2, PreviousVersion: 1}
		require.NoError(t, store.SaveIfRevision(ctx, key, next, rev))

		loaded, newRev, err := store.LoadRevision(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, next, *loaded)
		assert.NotEqual(t, rev, newRev)
	})

	t.Run("Stale Revision Conflicts", func(t *testing.T) {
		_, stale, err := store.LoadRevision(ctx, key)
		require.NoError(t, err)

		// Another run commits first.
		winner := domain.RotationState{ActiveSlot: domain.SlotBlue, CurrentVersion: 3, PreviousVersion: 2}
		require.NoError(t, store.SaveIfRevision(ctx, key, winner, stale))

		loser := domain.RotationState{ActiveSlot: domain.SlotBlue, CurrentVersion: 4, PreviousVersion: 2}
		err = store.SaveIfRevision(ctx, key, loser, stale)
		assert.ErrorIs(t, err, domain.ErrConcurrentModification)

		loaded, err := store.Load(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, winner, *loaded, "conflicting write must not be applied")
	})
}
