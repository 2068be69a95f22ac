package redis_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/bluegreen/pkg/adapters/redis"
	"github.com/aretw0/bluegreen/pkg/domain"
	"github.com/aretw0/bluegreen/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStore_Contract(t *testing.T) {
	_, client := newClient(t)

	store := redis.NewFromClient(client)
	ports.RunVersionedStateStoreContract(t, store)
}

func TestRedisStore_Prefix(t *testing.T) {
	mr, client := newClient(t)

	store := redis.NewFromClient(client, redis.WithPrefix("custom:app:"))
	ctx := context.Background()

	err := store.Save(ctx, domain.DefaultStateKey, domain.BootstrapState())
	assert.NoError(t, err)

	// Key should be "custom:app:blue-green-state"
	raw, err := mr.Get("custom:app:blue-green-state")
	require.NoError(t, err)
	assert.JSONEq(t, `{"activeSlot":"BLUE","currentVersion":1,"previousVersion":1}`, raw)
}

func TestRedisStore_CorruptRecord(t *testing.T) {
	mr, client := newClient(t)
	store := redis.NewFromClient(client)

	require.NoError(t, mr.Set("bluegreen:blue-green-state", `{"activeSlot":"PURPLE","currentVersion":1,"previousVersion":1}`))

	_, err := store.Load(context.Background(), domain.DefaultStateKey)
	assert.ErrorIs(t, err, domain.ErrCorruptState)
}

func TestRedisStore_Unreachable(t *testing.T) {
	mr, client := newClient(t)
	store := redis.NewFromClient(client)
	mr.Close()

	_, err := store.Load(context.Background(), domain.DefaultStateKey)
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrStateNotFound)
	assert.NotErrorIs(t, err, domain.ErrCorruptState)
}
