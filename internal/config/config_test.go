package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/bluegreen/internal/config"
	"github.com/aretw0/bluegreen/pkg/domain"
	"github.com/aretw0/bluegreen/pkg/priming"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"), false)
	require.NoError(t, err)

	assert.Equal(t, domain.DefaultStateKey, cfg.Key)
	assert.Equal(t, config.BackendFile, cfg.Store.Backend)
	assert.True(t, cfg.CompareAndSwap)
	assert.Equal(t, priming.PolicyStrict, cfg.PrimingPolicy())
}

func TestLoad_RequiredMissing(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"), true)
	assert.Error(t, err)
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "bluegreen.yaml", `
key: shop-state
service: shop
image: registry.example.com/shop:v{version}
policy: lenient
timeout: 3s
store:
  backend: redis
  options:
    addr: localhost:6379
    db: 2
lock:
  enabled: true
  ttl: 1m
`)

	t.Setenv("BLUEGREEN_SERVICE", "checkout")
	t.Setenv("BLUEGREEN_COMPARE_AND_SWAP", "false")

	cfg, err := config.Load(path, true)
	require.NoError(t, err)

	assert.Equal(t, "shop-state", cfg.Key)
	assert.Equal(t, "checkout", cfg.Service, "env overrides the file")
	assert.False(t, cfg.CompareAndSwap)
	assert.Equal(t, priming.PolicyLenient, cfg.PrimingPolicy())
	assert.Equal(t, 3*time.Second, cfg.Timeout)
	assert.True(t, cfg.Lock.Enabled)
	assert.Equal(t, time.Minute, cfg.Lock.TTL)

	var opts config.RedisOptions
	require.NoError(t, cfg.Store.DecodeOptions(&opts))
	assert.Equal(t, config.RedisOptions{Addr: "localhost:6379", DB: 2}, opts)
}

func TestLoad_EnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := writeFile(t, dir, ".env", "BLUEGREEN_BACKEND=memory\n")

	// godotenv never overrides variables that are already set; make sure this one is not.
	t.Setenv("BLUEGREEN_BACKEND", "")
	require.NoError(t, os.Unsetenv("BLUEGREEN_BACKEND"))

	cfg, err := config.Load("", false, envFile)
	require.NoError(t, err)
	assert.Equal(t, config.BackendMemory, cfg.Store.Backend)
}

func TestValidate(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Backend = "etcd"
	assert.Error(t, cfg.Validate())

	cfg = config.Default()
	cfg.Policy = "maybe"
	assert.Error(t, cfg.Validate())

	cfg = config.Default()
	cfg.Override = `{"activeSlot":"PURPLE","currentVersion":1,"previousVersion":1}`
	assert.ErrorIs(t, cfg.Validate(), domain.ErrCorruptState)
}

func TestOverrideState(t *testing.T) {
	cfg := config.Default()
	s, err := cfg.OverrideState()
	require.NoError(t, err)
	assert.Nil(t, s)

	cfg.Override = `{"activeSlot":"GREEN","currentVersion":4,"previousVersion":3}`
	s, err = cfg.OverrideState()
	require.NoError(t, err)
	assert.Equal(t, domain.RotationState{ActiveSlot: domain.SlotGreen, CurrentVersion: 4, PreviousVersion: 3}, *s)
}

func TestStoreOptions(t *testing.T) {
	store := config.StoreConfig{Backend: config.BackendRedis}
	require.NoError(t, store.SetOption("addr=redis:6379"))
	require.NoError(t, store.SetOption("db=3"))
	assert.Error(t, store.SetOption("novalue"))

	var opts config.RedisOptions
	require.NoError(t, store.DecodeOptions(&opts))
	assert.Equal(t, "redis:6379", opts.Addr)
	assert.Equal(t, 3, opts.DB)

	require.NoError(t, store.SetOption("typo=1"))
	assert.Error(t, store.DecodeOptions(&opts), "unknown options are rejected")
}

func TestLoad_Hook(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "bluegreen.yaml", "hook: [\"./deploy.sh\", \"--apply\"]\n")

	cfg, err := config.Load(path, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"./deploy.sh", "--apply"}, cfg.Hook)

	t.Setenv("BLUEGREEN_HOOK", "kubectl apply -f -")
	cfg, err = config.Load(path, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"kubectl", "apply", "-f", "-"}, cfg.Hook)
}
