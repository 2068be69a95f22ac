package process_test

import (
	"context"
	"runtime"
	"testing"

	"github.com/aretw0/bluegreen/pkg/adapters/process"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("hook tests use /bin/sh")
	}
}

func TestHook_PassesEnvironment(t *testing.T) {
	requireShell(t)
	hook, err := process.NewHook([]string{"sh", "-c", `echo "$BLUEGREEN_SLOT:$BLUEGREEN_VERSION"`})
	require.NoError(t, err)

	out, err := hook.Run(context.Background(), map[string]string{
		"BLUEGREEN_SLOT":    "GREEN",
		"BLUEGREEN_VERSION": "6",
	})
	require.NoError(t, err)
	assert.Equal(t, "GREEN:6", out)
}

func TestHook_FailureIncludesStderr(t *testing.T) {
	requireShell(t)
	hook, err := process.NewHook([]string{"sh", "-c", "echo boom >&2; exit 3"})
	require.NoError(t, err)

	_, err = hook.Run(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestHook_Cancelled(t *testing.T) {
	requireShell(t)
	hook, err := process.NewHook([]string{"sh", "-c", "sleep 5"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = hook.Run(ctx, nil)
	assert.Error(t, err)
}

func TestNewHook_Empty(t *testing.T) {
	_, err := process.NewHook(nil)
	assert.ErrorIs(t, err, process.ErrNoCommand)

	_, err = process.NewHook([]string{" "})
	assert.ErrorIs(t, err, process.ErrNoCommand)
}
