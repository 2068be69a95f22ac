// Package process runs deployment hooks as local processes.
package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sort"
	"strings"
)

// ErrNoCommand is returned by NewHook when the command line is empty.
var ErrNoCommand = errors.New("hook command is empty")

// Hook is an external command run once per slot.
// Slot details are passed as environment variables, never as arguments,
// so values cannot inject flags into the command.
type Hook struct {
	Command string
	Args    []string
}

// NewHook creates a Hook from a command line already split into words.
func NewHook(argv []string) (*Hook, error) {
	if len(argv) == 0 || strings.TrimSpace(argv[0]) == "" {
		return nil, ErrNoCommand
	}
	return &Hook{Command: argv[0], Args: argv[1:]}, nil
}

// Run executes the hook with env appended to the current environment
// and returns its trimmed stdout.
func (h *Hook) Run(ctx context.Context, env map[string]string) (string, error) {
	cmd := exec.CommandContext(ctx, h.Command, h.Args...)

	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	extra := make([]string, 0, len(keys))
	for _, k := range keys {
		extra = append(extra, k+"="+env[k])
	}
	cmd.Env = append(cmd.Environ(), extra...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return "", fmt.Errorf("hook %s: %w", h.Command, err)
		}
		return "", fmt.Errorf("hook %s: %w: %s", h.Command, err, msg)
	}
	return strings.TrimSpace(stdout.String()), nil
}
