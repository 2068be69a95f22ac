package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/aretw0/bluegreen/pkg/domain"
	"github.com/aretw0/bluegreen/pkg/ports"
)

// Store implements ports.VersionedStateStore using the local filesystem.
// Each key is stored as a JSON file in a configured directory.
//
// Conditional writes are serialized within the process only; two processes
// sharing the directory should use a DistributedLocker.
type Store struct {
	BasePath string

	mu sync.Mutex
}

// New creates a new Store with the given base path.
// If basePath is empty, it defaults to ".bluegreen".
func New(basePath string) *Store {
	if basePath == "" {
		basePath = ".bluegreen"
	}
	return &Store{BasePath: basePath}
}

func (s *Store) path(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("state key cannot be empty")
	}
	if filepath.Base(key) != key {
		return "", fmt.Errorf("state key %q must not contain path separators", key)
	}
	return filepath.Join(s.BasePath, key+".json"), nil
}

// Save persists the state to a JSON file atomically.
func (s *Store) Save(ctx context.Context, key string, state domain.RotationState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(key, state)
}

// Load retrieves the state from its JSON file.
func (s *Store) Load(ctx context.Context, key string) (*domain.RotationState, error) {
	state, _, err := s.LoadRevision(ctx, key)
	return state, err
}

// LoadRevision retrieves the state and a revision derived from the file content.
func (s *Store) LoadRevision(ctx context.Context, key string) (*domain.RotationState, ports.Revision, error) {
	raw, err := s.read(key)
	if err != nil {
		return nil, "", err
	}

	state, err := domain.DecodeState(raw)
	if err != nil {
		return nil, "", err
	}
	return &state, ports.RevisionOf(raw), nil
}

// SaveIfRevision writes the state only if the file content still has revision rev.
func (s *Store) SaveIfRevision(ctx context.Context, key string, state domain.RotationState, rev ports.Revision) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := s.read(key)
	var currentRev ports.Revision
	switch {
	case errors.Is(err, domain.ErrStateNotFound):
	case err != nil:
		return err
	default:
		currentRev = ports.RevisionOf(raw)
	}

	if currentRev != rev {
		return domain.ErrConcurrentModification
	}
	return s.write(key, state)
}

func (s *Store) read(key string) ([]byte, error) {
	filePath, err := s.path(key)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrStateNotFound
		}
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}
	return data, nil
}

// write replaces the state file via temp file, fsync and rename.
func (s *Store) write(key string, state domain.RotationState) error {
	destPath, err := s.path(key)
	if err != nil {
		return err
	}

	data, err := domain.EncodeState(state)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(s.BasePath, 0755); err != nil {
		return fmt.Errorf("failed to ensure state directory: %w", err)
	}

	// Same directory so the rename stays on one filesystem
	tmpFile, err := os.CreateTemp(s.BasePath, "tmp-"+key+"-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}

	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}

	// Cannot rename an open file on Windows
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file to state file: %w", err)
	}
	return nil
}
