package memory

import (
	"context"
	"sync"

	"github.com/aretw0/bluegreen/pkg/domain"
	"github.com/aretw0/bluegreen/pkg/ports"
)

// Store implements ports.VersionedStateStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string][]byte
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string][]byte),
	}
}

// Save persists the state in memory, overwriting any previous value.
func (s *Store) Save(ctx context.Context, key string, state domain.RotationState) error {
	// Encode to keep the same validation and isolation as a real backend
	raw, err := domain.EncodeState(state)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = raw
	return nil
}

// Load retrieves the state from memory.
func (s *Store) Load(ctx context.Context, key string) (*domain.RotationState, error) {
	state, _, err := s.LoadRevision(ctx, key)
	return state, err
}

// LoadRevision retrieves the state and its revision.
func (s *Store) LoadRevision(ctx context.Context, key string) (*domain.RotationState, ports.Revision, error) {
	s.mu.RLock()
	raw, ok := s.data[key]
	s.mu.RUnlock()

	if !ok {
		return nil, "", domain.ErrStateNotFound
	}

	state, err := domain.DecodeState(raw)
	if err != nil {
		return nil, "", err
	}
	return &state, ports.RevisionOf(raw), nil
}

// SaveIfRevision writes the state only if the stored revision still equals rev.
func (s *Store) SaveIfRevision(ctx context.Context, key string, state domain.RotationState, rev ports.Revision) error {
	raw, err := domain.EncodeState(state)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.data[key]
	var currentRev ports.Revision
	if ok {
		currentRev = ports.RevisionOf(current)
	}
	if currentRev != rev {
		return domain.ErrConcurrentModification
	}

	s.data[key] = raw
	return nil
}

// Put stores a raw value without validation. Intended for seeding tests with corrupt records.
func (s *Store) Put(key string, raw []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = append([]byte(nil), raw...)
}
