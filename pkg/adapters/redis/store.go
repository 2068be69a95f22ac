package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/bluegreen/pkg/domain"
	"github.com/aretw0/bluegreen/pkg/ports"
	backend "github.com/redis/go-redis/v9"
)

const defaultPrefix = "bluegreen:"

// Store implements ports.VersionedStateStore using Redis.
// Conditional writes use WATCH/MULTI so a concurrent commit aborts the transaction.
type Store struct {
	client *backend.Client
	prefix string
}

type Option func(*Store)

// WithPrefix sets the key prefix for state records.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: defaultPrefix,
	}

	for _, opt := range opts {
		opt(store)
	}

	return store
}

// Client exposes the underlying client so a Locker can share the connection.
func (s *Store) Client() *backend.Client {
	return s.client
}

func (s *Store) key(key string) string {
	return s.prefix + key
}

// Save persists the state to Redis without expiration.
func (s *Store) Save(ctx context.Context, key string, state domain.RotationState) error {
	data, err := domain.EncodeState(state)
	if err != nil {
		return err
	}

	if err := s.client.Set(ctx, s.key(key), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// Load retrieves the state from Redis.
func (s *Store) Load(ctx context.Context, key string) (*domain.RotationState, error) {
	state, _, err := s.LoadRevision(ctx, key)
	return state, err
}

// LoadRevision retrieves the state and a revision derived from the stored bytes.
func (s *Store) LoadRevision(ctx context.Context, key string) (*domain.RotationState, ports.Revision, error) {
	raw, err := s.client.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, "", domain.ErrStateNotFound
		}
		return nil, "", fmt.Errorf("failed to get from redis: %w", err)
	}

	state, err := domain.DecodeState(raw)
	if err != nil {
		return nil, "", err
	}
	return &state, ports.RevisionOf(raw), nil
}

// SaveIfRevision writes the state only if the stored value still has revision rev.
func (s *Store) SaveIfRevision(ctx context.Context, key string, state domain.RotationState, rev ports.Revision) error {
	data, err := domain.EncodeState(state)
	if err != nil {
		return err
	}

	redisKey := s.key(key)
	err = s.client.Watch(ctx, func(tx *backend.Tx) error {
		current, err := tx.Get(ctx, redisKey).Bytes()
		var currentRev ports.Revision
		switch {
		case errors.Is(err, backend.Nil):
		case err != nil:
			return fmt.Errorf("failed to get from redis: %w", err)
		default:
			currentRev = ports.RevisionOf(current)
		}

		if currentRev != rev {
			return domain.ErrConcurrentModification
		}

		_, err = tx.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
			pipe.Set(ctx, redisKey, data, 0)
			return nil
		})
		return err
	}, redisKey)

	if errors.Is(err, backend.TxFailedErr) {
		return domain.ErrConcurrentModification
	}
	if err != nil && !errors.Is(err, domain.ErrConcurrentModification) {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return err
}
