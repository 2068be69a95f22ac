package ports

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/aretw0/bluegreen/pkg/domain"
)

// StateStore persists the single rotation record under a well-known key.
type StateStore interface {
	// Load retrieves the record stored under key.
	// Returns domain.ErrStateNotFound if no record exists, and a *domain.CorruptStateError
	// if the stored value does not parse. Any other error is a transport failure.
	Load(ctx context.Context, key string) (*domain.RotationState, error)

	// Save writes the record under key, overwriting any previous value. Last writer wins.
	Save(ctx context.Context, key string, state domain.RotationState) error
}

// Revision is an opaque token identifying one stored value of a record.
// The empty Revision means "no record exists".
type Revision string

// VersionedStateStore is a StateStore supporting optimistic concurrency.
type VersionedStateStore interface {
	StateStore

	// LoadRevision behaves like Load and also returns the revision of the stored value.
	// When the record is absent it returns an empty Revision and domain.ErrStateNotFound.
	LoadRevision(ctx context.Context, key string) (*domain.RotationState, Revision, error)

	// SaveIfRevision writes the record only if the stored revision still equals rev.
	// Returns domain.ErrConcurrentModification on mismatch.
	SaveIfRevision(ctx context.Context, key string, state domain.RotationState, rev Revision) error
}

// RevisionOf derives a Revision from the raw bytes of a stored value.
// Adapters without a native version counter use it so equal content yields equal revisions.
func RevisionOf(raw []byte) Revision {
	sum := sha256.Sum256(raw)
	return Revision(hex.EncodeToString(sum[:]))
}
