// Package ports defines interfaces for external service communication.
package ports

import (
	"context"
	"errors"

	"github.com/happenings-community/requests-and-offers-sub003/internal/domain/entities"
)

// ErrUnavailable marks a transient substrate failure. Adapters wrap it so
// callers can tell a retriable failure from a permanent one.
var ErrUnavailable = errors.New("content store unavailable")

// ContentStore is the content-addressed record and link substrate.
// Reads may observe stale or partial replication.
type ContentStore interface {
	// Put stores a record under its action hash and returns that hash.
	// Storing an existing action is a no-op; the first stored copy wins.
	Put(ctx context.Context, rec *entities.Record) (entities.Hash, error)

	// Get returns the record for an action hash.
	// A nil record with a nil error means the hash did not resolve, which may
	// be transient; callers must retry before treating it as missing.
	Get(ctx context.Context, hash entities.Hash) (*entities.Record, error)

	// CreateLink stores a link and returns its ID.
	// Creating a live link again keeps the original. Creating a deleted link revives it.
	// A zero timestamp is replaced by the store's clock.
	CreateLink(ctx context.Context, link entities.Link) (entities.Hash, error)

	// GetLinks returns the live links from base that pass the filter,
	// ordered by timestamp then link ID.
	GetLinks(ctx context.Context, base entities.Hash, filter entities.LinkFilter) ([]entities.Link, error)

	// DeleteLink tombstones a link. Deleting an unknown or deleted link is a no-op.
	DeleteLink(ctx context.Context, linkID entities.Hash) error

	// Close releases the store's resources.
	Close() error
}
