// Package store caches the last feed snapshot locally so the bell shows
// last-known state before the first refresh completes and across
// restarts. The server stays authoritative: every successful refresh
// overwrites the cache wholesale.
package store

import (
	"context"
	"time"

	"github.com/ndinh/deckhand/internal/model"
)

// Store is the persistence interface for the offline notification cache.
type Store interface {
	// SaveSnapshot replaces the cached feed with the given snapshot.
	SaveSnapshot(ctx context.Context, snap model.FeedSnapshot) error

	// LoadSnapshot returns the cached feed, or an empty snapshot when
	// nothing has been cached yet.
	LoadSnapshot(ctx context.Context) (*model.FeedSnapshot, error)

	// MarkRead records an optimistic read locally so it survives a
	// restart while offline.
	MarkRead(ctx context.Context, id string, at time.Time) error

	// MarkAllRead records a mark-all locally.
	MarkAllRead(ctx context.Context, at time.Time) error

	Close() error
}
