// Package feed holds the client-side notification list and its unread
// state. The server is the sole source of truth for list contents and
// ordering: every refresh replaces the list wholesale (last write wins),
// and the only local mutation is the optimistic flip of ReadAt.
package feed

import (
	"sync"
	"time"

	"github.com/ndinh/deckhand/internal/model"
)

// Store is the in-memory notification feed. It is safe for concurrent
// use; the background refresher and the UI loop both touch it.
type Store struct {
	mu            sync.RWMutex
	notifications []model.Notification
	serverUnread  int

	// now is swappable for tests.
	now func() time.Time
}

// NewStore creates an empty feed store.
func NewStore() *Store {
	return &Store{now: time.Now}
}

// ReplaceAll installs the server snapshot as the new authoritative state.
// No merging or diffing: a stale in-flight refresh that resolves late
// simply wins, per the reconciliation contract.
func (s *Store) ReplaceAll(snap model.FeedSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.notifications = make([]model.Notification, len(snap.Notifications))
	copy(s.notifications, snap.Notifications)
	s.serverUnread = snap.UnreadNotificationCount
}

// MarkRead optimistically sets ReadAt on the matching entry if it is
// currently unread. It reports whether anything changed, so callers can
// skip the remote request on a repeat click.
func (s *Store) MarkRead(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.notifications {
		if s.notifications[i].ID != id {
			continue
		}
		if s.notifications[i].ReadAt != nil {
			return false
		}
		ts := s.now()
		s.notifications[i].ReadAt = &ts
		if s.serverUnread > 0 {
			s.serverUnread--
		}
		return true
	}
	return false
}

// MarkAllRead optimistically sets ReadAt on every unread entry. It
// reports how many entries changed.
func (s *Store) MarkAllRead() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := 0
	ts := s.now()
	for i := range s.notifications {
		if s.notifications[i].ReadAt == nil {
			s.notifications[i].ReadAt = &ts
			changed++
		}
	}
	s.serverUnread = 0
	return changed
}

// Notifications returns a copy of the current list in server order.
func (s *Store) Notifications() []model.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Notification, len(s.notifications))
	copy(out, s.notifications)
	return out
}

// Get returns the notification with the given id, if present.
func (s *Store) Get(id string) (model.Notification, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, n := range s.notifications {
		if n.ID == id {
			return n, true
		}
	}
	return model.Notification{}, false
}

// UnreadCount derives the unread total from the in-memory list. When the
// list is fully loaded it agrees with ServerUnreadCount.
func (s *Store) UnreadCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, n := range s.notifications {
		if n.ReadAt == nil {
			count++
		}
	}
	return count
}

// ServerUnreadCount returns the unread total the server reported with the
// last snapshot, adjusted for optimistic marks since then.
func (s *Store) ServerUnreadCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.serverUnread
}

// Len returns the number of notifications currently held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.notifications)
}
