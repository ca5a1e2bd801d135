package feed

import (
	"testing"
	"time"

	"github.com/ndinh/deckhand/internal/model"
)

func testTime() time.Time {
	return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

func readAt(t time.Time) *time.Time {
	return &t
}

func newTestStore(notifications ...model.Notification) *Store {
	s := NewStore()
	s.now = testTime
	s.ReplaceAll(model.FeedSnapshot{
		UnreadNotificationCount: countUnread(notifications),
		Notifications:           notifications,
	})
	return s
}

func countUnread(ns []model.Notification) int {
	c := 0
	for _, n := range ns {
		if n.ReadAt == nil {
			c++
		}
	}
	return c
}

func TestReplaceAllOverwrites(t *testing.T) {
	s := newTestStore(
		model.Notification{ID: "1"},
		model.Notification{ID: "2"},
	)

	s.ReplaceAll(model.FeedSnapshot{
		UnreadNotificationCount: 1,
		Notifications:           []model.Notification{{ID: "3"}},
	})

	got := s.Notifications()
	if len(got) != 1 || got[0].ID != "3" {
		t.Errorf("ReplaceAll did not overwrite: got %v", got)
	}
	if s.ServerUnreadCount() != 1 {
		t.Errorf("ServerUnreadCount = %d, want 1", s.ServerUnreadCount())
	}
}

func TestReplaceAllLastWriteWins(t *testing.T) {
	// Two overlapping refreshes: whichever resolves last is authoritative,
	// even if it carries the older snapshot.
	s := newTestStore()

	newer := model.FeedSnapshot{Notifications: []model.Notification{{ID: "new"}}}
	older := model.FeedSnapshot{Notifications: []model.Notification{{ID: "old"}}}

	s.ReplaceAll(newer)
	s.ReplaceAll(older)

	got := s.Notifications()
	if len(got) != 1 || got[0].ID != "old" {
		t.Errorf("expected last ReplaceAll to win, got %v", got)
	}
}

func TestMarkRead(t *testing.T) {
	s := newTestStore(
		model.Notification{ID: "1"},
		model.Notification{ID: "2", ReadAt: readAt(testTime().Add(-time.Hour))},
	)

	if !s.MarkRead("1") {
		t.Fatal("MarkRead on unread entry should report a change")
	}

	n, ok := s.Get("1")
	if !ok {
		t.Fatal("notification 1 disappeared")
	}
	if n.ReadAt == nil {
		t.Error("MarkRead did not set ReadAt")
	}
	if s.UnreadCount() != 0 {
		t.Errorf("UnreadCount = %d, want 0", s.UnreadCount())
	}
}

func TestMarkReadIdempotent(t *testing.T) {
	s := newTestStore(model.Notification{ID: "1"})

	if !s.MarkRead("1") {
		t.Fatal("first MarkRead should change state")
	}
	first, _ := s.Get("1")
	unread := s.UnreadCount()
	serverUnread := s.ServerUnreadCount()

	if s.MarkRead("1") {
		t.Error("second MarkRead should be a no-op")
	}
	second, _ := s.Get("1")
	if !first.ReadAt.Equal(*second.ReadAt) {
		t.Error("second MarkRead altered the timestamp")
	}
	if s.UnreadCount() != unread || s.ServerUnreadCount() != serverUnread {
		t.Error("second MarkRead altered unread counts")
	}
}

func TestMarkReadUnknownID(t *testing.T) {
	s := newTestStore(model.Notification{ID: "1"})

	if s.MarkRead("missing") {
		t.Error("MarkRead on unknown id should report no change")
	}
	if s.UnreadCount() != 1 {
		t.Errorf("UnreadCount = %d, want 1", s.UnreadCount())
	}
}

func TestMarkAllRead(t *testing.T) {
	s := newTestStore(
		model.Notification{ID: "1"},
		model.Notification{ID: "2", ReadAt: readAt(testTime().Add(-time.Hour))},
		model.Notification{ID: "3"},
	)

	if changed := s.MarkAllRead(); changed != 2 {
		t.Errorf("MarkAllRead changed %d entries, want 2", changed)
	}
	for _, n := range s.Notifications() {
		if n.ReadAt == nil {
			t.Errorf("notification %q still unread after MarkAllRead", n.ID)
		}
	}
	if s.UnreadCount() != 0 {
		t.Errorf("UnreadCount = %d, want 0", s.UnreadCount())
	}
	if s.ServerUnreadCount() != 0 {
		t.Errorf("ServerUnreadCount = %d, want 0", s.ServerUnreadCount())
	}
}

func TestUnreadCountsAgreeWhenFullyLoaded(t *testing.T) {
	s := newTestStore(
		model.Notification{ID: "1"},
		model.Notification{ID: "2"},
		model.Notification{ID: "3", ReadAt: readAt(testTime())},
	)

	if s.UnreadCount() != s.ServerUnreadCount() {
		t.Errorf("derived %d != server %d", s.UnreadCount(), s.ServerUnreadCount())
	}

	s.MarkRead("1")
	if s.UnreadCount() != s.ServerUnreadCount() {
		t.Errorf("after MarkRead: derived %d != server %d", s.UnreadCount(), s.ServerUnreadCount())
	}
}

func TestNotificationsPreservesServerOrder(t *testing.T) {
	s := newTestStore(
		model.Notification{ID: "c"},
		model.Notification{ID: "a"},
		model.Notification{ID: "b"},
	)

	got := s.Notifications()
	want := []string{"c", "a", "b"}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("position %d = %q, want %q", i, got[i].ID, id)
		}
	}
}

func TestNotificationsReturnsCopy(t *testing.T) {
	s := newTestStore(model.Notification{ID: "1"})

	list := s.Notifications()
	list[0].ID = "mutated"

	if n, _ := s.Get("1"); n.ID != "1" {
		t.Error("caller mutation leaked into the store")
	}
}
