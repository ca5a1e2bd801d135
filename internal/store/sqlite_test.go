package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/ndinh/deckhand/internal/model"
	"github.com/ndinh/deckhand/tests/testutil"
)

func snapshot() model.FeedSnapshot {
	readAt := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	return model.FeedSnapshot{
		UnreadNotificationCount: 1,
		Notifications: []model.Notification{
			{
				ID: "n1",
				Data: model.NotificationData{
					Title:     "Deploy finished",
					Message:   "All checks passed",
					Type:      "info",
					ActionURL: "/deployments/42",
				},
				CreatedAt: "2 minutes ago",
			},
			{
				ID: "n2",
				Data: model.NotificationData{
					Title:   "Welcome",
					Message: "Thanks for signing up",
				},
				ReadAt:    &readAt,
				CreatedAt: "1 day ago",
			},
		},
	}
}

func TestSaveAndLoadSnapshot(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	if err := s.SaveSnapshot(ctx, snapshot()); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}

	got, err := s.LoadSnapshot(ctx)
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}

	if got.UnreadNotificationCount != 1 {
		t.Errorf("unread count = %d, want 1", got.UnreadNotificationCount)
	}
	if len(got.Notifications) != 2 {
		t.Fatalf("got %d notifications, want 2", len(got.Notifications))
	}
	if got.Notifications[0].ID != "n1" || got.Notifications[1].ID != "n2" {
		t.Errorf("order not preserved: %q, %q", got.Notifications[0].ID, got.Notifications[1].ID)
	}
	if !got.Notifications[0].Unread() {
		t.Error("n1 should be unread")
	}
	if got.Notifications[1].Unread() {
		t.Error("n2 should be read")
	}
	if got.Notifications[0].Data.ActionURL != "/deployments/42" {
		t.Errorf("action url = %q", got.Notifications[0].Data.ActionURL)
	}
}

func TestSaveSnapshotOverwrites(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	if err := s.SaveSnapshot(ctx, snapshot()); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	replacement := model.FeedSnapshot{
		UnreadNotificationCount: 0,
		Notifications:           []model.Notification{{ID: "n3"}},
	}
	if err := s.SaveSnapshot(ctx, replacement); err != nil {
		t.Fatalf("SaveSnapshot(replacement): %v", err)
	}

	got, err := s.LoadSnapshot(ctx)
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if len(got.Notifications) != 1 || got.Notifications[0].ID != "n3" {
		t.Errorf("cache not overwritten: %+v", got.Notifications)
	}
}

func TestLoadSnapshotEmpty(t *testing.T) {
	s := testutil.NewTestStore(t)

	got, err := s.LoadSnapshot(context.Background())
	if err != nil {
		t.Fatalf("LoadSnapshot on empty cache: %v", err)
	}
	if len(got.Notifications) != 0 || got.UnreadNotificationCount != 0 {
		t.Errorf("expected empty snapshot, got %+v", got)
	}
}

func TestMarkReadPersists(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	if err := s.SaveSnapshot(ctx, snapshot()); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}

	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	if err := s.MarkRead(ctx, "n1", at); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	// Second call is a no-op, not an error.
	if err := s.MarkRead(ctx, "n1", at.Add(time.Hour)); err != nil {
		t.Fatalf("repeat MarkRead: %v", err)
	}

	got, err := s.LoadSnapshot(ctx)
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if got.Notifications[0].Unread() {
		t.Error("n1 still unread after MarkRead")
	}
	if !got.Notifications[0].ReadAt.Equal(at) {
		t.Errorf("repeat MarkRead moved the timestamp: %v", got.Notifications[0].ReadAt)
	}
	if got.UnreadNotificationCount != 0 {
		t.Errorf("unread count = %d, want 0", got.UnreadNotificationCount)
	}
}

func TestMarkAllReadPersists(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	if err := s.SaveSnapshot(ctx, snapshot()); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	if err := s.MarkAllRead(ctx, time.Now()); err != nil {
		t.Fatalf("MarkAllRead: %v", err)
	}

	got, err := s.LoadSnapshot(ctx)
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	for _, n := range got.Notifications {
		if n.Unread() {
			t.Errorf("notification %q still unread", n.ID)
		}
	}
	if got.UnreadNotificationCount != 0 {
		t.Errorf("unread count = %d, want 0", got.UnreadNotificationCount)
	}
}
