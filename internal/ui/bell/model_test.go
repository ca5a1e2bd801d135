package bell

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ndinh/deckhand/internal/feed"
	"github.com/ndinh/deckhand/internal/model"
)

func feedTestTime() time.Time {
	return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

const origin = "https://app.example.com"

// fakeAPI records remote mark calls.
type fakeAPI struct {
	markedIDs []string
	markedAll int
}

func (f *fakeAPI) MarkNotificationRead(ctx context.Context, id string) error {
	f.markedIDs = append(f.markedIDs, id)
	return nil
}

func (f *fakeAPI) MarkAllNotificationsRead(ctx context.Context) error {
	f.markedAll++
	return nil
}

func newStore(notifications ...model.Notification) *feed.Store {
	s := feed.NewStore()
	unread := 0
	for _, n := range notifications {
		if n.Unread() {
			unread++
		}
	}
	s.ReplaceAll(model.FeedSnapshot{
		UnreadNotificationCount: unread,
		Notifications:           notifications,
	})
	return s
}

// drain runs a command tree and collects every message it produces.
func drain(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, drain(c)...)
		}
		return out
	}
	if msg == nil {
		return nil
	}
	return []tea.Msg{msg}
}

func TestBadgeLabel(t *testing.T) {
	tests := []struct {
		count int
		want  string
	}{
		{0, ""},
		{1, "1"},
		{5, "5"},
		{9, "9"},
		{10, "9+"},
		{42, "9+"},
	}

	for _, tt := range tests {
		if got := BadgeLabel(tt.count); got != tt.want {
			t.Errorf("BadgeLabel(%d) = %q, want %q", tt.count, got, tt.want)
		}
	}
}

func TestToggleOpenTriggersRefresh(t *testing.T) {
	m := New(newStore(), &fakeAPI{}, origin, 80, 24)

	cmd := m.Toggle()
	if !m.PanelOpen() {
		t.Fatal("toggle did not open the panel")
	}
	msgs := drain(cmd)
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
	if _, ok := msgs[0].(RefreshRequestedMsg); !ok {
		t.Errorf("got %T, want RefreshRequestedMsg", msgs[0])
	}

	// Closing does not refresh.
	if cmd := m.Toggle(); cmd != nil {
		t.Error("closing the panel should not request a refresh")
	}
}

func TestSelectMarksReadAndIssuesRemote(t *testing.T) {
	store := newStore(model.Notification{ID: "n1", Data: model.NotificationData{Title: "Hi"}})
	remote := &fakeAPI{}
	m := New(store, remote, origin, 80, 24)
	_ = m.Toggle()

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	msgs := drain(cmd)

	if store.UnreadCount() != 0 {
		t.Error("selection did not mark the notification read locally")
	}
	if len(remote.markedIDs) != 1 || remote.markedIDs[0] != "n1" {
		t.Errorf("remote calls = %v, want [n1]", remote.markedIDs)
	}

	var sawLocal bool
	for _, msg := range msgs {
		if mr, ok := msg.(MarkedReadMsg); ok && mr.ID == "n1" {
			sawLocal = true
		}
	}
	if !sawLocal {
		t.Error("no MarkedReadMsg emitted for cache persistence")
	}
}

func TestSelectReadNotificationIsIdempotent(t *testing.T) {
	now := feedTestTime()
	store := newStore(model.Notification{ID: "n1", ReadAt: &now})
	remote := &fakeAPI{}
	m := New(store, remote, origin, 80, 24)
	_ = m.Toggle()

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	drain(cmd)

	if len(remote.markedIDs) != 0 {
		t.Errorf("already-read selection issued remote calls: %v", remote.markedIDs)
	}
}

func TestSelectFollowsInternalActionURL(t *testing.T) {
	store := newStore(model.Notification{
		ID:   "n1",
		Data: model.NotificationData{ActionURL: "/settings/profile"},
	})
	m := New(store, &fakeAPI{}, origin, 80, 24)
	_ = m.Toggle()

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	msgs := drain(cmd)

	var nav *NavigateMsg
	for _, msg := range msgs {
		if n, ok := msg.(NavigateMsg); ok {
			nav = &n
		}
	}
	if nav == nil {
		t.Fatal("no NavigateMsg for internal action url")
	}
	if nav.Path != "/settings/profile" {
		t.Errorf("path = %q", nav.Path)
	}
	if m.PanelOpen() {
		t.Error("panel should close after following a link")
	}
}

func TestSelectWithoutActionURLIsInert(t *testing.T) {
	store := newStore(model.Notification{ID: "n1"})
	m := New(store, &fakeAPI{}, origin, 80, 24)
	_ = m.Toggle()

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	msgs := drain(cmd)

	for _, msg := range msgs {
		if _, ok := msg.(NavigateMsg); ok {
			t.Error("inert notification produced a navigation")
		}
	}
	if !m.PanelOpen() {
		t.Error("panel should stay open for an inert notification")
	}
}

func TestMarkAllVisibilityAndDispatch(t *testing.T) {
	store := newStore(
		model.Notification{ID: "n1"},
		model.Notification{ID: "n2"},
	)
	remote := &fakeAPI{}
	m := New(store, remote, origin, 80, 24)
	_ = m.Toggle()

	if !m.ShowMarkAll() {
		t.Fatal("mark-all control should be visible with unread entries")
	}

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("a")})
	drain(cmd)

	if store.UnreadCount() != 0 {
		t.Error("mark-all left unread entries")
	}
	if remote.markedAll != 1 {
		t.Errorf("remote mark-all calls = %d, want 1", remote.markedAll)
	}
	if m.ShowMarkAll() {
		t.Error("mark-all control should hide at zero unread")
	}

	// With nothing unread, the key is a no-op.
	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("a")})
	drain(cmd)
	if remote.markedAll != 1 {
		t.Errorf("mark-all dispatched again with zero unread: %d", remote.markedAll)
	}
}

func TestEscapeClosesPanel(t *testing.T) {
	m := New(newStore(), &fakeAPI{}, origin, 80, 24)
	_ = m.Toggle()

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if m.PanelOpen() {
		t.Error("escape did not close the panel")
	}
}
