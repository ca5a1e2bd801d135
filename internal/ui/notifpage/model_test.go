package notifpage

import (
	"context"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ndinh/deckhand/internal/model"
)

// fakePageAPI serves canned pages and records requests.
type fakePageAPI struct {
	mu       sync.Mutex
	requests []struct {
		page   int
		filter model.NotificationFilter
	}
	marked []string
}

func (f *fakePageAPI) ListNotifications(
	ctx context.Context,
	page int,
	filter model.NotificationFilter,
) (*model.NotificationPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, struct {
		page   int
		filter model.NotificationFilter
	}{page, filter})

	return &model.NotificationPage{
		Notifications: []model.Notification{{ID: "n1"}},
		Page:          page,
		LastPage:      3,
		Total:         21,
		UnreadCount:   1,
	}, nil
}

func (f *fakePageAPI) MarkNotificationRead(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marked = append(f.marked, id)
	return nil
}

func (f *fakePageAPI) lastRequest() (int, model.NotificationFilter) {
	f.mu.Lock()
	defer f.mu.Unlock()
	last := f.requests[len(f.requests)-1]
	return last.page, last.filter
}

func runCmd(m Model, cmd tea.Cmd) Model {
	for cmd != nil {
		msg := cmd()
		if msg == nil {
			return m
		}
		if batch, ok := msg.(tea.BatchMsg); ok {
			for _, c := range batch {
				m = runCmd(m, c)
			}
			return m
		}
		m, cmd = m.Update(msg)
	}
	return m
}

func TestInitLoadsFirstPageAllFilter(t *testing.T) {
	remote := &fakePageAPI{}
	m := New(remote, 80, 24)

	m = runCmd(m, m.Init())

	page, filter := remote.lastRequest()
	if page != 1 || filter != model.FilterAll {
		t.Errorf("initial request = (%d, %q), want (1, all)", page, filter)
	}
}

func TestFilterToggleResetsToPageOne(t *testing.T) {
	remote := &fakePageAPI{}
	m := New(remote, 80, 24)
	m = runCmd(m, m.Init())

	// Move to page 2 first.
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRight})
	m = runCmd(m, cmd)
	if m.Page() != 2 {
		t.Fatalf("page = %d, want 2", m.Page())
	}

	m, cmd = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("f")})
	m = runCmd(m, cmd)

	if m.Filter() != model.FilterUnread {
		t.Errorf("filter = %q, want unread", m.Filter())
	}
	page, filter := remote.lastRequest()
	if page != 1 || filter != model.FilterUnread {
		t.Errorf("request after toggle = (%d, %q), want (1, unread)", page, filter)
	}

	// Toggling back returns to all.
	m, cmd = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("f")})
	m = runCmd(m, cmd)
	if m.Filter() != model.FilterAll {
		t.Errorf("filter = %q, want all", m.Filter())
	}
}

func TestPaginationBounds(t *testing.T) {
	remote := &fakePageAPI{}
	m := New(remote, 80, 24)
	m = runCmd(m, m.Init())

	// Back from page 1 stays put.
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyLeft})
	m = runCmd(m, cmd)
	if m.Page() != 1 {
		t.Errorf("page = %d, want 1", m.Page())
	}

	// Forward to the last page, then stop.
	for i := 0; i < 5; i++ {
		m, cmd = m.Update(tea.KeyMsg{Type: tea.KeyRight})
		m = runCmd(m, cmd)
	}
	if m.Page() != 3 {
		t.Errorf("page = %d, want clamped at 3", m.Page())
	}
}

func TestEnterMarksUnreadEntry(t *testing.T) {
	remote := &fakePageAPI{}
	m := New(remote, 80, 24)
	m = runCmd(m, m.Init())

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = runCmd(m, cmd)

	remote.mu.Lock()
	marked := len(remote.marked)
	remote.mu.Unlock()
	if marked != 1 {
		t.Errorf("remote mark calls = %d, want 1", marked)
	}
}
