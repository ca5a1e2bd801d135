// Package bell binds the notification feed store to the header bell and
// its popover panel: badge display, open-triggered refresh, mark-read
// dispatch, and action-url navigation.
package bell

import (
	"context"
	"fmt"
	"strconv"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ndinh/deckhand/internal/feed"
	"github.com/ndinh/deckhand/internal/model"
	"github.com/ndinh/deckhand/internal/navigate"
	"github.com/ndinh/deckhand/internal/theme"
)

// FeedAPI is the remote half of mark-read. *api.Client satisfies it.
type FeedAPI interface {
	MarkNotificationRead(ctx context.Context, id string) error
	MarkAllNotificationsRead(ctx context.Context) error
}

// RefreshRequestedMsg asks the app to trigger an immediate feed refresh,
// emitted when the panel opens.
type RefreshRequestedMsg struct{}

// MarkedReadMsg reports a local optimistic mark so the app can persist
// it to the offline cache.
type MarkedReadMsg struct {
	// ID is empty when every notification was marked at once.
	ID string
}

// RemoteResultMsg carries the outcome of a fire-and-forget remote mark
// request. Transient errors are ignored; auth errors surface the
// session-expired affordance.
type RemoteResultMsg struct {
	Err error
}

// NavigateMsg asks the app to switch to an in-app route.
type NavigateMsg struct {
	Path string
}

// requestTimeout bounds the fire-and-forget mark requests.
const requestTimeout = 10 * time.Second

// Model is the bell and its popover panel.
type Model struct {
	store  *feed.Store
	remote FeedAPI

	// origin is the backend root URL used to classify action URLs.
	origin string

	panelOpen bool
	cursor    int

	width  int
	height int
}

// New creates a closed bell panel over the given store.
func New(store *feed.Store, remote FeedAPI, origin string, width, height int) Model {
	return Model{
		store:  store,
		remote: remote,
		origin: origin,
		width:  width,
		height: height,
	}
}

// PanelOpen reports whether the popover is showing.
func (m Model) PanelOpen() bool {
	return m.panelOpen
}

// Toggle flips the panel. Opening triggers an immediate refresh on top
// of the background interval.
func (m *Model) Toggle() tea.Cmd {
	if m.panelOpen {
		m.panelOpen = false
		return nil
	}
	m.panelOpen = true
	m.cursor = 0
	return func() tea.Msg { return RefreshRequestedMsg{} }
}

// ClosePanel closes the popover.
func (m *Model) ClosePanel() {
	m.panelOpen = false
}

// BadgeLabel formats an unread count for the bell badge: nothing at
// zero, the literal count through nine, "9+" above that.
func BadgeLabel(count int) string {
	switch {
	case count <= 0:
		return ""
	case count > 9:
		return "9+"
	default:
		return strconv.Itoa(count)
	}
}

// Badge renders the header bell with its unread badge.
func (m Model) Badge() string {
	label := BadgeLabel(m.store.UnreadCount())
	if label == "" {
		return "bell"
	}
	return "bell " + theme.BadgeStyle.Render(label)
}

// ShowMarkAll reports whether the mark-all control is visible.
func (m Model) ShowMarkAll() bool {
	return m.store.UnreadCount() > 0
}

// Update handles messages while the panel is open.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if !m.panelOpen {
		return m, nil
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch keyMsg.String() {
	case "esc":
		m.panelOpen = false
		return m, nil

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case "down", "j":
		if m.cursor < m.store.Len()-1 {
			m.cursor++
		}
		return m, nil

	case "a":
		if !m.ShowMarkAll() {
			return m, nil
		}
		return m, m.markAllRead()

	case "enter":
		return m.selectCurrent()
	}

	return m, nil
}

// selectCurrent marks the focused notification read and follows its
// action URL when present.
func (m Model) selectCurrent() (Model, tea.Cmd) {
	list := m.store.Notifications()
	if m.cursor < 0 || m.cursor >= len(list) {
		return m, nil
	}
	n := list[m.cursor]

	var cmds []tea.Cmd
	if n.Unread() {
		cmds = append(cmds, m.markRead(n.ID))
	}

	if n.Data.ActionURL != "" {
		cmds = append(cmds, m.follow(n.Data.ActionURL))
		m.panelOpen = false
	}

	return m, tea.Batch(cmds...)
}

// markRead applies the optimistic local flip and issues the remote
// request without waiting for it.
func (m Model) markRead(id string) tea.Cmd {
	changed := m.store.MarkRead(id)
	if !changed {
		return nil
	}

	remote := m.remote
	return tea.Batch(
		func() tea.Msg { return MarkedReadMsg{ID: id} },
		func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
			defer cancel()
			return RemoteResultMsg{Err: remote.MarkNotificationRead(ctx, id)}
		},
	)
}

// markAllRead is the one-request bulk variant of markRead.
func (m Model) markAllRead() tea.Cmd {
	if m.store.MarkAllRead() == 0 {
		return nil
	}

	remote := m.remote
	return tea.Batch(
		func() tea.Msg { return MarkedReadMsg{} },
		func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
			defer cancel()
			return RemoteResultMsg{Err: remote.MarkAllNotificationsRead(ctx)}
		},
	)
}

// follow classifies the action URL: same-origin targets navigate
// in-app, foreign origins open the system browser detached.
func (m Model) follow(raw string) tea.Cmd {
	target, err := navigate.Classify(raw, m.origin)
	if err != nil {
		return nil
	}

	if target.Kind == navigate.KindInternal {
		path := target.Path
		return func() tea.Msg { return NavigateMsg{Path: path} }
	}

	u := target.URL
	return func() tea.Msg {
		// Best effort; a browser launch failure is not surfaced.
		_ = navigate.OpenExternal(u)
		return nil
	}
}

// SetSize updates the panel dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// View renders the popover panel.
func (m Model) View() string {
	if !m.panelOpen {
		return ""
	}

	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		Render("Notifications")

	header := title
	if m.ShowMarkAll() {
		header = lipgloss.JoinHorizontal(lipgloss.Top,
			title, "  ", theme.HelpStyle.Render("a: mark all read"))
	}

	sections := []string{header, ""}

	list := m.store.Notifications()
	if len(list) == 0 {
		sections = append(sections, theme.HelpStyle.Render("no notifications"))
	}

	for i, n := range list {
		sections = append(sections, m.renderNotification(n, i == m.cursor))
	}

	content := lipgloss.JoinVertical(lipgloss.Left, sections...)

	return theme.PanelStyle.
		Width(m.width - 4).
		Render(content)
}

func (m Model) renderNotification(n model.Notification, selected bool) string {
	dot := "  "
	if n.Unread() {
		dot = theme.UnreadDotStyle.Render("● ")
	}

	line := fmt.Sprintf("%s%s: %s", dot, n.Data.Title, n.Data.Message)
	if n.CreatedAt != "" {
		line += "  " + theme.HelpStyle.Render(n.CreatedAt)
	}

	if selected {
		return theme.SelectedItemStyle.Render(line)
	}
	return theme.ListItemStyle.Render(line)
}
