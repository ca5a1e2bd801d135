// Package notifpage is the full-page notification listing: paginated,
// with an all/unread filter that rides the request query string the same
// way the web UI keeps it in the URL.
package notifpage

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ndinh/deckhand/internal/model"
	"github.com/ndinh/deckhand/internal/theme"
)

// PageAPI fetches listing pages and accepts mark-read calls.
type PageAPI interface {
	ListNotifications(ctx context.Context, page int, filter model.NotificationFilter) (*model.NotificationPage, error)
	MarkNotificationRead(ctx context.Context, id string) error
}

// LoadedMsg carries a fetched listing page.
type LoadedMsg struct {
	Page *model.NotificationPage
	Err  error
}

// requestTimeout bounds page fetches and mark requests.
const requestTimeout = 15 * time.Second

// Model is the notification page view.
type Model struct {
	remote PageAPI

	filter  model.NotificationFilter
	page    int
	data    *model.NotificationPage
	loading bool
	loadErr error
	cursor  int

	width  int
	height int
}

// New creates the page view with the default all filter.
func New(remote PageAPI, width, height int) Model {
	return Model{
		remote: remote,
		filter: model.FilterAll,
		page:   1,
		width:  width,
		height: height,
	}
}

// Init loads the first page.
func (m Model) Init() tea.Cmd {
	return m.load()
}

// Filter returns the active listing filter.
func (m Model) Filter() model.NotificationFilter {
	return m.filter
}

// Page returns the active page number.
func (m Model) Page() int {
	return m.page
}

// load fetches the current (page, filter) from the backend.
func (m Model) load() tea.Cmd {
	remote, page, filter := m.remote, m.page, m.filter
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		data, err := remote.ListNotifications(ctx, page, filter)
		return LoadedMsg{Page: data, Err: err}
	}
}

// Update handles messages for the page view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case LoadedMsg:
		m.loading = false
		if msg.Err != nil {
			m.loadErr = msg.Err
			return m, nil
		}
		m.loadErr = nil
		m.data = msg.Page
		if m.cursor >= len(m.data.Notifications) {
			m.cursor = 0
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "f":
		if m.filter == model.FilterAll {
			m.filter = model.FilterUnread
		} else {
			m.filter = model.FilterAll
		}
		m.page = 1
		m.cursor = 0
		m.loading = true
		return m, m.load()

	case "right", "l":
		if m.data != nil && m.page < m.data.LastPage {
			m.page++
			m.cursor = 0
			m.loading = true
			return m, m.load()
		}
		return m, nil

	case "left", "h":
		if m.page > 1 {
			m.page--
			m.cursor = 0
			m.loading = true
			return m, m.load()
		}
		return m, nil

	case "r":
		m.loading = true
		return m, m.load()

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case "down", "j":
		if m.data != nil && m.cursor < len(m.data.Notifications)-1 {
			m.cursor++
		}
		return m, nil

	case "enter":
		return m.markCurrent()
	}

	return m, nil
}

// markCurrent marks the focused entry read: optimistic local flip plus a
// fire-and-forget remote request, then a reload so the unread filter
// stays truthful.
func (m Model) markCurrent() (Model, tea.Cmd) {
	if m.data == nil || m.cursor < 0 || m.cursor >= len(m.data.Notifications) {
		return m, nil
	}
	n := m.data.Notifications[m.cursor]
	if !n.Unread() {
		return m, nil
	}

	now := time.Now()
	m.data.Notifications[m.cursor].ReadAt = &now
	if m.data.UnreadCount > 0 {
		m.data.UnreadCount--
	}

	remote, id := m.remote, n.ID
	return m, tea.Batch(
		func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
			defer cancel()
			_ = remote.MarkNotificationRead(ctx, id)
			return nil
		},
		m.load(),
	)
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// View renders the listing.
func (m Model) View() string {
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		Render("All notifications")

	filterHint := fmt.Sprintf("filter: %s (f to toggle)", m.filter)
	header := lipgloss.JoinHorizontal(lipgloss.Top,
		title, "  ", theme.HelpStyle.Render(filterHint))

	sections := []string{header, ""}

	switch {
	case m.loading:
		sections = append(sections, theme.HelpStyle.Render("loading..."))
	case m.loadErr != nil:
		sections = append(sections,
			theme.NotificationTypeStyle("error").Render("failed to load: "+m.loadErr.Error()))
	case m.data == nil || len(m.data.Notifications) == 0:
		sections = append(sections, theme.HelpStyle.Render("nothing here"))
	default:
		for i, n := range m.data.Notifications {
			sections = append(sections, m.renderRow(n, i == m.cursor))
		}
		sections = append(sections, "",
			theme.HelpStyle.Render(fmt.Sprintf(
				"page %d/%d — %d total, %d unread",
				m.data.Page, m.data.LastPage, m.data.Total, m.data.UnreadCount)))
	}

	content := lipgloss.JoinVertical(lipgloss.Left, sections...)
	return theme.PanelStyle.Width(m.width - 4).Render(content)
}

func (m Model) renderRow(n model.Notification, selected bool) string {
	dot := "  "
	if n.Unread() {
		dot = theme.UnreadDotStyle.Render("● ")
	}

	line := dot
	if n.Data.Type != "" {
		line += theme.NotificationTypeStyle(n.Data.Type).Render(n.Data.Type) + " "
	}
	line += fmt.Sprintf("%s — %s", n.Data.Title, n.Data.Message)
	if n.CreatedAt != "" {
		line += "  " + theme.HelpStyle.Render(n.CreatedAt)
	}

	if selected {
		return theme.SelectedItemStyle.Render(line)
	}
	return theme.ListItemStyle.Render(line)
}
