// Package dashboard is the landing view.
package dashboard

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ndinh/deckhand/internal/feed"
	"github.com/ndinh/deckhand/internal/model"
	"github.com/ndinh/deckhand/internal/theme"
)

// Model is the landing view: greeting, unread summary, key hints.
type Model struct {
	user  model.User
	store *feed.Store

	width  int
	height int
}

// New creates the dashboard view.
func New(user model.User, store *feed.Store, width, height int) Model {
	return Model{user: user, store: store, width: width, height: height}
}

// SetUser refreshes the greeting after re-authentication.
func (m *Model) SetUser(u model.User) {
	m.user = u
}

// Update is a no-op; global keys are handled by the root model.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	return m, nil
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// View renders the landing content.
func (m Model) View() string {
	greeting := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		Render(fmt.Sprintf("Welcome back, %s", m.user.Name))

	unread := m.store.UnreadCount()
	var summary string
	switch unread {
	case 0:
		summary = "you're all caught up"
	case 1:
		summary = "1 unread notification"
	default:
		summary = fmt.Sprintf("%d unread notifications", unread)
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		greeting,
		"",
		summary,
		"",
		theme.HelpStyle.Render("ctrl+k: command palette   b: notifications   ?: help"),
	)

	return theme.PanelStyle.Width(m.width - 4).Render(content)
}
