// Package users is the admin account listing.
package users

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ndinh/deckhand/internal/model"
	"github.com/ndinh/deckhand/internal/theme"
)

// UsersAPI lists accounts. *api.Client satisfies it.
type UsersAPI interface {
	ListUsers(ctx context.Context) ([]model.User, error)
}

// LoadedMsg carries the fetched account list.
type LoadedMsg struct {
	Users []model.User
	Err   error
}

const requestTimeout = 15 * time.Second

// Model is the user listing view.
type Model struct {
	remote  UsersAPI
	users   []model.User
	loading bool
	loadErr error
	cursor  int

	width  int
	height int
}

// New creates the listing view.
func New(remote UsersAPI, width, height int) Model {
	return Model{remote: remote, loading: true, width: width, height: height}
}

// Init fetches the accounts.
func (m Model) Init() tea.Cmd {
	remote := m.remote
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		users, err := remote.ListUsers(ctx)
		return LoadedMsg{Users: users, Err: err}
	}
}

// Update handles messages for the listing.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case LoadedMsg:
		m.loading = false
		m.loadErr = msg.Err
		m.users = msg.Users
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.users)-1 {
				m.cursor++
			}
		case "r":
			m.loading = true
			return m, m.Init()
		}
	}

	return m, nil
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
		MarginBottom(1).
		Render("Users")

	sections := []string{title}

	switch {
	case m.loading:
		sections = append(sections, theme.HelpStyle.Render("loading..."))
	case m.loadErr != nil:
		sections = append(sections,
			theme.NotificationTypeStyle("error").Render("failed to load: "+m.loadErr.Error()))
	case len(m.users) == 0:
		sections = append(sections, theme.HelpStyle.Render("no users"))
	default:
		for i, u := range m.users {
			sections = append(sections, m.renderUser(u, i == m.cursor))
		}
	}

	content := lipgloss.JoinVertical(lipgloss.Left, sections...)
	return theme.PanelStyle.Width(m.width - 4).Render(content)
}

func (m Model) renderUser(u model.User, selected bool) string {
	roles := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		roles = append(roles, theme.RoleStyle(string(r)).Render(string(r)))
	}

	line := fmt.Sprintf("%s <%s>  %s", u.Name, u.Email, strings.Join(roles, " "))
	if selected {
		return theme.SelectedItemStyle.Render(line)
	}
	return theme.ListItemStyle.Render(line)
}
