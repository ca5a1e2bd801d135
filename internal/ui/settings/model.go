// Package settings shows the account sections reachable from the
// palette's settings commands.
package settings

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ndinh/deckhand/internal/model"
	"github.com/ndinh/deckhand/internal/theme"
)

// Section identifies which settings screen is showing.
type Section string

const (
	SectionProfile    Section = "profile"
	SectionPassword   Section = "password"
	SectionAppearance Section = "appearance"
	SectionDevices    Section = "devices"
)

// Model is a read-only settings view; edits happen in the web app, so
// each section shows current state plus a pointer there.
type Model struct {
	section Section
	user    model.User

	width  int
	height int
}

// New creates the settings view.
func New(user model.User, width, height int) Model {
	return Model{
		section: SectionProfile,
		user:    user,
		width:   width,
		height:  height,
	}
}

// SetSection switches the visible section.
func (m *Model) SetSection(s Section) {
	m.section = s
}

// SetUser refreshes the displayed account data.
func (m *Model) SetUser(u model.User) {
	m.user = u
}

// Update is a no-op; the view is read-only.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	return m, nil
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// View renders the active section.
func (m Model) View() string {
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1).
		Render("Settings: " + string(m.section))

	var body string
	switch m.section {
	case SectionProfile:
		body = lipgloss.JoinVertical(lipgloss.Left,
			fmt.Sprintf("Name:  %s", m.user.Name),
			fmt.Sprintf("Email: %s", m.user.Email),
			fmt.Sprintf("Role:  %s", m.user.PrimaryRole()),
			"",
			theme.HelpStyle.Render("edit your profile in the web app"),
		)
	case SectionPassword:
		body = theme.HelpStyle.Render("change your password in the web app")
	case SectionAppearance:
		body = theme.HelpStyle.Render("the terminal theme adapts to your terminal colors")
	case SectionDevices:
		body = theme.HelpStyle.Render("authorized CLI devices are managed in the web app")
	}

	content := lipgloss.JoinVertical(lipgloss.Left, title, body)
	return theme.PanelStyle.Width(m.width - 4).Render(content)
}
