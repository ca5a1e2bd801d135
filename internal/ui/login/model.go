// Package login runs the CLI device-authorization flow: show a user
// code and verification URL, poll until the device is approved, and
// surface expiry with a manual retry rather than retrying silently.
package login

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ndinh/deckhand/internal/api"
	"github.com/ndinh/deckhand/internal/theme"
)

// AuthorizedMsg reports a granted session token.
type AuthorizedMsg struct {
	Token string
}

// phase is the device-flow state machine.
type phase int

const (
	phaseRequesting phase = iota
	phaseWaiting
	phaseExpired
	phaseDenied
	phaseFailed
)

// codeMsg carries the device authorization response.
type codeMsg struct {
	auth *api.DeviceAuthorization
	err  error
}

// pollMsg carries one token-poll outcome.
type pollMsg struct {
	token string
	err   error
}

// pollTickMsg schedules the next poll.
type pollTickMsg struct{}

const requestTimeout = 20 * time.Second

// Model is the login view.
type Model struct {
	client *api.Client

	phase   phase
	auth    *api.DeviceAuthorization
	started time.Time
	lastErr error

	width  int
	height int
}

// New creates the login view.
func New(client *api.Client, width, height int) Model {
	return Model{
		client: client,
		phase:  phaseRequesting,
		width:  width,
		height: height,
	}
}

// Init requests the first device code.
func (m Model) Init() tea.Cmd {
	return m.requestCode()
}

func (m Model) requestCode() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		auth, err := client.StartDeviceAuthorization(ctx)
		return codeMsg{auth: auth, err: err}
	}
}

func (m Model) poll() tea.Cmd {
	client, code := m.client, m.auth.DeviceCode
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		token, err := client.PollDeviceToken(ctx, code)
		return pollMsg{token: token, err: err}
	}
}

func (m Model) scheduleNextPoll() tea.Cmd {
	return tea.Tick(m.auth.PollInterval(), func(time.Time) tea.Msg {
		return pollTickMsg{}
	})
}

// Update drives the device-flow state machine.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case codeMsg:
		if msg.err != nil {
			m.phase = phaseFailed
			m.lastErr = msg.err
			return m, nil
		}
		m.phase = phaseWaiting
		m.auth = msg.auth
		m.started = time.Now()
		return m, m.scheduleNextPoll()

	case pollTickMsg:
		if m.phase != phaseWaiting {
			return m, nil
		}
		if time.Since(m.started) > m.auth.ExpiresAfter() {
			m.phase = phaseExpired
			return m, nil
		}
		return m, m.poll()

	case pollMsg:
		if m.phase != phaseWaiting {
			return m, nil
		}
		switch {
		case msg.err == nil:
			token := msg.token
			return m, func() tea.Msg { return AuthorizedMsg{Token: token} }
		case errors.Is(msg.err, api.ErrAuthorizationPending):
			return m, m.scheduleNextPoll()
		case errors.Is(msg.err, api.ErrDeviceCodeExpired):
			m.phase = phaseExpired
			return m, nil
		case errors.Is(msg.err, api.ErrAccessDenied):
			m.phase = phaseDenied
			return m, nil
		default:
			m.phase = phaseFailed
			m.lastErr = msg.err
			return m, nil
		}

	case tea.KeyMsg:
		// Terminal states require an explicit retry keypress.
		if msg.Type == tea.KeyEnter && m.terminal() {
			m.phase = phaseRequesting
			m.auth = nil
			m.lastErr = nil
			return m, m.requestCode()
		}
	}

	return m, nil
}

// terminal reports whether the flow ended without a token.
func (m Model) terminal() bool {
	return m.phase == phaseExpired || m.phase == phaseDenied || m.phase == phaseFailed
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// View renders the login screen.
func (m Model) View() string {
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1).
		Render("Sign in")

	var body string
	switch m.phase {
	case phaseRequesting:
		body = theme.HelpStyle.Render("requesting device code...")
	case phaseWaiting:
		code := lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.ColorYellow).
			Render(m.auth.UserCode)
		body = lipgloss.JoinVertical(lipgloss.Left,
			"Visit "+m.auth.VerificationURI+" and enter:",
			"",
			"    "+code,
			"",
			theme.HelpStyle.Render("waiting for approval..."),
		)
	case phaseExpired:
		body = lipgloss.JoinVertical(lipgloss.Left,
			theme.BannerStyle.Render("Session expired: the device code is no longer valid."),
			"",
			theme.HelpStyle.Render("press enter to request a new code"),
		)
	case phaseDenied:
		body = lipgloss.JoinVertical(lipgloss.Left,
			theme.BannerStyle.Render("Authorization was denied."),
			"",
			theme.HelpStyle.Render("press enter to try again"),
		)
	case phaseFailed:
		errText := "unknown error"
		if m.lastErr != nil {
			errText = m.lastErr.Error()
		}
		body = lipgloss.JoinVertical(lipgloss.Left,
			theme.NotificationTypeStyle("error").Render("Sign-in failed: "+errText),
			"",
			theme.HelpStyle.Render("press enter to retry"),
		)
	}

	content := lipgloss.JoinVertical(lipgloss.Left, title, body)
	return theme.PanelStyle.Width(m.width - 4).Render(content)
}
