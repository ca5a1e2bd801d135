// Package compose is the admin send/broadcast notification form.
package compose

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/ndinh/deckhand/internal/api"
	"github.com/ndinh/deckhand/internal/model"
	"github.com/ndinh/deckhand/internal/theme"
)

// SendAPI is the remote half of the form. *api.Client satisfies it.
type SendAPI interface {
	ListUsers(ctx context.Context) ([]model.User, error)
	SendNotification(ctx context.Context, req api.SendNotificationRequest) error
	BroadcastNotification(ctx context.Context, req api.SendNotificationRequest) error
}

// SentMsg reports a successful send.
type SentMsg struct {
	Broadcast bool
}

// CancelMsg reports that the user abandoned the form.
type CancelMsg struct{}

// UsersLoadedMsg carries the recipient options.
type UsersLoadedMsg struct {
	Users []model.User
	Err   error
}

// sendResultMsg is the internal outcome of the submit request.
type sendResultMsg struct {
	err       error
	broadcast bool
}

const requestTimeout = 20 * time.Second

// broadcastRecipient is the sentinel recipient value for broadcast mode.
const broadcastRecipient = "*"

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	recipient  string
	title      string
	message    string
	kind       string
	actionURL  string
	actionText string
}

// Model is the Bubble Tea model for the send/broadcast form.
type Model struct {
	remote    SendAPI
	canBcast  bool
	form      *huh.Form
	fb        *formBindings
	users     []model.User
	sending   bool
	submitErr error

	// fieldErrors holds server-side per-field validation messages,
	// passed through inline.
	fieldErrors map[string]string

	width  int
	height int
}

// New creates the form model. canBroadcast enables the broadcast
// recipient option (superadmin only).
func New(remote SendAPI, canBroadcast bool, width, height int) Model {
	return Model{
		remote:   remote,
		canBcast: canBroadcast,
		fb:       &formBindings{kind: "info"},
		width:    width,
		height:   height,
	}
}

// Init loads the recipient list.
func (m Model) Init() tea.Cmd {
	remote := m.remote
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		users, err := remote.ListUsers(ctx)
		return UsersLoadedMsg{Users: users, Err: err}
	}
}

// InputFocused reports whether the form is capturing keystrokes; the
// palette shortcut is suppressed while it is.
func (m Model) InputFocused() bool {
	return m.form != nil && m.form.State == huh.StateNormal
}

// buildForm assembles the huh form from the loaded recipient options.
func (m *Model) buildForm() *huh.Form {
	recipientOptions := make([]huh.Option[string], 0, len(m.users)+1)
	if m.canBcast {
		recipientOptions = append(recipientOptions,
			huh.NewOption("Everyone (broadcast)", broadcastRecipient))
	}
	for _, u := range m.users {
		label := fmt.Sprintf("%s <%s>", u.Name, u.Email)
		recipientOptions = append(recipientOptions, huh.NewOption(label, u.ID))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Recipient").
				Options(recipientOptions...).
				Value(&m.fb.recipient),
			huh.NewInput().
				Title("Title").
				Value(&m.fb.title).
				Validate(required("title")),
			huh.NewText().
				Title("Message").
				Value(&m.fb.message).
				Validate(required("message")),
			huh.NewSelect[string]().
				Title("Type").
				Options(
					huh.NewOption("Info", "info"),
					huh.NewOption("Success", "success"),
					huh.NewOption("Warning", "warning"),
					huh.NewOption("Error", "error"),
				).
				Value(&m.fb.kind),
			huh.NewInput().
				Title("Action URL (optional)").
				Value(&m.fb.actionURL),
			huh.NewInput().
				Title("Action text (optional)").
				Value(&m.fb.actionText),
		),
	).WithWidth(m.width - 8)
}

// required rejects empty values client-side before the server sees them.
func required(field string) func(string) error {
	return func(v string) error {
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("the %s field is required", field)
		}
		return nil
	}
}

// Update handles messages for the form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case UsersLoadedMsg:
		if msg.Err != nil {
			m.submitErr = msg.Err
			return m, nil
		}
		m.users = msg.Users
		m.form = m.buildForm()
		return m, m.form.Init()

	case sendResultMsg:
		m.sending = false
		if msg.err != nil {
			m.submitErr = msg.err
			m.fieldErrors = nil
			if vErr, ok := api.IsValidationError(msg.err); ok {
				m.fieldErrors = map[string]string{}
				for field := range vErr.Fields {
					m.fieldErrors[field] = vErr.FieldError(field)
				}
			}
			// Rebuild so the user can correct and resubmit.
			m.form = m.buildForm()
			return m, m.form.Init()
		}
		broadcast := msg.broadcast
		return m, func() tea.Msg { return SentMsg{Broadcast: broadcast} }
	}

	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted && !m.sending {
		m.sending = true
		return m, m.submit()
	}
	if m.form.State == huh.StateAborted {
		return m, func() tea.Msg { return CancelMsg{} }
	}

	return m, cmd
}

// submit issues the send or broadcast request.
func (m Model) submit() tea.Cmd {
	req := api.SendNotificationRequest{
		Title:      strings.TrimSpace(m.fb.title),
		Message:    strings.TrimSpace(m.fb.message),
		Type:       m.fb.kind,
		ActionURL:  strings.TrimSpace(m.fb.actionURL),
		ActionText: strings.TrimSpace(m.fb.actionText),
	}

	remote := m.remote
	broadcast := m.fb.recipient == broadcastRecipient
	if !broadcast {
		req.UserID = m.fb.recipient
	}

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		var err error
		if broadcast {
			err = remote.BroadcastNotification(ctx, req)
		} else {
			err = remote.SendNotification(ctx, req)
		}
		return sendResultMsg{err: err, broadcast: broadcast}
	}
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	if m.form != nil {
		m.form = m.form.WithWidth(width - 8)
	}
}

// View renders the form.
func (m Model) View() string {
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1).
		Render("Send notification")

	sections := []string{title}

	if m.submitErr != nil {
		if len(m.fieldErrors) > 0 {
			for field, msg := range m.fieldErrors {
				sections = append(sections,
					theme.NotificationTypeStyle("error").Render(field+": "+msg))
			}
		} else {
			sections = append(sections,
				theme.NotificationTypeStyle("error").Render(m.submitErr.Error()))
		}
	}

	switch {
	case m.sending:
		sections = append(sections, theme.HelpStyle.Render("sending..."))
	case m.form != nil:
		sections = append(sections, m.form.View())
	default:
		sections = append(sections, theme.HelpStyle.Render("loading recipients..."))
	}

	content := lipgloss.JoinVertical(lipgloss.Left, sections...)
	return theme.PanelStyle.Width(m.width - 4).Render(content)
}
