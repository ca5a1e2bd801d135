// Package palette implements the command palette: a searchable,
// role-filtered overlay of invokable commands. Open/close transitions,
// query state, and dispatch live here; the root app model owns the
// single global ctrl+k capture and its text-field suppression rule.
package palette

import (
	"fmt"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ndinh/deckhand/internal/model"
	"github.com/ndinh/deckhand/internal/search"
	"github.com/ndinh/deckhand/internal/theme"
)

// NavigateMsg is emitted when the user selects a navigation command.
type NavigateMsg struct {
	Href string
}

// ActionExecutedMsg is emitted after an action command's callback ran.
type ActionExecutedMsg struct {
	ID string
}

// openMode distinguishes self-managed state from externally-controlled
// state. While controlled, the external value always wins: every change
// is mirrored in via SetControlledOpen and internal transitions only
// report intent.
type openMode int

const (
	modeInternal openMode = iota
	modeControlled
)

// Model is the command palette.
type Model struct {
	input  textinput.Model
	role   model.Role
	logout func()

	open bool
	mode openMode

	results []model.CommandItem
	groups  []search.CategoryGroup

	// flat is the grouped display order; cursor indexes into it.
	flat   []model.CommandItem
	cursor int

	width  int
	height int
}

// New creates a closed palette for the given role. The logout callback is
// injected into the registry's single action item.
func New(role model.Role, logout func(), width, height int) Model {
	ti := textinput.New()
	ti.Placeholder = "type to search commands..."
	ti.Prompt = "> "
	ti.Width = width - 8

	m := Model{
		input:  ti,
		role:   role,
		logout: logout,
		width:  width,
		height: height,
	}
	m.runSearch()
	return m
}

// SetRole updates the caller role, e.g. after re-authentication.
func (m *Model) SetRole(role model.Role) {
	m.role = role
	m.runSearch()
}

// IsOpen reports whether the palette is showing.
func (m Model) IsOpen() bool {
	return m.open
}

// Open transitions Closed -> Open. In controlled mode the request is
// ignored; the external owner decides.
func (m *Model) Open() tea.Cmd {
	if m.mode == modeControlled {
		return nil
	}
	return m.doOpen()
}

// Close transitions Open -> Closed and clears the query. Cleanup is
// unconditional; it happens on escape and after every dispatch.
func (m *Model) Close() {
	if m.mode == modeControlled {
		return
	}
	m.doClose()
}

// SetControlledOpen switches the palette to controlled mode and mirrors
// the external open value exactly. The external value always wins over
// any internal transition.
func (m *Model) SetControlledOpen(open bool) tea.Cmd {
	m.mode = modeControlled
	if open == m.open {
		return nil
	}
	if open {
		return m.doOpen()
	}
	m.doClose()
	return nil
}

// ReleaseControl returns the palette to self-managed mode, keeping the
// current open state.
func (m *Model) ReleaseControl() {
	m.mode = modeInternal
}

func (m *Model) doOpen() tea.Cmd {
	m.open = true
	m.input.Reset()
	m.cursor = 0
	m.runSearch()
	return tea.Batch(m.input.Focus(), textinput.Blink)
}

func (m *Model) doClose() {
	m.open = false
	m.input.Reset()
	m.input.Blur()
	m.cursor = 0
	m.runSearch()
}

// Query returns the current query text.
func (m Model) Query() string {
	return m.input.Value()
}

// Results returns the current matches in registry order.
func (m Model) Results() []model.CommandItem {
	return m.results
}

// Groups returns the matches bucketed by category in fixed display order.
func (m Model) Groups() []search.CategoryGroup {
	return m.groups
}

// InputFocused reports whether the palette's text field is accepting
// keystrokes; the root model uses this for the shortcut suppression rule.
func (m Model) InputFocused() bool {
	return m.open
}

// Update handles messages while the palette is open.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if !m.open {
		return m, nil
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyEsc:
			// Escape always closes and clears, even in controlled
			// mode; the owner observes IsOpen and mirrors it.
			m.doClose()
			return m, nil

		case tea.KeyUp, tea.KeyCtrlP:
			if m.cursor > 0 {
				m.cursor--
			}
			return m, nil

		case tea.KeyDown, tea.KeyCtrlN:
			if m.cursor < len(m.flat)-1 {
				m.cursor++
			}
			return m, nil

		case tea.KeyEnter:
			return m.dispatch()
		}
	}

	var cmd tea.Cmd
	before := m.input.Value()
	m.input, cmd = m.input.Update(msg)
	if m.input.Value() != before {
		// Re-run the search synchronously on every keystroke; the
		// registry is small and memory-resident.
		m.runSearch()
		m.cursor = 0
	}
	return m, cmd
}

// dispatch invokes the selected command. Close-and-clear happens before
// the action runs so cleanup is unconditional even when the callback
// fails.
func (m Model) dispatch() (Model, tea.Cmd) {
	if m.cursor < 0 || m.cursor >= len(m.flat) {
		return m, nil
	}
	item := m.flat[m.cursor]
	if !item.Invokable() {
		return m, nil
	}

	m.doClose()

	if item.Action != nil {
		action := item.Action
		id := item.ID
		return m, func() tea.Msg {
			action()
			return ActionExecutedMsg{ID: id}
		}
	}

	href := item.Href
	return m, func() tea.Msg {
		return NavigateMsg{Href: href}
	}
}

// runSearch refreshes results and grouping for the current query.
func (m *Model) runSearch() {
	m.results = search.Search(m.input.Value(), m.role, m.logout)
	m.groups = search.Group(m.results)

	m.flat = m.flat[:0]
	for _, g := range m.groups {
		m.flat = append(m.flat, g.Items...)
	}
	if m.cursor >= len(m.flat) {
		m.cursor = 0
	}
}

// SetSize updates the palette dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.input.Width = width - 8
}

// View renders the palette overlay.
func (m Model) View() string {
	if !m.open {
		return ""
	}

	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1).
		Render("Command Palette")

	sections := []string{title, m.input.View()}

	if len(m.results) == 0 {
		sections = append(sections,
			theme.HelpStyle.Render("no matching commands"))
	}

	flatIndex := 0
	for _, group := range m.groups {
		sections = append(sections,
			theme.CategoryStyle.Render(string(group.Category)))
		for _, item := range group.Items {
			sections = append(sections, m.renderItem(item, flatIndex == m.cursor))
			flatIndex++
		}
	}

	content := lipgloss.JoinVertical(lipgloss.Left, sections...)

	return theme.PanelStyle.
		Width(m.width - 4).
		Render(content)
}

func (m Model) renderItem(item model.CommandItem, selected bool) string {
	label := item.Title
	if item.Description != "" {
		label = fmt.Sprintf("%s  %s", item.Title,
			theme.HelpStyle.Render(item.Description))
	}
	if item.Shortcut != "" {
		label = fmt.Sprintf("%s  %s", label,
			theme.HelpStyle.Render("["+item.Shortcut+"]"))
	}

	if selected {
		return theme.SelectedItemStyle.Render(label)
	}
	return theme.ListItemStyle.Render(label)
}
