// Package app is the root Bubble Tea model: view routing, the single
// global palette shortcut, the bell overlay, the refresh loop, and the
// session lifecycle.
package app

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/ndinh/deckhand/internal/api"
	"github.com/ndinh/deckhand/internal/credential"
	"github.com/ndinh/deckhand/internal/feed"
	"github.com/ndinh/deckhand/internal/keys"
	"github.com/ndinh/deckhand/internal/model"
	"github.com/ndinh/deckhand/internal/store"
	appsync "github.com/ndinh/deckhand/internal/sync"
	"github.com/ndinh/deckhand/internal/theme"
	"github.com/ndinh/deckhand/internal/ui"
	"github.com/ndinh/deckhand/internal/ui/bell"
	"github.com/ndinh/deckhand/internal/ui/compose"
	"github.com/ndinh/deckhand/internal/ui/dashboard"
	"github.com/ndinh/deckhand/internal/ui/login"
	"github.com/ndinh/deckhand/internal/ui/notifpage"
	"github.com/ndinh/deckhand/internal/ui/palette"
	"github.com/ndinh/deckhand/internal/ui/settings"
	"github.com/ndinh/deckhand/internal/ui/users"
)

// view identifies the active main content area.
type view int

const (
	viewLogin view = iota
	viewDashboard
	viewNotifications
	viewCompose
	viewUsers
	viewSettings
)

// cacheLoadedMsg carries the offline snapshot read at startup.
type cacheLoadedMsg struct {
	snap *model.FeedSnapshot
	err  error
}

// meMsg carries the authenticated account.
type meMsg struct {
	user *model.User
	err  error
}

const requestTimeout = 20 * time.Second

// Options configures the root model.
type Options struct {
	Config *model.AppConfig
	Client *api.Client
	Cache  store.Store
	Logger *zap.Logger

	// Authenticated is true when a stored session token was found; the
	// app skips the login view and verifies the token via /me instead.
	Authenticated bool
}

// Model is the root application model.
type Model struct {
	cfg    *model.AppConfig
	client *api.Client
	cache  store.Store
	log    *zap.Logger
	keymap *keys.KeyMap
	layout ui.Layout

	user      model.User
	feedStore *feed.Store
	refresher *appsync.Refresher

	palette palette.Model
	bell    bell.Model

	active    view
	dashboard dashboard.Model
	notifPage notifpage.Model
	compose   compose.Model
	usersView users.Model
	settings  settings.Model
	login     login.Model

	authenticated bool

	// sessionExpired shows the re-authentication banner until the user
	// explicitly signs in again.
	sessionExpired bool

	// gotLive is set once the first live refresh lands; after that the
	// stale cache snapshot must not overwrite server state.
	gotLive bool

	width  int
	height int
}

// New assembles the root model. The feed store, refresher, and every
// view share the injected client and cache.
func New(opts Options) Model {
	feedStore := feed.NewStore()
	interval := time.Duration(opts.Config.Feed.PollIntervalSec) * time.Second

	m := Model{
		cfg:           opts.Config,
		client:        opts.Client,
		cache:         opts.Cache,
		log:           opts.Logger,
		keymap:        keys.DefaultKeyMap(),
		feedStore:     feedStore,
		refresher:     appsync.New(opts.Client, interval, opts.Logger),
		authenticated: opts.Authenticated,
		width:         80,
		height:        24,
	}

	m.layout = ui.NewLayout(m.width, m.height)
	m.palette = palette.New(model.RoleUser, m.logoutAction(), m.width, m.height)
	m.bell = bell.New(feedStore, opts.Client, opts.Client.BaseURL(), m.width, m.height)
	m.dashboard = dashboard.New(model.User{}, feedStore, m.width, m.contentHeight())
	m.settings = settings.New(model.User{}, m.width, m.contentHeight())
	m.login = login.New(opts.Client, m.width, m.contentHeight())

	if m.authenticated {
		m.active = viewDashboard
	} else {
		m.active = viewLogin
	}

	return m
}

// Init starts the session: either the login flow, or cache load plus
// account fetch plus the background refresh loop.
func (m Model) Init() tea.Cmd {
	if !m.authenticated {
		return m.login.Init()
	}
	return tea.Batch(
		m.loadCache(),
		m.fetchMe(),
		m.refresher.Start(),
	)
}

// logoutAction builds the palette's logout callback. It runs inside a
// tea.Cmd, so blocking on the request is fine.
func (m *Model) logoutAction() func() {
	client, log := m.client, m.log
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		if err := client.Logout(ctx); err != nil {
			log.Warn("server-side logout failed", zap.Error(err))
		}
		if err := credential.Delete(credential.TokenKey); err != nil {
			log.Warn("deleting stored token failed", zap.Error(err))
		}
	}
}

func (m Model) loadCache() tea.Cmd {
	cache := m.cache
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		snap, err := cache.LoadSnapshot(ctx)
		return cacheLoadedMsg{snap: snap, err: err}
	}
}

func (m Model) fetchMe() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		user, err := client.Me(ctx)
		return meMsg{user: user, err: err}
	}
}

// persistSnapshot writes a fresh snapshot to the offline cache.
func (m Model) persistSnapshot(snap model.FeedSnapshot) tea.Cmd {
	cache, log := m.cache, m.log
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		if err := cache.SaveSnapshot(ctx, snap); err != nil {
			log.Warn("caching feed snapshot failed", zap.Error(err))
		}
		return nil
	}
}

// persistMark records an optimistic mark in the offline cache.
func (m Model) persistMark(id string) tea.Cmd {
	cache, log := m.cache, m.log
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		var err error
		if id == "" {
			err = cache.MarkAllRead(ctx, time.Now())
		} else {
			err = cache.MarkRead(ctx, id, time.Now())
		}
		if err != nil {
			log.Warn("caching read mark failed", zap.Error(err))
		}
		return nil
	}
}

// Update is the root message loop.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.setSize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case cacheLoadedMsg:
		if msg.err != nil {
			m.log.Warn("loading cached feed failed", zap.Error(msg.err))
			return m, nil
		}
		// Show last-known state only until live data arrives.
		if !m.gotLive && msg.snap != nil {
			m.feedStore.ReplaceAll(*msg.snap)
		}
		return m, nil

	case meMsg:
		if msg.err != nil {
			if api.IsAuthError(msg.err) {
				return m.startReauth()
			}
			m.log.Warn("fetching account failed", zap.Error(msg.err))
			return m, nil
		}
		m.user = *msg.user
		m.palette.SetRole(m.user.PrimaryRole())
		m.dashboard.SetUser(m.user)
		m.settings.SetUser(m.user)
		return m, nil

	case appsync.RefreshResultMsg:
		return m.handleRefresh(msg)

	case bell.RefreshRequestedMsg:
		return m, m.refresher.Refresh()

	case bell.MarkedReadMsg:
		return m, m.persistMark(msg.ID)

	case bell.RemoteResultMsg:
		if msg.Err != nil && api.IsAuthError(msg.Err) {
			m.sessionExpired = true
		}
		return m, nil

	case bell.NavigateMsg:
		return m.navigate(msg.Path)

	case palette.NavigateMsg:
		return m.navigate(msg.Href)

	case palette.ActionExecutedMsg:
		if msg.ID == "logout" {
			m.refresher.Stop()
			return m, tea.Quit
		}
		return m, nil

	case login.AuthorizedMsg:
		return m.handleAuthorized(msg.Token)

	case compose.SentMsg:
		m.active = viewDashboard
		return m, m.refresher.Refresh()

	case compose.CancelMsg:
		m.active = viewDashboard
		return m, nil
	}

	return m.routeToActive(msg)
}

// handleRefresh applies one refresh outcome and re-arms the result
// subscription.
func (m Model) handleRefresh(msg appsync.RefreshResultMsg) (tea.Model, tea.Cmd) {
	wait := m.refresher.WaitForNextResult()

	if msg.SessionExpired {
		m.sessionExpired = true
		return m, wait
	}
	if msg.Err != nil {
		// Transient; the store keeps last-known state and the next tick
		// retries.
		return m, wait
	}

	m.gotLive = true
	m.sessionExpired = false
	m.feedStore.ReplaceAll(*msg.Snapshot)
	return m, tea.Batch(wait, m.persistSnapshot(*msg.Snapshot))
}

// handleAuthorized installs a freshly granted session token.
func (m Model) handleAuthorized(token string) (tea.Model, tea.Cmd) {
	m.client.SetToken(token)
	if err := credential.Set(credential.TokenKey, token); err != nil {
		m.log.Warn("storing session token failed", zap.Error(err))
	}

	m.authenticated = true
	m.sessionExpired = false
	m.active = viewDashboard

	return m, tea.Batch(
		m.loadCache(),
		m.fetchMe(),
		m.refresher.Start(),
	)
}

// startReauth drops into the login view after the session died.
func (m Model) startReauth() (tea.Model, tea.Cmd) {
	m.sessionExpired = true
	m.authenticated = false
	m.active = viewLogin
	m.palette.Close()
	m.bell.ClosePanel()
	m.login = login.New(m.client, m.width, m.contentHeight())
	return m, m.login.Init()
}

// textFieldFocused reports whether the active view is capturing raw
// keystrokes into a text-editable field. The palette shortcut and the
// single-letter global keys are suppressed while it is.
func (m Model) textFieldFocused() bool {
	return m.active == viewCompose && m.compose.InputFocused()
}

// handleKey routes one keypress: overlays first, then global bindings,
// then the active view.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// ctrl+c quits from anywhere.
	if msg.Type == tea.KeyCtrlC {
		m.refresher.Stop()
		return m, tea.Quit
	}

	// Re-authenticate from the expired-session banner.
	if msg.Type == tea.KeyCtrlL && m.sessionExpired && m.active != viewLogin {
		return m.startReauth()
	}

	// The palette shortcut is global. While a text field owns the
	// keyboard it is suppressed so typing is never hijacked; while the
	// palette itself is open the same shortcut closes it.
	if key.Matches(msg, m.keymap.Palette) && m.authenticated {
		if m.palette.IsOpen() {
			m.palette.Close()
			return m, nil
		}
		if m.textFieldFocused() {
			return m.routeToActive(msg)
		}
		m.bell.ClosePanel()
		return m, m.palette.Open()
	}

	// Open overlays own the keyboard.
	if m.palette.IsOpen() {
		var cmd tea.Cmd
		m.palette, cmd = m.palette.Update(msg)
		return m, cmd
	}
	if m.bell.PanelOpen() {
		var cmd tea.Cmd
		m.bell, cmd = m.bell.Update(msg)
		return m, cmd
	}

	// Single-letter globals; they must not fire while typing.
	if !m.textFieldFocused() && m.authenticated {
		switch {
		case key.Matches(msg, m.keymap.Quit):
			m.refresher.Stop()
			return m, tea.Quit
		case key.Matches(msg, m.keymap.Bell):
			return m, m.bell.Toggle()
		case key.Matches(msg, m.keymap.Back):
			if m.active != viewDashboard {
				m.active = viewDashboard
				return m, nil
			}
		}
	}

	return m.routeToActive(msg)
}

// routeToActive forwards a message to whichever view is showing.
func (m Model) routeToActive(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.active {
	case viewLogin:
		m.login, cmd = m.login.Update(msg)
	case viewDashboard:
		m.dashboard, cmd = m.dashboard.Update(msg)
	case viewNotifications:
		m.notifPage, cmd = m.notifPage.Update(msg)
	case viewCompose:
		m.compose, cmd = m.compose.Update(msg)
	case viewUsers:
		m.usersView, cmd = m.usersView.Update(msg)
	case viewSettings:
		m.settings, cmd = m.settings.Update(msg)
	}
	return m, cmd
}

// navigate switches the main view for an in-app route. Unknown routes
// are logged and ignored.
func (m Model) navigate(path string) (tea.Model, tea.Cmd) {
	m.bell.ClosePanel()

	switch path {
	case "/dashboard", "/":
		m.active = viewDashboard
		return m, nil

	case "/notifications":
		m.active = viewNotifications
		m.notifPage = notifpage.New(m.client, m.width, m.contentHeight())
		return m, m.notifPage.Init()

	case "/settings/profile":
		return m.openSettings(settings.SectionProfile)
	case "/settings/password":
		return m.openSettings(settings.SectionPassword)
	case "/settings/appearance":
		return m.openSettings(settings.SectionAppearance)
	case "/settings/devices":
		return m.openSettings(settings.SectionDevices)

	case "/admin/users":
		m.active = viewUsers
		m.usersView = users.New(m.client, m.width, m.contentHeight())
		return m, m.usersView.Init()

	case "/admin/notifications/send", "/admin/notifications/broadcast":
		m.active = viewCompose
		canBroadcast := m.user.HasRole(model.RoleSuperadmin)
		m.compose = compose.New(m.client, canBroadcast, m.width, m.contentHeight())
		return m, m.compose.Init()
	}

	m.log.Warn("unknown route", zap.String("path", path))
	return m, nil
}

func (m Model) openSettings(section settings.Section) (tea.Model, tea.Cmd) {
	m.active = viewSettings
	m.settings.SetSection(section)
	return m, nil
}

func (m Model) contentHeight() int {
	return m.layout.ContentHeight()
}

func (m *Model) setSize(width, height int) {
	m.width = width
	m.height = height
	m.layout = ui.NewLayout(width, height)

	h := m.contentHeight()
	m.palette.SetSize(width, height)
	m.bell.SetSize(width, height)
	m.dashboard.SetSize(width, h)
	m.notifPage.SetSize(width, h)
	m.compose.SetSize(width, h)
	m.usersView.SetSize(width, h)
	m.settings.SetSize(width, h)
	m.login.SetSize(width, h)
}

// View renders the frame: header with bell badge, content or overlay,
// status bar, plus the session-expired banner when needed.
func (m Model) View() string {
	header := m.layout.RenderHeader("deckhand", m.bell.Badge())

	var content string
	switch {
	case m.palette.IsOpen():
		content = m.palette.View()
	case m.bell.PanelOpen():
		content = m.bell.View()
	default:
		content = m.activeView()
	}

	if m.sessionExpired && m.active != viewLogin {
		banner := theme.BannerStyle.Render("Session expired. Press ctrl+l to sign in again.")
		content = banner + "\n" + content
	}

	status := m.layout.RenderStatusBar(m.statusHints())
	return m.layout.RenderWithFrame(header, content, status)
}

func (m Model) activeView() string {
	switch m.active {
	case viewLogin:
		return m.login.View()
	case viewNotifications:
		return m.notifPage.View()
	case viewCompose:
		return m.compose.View()
	case viewUsers:
		return m.usersView.View()
	case viewSettings:
		return m.settings.View()
	default:
		return m.dashboard.View()
	}
}

func (m Model) statusHints() string {
	if m.active == viewLogin {
		return "enter: retry  ctrl+c: quit"
	}
	return "ctrl+k: palette  b: notifications  esc: back  q: quit"
}
