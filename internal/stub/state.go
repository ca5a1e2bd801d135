// Package stub is a self-contained development backend. It implements
// the same HTTP contract the real server exposes, backed by in-memory
// state with seeded accounts, so the TUI can be exercised without a
// deployment.
package stub

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/ndinh/deckhand/internal/model"
)

// account pairs a user with its seeded bearer token.
type account struct {
	user  model.User
	token string
}

// deviceGrant tracks one in-flight device authorization.
type deviceGrant struct {
	userCode   string
	expiresAt  time.Time
	approvedBy string
	denied     bool
}

// feedLimit caps how many entries the feed endpoint returns; the full
// listing endpoint pages through the rest.
const feedLimit = 15

// pageSize is the listing page size.
const pageSize = 10

// deviceCodeTTL is the lifetime of an unapproved device code.
const deviceCodeTTL = 10 * time.Minute

// State is the in-memory backend state. Safe for concurrent use.
type State struct {
	mu       sync.Mutex
	accounts []account
	sessions map[string]string // bearer token -> user id
	notifs   map[string][]model.Notification
	devices  map[string]*deviceGrant
	seq      int
}

// NewState seeds one user per role plus a few notifications each. The
// seeded tokens (user-token, admin-token, super-token) work immediately,
// alongside tokens granted through the device flow.
func NewState() *State {
	s := &State{
		sessions: make(map[string]string),
		notifs:   make(map[string][]model.Notification),
		devices:  make(map[string]*deviceGrant),
	}

	s.accounts = []account{
		{
			user: model.User{
				ID: "u-1", Name: "Sam Rivera", Email: "sam@example.com",
				Roles: []model.Role{model.RoleUser},
			},
			token: "user-token",
		},
		{
			user: model.User{
				ID: "u-2", Name: "Ada Okafor", Email: "ada@example.com",
				Roles: []model.Role{model.RoleUser, model.RoleAdmin},
			},
			token: "admin-token",
		},
		{
			user: model.User{
				ID: "u-3", Name: "Sol Tanaka", Email: "sol@example.com",
				Roles: []model.Role{model.RoleUser, model.RoleAdmin, model.RoleSuperadmin},
			},
			token: "super-token",
		},
	}

	for _, a := range s.accounts {
		s.sessions[a.token] = a.user.ID
		s.seed(a.user.ID)
	}

	return s
}

// seed plants a few notifications for a fresh account.
func (s *State) seed(userID string) {
	s.addNotification(userID, model.NotificationData{
		Title:   "Welcome to deckhand",
		Message: "Press ctrl+k to open the command palette.",
		Type:    "info",
	})
	s.addNotification(userID, model.NotificationData{
		Title:      "Profile incomplete",
		Message:    "Add a display name to your profile.",
		Type:       "warning",
		ActionURL:  "/settings/profile",
		ActionText: "Open settings",
	})
}

// addNotification prepends a new unread notification. Newest first,
// matching the real server's ordering.
func (s *State) addNotification(userID string, data model.NotificationData) model.Notification {
	s.seq++
	n := model.Notification{
		ID:        fmt.Sprintf("n-%d", s.seq),
		Data:      data,
		CreatedAt: time.Now().Format(time.RFC3339),
	}
	s.notifs[userID] = append([]model.Notification{n}, s.notifs[userID]...)
	return n
}

// userByToken resolves a bearer token to its account.
func (s *State) userByToken(token string) (model.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.sessions[token]
	if !ok {
		return model.User{}, false
	}
	for _, a := range s.accounts {
		if a.user.ID == id {
			return a.user, true
		}
	}
	return model.User{}, false
}

// dropSession invalidates a bearer token.
func (s *State) dropSession(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
}

// feed returns the snapshot for one user.
func (s *State) feed(userID string) model.FeedSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.notifs[userID]
	unread := 0
	for _, n := range list {
		if n.ReadAt == nil {
			unread++
		}
	}

	limit := len(list)
	if limit > feedLimit {
		limit = feedLimit
	}
	out := make([]model.Notification, limit)
	copy(out, list[:limit])

	return model.FeedSnapshot{
		UnreadNotificationCount: unread,
		Notifications:           out,
	}
}

// page returns one page of the full listing.
func (s *State) page(userID string, page int, filter model.NotificationFilter) model.NotificationPage {
	s.mu.Lock()
	defer s.mu.Unlock()

	var filtered []model.Notification
	unread := 0
	for _, n := range s.notifs[userID] {
		if n.ReadAt == nil {
			unread++
		}
		if filter == model.FilterUnread && n.ReadAt != nil {
			continue
		}
		filtered = append(filtered, n)
	}

	total := len(filtered)
	lastPage := (total + pageSize - 1) / pageSize
	if lastPage < 1 {
		lastPage = 1
	}
	if page < 1 {
		page = 1
	}
	if page > lastPage {
		page = lastPage
	}

	start := (page - 1) * pageSize
	end := start + pageSize
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	return model.NotificationPage{
		Notifications: filtered[start:end],
		Page:          page,
		LastPage:      lastPage,
		Total:         total,
		UnreadCount:   unread,
	}
}

// markRead flips one notification. Idempotent.
func (s *State) markRead(userID, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.notifs[userID]
	for i := range list {
		if list[i].ID == id && list[i].ReadAt == nil {
			now := time.Now()
			list[i].ReadAt = &now
		}
	}
}

// markAllRead flips every notification. Idempotent.
func (s *State) markAllRead(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.notifs[userID]
	now := time.Now()
	for i := range list {
		if list[i].ReadAt == nil {
			list[i].ReadAt = &now
		}
	}
}

// send delivers a notification to one user.
func (s *State) send(userID string, data model.NotificationData) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addNotification(userID, data)
}

// broadcast delivers a notification to every user.
func (s *State) broadcast(data model.NotificationData) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		s.addNotification(a.user.ID, data)
	}
}

// users returns every account.
func (s *State) users() []model.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.User, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, a.user)
	}
	return out
}

// userByID resolves an account id.
func (s *State) userByID(id string) (model.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.accounts {
		if a.user.ID == id {
			return a.user, true
		}
	}
	return model.User{}, false
}

// startDevice creates a new device grant.
func (s *State) startDevice() (deviceCode, userCode string, expiresIn, interval int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deviceCode = randomToken()
	userCode = fmt.Sprintf("%s-%s", randomCode(4), randomCode(4))
	s.devices[deviceCode] = &deviceGrant{
		userCode:  userCode,
		expiresAt: time.Now().Add(deviceCodeTTL),
	}
	return deviceCode, userCode, int(deviceCodeTTL.Seconds()), 5
}

// pollDevice reports one poll outcome: a granted token, or an OAuth
// device-flow error string.
func (s *State) pollDevice(deviceCode string) (token string, oauthErr string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.devices[deviceCode]
	if !ok {
		return "", "expired_token"
	}
	if time.Now().After(g.expiresAt) {
		delete(s.devices, deviceCode)
		return "", "expired_token"
	}
	if g.denied {
		delete(s.devices, deviceCode)
		return "", "access_denied"
	}
	if g.approvedBy == "" {
		return "", "authorization_pending"
	}

	token = randomToken()
	s.sessions[token] = g.approvedBy
	delete(s.devices, deviceCode)
	return token, ""
}

// resolveUserCode approves or denies the grant matching a user code, as
// the browser-side approval page would.
func (s *State) resolveUserCode(userCode, userID string, approve bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, g := range s.devices {
		if g.userCode != userCode {
			continue
		}
		if approve {
			g.approvedBy = userID
		} else {
			g.denied = true
		}
		return true
	}
	return false
}

func randomToken() string {
	b := make([]byte, 20)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// randomCode returns n characters from a confusion-resistant alphabet.
func randomCode(n int) string {
	const alphabet = "BCDFGHJKLMNPQRSTVWXZ"
	b := make([]byte, n)
	_, _ = rand.Read(b)
	for i := range b {
		b[i] = alphabet[int(b[i])%len(alphabet)]
	}
	return string(b)
}
