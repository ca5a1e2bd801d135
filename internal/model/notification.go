package model

import "time"

// NotificationData is the display payload of a notification.
type NotificationData struct {
	// Title is the short headline.
	Title string `json:"title" db:"title"`

	// Message is the full notification text.
	Message string `json:"message" db:"message"`

	// Type is an optional severity/kind label (e.g. "info", "warning").
	Type string `json:"type,omitempty" db:"type"`

	// ActionURL is an optional link followed when the notification is
	// selected. Same-origin URLs navigate in-app; foreign origins open
	// externally.
	ActionURL string `json:"action_url,omitempty" db:"action_url"`

	// ActionText is the optional label for the action link.
	ActionText string `json:"action_text,omitempty" db:"action_text"`
}

// Notification is a single entry in the user's notification feed.
// The server owns creation and list ordering; the client only ever
// flips ReadAt from nil to a timestamp.
type Notification struct {
	// ID is the server-assigned unique identifier.
	ID string `json:"id" db:"id"`

	// Data holds the display payload.
	Data NotificationData `json:"data"`

	// ReadAt is nil while the notification is unread.
	ReadAt *time.Time `json:"read_at" db:"read_at"`

	// CreatedAt is a server-rendered display timestamp, opaque to the
	// client.
	CreatedAt string `json:"created_at" db:"created_at"`
}

// Unread reports whether the notification has not been read yet.
func (n Notification) Unread() bool {
	return n.ReadAt == nil
}

// FeedSnapshot is the payload of a feed refresh: the authoritative
// notification list plus the server's unread count.
type FeedSnapshot struct {
	UnreadNotificationCount int            `json:"unreadNotificationCount"`
	Notifications           []Notification `json:"notifications"`
}

// NotificationPage is one page of the full notification listing.
type NotificationPage struct {
	Notifications []Notification `json:"notifications"`
	Page          int            `json:"page"`
	LastPage      int            `json:"last_page"`
	Total         int            `json:"total"`
	UnreadCount   int            `json:"unread_count"`
}

// NotificationFilter selects which notifications the page listing shows.
type NotificationFilter string

const (
	FilterAll    NotificationFilter = "all"
	FilterUnread NotificationFilter = "unread"
)
