// Package api is the HTTP client for the deckhand backend. It speaks the
// same role-annotated contract the web frontend consumes: session
// lifecycle, the notification feed, and the admin send/broadcast surface.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ndinh/deckhand/internal/model"
)

// Client is a thin JSON HTTP client with bearer-token authentication and
// automatic retry with exponential backoff on HTTP 429.
type Client struct {
	baseURL    string
	httpClient *http.Client
	maxRetries int

	// mu guards token: the UI loop swaps it after re-authentication
	// while request goroutines read it.
	mu    sync.RWMutex
	token string
}

// NewClient creates a client for the backend at baseURL. The token is the
// session bearer token granted by the device-authorization flow; it may be
// empty until login completes.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		maxRetries: 3,
	}
}

// SetToken replaces the bearer token, e.g. after the device flow grants
// a new session. Safe to call while requests are in flight; they keep
// the token they started with.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// bearer returns the current token.
func (c *Client) bearer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// BaseURL returns the backend root URL the client was configured with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Me returns the authenticated user with their roles.
func (c *Client) Me(ctx context.Context) (*model.User, error) {
	var user model.User
	if err := c.get(ctx, "/me", &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Logout terminates the session server-side.
func (c *Client) Logout(ctx context.Context) error {
	return c.post(ctx, "/logout", nil, nil)
}

// RefreshFeed fetches the authoritative notification list and unread
// count. Used for both the periodic and the on-open refresh.
func (c *Client) RefreshFeed(ctx context.Context) (*model.FeedSnapshot, error) {
	var snap model.FeedSnapshot
	if err := c.get(ctx, "/notifications/feed", &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// MarkNotificationRead marks a single notification read. Idempotent.
func (c *Client) MarkNotificationRead(ctx context.Context, id string) error {
	return c.post(ctx, "/notifications/read/"+url.PathEscape(id), nil, nil)
}

// MarkAllNotificationsRead marks every notification read. Idempotent.
func (c *Client) MarkAllNotificationsRead(ctx context.Context) error {
	return c.post(ctx, "/notifications/read-all", nil, nil)
}

// ListNotifications fetches one page of the full notification listing.
// The filter and page travel in the query string, mirroring the web UI.
func (c *Client) ListNotifications(
	ctx context.Context,
	page int,
	filter model.NotificationFilter,
) (*model.NotificationPage, error) {
	if page < 1 {
		page = 1
	}
	if filter == "" {
		filter = model.FilterAll
	}

	path := fmt.Sprintf(
		"/notifications?page=%d&filter=%s",
		page, url.QueryEscape(string(filter)),
	)

	var result model.NotificationPage
	if err := c.get(ctx, path, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SendNotificationRequest is the payload for send and broadcast.
type SendNotificationRequest struct {
	// UserID is the recipient. Ignored for broadcast.
	UserID string `json:"user_id,omitempty"`

	Title      string `json:"title"`
	Message    string `json:"message"`
	Type       string `json:"type,omitempty"`
	ActionURL  string `json:"action_url,omitempty"`
	ActionText string `json:"action_text,omitempty"`
}

// SendNotification sends a notification to a single user (admin only).
// A client-generated idempotency key guards against double submission.
func (c *Client) SendNotification(ctx context.Context, req SendNotificationRequest) error {
	return c.do(ctx, http.MethodPost, "/notifications/send", req, nil, idempotencyKey())
}

// BroadcastNotification sends a notification to every user (superadmin
// only).
func (c *Client) BroadcastNotification(ctx context.Context, req SendNotificationRequest) error {
	return c.do(ctx, http.MethodPost, "/notifications/broadcast", req, nil, idempotencyKey())
}

// ListUsers returns every account, for the send form's recipient picker
// (admin only).
func (c *Client) ListUsers(ctx context.Context) ([]model.User, error) {
	var result struct {
		Users []model.User `json:"users"`
	}
	if err := c.get(ctx, "/users", &result); err != nil {
		return nil, err
	}
	return result.Users, nil
}

func (c *Client) get(ctx context.Context, path string, result interface{}) error {
	return c.do(ctx, http.MethodGet, path, nil, result, "")
}

func (c *Client) post(ctx context.Context, path string, body, result interface{}) error {
	return c.do(ctx, http.MethodPost, path, body, result, "")
}

// errorResponse is the backend's JSON error envelope.
type errorResponse struct {
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors"`
}

// do is the core HTTP method: it builds the request, attaches auth,
// retries on 429 with backoff, and maps error statuses onto the typed
// errors in this package.
func (c *Client) do(
	ctx context.Context,
	method string,
	path string,
	body interface{},
	result interface{},
	idemKey string,
) error {
	requestURL := c.baseURL + path

	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		payload = data
	}

	token := c.bearer()

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		var bodyReader io.Reader
		if payload != nil {
			bodyReader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, requestURL, bodyReader)
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}

		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if idemKey != "" {
			req.Header.Set("Idempotency-Key", idemKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("executing request %s %s: %w", method, path, err)
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return fmt.Errorf("reading response body: %w", readErr)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			waitDuration := retryAfterDuration(resp, attempt)
			lastErr = fmt.Errorf("rate limited (429) on %s %s", method, path)

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(waitDuration):
				continue
			}
		}

		if resp.StatusCode == http.StatusUnauthorized ||
			resp.StatusCode == 419 {
			var errResp errorResponse
			_ = json.Unmarshal(respBody, &errResp)
			msg := errResp.Message
			if msg == "" {
				msg = "authentication required"
			}
			return &AuthError{Status: resp.StatusCode, Message: msg}
		}

		if resp.StatusCode == http.StatusUnprocessableEntity {
			var errResp errorResponse
			if json.Unmarshal(respBody, &errResp) == nil {
				return &ValidationError{
					Message: errResp.Message,
					Fields:  errResp.Errors,
				}
			}
			return &ValidationError{Message: string(respBody)}
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			var errResp errorResponse
			if json.Unmarshal(respBody, &errResp) == nil && errResp.Message != "" {
				return fmt.Errorf(
					"api error (%d) on %s %s: %s",
					resp.StatusCode, method, path, errResp.Message,
				)
			}
			return fmt.Errorf(
				"unexpected status %d on %s %s: %s",
				resp.StatusCode, method, path, string(respBody),
			)
		}

		if result == nil || resp.StatusCode == http.StatusNoContent {
			return nil
		}

		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf(
				"unmarshaling response from %s %s: %w", method, path, err,
			)
		}

		return nil
	}

	return fmt.Errorf("max retries (%d) exceeded: %w", c.maxRetries, lastErr)
}

// idempotencyKey generates a per-request key for the send endpoints.
func idempotencyKey() string {
	return uuid.NewString()
}

// retryAfterDuration reads the Retry-After header and computes a wait
// duration. Falls back to exponential backoff if the header is missing.
func retryAfterDuration(resp *http.Response, attempt int) time.Duration {
	if header := resp.Header.Get("Retry-After"); header != "" {
		if seconds, err := strconv.Atoi(header); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}

	backoff := time.Duration(1<<uint(attempt)) * time.Second
	if backoff > 30*time.Second {
		backoff = 30 * time.Second
	}
	return backoff
}
