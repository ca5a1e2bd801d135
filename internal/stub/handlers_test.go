package stub

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/ndinh/deckhand/internal/api"
	"github.com/ndinh/deckhand/internal/model"
)

// newTestBackend serves the stub over httptest and returns a client
// factory bound to it.
func newTestBackend(t *testing.T) (*httptest.Server, func(token string) *api.Client) {
	t.Helper()

	s := New("", "http://stub.test", zap.NewNop())
	ts := httptest.NewServer(s.Router())
	t.Cleanup(ts.Close)

	return ts, func(token string) *api.Client {
		return api.NewClient(ts.URL, token)
	}
}

// approveDevice plays the browser approval page against /device/resolve.
func approveDevice(t *testing.T, baseURL, token, userCode string, approve bool) {
	t.Helper()

	body, _ := json.Marshal(map[string]interface{}{
		"user_code": userCode,
		"approve":   approve,
	})
	req, err := http.NewRequest(http.MethodPost, baseURL+"/device/resolve", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("building resolve request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("resolving device code: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("resolve status = %d, want 204", resp.StatusCode)
	}
}

func TestFeedSeededForUser(t *testing.T) {
	_, client := newTestBackend(t)

	snap, err := client("user-token").RefreshFeed(context.Background())
	if err != nil {
		t.Fatalf("RefreshFeed: %v", err)
	}
	if snap.UnreadNotificationCount != 2 {
		t.Fatalf("unread = %d, want 2", snap.UnreadNotificationCount)
	}
	if len(snap.Notifications) != 2 {
		t.Fatalf("len = %d, want 2", len(snap.Notifications))
	}
	if !snap.Notifications[0].Unread() {
		t.Fatal("seeded notifications should start unread")
	}
}

func TestUnauthenticatedRequestsRejected(t *testing.T) {
	_, client := newTestBackend(t)

	_, err := client("bogus").RefreshFeed(context.Background())
	if !api.IsAuthError(err) {
		t.Fatalf("err = %v, want auth error", err)
	}
}

func TestMarkReadReducesUnread(t *testing.T) {
	_, client := newTestBackend(t)
	c := client("user-token")
	ctx := context.Background()

	snap, err := c.RefreshFeed(ctx)
	if err != nil {
		t.Fatalf("RefreshFeed: %v", err)
	}

	if err := c.MarkNotificationRead(ctx, snap.Notifications[0].ID); err != nil {
		t.Fatalf("MarkNotificationRead: %v", err)
	}

	after, err := c.RefreshFeed(ctx)
	if err != nil {
		t.Fatalf("RefreshFeed: %v", err)
	}
	if after.UnreadNotificationCount != snap.UnreadNotificationCount-1 {
		t.Fatalf("unread = %d, want %d",
			after.UnreadNotificationCount, snap.UnreadNotificationCount-1)
	}

	// Repeating the mark changes nothing.
	if err := c.MarkNotificationRead(ctx, snap.Notifications[0].ID); err != nil {
		t.Fatalf("repeat MarkNotificationRead: %v", err)
	}
	again, err := c.RefreshFeed(ctx)
	if err != nil {
		t.Fatalf("RefreshFeed: %v", err)
	}
	if again.UnreadNotificationCount != after.UnreadNotificationCount {
		t.Fatal("repeated mark must be a no-op")
	}
}

func TestMarkAllRead(t *testing.T) {
	_, client := newTestBackend(t)
	c := client("user-token")
	ctx := context.Background()

	if err := c.MarkAllNotificationsRead(ctx); err != nil {
		t.Fatalf("MarkAllNotificationsRead: %v", err)
	}

	snap, err := c.RefreshFeed(ctx)
	if err != nil {
		t.Fatalf("RefreshFeed: %v", err)
	}
	if snap.UnreadNotificationCount != 0 {
		t.Fatalf("unread = %d, want 0", snap.UnreadNotificationCount)
	}
}

func TestListingFilterAndPagination(t *testing.T) {
	_, client := newTestBackend(t)
	c := client("user-token")
	ctx := context.Background()

	page, err := c.ListNotifications(ctx, 1, model.FilterAll)
	if err != nil {
		t.Fatalf("ListNotifications: %v", err)
	}
	if page.Total != 2 || page.LastPage != 1 {
		t.Fatalf("total = %d lastPage = %d, want 2 and 1", page.Total, page.LastPage)
	}

	if err := c.MarkNotificationRead(ctx, page.Notifications[0].ID); err != nil {
		t.Fatalf("MarkNotificationRead: %v", err)
	}

	unreadOnly, err := c.ListNotifications(ctx, 1, model.FilterUnread)
	if err != nil {
		t.Fatalf("ListNotifications unread: %v", err)
	}
	if unreadOnly.Total != 1 {
		t.Fatalf("unread total = %d, want 1", unreadOnly.Total)
	}
}

func TestSendRequiresAdmin(t *testing.T) {
	_, client := newTestBackend(t)

	err := client("user-token").SendNotification(context.Background(),
		api.SendNotificationRequest{UserID: "u-1", Title: "t", Message: "m"})
	if err == nil {
		t.Fatal("plain users must not send notifications")
	}
}

func TestSendDeliversToRecipient(t *testing.T) {
	_, client := newTestBackend(t)
	ctx := context.Background()

	err := client("admin-token").SendNotification(ctx, api.SendNotificationRequest{
		UserID:  "u-1",
		Title:   "Deploy finished",
		Message: "v2 is live",
		Type:    "success",
	})
	if err != nil {
		t.Fatalf("SendNotification: %v", err)
	}

	snap, err := client("user-token").RefreshFeed(ctx)
	if err != nil {
		t.Fatalf("RefreshFeed: %v", err)
	}
	if snap.Notifications[0].Data.Title != "Deploy finished" {
		t.Fatalf("newest = %q, want the sent notification", snap.Notifications[0].Data.Title)
	}
}

func TestSendValidatesFields(t *testing.T) {
	_, client := newTestBackend(t)

	err := client("admin-token").SendNotification(context.Background(),
		api.SendNotificationRequest{UserID: "u-1", Message: "no title"})

	vErr, ok := api.IsValidationError(err)
	if !ok {
		t.Fatalf("err = %v, want validation error", err)
	}
	if vErr.FieldError("title") == "" {
		t.Fatal("expected a title field error")
	}
}

func TestBroadcastRequiresSuperadmin(t *testing.T) {
	_, client := newTestBackend(t)
	ctx := context.Background()

	err := client("admin-token").BroadcastNotification(ctx,
		api.SendNotificationRequest{Title: "t", Message: "m"})
	if err == nil {
		t.Fatal("admins must not broadcast")
	}

	err = client("super-token").BroadcastNotification(ctx,
		api.SendNotificationRequest{Title: "Maintenance", Message: "tonight"})
	if err != nil {
		t.Fatalf("BroadcastNotification: %v", err)
	}

	for _, token := range []string{"user-token", "admin-token", "super-token"} {
		snap, err := client(token).RefreshFeed(ctx)
		if err != nil {
			t.Fatalf("RefreshFeed(%s): %v", token, err)
		}
		if snap.Notifications[0].Data.Title != "Maintenance" {
			t.Fatalf("broadcast missing for %s", token)
		}
	}
}

func TestUsersListingRequiresAdmin(t *testing.T) {
	_, client := newTestBackend(t)
	ctx := context.Background()

	if _, err := client("user-token").ListUsers(ctx); err == nil {
		t.Fatal("plain users must not list accounts")
	}

	users, err := client("admin-token").ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(users) != 3 {
		t.Fatalf("len = %d, want 3", len(users))
	}
}

func TestLogoutInvalidatesToken(t *testing.T) {
	_, client := newTestBackend(t)
	c := client("user-token")
	ctx := context.Background()

	if err := c.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := c.RefreshFeed(ctx); !api.IsAuthError(err) {
		t.Fatalf("err = %v, want auth error after logout", err)
	}
}

func TestDeviceFlowGrantsWorkingToken(t *testing.T) {
	ts, client := newTestBackend(t)
	anon := client("")
	ctx := context.Background()

	auth, err := anon.StartDeviceAuthorization(ctx)
	if err != nil {
		t.Fatalf("StartDeviceAuthorization: %v", err)
	}
	if auth.UserCode == "" || auth.DeviceCode == "" {
		t.Fatal("device authorization must carry both codes")
	}

	if _, err := anon.PollDeviceToken(ctx, auth.DeviceCode); !errors.Is(err, api.ErrAuthorizationPending) {
		t.Fatalf("err = %v, want pending before approval", err)
	}

	approveDevice(t, ts.URL, "admin-token", auth.UserCode, true)

	token, err := anon.PollDeviceToken(ctx, auth.DeviceCode)
	if err != nil {
		t.Fatalf("PollDeviceToken after approval: %v", err)
	}

	user, err := client(token).Me(ctx)
	if err != nil {
		t.Fatalf("Me with granted token: %v", err)
	}
	if user.ID != "u-2" {
		t.Fatalf("granted session user = %s, want the approver u-2", user.ID)
	}
}

func TestDeviceFlowDenied(t *testing.T) {
	ts, client := newTestBackend(t)
	anon := client("")
	ctx := context.Background()

	auth, err := anon.StartDeviceAuthorization(ctx)
	if err != nil {
		t.Fatalf("StartDeviceAuthorization: %v", err)
	}

	approveDevice(t, ts.URL, "admin-token", auth.UserCode, false)

	if _, err := anon.PollDeviceToken(ctx, auth.DeviceCode); !errors.Is(err, api.ErrAccessDenied) {
		t.Fatalf("err = %v, want access denied", err)
	}
}

func TestDeviceFlowUnknownCodeExpired(t *testing.T) {
	_, client := newTestBackend(t)

	_, err := client("").PollDeviceToken(context.Background(), "nope")
	if !errors.Is(err, api.ErrDeviceCodeExpired) {
		t.Fatalf("err = %v, want expired", err)
	}
}
