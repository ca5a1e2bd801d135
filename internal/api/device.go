package api

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Device-authorization grant for CLI login: the client requests a device
// code, shows the user code and verification URL, and polls the token
// endpoint until the user approves the device in their browser.

// DeviceAuthorization is the server's response to a device-code request.
type DeviceAuthorization struct {
	DeviceCode      string `json:"device_code"`
	UserCode        string `json:"user_code"`
	VerificationURI string `json:"verification_uri"`
	ExpiresIn       int    `json:"expires_in"`
	Interval        int    `json:"interval"`
}

// PollInterval returns how long to wait between token polls, defaulting
// to five seconds when the server does not say.
func (d DeviceAuthorization) PollInterval() time.Duration {
	if d.Interval <= 0 {
		return 5 * time.Second
	}
	return time.Duration(d.Interval) * time.Second
}

// ExpiresAfter returns the lifetime of the device code.
func (d DeviceAuthorization) ExpiresAfter() time.Duration {
	if d.ExpiresIn <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(d.ExpiresIn) * time.Second
}

// Poll outcomes. Pending means keep polling; the others are terminal and
// require the visible retry affordance rather than silent retry.
var (
	ErrAuthorizationPending = errors.New("authorization pending")
	ErrDeviceCodeExpired    = errors.New("device code expired")
	ErrAccessDenied         = errors.New("access denied")
)

// deviceTokenResponse is the token endpoint's JSON body.
type deviceTokenResponse struct {
	AccessToken string `json:"access_token"`
	Error       string `json:"error"`
}

// StartDeviceAuthorization requests a new device code for this client.
func (c *Client) StartDeviceAuthorization(ctx context.Context) (*DeviceAuthorization, error) {
	var auth DeviceAuthorization
	if err := c.post(ctx, "/device/code", nil, &auth); err != nil {
		return nil, fmt.Errorf("requesting device code: %w", err)
	}
	return &auth, nil
}

// PollDeviceToken asks the token endpoint once whether the device has
// been approved. It returns the granted bearer token, or one of
// ErrAuthorizationPending, ErrDeviceCodeExpired, ErrAccessDenied.
func (c *Client) PollDeviceToken(ctx context.Context, deviceCode string) (string, error) {
	body := map[string]string{"device_code": deviceCode}

	var resp deviceTokenResponse
	if err := c.post(ctx, "/device/token", body, &resp); err != nil {
		return "", err
	}

	switch resp.Error {
	case "":
		if resp.AccessToken == "" {
			return "", fmt.Errorf("token endpoint returned neither token nor error")
		}
		return resp.AccessToken, nil
	case "authorization_pending", "slow_down":
		return "", ErrAuthorizationPending
	case "expired_token":
		return "", ErrDeviceCodeExpired
	case "access_denied":
		return "", ErrAccessDenied
	default:
		return "", fmt.Errorf("token endpoint error: %s", resp.Error)
	}
}
