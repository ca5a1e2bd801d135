// Package navigate classifies notification action URLs and palette hrefs
// against the backend origin. Same-origin targets stay in-app; foreign
// origins are handed to the system browser in a detached process so the
// TUI never inherits or leaks its environment to the page.
package navigate

import (
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
	"strings"
)

// Kind says how a target URL should be followed.
type Kind int

const (
	// KindInternal is an in-app navigation to a path on the backend origin.
	KindInternal Kind = iota
	// KindExternal opens the system browser.
	KindExternal
)

// Target is a classified navigation destination.
type Target struct {
	Kind Kind

	// Path is the in-app route for KindInternal.
	Path string

	// URL is the absolute address for KindExternal.
	URL string
}

// Classify resolves raw against the backend origin and decides whether it
// is an in-app route or an external address. Relative URLs are always
// internal; absolute URLs are internal only when scheme, host, and port
// all match the origin.
func Classify(raw, origin string) (Target, error) {
	if strings.TrimSpace(raw) == "" {
		return Target{}, fmt.Errorf("empty navigation target")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return Target{}, fmt.Errorf("parsing target %q: %w", raw, err)
	}

	if !u.IsAbs() {
		path := u.Path
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		if u.RawQuery != "" {
			path += "?" + u.RawQuery
		}
		return Target{Kind: KindInternal, Path: path}, nil
	}

	base, err := url.Parse(origin)
	if err != nil {
		return Target{}, fmt.Errorf("parsing origin %q: %w", origin, err)
	}

	if sameOrigin(u, base) {
		path := u.Path
		if path == "" {
			path = "/"
		}
		if u.RawQuery != "" {
			path += "?" + u.RawQuery
		}
		return Target{Kind: KindInternal, Path: path}, nil
	}

	return Target{Kind: KindExternal, URL: u.String()}, nil
}

// sameOrigin compares scheme, hostname, and effective port.
func sameOrigin(a, b *url.URL) bool {
	if !strings.EqualFold(a.Scheme, b.Scheme) {
		return false
	}
	if !strings.EqualFold(a.Hostname(), b.Hostname()) {
		return false
	}
	return effectivePort(a) == effectivePort(b)
}

// effectivePort returns the explicit port or the scheme default.
func effectivePort(u *url.URL) string {
	if port := u.Port(); port != "" {
		return port
	}
	switch strings.ToLower(u.Scheme) {
	case "http":
		return "80"
	case "https":
		return "443"
	}
	return ""
}

// OpenExternal launches the system browser on the given URL as a
// detached process. Errors are returned rather than surfaced as UI
// failures; callers treat them as best effort.
func OpenExternal(rawURL string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", rawURL)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", rawURL)
	default:
		cmd = exec.Command("xdg-open", rawURL)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("opening %s in browser: %w", rawURL, err)
	}
	// Detach: reap the child in the background so it never blocks the UI.
	go func() { _ = cmd.Wait() }()
	return nil
}
