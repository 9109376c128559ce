// Package endpoint validates broker URLs and decides how they are dialed.
package endpoint

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

// Result is the outcome of Validate. Error is a human-readable reason and is
// empty when Valid is true.
type Result struct {
	Valid bool
	Error string
}

// Mode selects the transport used for a URL.
type Mode int

const (
	// Direct dials a raw WebSocket (ws, wss).
	Direct Mode = iota
	// Fallback negotiates over HTTP first (http, https).
	Fallback
)

func (m Mode) String() string {
	if m == Fallback {
		return "fallback"
	}
	return "direct"
}

var schemes = map[string]bool{"http": true, "https": true, "ws": true, "wss": true}

func invalid(reason string) Result { return Result{Error: reason} }

// Validate accepts http, https, ws and wss URLs with a host and a non-empty
// path. It has no side effects.
func Validate(raw string) Result {
	s := strings.TrimSpace(raw)
	if s == "" {
		return invalid("URL is required")
	}

	i := strings.Index(s, "://")
	if i <= 0 {
		return invalid("missing scheme")
	}
	scheme := strings.ToLower(s[:i])
	if !schemes[scheme] {
		return invalid(fmt.Sprintf("unsupported scheme %q (use http, https, ws or wss)", scheme))
	}

	u, err := url.Parse(s)
	if err != nil {
		if strings.Contains(err.Error(), "port") {
			return invalid("malformed port")
		}
		return invalid("malformed host")
	}
	if u.Opaque != "" || u.Host == "" {
		return invalid("malformed host")
	}
	if !validHost(u.Hostname()) {
		return invalid("malformed host")
	}
	if strings.HasSuffix(u.Host, ":") {
		return invalid("malformed port")
	}
	if p := u.Port(); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil || n < 1 || n > 65535 {
			return invalid("malformed port")
		}
	}
	if u.Path == "" || u.Path == "/" {
		return invalid("missing path")
	}
	return Result{Valid: true}
}

func validHost(host string) bool {
	if host == "" {
		return false
	}
	if net.ParseIP(host) != nil {
		return true
	}
	if len(host) > 253 {
		return false
	}
	for _, label := range strings.Split(host, ".") {
		if label == "" || len(label) > 63 {
			return false
		}
		if label[0] == '-' || label[len(label)-1] == '-' {
			return false
		}
		for _, r := range label {
			switch {
			case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			default:
				return false
			}
		}
	}
	return true
}

// ModeOf reports whether raw is dialed directly or through the HTTP fallback.
// Callers are expected to have validated raw first.
func ModeOf(raw string) Mode {
	s := strings.ToLower(strings.TrimSpace(raw))
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		return Fallback
	}
	return Direct
}

// WebSocketURL rewrites http to ws and https to wss. ws and wss URLs are
// returned unchanged.
func WebSocketURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	return u.String(), nil
}
