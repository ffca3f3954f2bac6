package sandbox

import (
	"fmt"
	"net/url"
)

// AllowList restricts which hosts the sandbox's fetch op may reach. It is
// derived from the set of MCP server URLs a code-mode session knows about:
// a script may call back out to any host it already has a registered MCP
// server on, and nothing else.
type AllowList struct {
	hosts map[string]bool // "host:port", port defaulted per scheme
}

// NewAllowList builds an AllowList from a set of MCP server endpoint URLs.
// Malformed URLs are skipped rather than rejected outright, since a stdio
// server config has no URL to contribute at all.
func NewAllowList(serverURLs []string) *AllowList {
	al := &AllowList{hosts: make(map[string]bool)}
	for _, raw := range serverURLs {
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" {
			continue
		}
		al.hosts[hostPort(u)] = true
	}
	return al
}

// Allowed reports whether rawURL's host (with its effective port) is in the
// allow-list.
func (al *AllowList) Allowed(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return false
	}
	return al.hosts[hostPort(u)]
}

// CheckFetch returns an error unless rawURL is allowed, for convenient use
// at the top of a Host.Fetch implementation.
func (al *AllowList) CheckFetch(rawURL string) error {
	if al.Allowed(rawURL) {
		return nil
	}
	return fmt.Errorf("sandbox: fetch to %q is not in the allow-list", rawURL)
}

// hostPort returns "host:port" for u, materialising the scheme's default
// port (443 for https, 80 otherwise) when u.Host omits one.
func hostPort(u *url.URL) string {
	if u.Port() != "" {
		return u.Host
	}
	port := "80"
	if u.Scheme == "https" {
		port = "443"
	}
	return u.Hostname() + ":" + port
}
