// Package netaddr extracts host and port from the URL-like targets found in
// service configuration. It is string surgery only and never fails.
package netaddr

import (
	"strconv"
	"strings"
)

// stripSchemeAndPath drops a leading "scheme://" and anything from the first
// "/" onward.
func stripSchemeAndPath(raw string) string {
	s := raw
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
	}
	if i := strings.IndexByte(s, '/'); i >= 0 {
		s = s[:i]
	}
	return s
}

func parsePort(s string) (uint16, bool) {
	p, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, false
	}
	return uint16(p), true
}

// NormalizeHostPort returns the host and port named by raw. Bracketed IPv6
// literals ("[::1]:9090") are unwrapped. When no numeric port is present,
// defaultPort is used.
func NormalizeHostPort(raw string, defaultPort uint16) (string, uint16) {
	s := stripSchemeAndPath(raw)

	if strings.HasPrefix(s, "[") {
		if end := strings.IndexByte(s, ']'); end >= 0 {
			host := s[1:end]
			if rest, ok := strings.CutPrefix(s[end+1:], ":"); ok {
				if p, ok := parsePort(rest); ok {
					return host, p
				}
			}
			return host, defaultPort
		}
	}

	if i := strings.LastIndexByte(s, ':'); i >= 0 {
		if p, ok := parsePort(s[i+1:]); ok {
			return s[:i], p
		}
	}

	return s, defaultPort
}

// NormalizeHost returns the bare host named by raw, without scheme, path,
// port or IPv6 brackets.
func NormalizeHost(raw string) string {
	s := stripSchemeAndPath(raw)

	if strings.HasPrefix(s, "[") {
		if end := strings.IndexByte(s, ']'); end >= 0 {
			return s[1:end]
		}
	}

	if i := strings.LastIndexByte(s, ':'); i >= 0 {
		if _, ok := parsePort(s[i+1:]); ok {
			return s[:i]
		}
	}

	return s
}
