package netaddr_test

import (
	"testing"

	"github.com/hazz-dev/healthwatch/internal/netaddr"
)

func TestNormalizeHostPort(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		defaultPort uint16
		wantHost    string
		wantPort    uint16
	}{
		{"url with port and path", "https://example.com:8443/path", 443, "example.com", 8443},
		{"bare host", "example.com", 80, "example.com", 80},
		{"bracketed ipv6 with port", "[::1]:9090", 443, "::1", 9090},
		{"bracketed ipv6 no port", "[2001:db8::1]", 443, "2001:db8::1", 443},
		{"bracketed ipv6 in url", "https://[::1]:8443/health", 443, "::1", 8443},
		{"bracketed ipv6 bad port", "[::1]:http", 443, "::1", 443},
		{"scheme only", "http://example.com", 80, "example.com", 80},
		{"host and port", "db.internal:5432", 80, "db.internal", 5432},
		{"non numeric suffix", "example.com:abc", 80, "example.com:abc", 80},
		{"port out of range", "example.com:70000", 80, "example.com:70000", 80},
		{"path without scheme", "example.com/status", 443, "example.com", 443},
		{"unclosed bracket", "[::1", 443, "[:", 1},
		{"empty", "", 80, "", 80},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			host, port := netaddr.NormalizeHostPort(tc.raw, tc.defaultPort)
			if host != tc.wantHost || port != tc.wantPort {
				t.Errorf("NormalizeHostPort(%q, %d) = (%q, %d), want (%q, %d)",
					tc.raw, tc.defaultPort, host, port, tc.wantHost, tc.wantPort)
			}
		})
	}
}

func TestNormalizeHost(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"https://example.com:8443/path", "example.com"},
		{"example.com", "example.com"},
		{"[::1]:9090", "::1"},
		{"https://[2001:db8::1]/", "2001:db8::1"},
		{"tcp://db.internal:5432", "db.internal"},
		{"example.com:notaport", "example.com:notaport"},
	}

	for _, tc := range tests {
		if got := netaddr.NormalizeHost(tc.raw); got != tc.want {
			t.Errorf("NormalizeHost(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestNormalizersAgree(t *testing.T) {
	inputs := []string{
		"https://example.com:8443/path",
		"example.com",
		"[::1]:9090",
		"db.internal:5432",
		"http://10.0.0.1/",
	}
	for _, in := range inputs {
		host, _ := netaddr.NormalizeHostPort(in, 1)
		if got := netaddr.NormalizeHost(in); got != host {
			t.Errorf("NormalizeHost(%q) = %q, NormalizeHostPort host = %q", in, got, host)
		}
	}
}
