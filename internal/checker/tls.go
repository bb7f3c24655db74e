package checker

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/hazz-dev/healthwatch/internal/config"
	"github.com/hazz-dev/healthwatch/internal/netaddr"
)

type tlsChecker struct {
	svc     config.Service
	timeout time.Duration
	roots   *x509.CertPool // nil means system roots
}

func newTLSChecker(svc config.Service, chk config.Check) *tlsChecker {
	return &tlsChecker{svc: svc, timeout: chk.Timeout()}
}

// NewTLSCheckerWithRoots creates a TLS checker that trusts roots instead of
// the system pool (for testing).
func NewTLSCheckerWithRoots(svc config.Service, chk config.Check, roots *x509.CertPool) Checker {
	return &tlsChecker{svc: svc, timeout: chk.Timeout(), roots: roots}
}

func (c *tlsChecker) Check(ctx context.Context) ProbeResult {
	start := time.Now()

	host, port := netaddr.NormalizeHostPort(c.svc.URL, 443)
	addr := net.JoinHostPort(host, strconv.Itoa(int(port)))

	// One deadline covers connect and handshake.
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var dialer net.Dialer
	raw, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		if isTimeout(err) {
			return ProbeResult{
				Elapsed: time.Since(start),
				Message: fmt.Sprintf("Connect timed out after %v to %s", c.timeout, addr),
				Err:     fmt.Errorf("%w: %w", ErrTimeout, err),
			}
		}
		return ProbeResult{
			Elapsed: time.Since(start),
			Message: fmt.Sprintf("Connect failed: %v", err),
			Err:     fmt.Errorf("%w: %w", ErrConnect, err),
		}
	}

	conn := tls.Client(raw, &tls.Config{
		ServerName: host,
		RootCAs:    c.roots,
		MinVersion: tls.VersionTLS12,
	})
	defer conn.Close()

	if err := conn.HandshakeContext(ctx); err != nil {
		result := ProbeResult{
			Elapsed: time.Since(start),
			Message: fmt.Sprintf("TLS handshake failed: %v", err),
			Err:     fmt.Errorf("%w: %w", ErrHandshake, err),
		}
		if isTimeout(err) {
			result.Err = fmt.Errorf("%w: %w: %w", ErrHandshake, ErrTimeout, err)
		}
		return result
	}
	elapsed := time.Since(start)

	state := conn.ConnectionState()
	msg := fmt.Sprintf("TLS handshake OK (%s)", tls.VersionName(state.Version))
	if len(state.PeerCertificates) > 0 {
		msg += ", certificate expires " + state.PeerCertificates[0].NotAfter.UTC().Format("2006-01-02")
	}

	return ProbeResult{
		Success: true,
		Elapsed: elapsed,
		Message: msg,
	}
}
