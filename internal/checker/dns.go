package checker

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/hazz-dev/healthwatch/internal/config"
	"github.com/hazz-dev/healthwatch/internal/netaddr"
)

// Resolver abstracts host lookups for testability. *net.Resolver satisfies it.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

type dnsChecker struct {
	svc      config.Service
	timeout  time.Duration
	resolver Resolver
}

func newDNSChecker(svc config.Service, chk config.Check) *dnsChecker {
	return &dnsChecker{svc: svc, timeout: chk.Timeout(), resolver: net.DefaultResolver}
}

// NewDNSCheckerWithResolver creates a DNS checker with a custom resolver (for testing).
func NewDNSCheckerWithResolver(svc config.Service, chk config.Check, r Resolver) Checker {
	return &dnsChecker{svc: svc, timeout: chk.Timeout(), resolver: r}
}

func (c *dnsChecker) Check(ctx context.Context) ProbeResult {
	start := time.Now()

	host := netaddr.NormalizeHost(c.svc.URL)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	addrs, err := c.resolver.LookupHost(ctx, host)
	elapsed := time.Since(start)
	if err != nil {
		class := ErrResolution
		if isTimeout(err) {
			class = ErrTimeout
		}
		return ProbeResult{
			Elapsed: elapsed,
			Message: fmt.Sprintf("Error: %v", err),
			Err:     fmt.Errorf("%w: %w", class, err),
		}
	}
	if len(addrs) == 0 {
		return ProbeResult{
			Elapsed: elapsed,
			Message: fmt.Sprintf("Error: no addresses for %s", host),
			Err:     fmt.Errorf("%w: no addresses for %s", ErrResolution, host),
		}
	}

	return ProbeResult{
		Success: true,
		Elapsed: elapsed,
		Message: "Resolved to: " + strings.Join(addrs, ", "),
	}
}
