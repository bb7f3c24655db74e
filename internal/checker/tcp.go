package checker

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/hazz-dev/healthwatch/internal/config"
	"github.com/hazz-dev/healthwatch/internal/netaddr"
)

type tcpChecker struct {
	svc     config.Service
	timeout time.Duration
}

func newTCPChecker(svc config.Service, chk config.Check) *tcpChecker {
	return &tcpChecker{svc: svc, timeout: chk.Timeout()}
}

func (c *tcpChecker) Check(ctx context.Context) ProbeResult {
	start := time.Now()

	host, port := netaddr.NormalizeHostPort(c.svc.URL, 80)
	addr := net.JoinHostPort(host, strconv.Itoa(int(port)))

	dialer := &net.Dialer{Timeout: c.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	elapsed := time.Since(start)
	if err != nil {
		if isTimeout(err) {
			return ProbeResult{
				Elapsed: elapsed,
				Message: fmt.Sprintf("Timed out connecting to %s", addr),
				Err:     fmt.Errorf("%w: %w", ErrTimeout, err),
			}
		}
		return ProbeResult{
			Elapsed: elapsed,
			Message: fmt.Sprintf("Error: %v", err),
			Err:     fmt.Errorf("%w: %w", ErrConnect, err),
		}
	}
	conn.Close()

	return ProbeResult{
		Success: true,
		Elapsed: elapsed,
		Message: "Connected to " + addr,
	}
}
