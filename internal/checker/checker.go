package checker

import (
	"context"
	"fmt"

	"github.com/hazz-dev/healthwatch/internal/config"
)

// Checker performs a single probe of one service.
type Checker interface {
	Check(ctx context.Context) ProbeResult
}

// New returns the Checker for the given check of svc.
func New(svc config.Service, chk config.Check) (Checker, error) {
	switch chk.Type {
	case config.CheckHTTP:
		return newHTTPChecker(svc, chk), nil
	case config.CheckTCP:
		return newTCPChecker(svc, chk), nil
	case config.CheckDNS:
		return newDNSChecker(svc, chk), nil
	case config.CheckTLS:
		return newTLSChecker(svc, chk), nil
	default:
		return nil, fmt.Errorf("unknown checker type %q", chk.Type)
	}
}
