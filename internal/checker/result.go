package checker

import (
	"context"
	"errors"
	"net"
	"time"
)

// Failure classes. A ProbeResult's Err wraps one of these; none of them is
// ever returned to the caller as an error.
var (
	ErrConnect    = errors.New("connect failed")
	ErrTimeout    = errors.New("timed out")
	ErrResolution = errors.New("resolution failed")
	ErrHandshake  = errors.New("tls handshake failed")
	ErrTransport  = errors.New("http transport failure")
)

// ProbeResult is the outcome of a single probe.
type ProbeResult struct {
	Success bool
	Elapsed time.Duration
	Message string
	Err     error
}

// ElapsedMs is the elapsed time in whole milliseconds.
func (r ProbeResult) ElapsedMs() uint64 {
	if r.Elapsed < 0 {
		return 0
	}
	return uint64(r.Elapsed.Milliseconds())
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
