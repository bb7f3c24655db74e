package checker

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hazz-dev/healthwatch/internal/config"
)

type httpChecker struct {
	svc    config.Service
	client *http.Client
}

func newHTTPChecker(svc config.Service, chk config.Check) *httpChecker {
	return &httpChecker{
		svc:    svc,
		client: &http.Client{Timeout: chk.Timeout()},
	}
}

func (c *httpChecker) Check(ctx context.Context) ProbeResult {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.svc.URL, nil)
	if err != nil {
		return ProbeResult{
			Elapsed: time.Since(start),
			Message: fmt.Sprintf("Error: creating request: %v", err),
			Err:     fmt.Errorf("%w: %w", ErrTransport, err),
		}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		result := ProbeResult{
			Elapsed: time.Since(start),
			Message: fmt.Sprintf("Error: %v", err),
			Err:     fmt.Errorf("%w: %w", ErrTransport, err),
		}
		if isTimeout(err) {
			result.Err = fmt.Errorf("%w: %w", ErrTimeout, err)
		}
		return result
	}
	io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	resp.Body.Close()

	result := ProbeResult{
		Elapsed: time.Since(start),
		Message: "HTTP " + resp.Status,
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		result.Success = true
		return result
	}
	result.Err = fmt.Errorf("%w: status %d", ErrTransport, resp.StatusCode)
	return result
}
