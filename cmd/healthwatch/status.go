package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hazz-dev/healthwatch/internal/state"
)

// httpDoer is the subset of *http.Client used by the status command.
type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type servicesResponse struct {
	Data  []state.ServiceStatus `json:"data"`
	Error string                `json:"error"`
}

func executeStatus(cmd *cobra.Command, client httpDoer, addr string) error {
	out := cmd.OutOrStdout()
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	url := strings.TrimRight(addr, "/") + "/api/services"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("querying %s: %w", url, err)
	}
	defer resp.Body.Close()

	var body servicesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("decoding response from %s: %w", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("querying %s: status %d: %s", url, resp.StatusCode, body.Error)
	}

	if len(body.Data) == 0 {
		fmt.Fprintln(out, "No services reported. Is 'healthwatch serve' running with services configured?")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SERVICE\tSTATUS\tUPTIME\tRESPONSE\tLAST CHECKED\tMESSAGE")
	for _, svc := range body.Data {
		resp := "—"
		if svc.ResponseTimeMs != nil {
			resp = fmt.Sprintf("%dms", *svc.ResponseTimeMs)
		}
		last := "never"
		if !svc.LastCheckTime.IsZero() {
			last = svc.LastCheckTime.Local().Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(w, "%s\t%s\t%.2f%%\t%s\t%s\t%s\n",
			svc.Name,
			colorStatus(svc.Status),
			svc.UptimePercentage,
			resp,
			last,
			svc.Message,
		)
	}
	w.Flush()
	return nil
}
