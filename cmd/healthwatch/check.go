package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/sourcegraph/conc/iter"

	"github.com/hazz-dev/healthwatch/internal/checker"
	"github.com/hazz-dev/healthwatch/internal/config"
	"github.com/hazz-dev/healthwatch/internal/state"
)

type probeJob struct {
	svc config.Service
	chk config.Check
}

type probeOutcome struct {
	probeJob
	result checker.ProbeResult
}

func runChecks(ctx context.Context, out io.Writer, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var jobs []probeJob
	for _, svc := range cfg.Services {
		for _, chk := range svc.Checks {
			jobs = append(jobs, probeJob{svc: svc, chk: chk})
		}
	}

	outcomes := iter.Map(jobs, func(j *probeJob) probeOutcome {
		c, err := checker.New(j.svc, j.chk)
		if err != nil {
			return probeOutcome{
				probeJob: *j,
				result: checker.ProbeResult{
					Message: fmt.Sprintf("Error: creating checker: %v", err),
					Err:     err,
				},
			}
		}
		return probeOutcome{probeJob: *j, result: c.Check(ctx)}
	})

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SERVICE\tCHECK\tSTATUS\tRESPONSE\tMESSAGE")
	down := 0
	for _, o := range outcomes {
		status := state.StatusUp
		if !o.result.Success {
			status = state.StatusDown
			down++
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%dms\t%s\n",
			o.svc.Name,
			o.chk.Type,
			colorStatus(status),
			o.result.ElapsedMs(),
			o.result.Message,
		)
	}
	w.Flush()

	fmt.Fprintf(out, "\n%d/%d checks up\n", len(outcomes)-down, len(outcomes))
	if down > 0 {
		return fmt.Errorf("%d check(s) down", down)
	}
	return nil
}

var (
	upColor      = color.New(color.FgGreen, color.Bold)
	downColor    = color.New(color.FgRed, color.Bold)
	unknownColor = color.New(color.FgHiBlack, color.Bold)
)

// colorStatus renders s in a fixed-width color so tabwriter columns still
// line up when escape codes are present.
func colorStatus(s state.HealthStatus) string {
	text := fmt.Sprintf("%-7s", s)
	switch s {
	case state.StatusUp:
		return upColor.Sprint(text)
	case state.StatusDown:
		return downColor.Sprint(text)
	default:
		return unknownColor.Sprint(text)
	}
}
