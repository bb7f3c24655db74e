package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sourcegraph/conc/panics"

	"github.com/hazz-dev/healthwatch/internal/checker"
	"github.com/hazz-dev/healthwatch/internal/config"
	"github.com/hazz-dev/healthwatch/internal/state"
)

// Store defines the state operations required by the scheduler.
type Store interface {
	Record(u state.Update) (state.Transition, bool)
}

// CheckerFactory creates a Checker for one check of a service.
type CheckerFactory func(config.Service, config.Check) (checker.Checker, error)

// SleepFunc pauses for d. It returns false if ctx ended first.
type SleepFunc func(ctx context.Context, d time.Duration) bool

// Scheduler runs every configured check of every service in its own
// goroutine, forever or until the context passed to Start is cancelled.
type Scheduler struct {
	services     []config.Service
	store        Store
	factory      CheckerFactory
	sleep        SleepFunc
	onTransition []func(state.Transition)
	logger       *slog.Logger
	wg           sync.WaitGroup
}

// New creates a new Scheduler. Pass nil logger to use the default logger.
func New(services []config.Service, store Store, factory CheckerFactory, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		services: services,
		store:    store,
		factory:  factory,
		sleep:    sleepContext,
		logger:   logger,
	}
}

// OnTransition registers fn to be called whenever a service's aggregate
// status changes. Callbacks run on the loop that caused the change and must
// not block. Register before Start.
func (s *Scheduler) OnTransition(fn func(state.Transition)) {
	s.onTransition = append(s.onTransition, fn)
}

// SetSleep replaces the pause between iterations.
func (s *Scheduler) SetSleep(fn SleepFunc) {
	s.sleep = fn
}

// Start spawns one goroutine per (service, check) pair. It is non-blocking.
func (s *Scheduler) Start(ctx context.Context) {
	for _, svc := range s.services {
		for _, chk := range svc.Checks {
			c, err := s.factory(svc, chk)
			if err != nil {
				s.logger.Error("creating checker", "service", svc.Name, "check", chk.Type, "error", err)
				continue
			}
			s.wg.Add(1)
			go s.runLoop(ctx, svc, chk, c)
		}
	}
}

// Wait blocks until all loops have exited.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) runLoop(ctx context.Context, svc config.Service, chk config.Check, c checker.Checker) {
	defer s.wg.Done()

	for {
		if r := panics.Try(func() { s.runCheck(ctx, svc, chk, c) }); r != nil {
			s.logger.Error("check iteration panicked",
				"service", svc.Name,
				"check", chk.Type,
				"panic", r.Value,
				"stack", string(r.Stack),
			)
		}

		// The interval is measured from the end of the probe, so a slow probe
		// delays the next one instead of being skipped.
		if !s.sleep(ctx, chk.Interval()) {
			return
		}
	}
}

func (s *Scheduler) runCheck(ctx context.Context, svc config.Service, chk config.Check, c checker.Checker) {
	if ctx.Err() != nil {
		return
	}

	start := time.Now()
	var result checker.ProbeResult
	var responseMs *uint64

	if r := panics.Try(func() { result = c.Check(ctx) }); r != nil {
		s.logger.Error("checker panicked",
			"service", svc.Name,
			"check", chk.Type,
			"panic", r.Value,
			"stack", string(r.Stack),
		)
		result = checker.ProbeResult{
			Elapsed: time.Since(start),
			Message: fmt.Sprintf("Error: checker panic: %v", r.Value),
			Err:     r.AsError(),
		}
	} else {
		elapsed := result.ElapsedMs()
		responseMs = &elapsed
	}

	// A probe cut short by shutdown says nothing about the service.
	if ctx.Err() != nil {
		s.logger.Debug("discarding probe interrupted by shutdown", "service", svc.Name, "check", chk.Type)
		return
	}

	level := slog.LevelInfo
	if !result.Success {
		level = slog.LevelWarn
	}
	s.logger.Log(ctx, level, "check result",
		"service", svc.Name,
		"check", chk.Type,
		"success", result.Success,
		"response_time", result.Elapsed,
		"message", result.Message,
	)

	tr, changed := s.store.Record(state.Update{
		Service:         svc.Name,
		URL:             svc.URL,
		CheckType:       string(chk.Type),
		Success:         result.Success,
		ResponseMs:      responseMs,
		Message:         result.Message,
		IntervalSeconds: uint64(chk.IntervalSeconds),
	})
	if !changed {
		return
	}

	s.logger.Info("service status changed",
		"service", tr.Service,
		"from", tr.Previous,
		"to", tr.Current,
		"message", tr.Message,
	)
	for _, fn := range s.onTransition {
		if r := panics.Try(func() { fn(tr) }); r != nil {
			s.logger.Error("transition callback panicked", "service", tr.Service, "panic", r.Value)
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
