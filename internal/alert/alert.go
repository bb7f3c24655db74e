package alert

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hazz-dev/healthwatch/internal/state"
)

// Alerter sends notifications on service status transitions.
type Alerter struct {
	notifier  Notifier
	cooldown  time.Duration
	timeout   time.Duration
	lastAlert map[string]time.Time
	mu        sync.Mutex
	wg        sync.WaitGroup
	logger    *slog.Logger
}

// New creates a new Alerter. Pass nil logger to use the default logger.
func New(notifier Notifier, cooldown time.Duration, logger *slog.Logger) *Alerter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Alerter{
		notifier:  notifier,
		cooldown:  cooldown,
		timeout:   10 * time.Second,
		lastAlert: make(map[string]time.Time),
		logger:    logger,
	}
}

// Notify sends tr if the cooldown for its service has elapsed. It never
// blocks on delivery.
func (a *Alerter) Notify(tr state.Transition) {
	// Leaving unknown is the first evaluation, not a change worth paging on.
	if tr.Previous == state.StatusUnknown || tr.Previous == tr.Current {
		return
	}

	a.mu.Lock()
	last, exists := a.lastAlert[tr.Service]
	if exists && time.Since(last) < a.cooldown {
		a.mu.Unlock()
		a.logger.Info("alert suppressed by cooldown", "service", tr.Service)
		return
	}
	a.lastAlert[tr.Service] = time.Now()
	a.mu.Unlock()

	a.wg.Add(1)
	go a.send(tr)
}

// Wait blocks until every in-flight notification has finished.
func (a *Alerter) Wait() {
	a.wg.Wait()
}

func (a *Alerter) send(tr state.Transition) {
	defer a.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	if err := a.notifier.Send(ctx, tr); err != nil {
		a.logger.Error("sending alert", "service", tr.Service, "status", tr.Current, "error", err)
		return
	}
	a.logger.Info("alert sent", "service", tr.Service, "status", tr.Current)
}
