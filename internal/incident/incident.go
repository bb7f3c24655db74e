// Package incident tracks periods during which a service was down.
package incident

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hazz-dev/healthwatch/internal/state"
)

// DefaultHistory is the number of incidents retained by NewTracker.
const DefaultHistory = 500

// Incident is one contiguous down period of a service.
type Incident struct {
	ID          string     `json:"id"`
	Service     string     `json:"service"`
	URL         string     `json:"url"`
	StartedAt   time.Time  `json:"started_at"`
	RecoveredAt *time.Time `json:"recovered_at"`
	Message     string     `json:"message"`
}

// Open reports whether the incident has not recovered yet.
func (i Incident) Open() bool {
	return i.RecoveredAt == nil
}

// Duration is how long the incident lasted, or has lasted so far as of now.
func (i Incident) Duration(now time.Time) time.Duration {
	if i.RecoveredAt != nil {
		return i.RecoveredAt.Sub(i.StartedAt)
	}
	return now.Sub(i.StartedAt)
}

// Tracker opens and closes incidents from status transitions.
type Tracker struct {
	mu     sync.Mutex
	max    int
	all    []*Incident // oldest first
	active map[string]*Incident
	newID  func() string
}

// NewTracker creates a Tracker keeping at most max incidents. A max of zero
// or less means DefaultHistory.
func NewTracker(max int) *Tracker {
	if max <= 0 {
		max = DefaultHistory
	}
	return &Tracker{
		max:    max,
		active: make(map[string]*Incident),
		newID:  uuid.NewString,
	}
}

// Observe applies a transition. Entering down opens an incident unless one is
// already open; leaving down closes it.
func (t *Tracker) Observe(tr state.Transition) {
	t.mu.Lock()
	defer t.mu.Unlock()

	open := t.active[tr.Service]
	switch {
	case tr.Current == state.StatusDown && open == nil:
		inc := &Incident{
			ID:        t.newID(),
			Service:   tr.Service,
			URL:       tr.URL,
			StartedAt: tr.At,
			Message:   tr.Message,
		}
		t.active[tr.Service] = inc
		t.all = append(t.all, inc)
		t.trim()
	case tr.Current != state.StatusDown && open != nil:
		at := tr.At
		open.RecoveredAt = &at
		delete(t.active, tr.Service)
	}
}

// Open returns copies of the incidents that have not recovered, newest first.
func (t *Tracker) Open() []Incident {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []Incident
	for i := len(t.all) - 1; i >= 0; i-- {
		if t.all[i].Open() {
			out = append(out, copyIncident(t.all[i]))
		}
	}
	return out
}

// History returns up to limit incidents, newest first. A limit of zero or
// less returns everything retained.
func (t *Tracker) History(limit int) []Incident {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := len(t.all)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Incident, 0, n)
	for i := len(t.all) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, copyIncident(t.all[i]))
	}
	return out
}

// trim drops the oldest closed incidents beyond max. Open incidents are
// never dropped.
func (t *Tracker) trim() {
	excess := len(t.all) - t.max
	if excess <= 0 {
		return
	}
	kept := t.all[:0]
	for _, inc := range t.all {
		if excess > 0 && !inc.Open() {
			excess--
			continue
		}
		kept = append(kept, inc)
	}
	clear(t.all[len(kept):])
	t.all = kept
}

func copyIncident(inc *Incident) Incident {
	out := *inc
	if inc.RecoveredAt != nil {
		at := *inc.RecoveredAt
		out.RecoveredAt = &at
	}
	return out
}
