// Package state holds the in-memory health aggregate of every monitored
// service. A Store is the single source of truth: every probe result is
// applied under an exclusive lock, and the owning service's aggregate is
// recomputed before the lock is released, so a snapshot can never observe a
// service whose summary disagrees with its own checks.
package state

import (
	"math"
	"sort"
	"strings"
	"sync"
	"time"
)

// HealthStatus is the tri-state health of a check or service.
type HealthStatus string

const (
	StatusUp      HealthStatus = "up"
	StatusDown    HealthStatus = "down"
	StatusUnknown HealthStatus = "unknown"
)

// CheckStatus is the rolling state of one check type on one service.
type CheckStatus struct {
	CheckType        string       `json:"check_type"`
	Status           HealthStatus `json:"status"`
	LastCheckTime    time.Time    `json:"last_check_time"`
	ResponseTimeMs   *uint64      `json:"response_time_ms"`
	UptimePercentage float64      `json:"uptime_percentage"`
	TotalChecks      uint64       `json:"total_checks"`
	SuccessfulChecks uint64       `json:"successful_checks"`
	Message          string       `json:"message"`
	IntervalSeconds  uint64       `json:"interval_seconds"`
}

// ServiceStatus is the aggregate state of a service. Every field except Name,
// URL and Checks is derived from Checks by Aggregate.
type ServiceStatus struct {
	Name             string        `json:"name"`
	URL              string        `json:"url"`
	Status           HealthStatus  `json:"status"`
	LastCheckTime    time.Time     `json:"last_check_time"`
	ResponseTimeMs   *uint64       `json:"response_time_ms"`
	UptimePercentage float64       `json:"uptime_percentage"`
	TotalChecks      uint64        `json:"total_checks"`
	SuccessfulChecks uint64        `json:"successful_checks"`
	Message          string        `json:"message"`
	Checks           []CheckStatus `json:"checks"`
}

// Update is one probe outcome to be folded into the store.
type Update struct {
	Service         string
	URL             string
	CheckType       string
	Success         bool
	ResponseMs      *uint64
	Message         string
	IntervalSeconds uint64
}

// Transition describes a change of a service's aggregate status.
type Transition struct {
	Service  string
	URL      string
	Previous HealthStatus
	Current  HealthStatus
	Message  string
	At       time.Time
}

// Store is a concurrency-safe map from service name to ServiceStatus.
type Store struct {
	mu       sync.RWMutex
	services map[string]*ServiceStatus
	now      func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used to stamp updates.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		services: make(map[string]*ServiceStatus),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Record applies a probe outcome and recomputes the service aggregate. When
// the aggregate status changes, the transition is returned with ok == true.
func (s *Store) Record(u Update) (tr Transition, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()

	svc, exists := s.services[u.Service]
	if !exists {
		svc = &ServiceStatus{
			Name:   u.Service,
			Status: StatusUnknown,
		}
		s.services[u.Service] = svc
	}
	// Keep the URL current in case the configuration changed.
	svc.URL = u.URL

	chk := findCheck(svc, u.CheckType)
	if chk == nil {
		svc.Checks = append(svc.Checks, CheckStatus{
			CheckType: u.CheckType,
			Status:    StatusUnknown,
		})
		chk = &svc.Checks[len(svc.Checks)-1]
	}

	chk.TotalChecks++
	if u.Success {
		chk.SuccessfulChecks++
		chk.Status = StatusUp
	} else {
		chk.Status = StatusDown
	}
	chk.LastCheckTime = now
	chk.ResponseTimeMs = copyMs(u.ResponseMs)
	chk.Message = u.Message
	chk.IntervalSeconds = u.IntervalSeconds
	chk.UptimePercentage = uptime(chk.SuccessfulChecks, chk.TotalChecks)

	previous := svc.Status
	Aggregate(svc)

	if svc.Status == previous {
		return Transition{}, false
	}
	return Transition{
		Service:  svc.Name,
		URL:      svc.URL,
		Previous: previous,
		Current:  svc.Status,
		Message:  svc.Message,
		At:       now,
	}, true
}

// Services returns a point-in-time copy of every known service, sorted by
// name. Callers must not depend on the ordering.
func (s *Store) Services() []ServiceStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]ServiceStatus, 0, len(s.services))
	for _, svc := range s.services {
		out = append(out, clone(svc))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Service returns a copy of the named service.
func (s *Store) Service(name string) (ServiceStatus, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	svc, ok := s.services[name]
	if !ok {
		return ServiceStatus{}, false
	}
	return clone(svc), true
}

// Aggregate recomputes every derived field of svc from svc.Checks.
func Aggregate(svc *ServiceStatus) {
	if len(svc.Checks) == 0 {
		svc.Status = StatusUnknown
		svc.LastCheckTime = time.Time{}
		svc.ResponseTimeMs = nil
		svc.TotalChecks = 0
		svc.SuccessfulChecks = 0
		svc.UptimePercentage = 0
		svc.Message = ""
		return
	}

	anyDown, allUp := false, true
	var (
		last          time.Time
		total, ok     uint64
		rtSum, rtSeen uint64
	)
	for _, c := range svc.Checks {
		switch c.Status {
		case StatusDown:
			anyDown = true
			allUp = false
		case StatusUp:
		default:
			allUp = false
		}
		if c.LastCheckTime.After(last) {
			last = c.LastCheckTime
		}
		total += c.TotalChecks
		ok += c.SuccessfulChecks
		if c.ResponseTimeMs != nil {
			rtSum += *c.ResponseTimeMs
			rtSeen++
		}
	}

	switch {
	case anyDown:
		svc.Status = StatusDown
	case allUp:
		svc.Status = StatusUp
	default:
		svc.Status = StatusUnknown
	}

	svc.LastCheckTime = last
	svc.TotalChecks = total
	svc.SuccessfulChecks = ok
	svc.UptimePercentage = uptime(ok, total)

	svc.ResponseTimeMs = nil
	if rtSeen > 0 {
		mean := uint64(math.Round(float64(rtSum) / float64(rtSeen)))
		svc.ResponseTimeMs = &mean
	}

	svc.Message = ""
	if svc.Status == StatusDown {
		parts := make([]string, 0, len(svc.Checks))
		for _, c := range svc.Checks {
			if c.Status == StatusDown {
				parts = append(parts, c.CheckType+": "+c.Message)
			}
		}
		svc.Message = strings.Join(parts, " | ")
	}
}

func uptime(successful, total uint64) float64 {
	if total == 0 {
		return 0
	}
	return float64(successful) / float64(total) * 100
}

func findCheck(svc *ServiceStatus, checkType string) *CheckStatus {
	for i := range svc.Checks {
		if svc.Checks[i].CheckType == checkType {
			return &svc.Checks[i]
		}
	}
	return nil
}

func copyMs(p *uint64) *uint64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func clone(svc *ServiceStatus) ServiceStatus {
	out := *svc
	out.ResponseTimeMs = copyMs(svc.ResponseTimeMs)
	out.Checks = make([]CheckStatus, len(svc.Checks))
	for i, c := range svc.Checks {
		c.ResponseTimeMs = copyMs(c.ResponseTimeMs)
		out.Checks[i] = c
	}
	return out
}
