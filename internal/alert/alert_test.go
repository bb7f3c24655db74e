package alert_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hazz-dev/healthwatch/internal/alert"
	"github.com/hazz-dev/healthwatch/internal/state"
)

// mockNotifier records every transition it is asked to send.
type mockNotifier struct {
	mu   sync.Mutex
	sent []state.Transition
	err  error
}

func (m *mockNotifier) Send(ctx context.Context, tr state.Transition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, tr)
	return m.err
}

func (m *mockNotifier) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func transition(service string, from, to state.HealthStatus) state.Transition {
	return state.Transition{
		Service:  service,
		URL:      "https://" + service + ".example.com",
		Previous: from,
		Current:  to,
		At:       time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestAlerter_StateChange_UpToDown(t *testing.T) {
	n := &mockNotifier{}
	a := alert.New(n, time.Hour, nil)
	a.Notify(transition("api", state.StatusUp, state.StatusDown))
	a.Wait()

	if n.Count() != 1 {
		t.Errorf("expected 1 alert for up→down, got %d", n.Count())
	}
}

func TestAlerter_StateChange_DownToUp(t *testing.T) {
	n := &mockNotifier{}
	a := alert.New(n, time.Hour, nil)
	a.Notify(transition("api", state.StatusDown, state.StatusUp))
	a.Wait()

	if n.Count() != 1 {
		t.Errorf("expected 1 alert for down→up, got %d", n.Count())
	}
}

func TestAlerter_SameState_NoAlert(t *testing.T) {
	n := &mockNotifier{}
	a := alert.New(n, time.Hour, nil)
	a.Notify(transition("api", state.StatusUp, state.StatusUp))
	a.Wait()

	if n.Count() != 0 {
		t.Errorf("expected 0 alerts for same state, got %d", n.Count())
	}
}

func TestAlerter_FromUnknown_NoAlert(t *testing.T) {
	n := &mockNotifier{}
	a := alert.New(n, time.Hour, nil)
	a.Notify(transition("api", state.StatusUnknown, state.StatusDown))
	a.Notify(transition("db", state.StatusUnknown, state.StatusUp))
	a.Wait()

	if n.Count() != 0 {
		t.Errorf("expected 0 alerts for first evaluation, got %d", n.Count())
	}
}

func TestAlerter_Cooldown_SuppressesAlerts(t *testing.T) {
	n := &mockNotifier{}
	a := alert.New(n, time.Hour, nil)

	a.Notify(transition("api", state.StatusUp, state.StatusDown))
	a.Notify(transition("api", state.StatusDown, state.StatusUp))
	a.Wait()

	if n.Count() != 1 {
		t.Errorf("expected 1 alert (cooldown suppressed second), got %d", n.Count())
	}
}

func TestAlerter_Cooldown_Expires(t *testing.T) {
	n := &mockNotifier{}
	a := alert.New(n, 20*time.Millisecond, nil)

	a.Notify(transition("api", state.StatusUp, state.StatusDown))
	time.Sleep(40 * time.Millisecond)
	a.Notify(transition("api", state.StatusDown, state.StatusUp))
	a.Wait()

	if n.Count() != 2 {
		t.Errorf("expected 2 alerts after cooldown expired, got %d", n.Count())
	}
}

func TestAlerter_Cooldown_PerService(t *testing.T) {
	n := &mockNotifier{}
	a := alert.New(n, time.Hour, nil)

	a.Notify(transition("svc1", state.StatusUp, state.StatusDown))
	a.Notify(transition("svc2", state.StatusUp, state.StatusDown))
	a.Wait()

	if n.Count() != 2 {
		t.Errorf("expected 2 alerts (one per service), got %d", n.Count())
	}
}

func TestAlerter_SendError_DoesNotCrash(t *testing.T) {
	n := &mockNotifier{err: errors.New("boom")}
	a := alert.New(n, time.Hour, nil)
	a.Notify(transition("api", state.StatusUp, state.StatusDown))
	a.Wait()

	if n.Count() != 1 {
		t.Errorf("expected send to be attempted once, got %d", n.Count())
	}
}

func TestWebhook_Payload(t *testing.T) {
	var payload map[string]interface{}
	var contentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &payload)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tr := transition("api", state.StatusUp, state.StatusDown)
	tr.Message = "TCP: Error: connection refused"

	if err := alert.NewWebhook(srv.URL).Send(context.Background(), tr); err != nil {
		t.Fatalf("Send: %v", err)
	}

	if contentType != "application/json" {
		t.Errorf("expected application/json, got %q", contentType)
	}
	if payload["service"] != "api" {
		t.Errorf("expected service 'api', got %v", payload["service"])
	}
	if payload["status"] != "down" {
		t.Errorf("expected status 'down', got %v", payload["status"])
	}
	if payload["previous_status"] != "up" {
		t.Errorf("expected previous_status 'up', got %v", payload["previous_status"])
	}
	if payload["source"] != "healthwatch" {
		t.Errorf("expected source 'healthwatch', got %v", payload["source"])
	}
	if payload["changed_at"] != "2024-05-01T12:00:00Z" {
		t.Errorf("unexpected changed_at %v", payload["changed_at"])
	}
	text, _ := payload["text"].(string)
	if !strings.Contains(text, "*api*") || !strings.Contains(text, "connection refused") {
		t.Errorf("unexpected text %q", text)
	}
}

func TestWebhook_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := alert.NewWebhook(srv.URL).Send(context.Background(), transition("api", state.StatusUp, state.StatusDown))
	if err == nil {
		t.Fatal("expected error on non-2xx")
	}
}

func TestWebhook_EmptyURL(t *testing.T) {
	if w := alert.NewWebhook(""); w != nil {
		t.Errorf("expected nil webhook for empty URL, got %+v", w)
	}
}

func TestAlerter_WithWebhook(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	a := alert.New(alert.NewWebhook(srv.URL), time.Hour, nil)
	a.Notify(transition("api", state.StatusUp, state.StatusDown))
	a.Wait()

	if calls.Load() != 1 {
		t.Errorf("expected 1 webhook call, got %d", calls.Load())
	}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		name string
		tr   state.Transition
		want string
	}{
		{
			name: "down with message",
			tr:   state.Transition{Service: "api", Previous: state.StatusUp, Current: state.StatusDown, Message: "HTTP: HTTP 503"},
			want: "🔴 *api* is down (was up): HTTP: HTTP 503",
		},
		{
			name: "recovered",
			tr:   state.Transition{Service: "api", Previous: state.StatusDown, Current: state.StatusUp},
			want: "🟢 *api* is up (was down)",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := alert.Format(tc.tr); got != tc.want {
				t.Errorf("expected %q, got %q", tc.want, got)
			}
		})
	}
}
