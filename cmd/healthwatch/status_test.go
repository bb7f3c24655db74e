package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/hazz-dev/healthwatch/internal/state"
)

func newStatusServer(t *testing.T, status int, body interface{}) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/services" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(body)
	}))
}

func TestExecuteStatus_Empty(t *testing.T) {
	srv := newStatusServer(t, http.StatusOK, map[string]interface{}{"data": []interface{}{}})
	defer srv.Close()

	cmd := &cobra.Command{}
	var buf bytes.Buffer
	cmd.SetOut(&buf)

	if err := executeStatus(cmd, srv.Client(), srv.URL); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "No services reported") {
		t.Errorf("expected 'No services reported' message, got:\n%s", buf.String())
	}
}

func TestExecuteStatus_WithServices(t *testing.T) {
	rt := uint64(42)
	services := []state.ServiceStatus{
		{
			Name:             "api",
			URL:              "https://api.example.com",
			Status:           state.StatusUp,
			LastCheckTime:    time.Now(),
			ResponseTimeMs:   &rt,
			UptimePercentage: 99.5,
			TotalChecks:      200,
			SuccessfulChecks: 199,
		},
		{
			Name:    "db",
			URL:     "db:5432",
			Status:  state.StatusDown,
			Message: "TCP: Timed out connecting to db:5432",
		},
	}
	srv := newStatusServer(t, http.StatusOK, map[string]interface{}{"data": services})
	defer srv.Close()

	cmd := &cobra.Command{}
	var buf bytes.Buffer
	cmd.SetOut(&buf)

	// Trailing slash must not produce a double slash in the request path.
	if err := executeStatus(cmd, srv.Client(), srv.URL+"/"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()
	for _, want := range []string{"SERVICE", "api", "99.50%", "42ms", "db", "down", "never", "Timed out connecting"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got:\n%s", want, output)
		}
	}
}

func TestExecuteStatus_ServerError(t *testing.T) {
	srv := newStatusServer(t, http.StatusInternalServerError, map[string]interface{}{"error": "internal error"})
	defer srv.Close()

	cmd := &cobra.Command{}
	cmd.SetOut(&bytes.Buffer{})

	err := executeStatus(cmd, srv.Client(), srv.URL)
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
	if !strings.Contains(err.Error(), "internal error") {
		t.Errorf("expected server message in error, got %v", err)
	}
}

func TestExecuteStatus_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	cmd := &cobra.Command{}
	cmd.SetOut(&bytes.Buffer{})

	if err := executeStatus(cmd, &http.Client{Timeout: time.Second}, url); err == nil {
		t.Fatal("expected error for unreachable server")
	}
}

func TestVersionCmd(t *testing.T) {
	cmd := versionCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.Run(cmd, nil)

	if !strings.HasPrefix(buf.String(), "healthwatch dev") {
		t.Errorf("unexpected version output %q", buf.String())
	}
}
