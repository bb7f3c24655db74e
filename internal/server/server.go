package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/hazz-dev/healthwatch/internal/config"
	"github.com/hazz-dev/healthwatch/internal/incident"
	"github.com/hazz-dev/healthwatch/internal/state"
)

// StateReader defines the state queries the server needs.
type StateReader interface {
	Services() []state.ServiceStatus
	Service(name string) (state.ServiceStatus, bool)
}

// IncidentReader defines the incident queries the server needs.
type IncidentReader interface {
	Open() []incident.Incident
	History(limit int) []incident.Incident
}

// Server holds the chi router and its dependencies.
type Server struct {
	state     StateReader
	incidents IncidentReader
	services  []config.Service
	router    chi.Router
	logger    *slog.Logger
}

// New creates a new Server and registers all routes. incidents may be nil.
func New(st StateReader, incidents IncidentReader, services []config.Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		state:     st,
		incidents: incidents,
		services:  services,
		router:    chi.NewRouter(),
		logger:    logger,
	}
	s.registerRoutes()
	return s
}

// Router returns the chi router (for mounting or testing).
func (s *Server) Router() chi.Router {
	return s.router
}

func (s *Server) registerRoutes() {
	r := s.router
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		MaxAge:         300,
	}))
	r.Use(s.requestLogger)

	r.Get("/api/health", s.handleHealth)
	r.Get("/api/status", s.handleStatus)
	r.Get("/api/services", s.handleListServices)
	r.Get("/api/services/{name}", s.handleGetService)
	r.Get("/api/incidents", s.handleListIncidents)
}

// --- Response helpers ---

type envelope struct {
	Data  interface{} `json:"data"`
	Error string      `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope{Data: data})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope{Error: msg})
}

// --- Service helpers ---

// snapshot returns every known service, including configured services that
// have not been probed yet, in configuration order followed by any others.
func (s *Server) snapshot() []state.ServiceStatus {
	recorded := s.state.Services()
	byName := make(map[string]state.ServiceStatus, len(recorded))
	for _, svc := range recorded {
		byName[svc.Name] = svc
	}

	out := make([]state.ServiceStatus, 0, len(recorded)+len(s.services))
	seen := make(map[string]bool, len(s.services))
	for _, cfg := range s.services {
		seen[cfg.Name] = true
		if svc, ok := byName[cfg.Name]; ok {
			out = append(out, svc)
			continue
		}
		out = append(out, pending(cfg))
	}
	for _, svc := range recorded {
		if !seen[svc.Name] {
			out = append(out, svc)
		}
	}
	return out
}

func (s *Server) lookup(name string) (state.ServiceStatus, bool) {
	if svc, ok := s.state.Service(name); ok {
		return svc, true
	}
	for _, cfg := range s.services {
		if cfg.Name == name {
			return pending(cfg), true
		}
	}
	return state.ServiceStatus{}, false
}

// pending is the placeholder for a configured service with no results yet.
func pending(cfg config.Service) state.ServiceStatus {
	svc := state.ServiceStatus{Name: cfg.Name, URL: cfg.URL, Checks: []state.CheckStatus{}}
	state.Aggregate(&svc)
	return svc
}

// --- Handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{"services": s.snapshot()})
}

func (s *Server) handleListServices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.snapshot())
}

func (s *Server) handleGetService(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	svc, ok := s.lookup(name)
	if !ok {
		writeError(w, http.StatusNotFound, "service not found")
		return
	}
	writeJSON(w, http.StatusOK, svc)
}

func (s *Server) handleListIncidents(w http.ResponseWriter, r *http.Request) {
	const maxLimit = 500

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit parameter")
			return
		}
		if n > maxLimit {
			n = maxLimit
		}
		limit = n
	}

	var incidents []incident.Incident
	switch r.URL.Query().Get("state") {
	case "", "all":
		if s.incidents != nil {
			incidents = s.incidents.History(limit)
		}
	case "open":
		if s.incidents != nil {
			incidents = s.incidents.Open()
		}
		if limit > 0 && len(incidents) > limit {
			incidents = incidents[:limit]
		}
	default:
		writeError(w, http.StatusBadRequest, "invalid state parameter")
		return
	}

	now := time.Now()
	views := make([]incidentView, 0, len(incidents))
	for _, inc := range incidents {
		views = append(views, incidentView{
			Incident:        inc,
			DurationSeconds: int64(inc.Duration(now).Seconds()),
		})
	}

	writeJSON(w, http.StatusOK, views)
}

// incidentView adds the elapsed duration, counted to now for open incidents.
type incidentView struct {
	incident.Incident
	DurationSeconds int64 `json:"duration_seconds"`
}

// --- Middleware ---

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"duration", time.Since(start),
		)
	})
}
