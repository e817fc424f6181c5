package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strconv"
	"time"

	"roomcal/internal/auth"
	"roomcal/internal/calendar"
	"roomcal/internal/config"
	"roomcal/internal/events"
	appLog "roomcal/internal/log"
	"roomcal/internal/model"
	"roomcal/internal/monitor"
	"roomcal/internal/store"
)

// Deps are the services the HTTP layer dispatches to. Health may be nil,
// in which case /health always reports ok.
type Deps struct {
	Events *events.Service
	Auth   *auth.Service
	Health *monitor.StoreCheck
}

// Server provides the REST API for rooms, events, sign-in and calendar
// views.
type Server struct {
	cfg    *config.Config
	debug  bool
	mux    *http.ServeMux
	deps   Deps
	engine calendar.Engine
}

// NewServer constructs a new Server. Timestamp dates in request bodies
// are read in the configured timezone from here on.
func NewServer(cfg *config.Config, deps Deps, debug bool) *Server {
	model.SetTimestampLocation(cfg.Location())
	s := &Server{
		cfg:   cfg,
		debug: debug,
		mux:   http.NewServeMux(),
		deps:  deps,
		engine: calendar.Engine{
			WeekStart: cfg.WeekStartDay(),
			Location:  cfg.Location(),
		},
	}
	s.registerRoutes()
	return s
}

// SetClock replaces the clock used to decide "today".
func (s *Server) SetClock(now func() time.Time) {
	s.engine.Now = now
}

// Handler returns the routed handler wrapped in CORS and request logging.
func (s *Server) Handler() http.Handler {
	return s.logRequests(s.cors(s.mux))
}

// Serve listens on addr until ctx is cancelled, then shuts down
// gracefully.
func Serve(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		appLog.Info("shutting down HTTP server")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("POST /api/auth/google", s.handleGoogleAuth)

	s.mux.HandleFunc("GET /api/rooms", s.handleRooms)
	s.mux.HandleFunc("GET /api/rooms/{id}/calendar.ics", s.handleRoomICS)

	s.mux.HandleFunc("GET /api/events", s.handleListEvents)
	s.mux.HandleFunc("POST /api/events", s.handleSaveEvent)
	s.mux.HandleFunc("GET /api/events/{id}", s.handleGetEvent)
	s.mux.HandleFunc("PUT /api/events/{id}", s.handleUpdateEvent)
	s.mux.HandleFunc("DELETE /api/events/{id}", s.handleDeleteEvent)

	s.mux.HandleFunc("GET /api/calendar", s.handleCalendar)
}

type healthResponse struct {
	Status string          `json:"status"`
	Store  *monitor.Status `json:"store,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	if s.deps.Health == nil {
		writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
		return
	}
	st := s.deps.Health.Status()
	if !st.Healthy {
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "degraded", Store: &st})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Store: &st})
}

type googleAuthRequest struct {
	Credential string `json:"credential"`
}

type authFailure struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (s *Server) handleGoogleAuth(w http.ResponseWriter, r *http.Request) {
	var req googleAuthRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, authFailure{Message: "Authentication failed"})
		return
	}

	user, err := s.deps.Auth.SignIn(r.Context(), req.Credential)
	if err != nil {
		appLog.Error("google auth failed", err)
		status := http.StatusBadRequest
		if !errors.Is(err, auth.ErrUpstream) {
			status = http.StatusInternalServerError
		}
		writeJSON(w, status, authFailure{Message: "Authentication failed"})
		return
	}
	writeJSON(w, http.StatusOK, model.AuthResult{Success: true, User: user})
}

func (s *Server) handleRooms(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Events.Rooms())
}

// cors allows the configured browser origins.
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && (slices.Contains(s.cfg.AllowedOrigins, origin) || slices.Contains(s.cfg.AllowedOrigins, "*")) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Add("Vary", "Origin")
			h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			h.Set("Access-Control-Allow-Credentials", "true")
		}
		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		kv := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if s.debug && r.URL.RawQuery != "" {
			kv = append(kv, "query", r.URL.RawQuery)
		}
		appLog.Info("http request", kv...)
	})
}

// writeServiceError maps domain errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error, notFoundMsg string) {
	var verr *model.ValidationError
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, notFoundMsg)
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Error())
	default:
		appLog.Error("request failed", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// parseRoomID parses a positive room id.
func parseRoomID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, model.Invalid("roomId", "must be a positive integer")
	}
	return id, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

type messageResponse struct {
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, messageResponse{Message: msg})
}
