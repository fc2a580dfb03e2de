// Package api exposes the attendance service over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/okian/rollcall/internal/adapters/http/swagger"
	service "github.com/okian/rollcall/internal/app"
	"github.com/okian/rollcall/internal/domain/model"
	"github.com/okian/rollcall/internal/domain/types"
)

const maxBodyBytes = 1 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the service implementation.
type Dependencies interface {
	Submit(ctx context.Context, ev model.IdentityEvent) error
	SubmitBatch(ctx context.Context, evs []model.IdentityEvent) (int, error)

	StartSession(ctx context.Context) (types.SessionInfo, error)
	StopSession(ctx context.Context) (types.SessionInfo, error)
	Session() (types.SessionInfo, bool)

	Today() model.DateKey
	Attendance(ctx context.Context, date model.DateKey) ([]types.AttendanceEntry, error)
	Dates(ctx context.Context) ([]model.DateKey, error)
}

// StatsProvider defines the interface for getting service statistics.
type StatsProvider interface {
	GetStats(ctx context.Context) types.Stats
}

// Server wires HTTP routes for the attendance API.
type Server struct {
	healthHandler     *HealthHandler
	statsHandler      *StatsHandler
	eventsHandler     *EventsHandler
	sessionHandler    *SessionHandler
	attendanceHandler *AttendanceHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:     NewHealthHandler(),
		statsHandler:      NewStatsHandler(statsProvider),
		eventsHandler:     NewEventsHandler(deps),
		sessionHandler:    NewSessionHandler(deps),
		attendanceHandler: NewAttendanceHandler(deps),
	}
}

// Router returns the chi router with every route attached.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(30 * time.Second))
	r.Use(MetricsMiddleware)

	r.Get("/healthz", s.healthHandler.HandleHealth)
	r.Handle("/metrics", s.healthHandler.MetricsHandler())
	r.Get("/stats", s.statsHandler.HandleStats)

	r.Post("/events", s.eventsHandler.HandlePostEvent)
	r.Post("/events/batch", s.eventsHandler.HandlePostBatch)

	r.Get("/session", s.sessionHandler.HandleGet)
	r.Post("/session/start", s.sessionHandler.HandleStart)
	r.Post("/session/stop", s.sessionHandler.HandleStop)

	r.Get("/attendance", s.attendanceHandler.HandleGet)
	r.Get("/attendance/dates", s.attendanceHandler.HandleDates)

	swagger.Register(r)
	return r
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError maps service sentinels to HTTP statuses.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidEvent), errors.Is(err, service.ErrInvalidDate):
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
	case errors.Is(err, service.ErrNoSession):
		writeError(w, http.StatusConflict, "no_session", WrapKind(op, ErrConflict, err))
	case errors.Is(err, service.ErrSessionActive):
		writeError(w, http.StatusConflict, "session_active", WrapKind(op, ErrConflict, err))
	case errors.Is(err, service.ErrBackpressure):
		writeError(w, http.StatusTooManyRequests, "backpressure", WrapKind(op, ErrBackpressure, err))
	case errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal", err)
	}
}
