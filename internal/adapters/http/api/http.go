// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	service "github.com/okian/essayscore/internal/app"
	"github.com/okian/essayscore/internal/domain/model"
	"github.com/okian/essayscore/pkg/logger"
)

// maxBodyBytes bounds request bodies; essays are plain text.
const maxBodyBytes = 1 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	Login(ctx context.Context, email string) (model.Identity, error)
	Signup(ctx context.Context, email, password, confirm string) (model.Identity, error)
	Logout(ctx context.Context)
	CurrentUser() (model.Identity, bool)

	Submit(ctx context.Context, prompt, essay string) (service.Result, error)
	History() ([]model.EssayRecord, error)
	Profile() (service.Profile, error)
	Display() service.Display
	DefaultPrompt() string
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	sessionHandler *SessionHandler
	essaysHandler  *EssaysHandler
	profileHandler *ProfileHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:  NewHealthHandler(),
		statsHandler:   NewStatsHandler(statsProvider),
		sessionHandler: NewSessionHandler(deps),
		essaysHandler:  NewEssaysHandler(deps),
		profileHandler: NewProfileHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("POST /session/login", MetricsMiddleware(s.sessionHandler.HandleLogin, "session_login"))
	mux.HandleFunc("POST /session/signup", MetricsMiddleware(s.sessionHandler.HandleSignup, "session_signup"))
	mux.HandleFunc("POST /session/logout", MetricsMiddleware(s.sessionHandler.HandleLogout, "session_logout"))
	mux.HandleFunc("GET /session", MetricsMiddleware(s.sessionHandler.HandleGetSession, "session"))

	mux.HandleFunc("POST /essays", MetricsMiddleware(s.essaysHandler.HandleSubmit, "essays_submit"))
	mux.HandleFunc("GET /essays", MetricsMiddleware(s.essaysHandler.HandleList, "essays_list"))
	mux.HandleFunc("GET /essays/latest", MetricsMiddleware(s.essaysHandler.HandleLatest, "essays_latest"))

	mux.HandleFunc("GET /profile", MetricsMiddleware(s.profileHandler.HandleProfile, "profile"))
	mux.HandleFunc("GET /prompt", MetricsMiddleware(s.profileHandler.HandlePrompt, "prompt"))
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

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// classify maps a service error onto an API kind.
func classify(op string, err error) error {
	switch {
	case errors.Is(err, service.ErrValidation):
		return WrapKind(op, ErrBadRequest, err)
	case errors.Is(err, service.ErrNoActiveSession):
		return WrapKind(op, ErrUnauthorized, err)
	case errors.Is(err, service.ErrSubmissionInFlight), errors.Is(err, service.ErrStaleSession):
		return WrapKind(op, ErrConflict, err)
	case errors.Is(err, service.ErrSubmission):
		return WrapKind(op, ErrUpstream, err)
	default:
		return Wrap(op, err)
	}
}

// respondError writes err with the status of its kind.
func respondError(ctx context.Context, w http.ResponseWriter, err error) {
	status, code := http.StatusInternalServerError, "internal"
	switch {
	case errors.Is(err, ErrBadRequest):
		status, code = http.StatusBadRequest, "bad_request"
	case errors.Is(err, ErrUnauthorized):
		status, code = http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, ErrConflict):
		status, code = http.StatusConflict, "conflict"
	case errors.Is(err, ErrUpstream):
		status, code = http.StatusBadGateway, "scoring_failed"
	}
	if status >= http.StatusInternalServerError {
		logger.Get().Error(ctx, "request failed", logger.Error(err))
	}
	writeError(w, status, code, err)
}
