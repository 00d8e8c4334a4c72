package api

import (
	"net/http"

	"github.com/okian/essayscore/internal/domain/model"
)

type loginRequest struct {
	Email string `json:"email"`
}

type signupRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

type sessionResponse struct {
	Active   bool           `json:"active"`
	Identity model.Identity `json:"identity,omitempty"`
}

// SessionHandler handles login, signup and logout.
type SessionHandler struct {
	deps Dependencies
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(deps Dependencies) *SessionHandler {
	return &SessionHandler{deps: deps}
}

// HandleLogin handles POST /session/login requests.
func (h *SessionHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	const op = "api.login"
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(r.Context(), w, WrapKind(op, ErrBadRequest, err))
		return
	}
	id, err := h.deps.Login(r.Context(), req.Email)
	if err != nil {
		respondError(r.Context(), w, classify(op, err))
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Active: true, Identity: id})
}

// HandleSignup handles POST /session/signup requests.
func (h *SessionHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	const op = "api.signup"
	var req signupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(r.Context(), w, WrapKind(op, ErrBadRequest, err))
		return
	}
	id, err := h.deps.Signup(r.Context(), req.Email, req.Password, req.ConfirmPassword)
	if err != nil {
		respondError(r.Context(), w, classify(op, err))
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Active: true, Identity: id})
}

// HandleLogout handles POST /session/logout requests. It always succeeds.
func (h *SessionHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.deps.Logout(r.Context())
	writeJSON(w, http.StatusOK, sessionResponse{Active: false})
}

// HandleGetSession handles GET /session requests.
func (h *SessionHandler) HandleGetSession(w http.ResponseWriter, _ *http.Request) {
	id, active := h.deps.CurrentUser()
	writeJSON(w, http.StatusOK, sessionResponse{Active: active, Identity: id})
}
