package api

import "net/http"

type promptResponse struct {
	Prompt string `json:"prompt"`
}

// ProfileHandler serves the profile statistics and the writing prompt.
type ProfileHandler struct {
	deps Dependencies
}

// NewProfileHandler creates a new profile handler.
func NewProfileHandler(deps Dependencies) *ProfileHandler {
	return &ProfileHandler{deps: deps}
}

// HandleProfile handles GET /profile requests.
func (h *ProfileHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	const op = "api.profile"
	p, err := h.deps.Profile()
	if err != nil {
		respondError(r.Context(), w, classify(op, err))
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandlePrompt handles GET /prompt requests.
func (h *ProfileHandler) HandlePrompt(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, promptResponse{Prompt: h.deps.DefaultPrompt()})
}
