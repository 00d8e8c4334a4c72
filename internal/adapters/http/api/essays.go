package api

import (
	"net/http"
	"time"

	service "github.com/okian/essayscore/internal/app"
	"github.com/okian/essayscore/internal/domain/model"
)

type submitRequest struct {
	Prompt string `json:"prompt"`
	Essay  string `json:"essay"`
}

type submitResponse struct {
	Record      model.EssayRecord     `json:"record"`
	TraitPoints []model.TraitPoint    `json:"trait_points"`
	Feedback    []model.FeedbackEntry `json:"feedback"`
}

// essaySummary is one row of the past essays list.
type essaySummary struct {
	ID          string      `json:"id"`
	Index       int         `json:"index"`
	Prompt      string      `json:"prompt"`
	Preview     string      `json:"preview"`
	Score       model.Score `json:"score"`
	SubmittedAt time.Time   `json:"submitted_at"`
}

type listResponse struct {
	Essays []essaySummary `json:"essays"`
	Count  int            `json:"count"`
}

type latestResponse struct {
	Empty       bool                  `json:"empty"`
	RecordID    string                `json:"record_id,omitempty"`
	Score       *model.Score          `json:"score"`
	TraitPoints []model.TraitPoint    `json:"trait_points"`
	Feedback    []model.FeedbackEntry `json:"feedback"`
}

// EssaysHandler handles submissions and the essay history.
type EssaysHandler struct {
	deps Dependencies
}

// NewEssaysHandler creates a new essays handler.
func NewEssaysHandler(deps Dependencies) *EssaysHandler {
	return &EssaysHandler{deps: deps}
}

// HandleSubmit handles POST /essays requests. The call blocks until both
// scoring calls finished.
func (h *EssaysHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit_essay"
	var req submitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(r.Context(), w, WrapKind(op, ErrBadRequest, err))
		return
	}
	res, err := h.deps.Submit(r.Context(), req.Prompt, req.Essay)
	if err != nil {
		respondError(r.Context(), w, classify(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, toSubmitResponse(res))
}

// HandleList handles GET /essays requests.
func (h *EssaysHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_essays"
	recs, err := h.deps.History()
	if err != nil {
		respondError(r.Context(), w, classify(op, err))
		return
	}
	out := listResponse{Essays: make([]essaySummary, len(recs)), Count: len(recs)}
	for i, rec := range recs {
		out.Essays[i] = essaySummary{
			ID:          rec.ID,
			Index:       i + 1,
			Prompt:      rec.Prompt,
			Preview:     rec.Preview(),
			Score:       rec.Score,
			SubmittedAt: rec.SubmittedAt,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleLatest handles GET /essays/latest requests.
func (h *EssaysHandler) HandleLatest(w http.ResponseWriter, r *http.Request) {
	const op = "api.latest_essay"
	if _, active := h.deps.CurrentUser(); !active {
		respondError(r.Context(), w, NewKind(op, ErrUnauthorized))
		return
	}
	d := h.deps.Display()
	writeJSON(w, http.StatusOK, latestResponse{
		Empty:       d.Empty(),
		RecordID:    d.RecordID,
		Score:       d.Score,
		TraitPoints: d.TraitPoints,
		Feedback:    d.Feedback.Entries(),
	})
}

func toSubmitResponse(res service.Result) submitResponse {
	return submitResponse{
		Record:      res.Record,
		TraitPoints: res.TraitPoints,
		Feedback:    res.Record.Feedback.Entries(),
	}
}
