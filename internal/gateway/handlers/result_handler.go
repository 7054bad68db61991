package handlers

import (
	"net/http"

	"github.com/codeAKstan/gradesync-sub000/internal/gateway/util"
	"github.com/codeAKstan/gradesync-sub000/internal/results"
)

// ResultHandler exposes the student-facing result reader.
type ResultHandler struct {
	Reader *results.Reader
}

// StudentResults handles GET /api/results?semester=
// Grades stay redacted until the approval gate has published them.
func (h *ResultHandler) StudentResults(w http.ResponseWriter, r *http.Request) {
	user := UserFrom(r.Context())

	view, err := h.Reader.StudentResults(r.Context(), user.ID, r.URL.Query().Get("semester"))
	if err != nil {
		util.HandleServiceError(w, err)
		return
	}

	util.WriteJSON(w, http.StatusOK, view)
}

// Summaries handles GET /api/results/summaries
func (h *ResultHandler) Summaries(w http.ResponseWriter, r *http.Request) {
	user := UserFrom(r.Context())

	summaries, err := h.Reader.StudentSummaries(r.Context(), user.ID)
	if err != nil {
		util.HandleServiceError(w, err)
		return
	}

	util.WriteJSON(w, http.StatusOK, summaries)
}
