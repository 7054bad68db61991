package handlers

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/codeAKstan/gradesync-sub000/internal/catalog"
	"github.com/codeAKstan/gradesync-sub000/internal/gateway/util"
	"github.com/codeAKstan/gradesync-sub000/internal/ingest"
	"github.com/codeAKstan/gradesync-sub000/internal/results"
	"github.com/codeAKstan/gradesync-sub000/internal/shared"
)

// ScoreHandler exposes score sheet download/upload and the staff cohort view.
type ScoreHandler struct {
	Ingest  *ingest.Service
	Catalog *catalog.Service
	Reader  *results.Reader
}

// checkCourseAccess allows admins everywhere and lecturers only on courses
// assigned to them.
func (h *ScoreHandler) checkCourseAccess(r *http.Request, courseID string) error {
	user := UserFrom(r.Context())
	if user.Role == shared.RoleAdmin {
		return nil
	}

	course, err := h.Catalog.GetCourse(r.Context(), courseID)
	if err != nil {
		return err
	}
	if course.LecturerID != user.ID {
		return shared.PermissionDeniedf("course is not assigned to you")
	}
	return nil
}

// Template handles GET /api/scores/template/{course_id}?semester=
// It streams a CSV pre-filled with the registered cohort and an empty
// score column.
func (h *ScoreHandler) Template(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "course_id")

	if err := h.checkCourseAccess(r, courseID); err != nil {
		util.HandleServiceError(w, err)
		return
	}

	data, courseCode, err := h.Ingest.Template(r.Context(), courseID, r.URL.Query().Get("semester"))
	if err != nil {
		util.HandleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s_scores.csv", courseCode))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		return
	}
}

// Upload handles POST /api/scores/upload/{course_id}?semester=
// The request body is the raw CSV. The whole sheet is validated before
// anything is written; any bad row rejects the batch with the full error
// list.
func (h *ScoreHandler) Upload(w http.ResponseWriter, r *http.Request) {
	user := UserFrom(r.Context())
	courseID := chi.URLParam(r, "course_id")

	if err := h.checkCourseAccess(r, courseID); err != nil {
		util.HandleServiceError(w, err)
		return
	}

	updated, err := h.Ingest.ImportScores(r.Context(), courseID, r.URL.Query().Get("semester"), user.ID, r.Body)
	if err != nil {
		util.HandleServiceError(w, err)
		return
	}

	util.WriteJSONMessage(w, http.StatusOK, fmt.Sprintf("%d scores imported", updated), map[string]interface{}{
		"updated": updated,
	})
}

// CourseResults handles GET /api/scores/course/{course_id}?semester=
// Returns the unredacted cohort with grades and progress counts.
func (h *ScoreHandler) CourseResults(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "course_id")

	if err := h.checkCourseAccess(r, courseID); err != nil {
		util.HandleServiceError(w, err)
		return
	}

	view, err := h.Reader.CourseResults(r.Context(), courseID, r.URL.Query().Get("semester"))
	if err != nil {
		util.HandleServiceError(w, err)
		return
	}

	util.WriteJSON(w, http.StatusOK, view)
}
