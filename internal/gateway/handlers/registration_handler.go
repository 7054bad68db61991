package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/codeAKstan/gradesync-sub000/internal/gateway/util"
	"github.com/codeAKstan/gradesync-sub000/internal/registration"
)

// RegistrationHandler exposes the course registration ledger to students.
type RegistrationHandler struct {
	Registrations *registration.Service
}

// RegisterRequest mirrors the expected JSON input for POST /api/registrations
type RegisterRequest struct {
	CourseID string `json:"course_id" validate:"required"`
	Semester string `json:"semester"`
}

// Register handles POST /api/registrations
func (h *RegistrationHandler) Register(w http.ResponseWriter, r *http.Request) {
	user := UserFrom(r.Context())

	var req RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		util.HandleServiceError(w, err)
		return
	}

	reg, err := h.Registrations.Register(r.Context(), user.ID, req.CourseID, req.Semester)
	if err != nil {
		util.HandleServiceError(w, err)
		return
	}

	util.WriteJSONMessage(w, http.StatusCreated, "registered successfully", reg)
}

// Drop handles DELETE /api/registrations/{id}
func (h *RegistrationHandler) Drop(w http.ResponseWriter, r *http.Request) {
	user := UserFrom(r.Context())
	registrationID := chi.URLParam(r, "id")

	reg, err := h.Registrations.Drop(r.Context(), registrationID, user.ID)
	if err != nil {
		util.HandleServiceError(w, err)
		return
	}

	util.WriteJSONMessage(w, http.StatusOK, "course dropped", reg)
}

// List handles GET /api/registrations?semester=
func (h *RegistrationHandler) List(w http.ResponseWriter, r *http.Request) {
	user := UserFrom(r.Context())

	regs, err := h.Registrations.StudentRegistrations(r.Context(), user.ID, r.URL.Query().Get("semester"))
	if err != nil {
		util.HandleServiceError(w, err)
		return
	}

	util.WriteJSON(w, http.StatusOK, regs)
}
