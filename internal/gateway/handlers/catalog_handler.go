package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/codeAKstan/gradesync-sub000/internal/catalog"
	"github.com/codeAKstan/gradesync-sub000/internal/gateway/util"
	"github.com/codeAKstan/gradesync-sub000/internal/shared"
)

// CatalogHandler exposes master data: departments, academic sessions,
// semesters, and courses. Reads are open to any authenticated user; writes
// are admin-only (enforced by the router).
type CatalogHandler struct {
	Catalog *catalog.Service
}

// ListCourses handles GET /api/courses
func (h *CatalogHandler) ListCourses(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := shared.CourseFilter{
		DepartmentID: q.Get("department_id"),
		LecturerID:   q.Get("lecturer_id"),
		Semester:     q.Get("semester"),
		SearchQuery:  q.Get("q"),
	}

	courses, err := h.Catalog.ListCourses(r.Context(), filter)
	if err != nil {
		util.HandleServiceError(w, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, courses)
}

// GetCourse handles GET /api/courses/{id}
func (h *CatalogHandler) GetCourse(w http.ResponseWriter, r *http.Request) {
	course, err := h.Catalog.GetCourse(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		util.HandleServiceError(w, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, course)
}

// ListDepartments handles GET /api/admin/departments
func (h *CatalogHandler) ListDepartments(w http.ResponseWriter, r *http.Request) {
	depts, err := h.Catalog.ListDepartments(r.Context())
	if err != nil {
		util.HandleServiceError(w, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, depts)
}

// DepartmentRequest mirrors the JSON input for creating a department.
type DepartmentRequest struct {
	Code string `json:"code" validate:"required,min=2,max=10"`
	Name string `json:"name" validate:"required,min=2,max=120"`
}

// CreateDepartment handles POST /api/admin/departments
func (h *CatalogHandler) CreateDepartment(w http.ResponseWriter, r *http.Request) {
	var req DepartmentRequest
	if err := decodeJSON(r, &req); err != nil {
		util.HandleServiceError(w, err)
		return
	}

	dept, err := h.Catalog.CreateDepartment(r.Context(), req.Code, req.Name)
	if err != nil {
		util.HandleServiceError(w, err)
		return
	}
	util.WriteJSONMessage(w, http.StatusCreated, "department created", dept)
}

// AcademicSessionRequest mirrors the JSON input for creating a session.
type AcademicSessionRequest struct {
	Name      string    `json:"name" validate:"required"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

// CreateAcademicSession handles POST /api/admin/sessions
func (h *CatalogHandler) CreateAcademicSession(w http.ResponseWriter, r *http.Request) {
	var req AcademicSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		util.HandleServiceError(w, err)
		return
	}

	session, err := h.Catalog.CreateAcademicSession(r.Context(), req.Name, req.StartDate, req.EndDate)
	if err != nil {
		util.HandleServiceError(w, err)
		return
	}
	util.WriteJSONMessage(w, http.StatusCreated, "academic session created", session)
}

// ListAcademicSessions handles GET /api/admin/sessions
func (h *CatalogHandler) ListAcademicSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.Catalog.ListAcademicSessions(r.Context())
	if err != nil {
		util.HandleServiceError(w, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, sessions)
}

// SemesterRequest mirrors the JSON input for creating a semester.
type SemesterRequest struct {
	Name      string `json:"name" validate:"required"`
	SessionID string `json:"session_id"`
}

// CreateSemester handles POST /api/admin/semesters
func (h *CatalogHandler) CreateSemester(w http.ResponseWriter, r *http.Request) {
	var req SemesterRequest
	if err := decodeJSON(r, &req); err != nil {
		util.HandleServiceError(w, err)
		return
	}

	semester, err := h.Catalog.CreateSemester(r.Context(), req.Name, req.SessionID)
	if err != nil {
		util.HandleServiceError(w, err)
		return
	}
	util.WriteJSONMessage(w, http.StatusCreated, "semester created", semester)
}

// ListSemesters handles GET /api/admin/semesters
func (h *CatalogHandler) ListSemesters(w http.ResponseWriter, r *http.Request) {
	semesters, err := h.Catalog.ListSemesters(r.Context())
	if err != nil {
		util.HandleServiceError(w, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, semesters)
}

// SetCurrentSemester handles POST /api/admin/semesters/{id}/current
func (h *CatalogHandler) SetCurrentSemester(w http.ResponseWriter, r *http.Request) {
	semester, err := h.Catalog.SetCurrentSemester(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		util.HandleServiceError(w, err)
		return
	}
	util.WriteJSONMessage(w, http.StatusOK, "current semester updated", semester)
}

// CreateCourse handles POST /api/admin/courses
func (h *CatalogHandler) CreateCourse(w http.ResponseWriter, r *http.Request) {
	user := UserFrom(r.Context())

	var req catalog.CourseInput
	if err := decodeJSON(r, &req); err != nil {
		util.HandleServiceError(w, err)
		return
	}

	course, err := h.Catalog.CreateCourse(r.Context(), req, user.ID)
	if err != nil {
		util.HandleServiceError(w, err)
		return
	}
	util.WriteJSONMessage(w, http.StatusCreated, "course created", course)
}

// UpdateCourse handles PUT /api/admin/courses/{id}
func (h *CatalogHandler) UpdateCourse(w http.ResponseWriter, r *http.Request) {
	user := UserFrom(r.Context())

	// Partial patch: empty fields mean "leave unchanged"
	var req catalog.CourseInput
	if err := decodeBody(r, &req); err != nil {
		util.HandleServiceError(w, err)
		return
	}

	course, err := h.Catalog.UpdateCourse(r.Context(), chi.URLParam(r, "id"), req, user.ID)
	if err != nil {
		util.HandleServiceError(w, err)
		return
	}
	util.WriteJSONMessage(w, http.StatusOK, "course updated", course)
}

// DeleteCourse handles DELETE /api/admin/courses/{id}
func (h *CatalogHandler) DeleteCourse(w http.ResponseWriter, r *http.Request) {
	user := UserFrom(r.Context())

	if err := h.Catalog.DeleteCourse(r.Context(), chi.URLParam(r, "id"), user.ID); err != nil {
		util.HandleServiceError(w, err)
		return
	}
	util.WriteJSONMessage(w, http.StatusOK, "course deleted", nil)
}

// AssignLecturerRequest mirrors the JSON input for lecturer assignment.
type AssignLecturerRequest struct {
	LecturerID string `json:"lecturer_id" validate:"required"`
}

// AssignLecturer handles POST /api/admin/courses/{id}/assign-lecturer
func (h *CatalogHandler) AssignLecturer(w http.ResponseWriter, r *http.Request) {
	user := UserFrom(r.Context())

	var req AssignLecturerRequest
	if err := decodeJSON(r, &req); err != nil {
		util.HandleServiceError(w, err)
		return
	}

	course, err := h.Catalog.AssignLecturer(r.Context(), chi.URLParam(r, "id"), req.LecturerID, user.ID)
	if err != nil {
		util.HandleServiceError(w, err)
		return
	}
	util.WriteJSONMessage(w, http.StatusOK, "lecturer assigned", course)
}
