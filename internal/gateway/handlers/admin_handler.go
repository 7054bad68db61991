package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/codeAKstan/gradesync-sub000/internal/admin"
	"github.com/codeAKstan/gradesync-sub000/internal/gateway/util"
	"github.com/codeAKstan/gradesync-sub000/internal/results"
	"github.com/codeAKstan/gradesync-sub000/internal/shared"
)

// AdminHandler exposes approval, user management, audit log, and stats
// endpoints.
type AdminHandler struct {
	Admin    *admin.Service
	Approver *results.Approver
}

// ApproveRequest mirrors the JSON input for POST /api/admin/approve
type ApproveRequest struct {
	CourseID string `json:"course_id" validate:"required"`
	Semester string `json:"semester"`
}

// Approve handles POST /api/admin/approve — the approval gate. Flips the
// cohort to approved+published and recomputes every affected student's
// GPA/CGPA.
func (h *AdminHandler) Approve(w http.ResponseWriter, r *http.Request) {
	user := UserFrom(r.Context())

	var req ApproveRequest
	if err := decodeJSON(r, &req); err != nil {
		util.HandleServiceError(w, err)
		return
	}

	outcome, err := h.Approver.ApproveAndPublish(r.Context(), req.CourseID, req.Semester, user.ID)
	if err != nil {
		util.HandleServiceError(w, err)
		return
	}

	util.WriteJSONMessage(w, http.StatusOK, "results approved and published", outcome)
}

// CreateUser handles POST /api/admin/users
func (h *AdminHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	user := UserFrom(r.Context())

	var req admin.CreateUserInput
	if err := decodeJSON(r, &req); err != nil {
		util.HandleServiceError(w, err)
		return
	}

	created, err := h.Admin.CreateUser(r.Context(), req, user.ID)
	if err != nil {
		util.HandleServiceError(w, err)
		return
	}

	util.WriteJSONMessage(w, http.StatusCreated, "user created", created)
}

// ListUsers handles GET /api/admin/users?role=&department_id=&active=
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := shared.UserFilter{
		Role:         q.Get("role"),
		DepartmentID: q.Get("department_id"),
		ActiveOnly:   q.Get("active") == "true",
	}

	users, err := h.Admin.ListUsers(r.Context(), filter)
	if err != nil {
		util.HandleServiceError(w, err)
		return
	}

	util.WriteJSON(w, http.StatusOK, users)
}

// ResetPassword handles POST /api/admin/users/{id}/reset-password
// The generated password is returned once and never stored in plaintext.
func (h *AdminHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	user := UserFrom(r.Context())

	newPassword, err := h.Admin.ResetPassword(r.Context(), chi.URLParam(r, "id"), user.ID)
	if err != nil {
		util.HandleServiceError(w, err)
		return
	}

	util.WriteJSONMessage(w, http.StatusOK, "password reset", map[string]string{
		"new_password": newPassword,
	})
}

// UserStatusRequest mirrors the JSON input for PATCH /api/admin/users/{id}/status
type UserStatusRequest struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

// SetUserStatus handles PATCH /api/admin/users/{id}/status
func (h *AdminHandler) SetUserStatus(w http.ResponseWriter, r *http.Request) {
	user := UserFrom(r.Context())

	var req UserStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		util.HandleServiceError(w, err)
		return
	}

	if err := h.Admin.SetUserActive(r.Context(), chi.URLParam(r, "id"), *req.IsActive, user.ID); err != nil {
		util.HandleServiceError(w, err)
		return
	}

	util.WriteJSONMessage(w, http.StatusOK, "user status updated", nil)
}

// AuditLogs handles GET /api/admin/audit-logs?limit=
func (h *AdminHandler) AuditLogs(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.ParseInt(r.URL.Query().Get("limit"), 10, 64)

	logs, err := h.Admin.ListAuditLogs(r.Context(), limit)
	if err != nil {
		util.HandleServiceError(w, err)
		return
	}

	util.WriteJSON(w, http.StatusOK, logs)
}

// Stats handles GET /api/admin/stats
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Admin.GetSystemStats(r.Context())
	if err != nil {
		util.HandleServiceError(w, err)
		return
	}

	util.WriteJSON(w, http.StatusOK, stats)
}
