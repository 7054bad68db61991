package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/codeAKstan/gradesync-sub000/internal/auth"
	"github.com/codeAKstan/gradesync-sub000/internal/gateway/util"
	"github.com/codeAKstan/gradesync-sub000/internal/shared"
)

// validate is shared by all handlers for request DTO validation.
var validate = validator.New()

// userContextKey is the context key the auth middleware stores the
// authenticated user under.
type userContextKey struct{}

// ContextWithUser stores the authenticated user on the request context.
func ContextWithUser(ctx context.Context, user *shared.User) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// UserFrom returns the authenticated user from the request context, or nil
// when the request did not pass the auth middleware.
func UserFrom(ctx context.Context) *shared.User {
	user, _ := ctx.Value(userContextKey{}).(*shared.User)
	return user
}

// decodeJSON decodes a request body into dst and runs struct validation.
func decodeJSON(r *http.Request, dst interface{}) error {
	if err := decodeBody(r, dst); err != nil {
		return err
	}
	if err := validate.Struct(dst); err != nil {
		return shared.InvalidArgumentf("invalid request: %v", err)
	}
	return nil
}

// decodeBody decodes without validation, for partial-update payloads.
func decodeBody(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return shared.InvalidArgumentf("request body is empty")
		}
		return shared.InvalidArgumentf("invalid request payload")
	}
	return nil
}

// AuthHandler exposes authentication endpoints.
type AuthHandler struct {
	Auth *auth.Service
}

// LoginRequest mirrors the expected JSON input for /auth/login
type LoginRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

// ChangePasswordRequest mirrors the expected JSON input for /auth/change-password
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		util.HandleServiceError(w, err)
		return
	}

	result, err := h.Auth.Login(r.Context(), req.Identifier, req.Password)
	if err != nil {
		util.HandleServiceError(w, err)
		return
	}

	util.WriteJSONMessage(w, http.StatusOK, "login successful", result)
}

// Logout handles POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token, err := util.ExtractToken(r)
	if err != nil {
		util.WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.Auth.Logout(r.Context(), token); err != nil {
		util.HandleServiceError(w, err)
		return
	}

	util.WriteJSONMessage(w, http.StatusOK, "logout successful", nil)
}

// ValidateToken handles GET /api/auth/validate
func (h *AuthHandler) ValidateToken(w http.ResponseWriter, r *http.Request) {
	// The auth middleware already validated; just echo the user back.
	user := UserFrom(r.Context())
	if user == nil {
		util.WriteJSONError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	util.WriteJSON(w, http.StatusOK, user)
}

// ChangePassword handles POST /api/auth/change-password
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user := UserFrom(r.Context())
	if user == nil {
		util.WriteJSONError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req ChangePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		util.HandleServiceError(w, err)
		return
	}

	if err := h.Auth.ChangePassword(r.Context(), user.ID, req.OldPassword, req.NewPassword); err != nil {
		util.HandleServiceError(w, err)
		return
	}

	util.WriteJSONMessage(w, http.StatusOK, "password changed successfully", nil)
}
