package util

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/codeAKstan/gradesync-sub000/internal/shared"
)

// JSONResponse structure for successful responses
type JSONResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

// JSONError structure for error responses
type JSONError struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Errors  []shared.RowError `json:"errors,omitempty"`
}

// WriteJSON is a helper to write JSON responses
func WriteJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	var response interface{}
	if status >= 200 && status < 300 {
		response = JSONResponse{Success: true, Data: payload}
	} else {
		response = JSONError{Success: false, Message: "Unknown error"}
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Printf("Error writing JSON response: %v", err)
	}
}

// WriteJSONMessage writes a success envelope with a message and optional data.
func WriteJSONMessage(w http.ResponseWriter, status int, message string, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := JSONResponse{Success: true, Data: payload, Message: message}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Printf("Error writing JSON response: %v", err)
	}
}

// WriteJSONError is a helper to write standardized error JSON responses
func WriteJSONError(w http.ResponseWriter, status int, message string) {
	log.Printf("HTTP Error %d: %s", status, message)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	errorResponse := JSONError{
		Success: false,
		Message: message,
	}

	if err := json.NewEncoder(w).Encode(errorResponse); err != nil {
		log.Printf("Error writing JSON error response: %v", err)
	}
}

// HandleServiceError translates typed service errors to HTTP responses.
// Row-level validation failures carry their row list in the envelope with a
// 422 so batch uploads can surface every problem at once.
func HandleServiceError(w http.ResponseWriter, err error) {
	var ve shared.ValidationErrors
	if errors.As(err, &ve) {
		log.Printf("HTTP Error 422: %d validation error(s)", len(ve))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		resp := JSONError{
			Success: false,
			Message: "score sheet rejected",
			Errors:  ve,
		}
		if encErr := json.NewEncoder(w).Encode(resp); encErr != nil {
			log.Printf("Error writing JSON error response: %v", encErr)
		}
		return
	}

	switch shared.KindOf(err) {
	case shared.KindInvalidArgument:
		WriteJSONError(w, http.StatusBadRequest, err.Error())
	case shared.KindUnauthenticated:
		WriteJSONError(w, http.StatusUnauthorized, err.Error())
	case shared.KindPermissionDenied:
		WriteJSONError(w, http.StatusForbidden, err.Error())
	case shared.KindNotFound:
		WriteJSONError(w, http.StatusNotFound, err.Error())
	case shared.KindAlreadyExists:
		WriteJSONError(w, http.StatusConflict, err.Error())
	case shared.KindFailedPrecondition:
		WriteJSONError(w, http.StatusConflict, err.Error())
	case shared.KindValidation:
		WriteJSONError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		// Never leak internals to the client
		log.Printf("Internal error: %v", err)
		WriteJSONError(w, http.StatusInternalServerError, "internal server error")
	}
}

// ExtractToken extracts the token from the Authorization header (Bearer <token>)
func ExtractToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", errors.New("authorization header missing")
	}

	// Expect header: "Bearer <token>"
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", errors.New("invalid authorization header format")
	}

	return parts[1], nil
}
