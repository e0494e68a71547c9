package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"connectiu-backend/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

const maxBodyBytes = 1 << 20

// ErrorResponse represents an error response
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	respondJSON(w, statusCode, ErrorResponse{Message: message})
}

// respondServiceError maps domain rejections to 4xx responses and logs
// anything else as a 500 with a generic message
func respondServiceError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	if appErr, ok := models.AsAppError(err); ok {
		respondError(w, appErr.Message, statusForCode(appErr.Code))
		return
	}

	log.Error().
		Err(err).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Msg(fallback)
	respondError(w, fallback, http.StatusInternalServerError)
}

func statusForCode(code string) int {
	switch code {
	case models.CodeNotFound:
		return http.StatusNotFound
	case models.CodeValidation:
		return http.StatusBadRequest
	case models.CodeUnauthorized:
		return http.StatusUnauthorized
	case models.CodeForbidden:
		return http.StatusForbidden
	case models.CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON reads a JSON request body into dst
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			respondError(w, "Request body too large", http.StatusRequestEntityTooLarge)
		case errors.Is(err, io.EOF):
			respondError(w, "Request body is required", http.StatusBadRequest)
		default:
			respondError(w, "Invalid request body", http.StatusBadRequest)
		}
		return false
	}
	return true
}

// urlID parses a positive integer URL parameter
func urlID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, "Invalid "+name, http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// pagination reads limit and offset query parameters, 0 when absent
func pagination(r *http.Request) (int, int) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	return limit, offset
}
