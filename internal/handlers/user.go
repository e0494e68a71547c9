package handlers

import (
	"net/http"

	"connectiu-backend/internal/middleware"
	"connectiu-backend/internal/models"
	"connectiu-backend/internal/services"
)

// UserHandler handles profile and user directory requests
type UserHandler struct {
	userService *services.UserService
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

// GetProfile handles GET /api/profile/{id}
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	profile, err := h.userService.GetProfile(r.Context(), userID, middleware.GetUserID(r.Context()))
	if err != nil {
		respondServiceError(w, r, err, "Failed to get profile")
		return
	}
	respondJSON(w, http.StatusOK, profile)
}

// UpdateProfile handles PUT /api/profile/{id}
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	var upd models.ProfileUpdate
	if !decodeJSON(w, r, &upd) {
		return
	}

	user, err := h.userService.UpdateProfile(r.Context(), middleware.GetUserID(r.Context()), userID, upd)
	if err != nil {
		respondServiceError(w, r, err, "Failed to update profile")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"user":    user,
	})
}

// ListUsers handles GET /api/users
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	users, err := h.userService.ListUsers(r.Context(), limit, offset)
	if err != nil {
		respondServiceError(w, r, err, "Failed to get users")
		return
	}
	respondJSON(w, http.StatusOK, users)
}

// SearchUsers handles GET /api/users/search?q=
func (h *UserHandler) SearchUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.SearchUsers(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		respondServiceError(w, r, err, "Failed to search users")
		return
	}
	respondJSON(w, http.StatusOK, users)
}

// Suggestions handles GET /api/users/suggestions
func (h *UserHandler) Suggestions(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.Suggestions(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		respondServiceError(w, r, err, "Failed to get suggestions")
		return
	}
	respondJSON(w, http.StatusOK, users)
}

type pushTokenRequest struct {
	PushToken string `json:"push_token"`
}

// UpdatePushToken handles PUT /api/users/me/push-token
func (h *UserHandler) UpdatePushToken(w http.ResponseWriter, r *http.Request) {
	var req pushTokenRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.userService.UpdatePushToken(r.Context(), middleware.GetUserID(r.Context()), req.PushToken); err != nil {
		respondServiceError(w, r, err, "Failed to update push token")
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}
