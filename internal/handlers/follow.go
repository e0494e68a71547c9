package handlers

import (
	"net/http"

	"connectiu-backend/internal/middleware"
	"connectiu-backend/internal/services"
)

// FollowHandler handles follow-related HTTP requests
type FollowHandler struct {
	followService *services.FollowService
}

// NewFollowHandler creates a new follow handler
func NewFollowHandler(followService *services.FollowService) *FollowHandler {
	return &FollowHandler{followService: followService}
}

type followResponse struct {
	Following bool `json:"following"`
}

// Toggle handles POST /api/follow/{id}
func (h *FollowHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	targetID, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	following, err := h.followService.Toggle(r.Context(), middleware.GetUserID(r.Context()), targetID)
	if err != nil {
		respondServiceError(w, r, err, "Failed to toggle follow")
		return
	}
	respondJSON(w, http.StatusOK, followResponse{Following: following})
}

// Unfollow handles DELETE /api/follow/{id}
func (h *FollowHandler) Unfollow(w http.ResponseWriter, r *http.Request) {
	targetID, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	if err := h.followService.Unfollow(r.Context(), middleware.GetUserID(r.Context()), targetID); err != nil {
		respondServiceError(w, r, err, "Failed to unfollow")
		return
	}
	respondJSON(w, http.StatusOK, followResponse{Following: false})
}

// Check handles GET /api/follow/check/{followerId}/{followingId}
func (h *FollowHandler) Check(w http.ResponseWriter, r *http.Request) {
	followerID, ok := urlID(w, r, "followerId")
	if !ok {
		return
	}
	followingID, ok := urlID(w, r, "followingId")
	if !ok {
		return
	}

	following, err := h.followService.IsFollowing(r.Context(), followerID, followingID)
	if err != nil {
		respondServiceError(w, r, err, "Failed to check follow")
		return
	}
	respondJSON(w, http.StatusOK, followResponse{Following: following})
}

// Followers handles GET /api/followers/{id}
func (h *FollowHandler) Followers(w http.ResponseWriter, r *http.Request) {
	userID, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	users, err := h.followService.Followers(r.Context(), userID)
	if err != nil {
		respondServiceError(w, r, err, "Failed to get followers")
		return
	}
	respondJSON(w, http.StatusOK, users)
}

// Following handles GET /api/following/{id}
func (h *FollowHandler) Following(w http.ResponseWriter, r *http.Request) {
	userID, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	users, err := h.followService.Following(r.Context(), userID)
	if err != nil {
		respondServiceError(w, r, err, "Failed to get following")
		return
	}
	respondJSON(w, http.StatusOK, users)
}

// Friends handles GET /api/friends/{userId}
func (h *FollowHandler) Friends(w http.ResponseWriter, r *http.Request) {
	userID, ok := urlID(w, r, "userId")
	if !ok {
		return
	}
	users, err := h.followService.Friends(r.Context(), userID)
	if err != nil {
		respondServiceError(w, r, err, "Failed to get friends")
		return
	}
	respondJSON(w, http.StatusOK, users)
}
