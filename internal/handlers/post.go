package handlers

import (
	"net/http"

	"connectiu-backend/internal/middleware"
	"connectiu-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// PostHandler handles post-related HTTP requests
type PostHandler struct {
	postService *services.PostService
}

// NewPostHandler creates a new post handler
func NewPostHandler(postService *services.PostService) *PostHandler {
	return &PostHandler{postService: postService}
}

// Feed handles GET /api/posts
func (h *PostHandler) Feed(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	posts, err := h.postService.Feed(r.Context(), middleware.GetUserID(r.Context()), limit, offset)
	if err != nil {
		respondServiceError(w, r, err, "Failed to get posts")
		return
	}
	respondJSON(w, http.StatusOK, posts)
}

// Trending handles GET /api/posts/trending
func (h *PostHandler) Trending(w http.ResponseWriter, r *http.Request) {
	posts, err := h.postService.Trending(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		respondServiceError(w, r, err, "Failed to get trending posts")
		return
	}
	respondJSON(w, http.StatusOK, posts)
}

// CreatePost handles POST /api/posts
func (h *PostHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	var req services.PostRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	userID := middleware.GetUserID(r.Context())
	post, err := h.postService.CreatePost(r.Context(), userID, req)
	if err != nil {
		respondServiceError(w, r, err, "Failed to create post")
		return
	}

	log.Info().Int64("user_id", userID).Int64("post_id", post.ID).Msg("Post created")
	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"post":    post,
	})
}

// UpdatePost handles PUT /api/posts/{id}
func (h *PostHandler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	postID, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	var req services.PostRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	post, err := h.postService.UpdatePost(r.Context(), middleware.GetUserID(r.Context()), postID, req)
	if err != nil {
		respondServiceError(w, r, err, "Failed to update post")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"post":    post,
	})
}

// DeletePost handles DELETE /api/posts/{id}
func (h *PostHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	postID, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	userID := middleware.GetUserID(r.Context())
	if err := h.postService.DeletePost(r.Context(), userID, postID); err != nil {
		respondServiceError(w, r, err, "Failed to delete post")
		return
	}

	log.Info().Int64("user_id", userID).Int64("post_id", postID).Msg("Post deleted")
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "post deleted",
	})
}

// ToggleLike handles POST /api/posts/{id}/like
func (h *PostHandler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	postID, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	res, err := h.postService.ToggleLike(r.Context(), middleware.GetUserID(r.Context()), postID)
	if err != nil {
		respondServiceError(w, r, err, "Failed to toggle like")
		return
	}
	respondJSON(w, http.StatusOK, res)
}
