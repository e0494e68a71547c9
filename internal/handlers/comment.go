package handlers

import (
	"net/http"

	"connectiu-backend/internal/middleware"
	"connectiu-backend/internal/services"
)

// CommentHandler handles comment-related HTTP requests
type CommentHandler struct {
	commentService *services.CommentService
}

// NewCommentHandler creates a new comment handler
func NewCommentHandler(commentService *services.CommentService) *CommentHandler {
	return &CommentHandler{commentService: commentService}
}

type commentRequest struct {
	Content string `json:"content"`
}

// ListComments handles GET /api/posts/{id}/comments
func (h *CommentHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	postID, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	comments, err := h.commentService.ListComments(r.Context(), postID)
	if err != nil {
		respondServiceError(w, r, err, "Failed to get comments")
		return
	}
	respondJSON(w, http.StatusOK, comments)
}

// AddComment handles POST /api/posts/{id}/comments
func (h *CommentHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	postID, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	var req commentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	comment, err := h.commentService.AddComment(r.Context(), middleware.GetUserID(r.Context()), postID, req.Content)
	if err != nil {
		respondServiceError(w, r, err, "Failed to add comment")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"comment": comment,
	})
}
