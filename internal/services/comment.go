package services

import (
	"context"
	"errors"
	"strings"

	"connectiu-backend/internal/models"
)

// CommentService handles comment-related business logic
type CommentService struct {
	comments CommentStore
	posts    PostStore
}

// NewCommentService creates a new comment service
func NewCommentService(comments CommentStore, posts PostStore) *CommentService {
	return &CommentService{comments: comments, posts: posts}
}

// ListComments returns the comments of a post oldest first
func (s *CommentService) ListComments(ctx context.Context, postID int64) ([]*models.Comment, error) {
	return s.comments.ListByPost(ctx, postID)
}

// AddComment adds a comment by userID to a post
func (s *CommentService) AddComment(ctx context.Context, userID, postID int64, content string) (*models.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, models.NewValidationError("content is required")
	}

	exists, err := s.posts.Exists(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, models.NewNotFoundError("post")
	}

	comment := &models.Comment{PostID: postID, UserID: userID, Content: content}
	if err := s.comments.Create(ctx, comment); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.NewNotFoundError("post")
		}
		return nil, err
	}
	return comment, nil
}
