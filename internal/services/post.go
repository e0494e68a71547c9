package services

import (
	"context"
	"errors"
	"strings"

	"connectiu-backend/internal/models"
)

const trendingLimit = 10

// PostService handles post-related business logic
type PostService struct {
	posts PostStore
}

// NewPostService creates a new post service
func NewPostService(posts PostStore) *PostService {
	return &PostService{posts: posts}
}

// PostRequest represents a create or edit request
type PostRequest struct {
	Content  string  `json:"content"`
	ImageURL *string `json:"image_url"`
}

// LikeResult is the state after a like toggle
type LikeResult struct {
	Liked bool  `json:"liked"`
	Likes int64 `json:"likes"`
}

// Feed returns the newest posts with engagement for viewerID (0 if anonymous)
func (s *PostService) Feed(ctx context.Context, viewerID int64, limit, offset int) ([]*models.FeedPost, error) {
	limit, offset = normalizePage(limit, offset)
	return s.posts.Feed(ctx, viewerID, limit, offset)
}

// Trending returns the most liked posts
func (s *PostService) Trending(ctx context.Context, viewerID int64) ([]*models.FeedPost, error) {
	return s.posts.Trending(ctx, viewerID, trendingLimit)
}

// CreatePost creates a post authored by userID
func (s *PostService) CreatePost(ctx context.Context, userID int64, req PostRequest) (*models.Post, error) {
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, models.NewValidationError("content is required")
	}

	post := &models.Post{
		UserID:   userID,
		Content:  content,
		ImageURL: normalizeURL(req.ImageURL),
	}
	if err := s.posts.Create(ctx, post); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.NewNotFoundError("user")
		}
		return nil, err
	}
	return post, nil
}

// UpdatePost edits a post owned by userID
func (s *PostService) UpdatePost(ctx context.Context, userID, postID int64, req PostRequest) (*models.Post, error) {
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, models.NewValidationError("content is required")
	}

	post, err := s.ownedPost(ctx, userID, postID, "edit")
	if err != nil {
		return nil, err
	}

	post.Content = content
	if req.ImageURL != nil {
		post.ImageURL = normalizeURL(req.ImageURL)
	}
	if err := s.posts.Update(ctx, post); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.NewNotFoundError("post")
		}
		return nil, err
	}
	return post, nil
}

// DeletePost deletes a post owned by userID with its comments and likes
func (s *PostService) DeletePost(ctx context.Context, userID, postID int64) error {
	if _, err := s.ownedPost(ctx, userID, postID, "delete"); err != nil {
		return err
	}
	if err := s.posts.Delete(ctx, postID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.NewNotFoundError("post")
		}
		return err
	}
	return nil
}

// ToggleLike likes or unlikes a post for userID
func (s *PostService) ToggleLike(ctx context.Context, userID, postID int64) (*LikeResult, error) {
	exists, err := s.posts.Exists(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, models.NewNotFoundError("post")
	}

	liked, likes, err := s.posts.ToggleLike(ctx, postID, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.NewNotFoundError("post")
		}
		return nil, err
	}
	return &LikeResult{Liked: liked, Likes: likes}, nil
}

func (s *PostService) ownedPost(ctx context.Context, userID, postID int64, action string) (*models.Post, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.NewNotFoundError("post")
		}
		return nil, err
	}
	if post.UserID != userID {
		return nil, models.NewForbiddenError("you can only " + action + " your own posts")
	}
	return post, nil
}

func normalizeURL(u *string) *string {
	if u == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*u)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
