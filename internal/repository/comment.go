package repository

import (
	"context"
	"fmt"

	"connectiu-backend/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// CommentRepository handles database operations for comments
type CommentRepository struct {
	db *pgxpool.Pool
}

// NewCommentRepository creates a new comment repository
func NewCommentRepository(db *pgxpool.Pool) *CommentRepository {
	return &CommentRepository{db: db}
}

// Create inserts a comment and fills in id, creation time and author fields
func (r *CommentRepository) Create(ctx context.Context, comment *models.Comment) error {
	query := `
		WITH inserted AS (
			INSERT INTO comments (post_id, user_id, content)
			VALUES ($1, $2, $3)
			RETURNING id, user_id, created_at
		)
		SELECT i.id, i.created_at, u.name, u.avatar_url
		FROM inserted i
		JOIN users u ON u.id = i.user_id
	`
	err := r.db.QueryRow(ctx, query, comment.PostID, comment.UserID, comment.Content).
		Scan(&comment.ID, &comment.CreatedAt, &comment.UserName, &comment.AvatarURL)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("failed to create comment: %w", models.ErrNotFound)
		}
		return fmt.Errorf("failed to create comment: %w", err)
	}
	return nil
}

// ListByPost returns the comments of a post oldest first
func (r *CommentRepository) ListByPost(ctx context.Context, postID int64) ([]*models.Comment, error) {
	query := `
		SELECT c.id, c.post_id, c.user_id, c.content, c.created_at, u.name, u.avatar_url
		FROM comments c
		JOIN users u ON u.id = c.user_id
		WHERE c.post_id = $1
		ORDER BY c.created_at ASC, c.id ASC
	`
	rows, err := r.db.Query(ctx, query, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to get comments: %w", err)
	}
	defer rows.Close()

	comments := []*models.Comment{}
	for rows.Next() {
		var c models.Comment
		if err := rows.Scan(&c.ID, &c.PostID, &c.UserID, &c.Content, &c.CreatedAt, &c.UserName, &c.AvatarURL); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating comments: %w", err)
	}
	return comments, nil
}
