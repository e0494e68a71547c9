package repository

import (
	"context"
	"fmt"

	"connectiu-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// feedSelect joins posts with their author. Engagement is counted with
// per-post subqueries so likes and comments never multiply each other.
// $1 is always the viewer id (0 for anonymous).
const feedSelect = `
	SELECT p.id, p.user_id, p.content, p.image_url, p.created_at, p.updated_at,
	       u.name, u.username, u.avatar_url,
	       (SELECT COUNT(*) FROM likes l WHERE l.post_id = p.id) AS likes,
	       (SELECT COUNT(*) FROM comments c WHERE c.post_id = p.id) AS comments,
	       EXISTS(SELECT 1 FROM likes l WHERE l.post_id = p.id AND l.user_id = $1) AS liked
	FROM posts p
	JOIN users u ON u.id = p.user_id
`

// PostRepository handles database operations for posts and likes
type PostRepository struct {
	db *pgxpool.Pool
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *pgxpool.Pool) *PostRepository {
	return &PostRepository{db: db}
}

// Create creates a new post
func (r *PostRepository) Create(ctx context.Context, post *models.Post) error {
	query := `
		INSERT INTO posts (user_id, content, image_url)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query, post.UserID, post.Content, post.ImageURL).
		Scan(&post.ID, &post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("failed to create post: %w", models.ErrNotFound)
		}
		return fmt.Errorf("failed to create post: %w", err)
	}
	return nil
}

// GetByID retrieves a post by ID
func (r *PostRepository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	query := `
		SELECT id, user_id, content, image_url, created_at, updated_at
		FROM posts
		WHERE id = $1
	`
	var post models.Post
	err := r.db.QueryRow(ctx, query, id).Scan(
		&post.ID, &post.UserID, &post.Content, &post.ImageURL, &post.CreatedAt, &post.UpdatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("post not found: %w", models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	return &post, nil
}

// Exists checks if a post exists
func (r *PostRepository) Exists(ctx context.Context, id int64) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM posts WHERE id = $1)`
	var exists bool
	if err := r.db.QueryRow(ctx, query, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check post existence: %w", err)
	}
	return exists, nil
}

// Update replaces the content and image of a post
func (r *PostRepository) Update(ctx context.Context, post *models.Post) error {
	query := `
		UPDATE posts
		SET content = $2, image_url = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := r.db.QueryRow(ctx, query, post.ID, post.Content, post.ImageURL).Scan(&post.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return fmt.Errorf("post not found: %w", models.ErrNotFound)
		}
		return fmt.Errorf("failed to update post: %w", err)
	}
	return nil
}

// Delete removes a post together with its comments and likes
func (r *PostRepository) Delete(ctx context.Context, id int64) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM comments WHERE post_id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete comments: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM likes WHERE post_id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete likes: %w", err)
		}
		result, err := tx.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to delete post: %w", err)
		}
		if result.RowsAffected() == 0 {
			return fmt.Errorf("post not found: %w", models.ErrNotFound)
		}
		return nil
	})
}

// Feed returns posts newest first with engagement for the viewer
func (r *PostRepository) Feed(ctx context.Context, viewerID int64, limit, offset int) ([]*models.FeedPost, error) {
	query := feedSelect + `
	ORDER BY p.created_at DESC, p.id DESC
	LIMIT $2 OFFSET $3
	`
	return r.queryFeed(ctx, query, viewerID, limit, offset)
}

// ByUser returns the posts of one author newest first
func (r *PostRepository) ByUser(ctx context.Context, userID, viewerID int64) ([]*models.FeedPost, error) {
	query := feedSelect + `
	WHERE p.user_id = $2
	ORDER BY p.created_at DESC, p.id DESC
	`
	return r.queryFeed(ctx, query, viewerID, userID)
}

// Trending returns liked posts ordered by like count then recency
func (r *PostRepository) Trending(ctx context.Context, viewerID int64, limit int) ([]*models.FeedPost, error) {
	query := feedSelect + `
	WHERE EXISTS(SELECT 1 FROM likes l WHERE l.post_id = p.id)
	ORDER BY likes DESC, p.created_at DESC
	LIMIT $2
	`
	return r.queryFeed(ctx, query, viewerID, limit)
}

func (r *PostRepository) queryFeed(ctx context.Context, query string, args ...any) ([]*models.FeedPost, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get posts: %w", err)
	}
	defer rows.Close()

	posts := []*models.FeedPost{}
	for rows.Next() {
		var p models.FeedPost
		err := rows.Scan(
			&p.ID, &p.UserID, &p.Content, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt,
			&p.UserName, &p.Username, &p.AvatarURL,
			&p.Likes, &p.Comments, &p.Liked,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating posts: %w", err)
	}
	return posts, nil
}

// ToggleLike flips the like of userID on postID and returns the new state
// and like count. Both statements run in one transaction; the unique
// (post_id, user_id) constraint absorbs concurrent duplicate inserts.
func (r *PostRepository) ToggleLike(ctx context.Context, postID, userID int64) (bool, int64, error) {
	var liked bool
	var count int64
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		result, err := tx.Exec(ctx, `DELETE FROM likes WHERE post_id = $1 AND user_id = $2`, postID, userID)
		if err != nil {
			return fmt.Errorf("failed to delete like: %w", err)
		}
		if result.RowsAffected() == 0 {
			_, err := tx.Exec(ctx, `
				INSERT INTO likes (post_id, user_id) VALUES ($1, $2)
				ON CONFLICT (post_id, user_id) DO NOTHING
			`, postID, userID)
			if err != nil {
				if isForeignKeyViolation(err) {
					return fmt.Errorf("post not found: %w", models.ErrNotFound)
				}
				return fmt.Errorf("failed to insert like: %w", err)
			}
			liked = true
		}
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM likes WHERE post_id = $1`, postID).Scan(&count); err != nil {
			return fmt.Errorf("failed to count likes: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, 0, err
	}
	return liked, count, nil
}
