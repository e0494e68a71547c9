package repository

import (
	"context"
	"fmt"

	"connectiu-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// FollowRepository handles database operations for follow edges
type FollowRepository struct {
	db *pgxpool.Pool
}

// NewFollowRepository creates a new follow repository
func NewFollowRepository(db *pgxpool.Pool) *FollowRepository {
	return &FollowRepository{db: db}
}

// Toggle flips the follow edge and returns whether followerID now follows followingID
func (r *FollowRepository) Toggle(ctx context.Context, followerID, followingID int64) (bool, error) {
	var following bool
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		result, err := tx.Exec(ctx,
			`DELETE FROM followers WHERE follower_id = $1 AND following_id = $2`,
			followerID, followingID,
		)
		if err != nil {
			return fmt.Errorf("failed to delete follow: %w", err)
		}
		if result.RowsAffected() > 0 {
			return nil
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO followers (follower_id, following_id) VALUES ($1, $2)
			ON CONFLICT (follower_id, following_id) DO NOTHING
		`, followerID, followingID)
		if err != nil {
			if isForeignKeyViolation(err) {
				return fmt.Errorf("user not found: %w", models.ErrNotFound)
			}
			return fmt.Errorf("failed to insert follow: %w", err)
		}
		following = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return following, nil
}

// Delete removes the follow edge if present
func (r *FollowRepository) Delete(ctx context.Context, followerID, followingID int64) error {
	query := `DELETE FROM followers WHERE follower_id = $1 AND following_id = $2`
	if _, err := r.db.Exec(ctx, query, followerID, followingID); err != nil {
		return fmt.Errorf("failed to delete follow: %w", err)
	}
	return nil
}

// IsFollowing checks if followerID follows followingID
func (r *FollowRepository) IsFollowing(ctx context.Context, followerID, followingID int64) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM followers WHERE follower_id = $1 AND following_id = $2)`
	var exists bool
	if err := r.db.QueryRow(ctx, query, followerID, followingID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check follow: %w", err)
	}
	return exists, nil
}

// CountFollowers counts the users following userID
func (r *FollowRepository) CountFollowers(ctx context.Context, userID int64) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM followers WHERE following_id = $1`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count followers: %w", err)
	}
	return n, nil
}

// CountFollowing counts the users userID follows
func (r *FollowRepository) CountFollowing(ctx context.Context, userID int64) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM followers WHERE follower_id = $1`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count following: %w", err)
	}
	return n, nil
}

// Followers lists the users following userID
func (r *FollowRepository) Followers(ctx context.Context, userID int64) ([]*models.PublicUser, error) {
	query := `
		SELECT u.id, u.name, u.username, u.avatar_url, u.bio
		FROM followers f
		JOIN users u ON u.id = f.follower_id
		WHERE f.following_id = $1
		ORDER BY f.created_at DESC
	`
	return queryPublicUsers(ctx, r.db, query, userID)
}

// Following lists the users userID follows
func (r *FollowRepository) Following(ctx context.Context, userID int64) ([]*models.PublicUser, error) {
	query := `
		SELECT u.id, u.name, u.username, u.avatar_url, u.bio
		FROM followers f
		JOIN users u ON u.id = f.following_id
		WHERE f.follower_id = $1
		ORDER BY f.created_at DESC
	`
	return queryPublicUsers(ctx, r.db, query, userID)
}

// Friends lists the users that userID follows and who follow back
func (r *FollowRepository) Friends(ctx context.Context, userID int64) ([]*models.PublicUser, error) {
	query := `
		SELECT u.id, u.name, u.username, u.avatar_url, u.bio
		FROM followers f1
		JOIN followers f2
		  ON f2.follower_id = f1.following_id AND f2.following_id = f1.follower_id
		JOIN users u ON u.id = f1.following_id
		WHERE f1.follower_id = $1
		ORDER BY u.name
	`
	return queryPublicUsers(ctx, r.db, query, userID)
}
