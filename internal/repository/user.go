package repository

import (
	"context"
	"fmt"
	"strings"

	"connectiu-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id, name, username, email, password, avatar_url, cover_url, bio, push_token, created_at`

// UserRepository handles database operations for users
type UserRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID, &user.Name, &user.Username, &user.Email, &user.Password,
		&user.AvatarURL, &user.CoverURL, &user.Bio, &user.PushToken, &user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Create inserts a new user and fills in its id and creation time
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (name, username, email, password)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	err := r.db.QueryRow(ctx, query, user.Name, user.Username, user.Email, user.Password).
		Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("failed to create user: %w", models.ErrDuplicate)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := scanUser(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("user not found: %w", models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	user, err := scanUser(r.db.QueryRow(ctx, query, email))
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("user not found: %w", models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return user, nil
}

// Exists checks if a user with the given id exists
func (r *UserRepository) Exists(ctx context.Context, id int64) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`
	var exists bool
	if err := r.db.QueryRow(ctx, query, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}
	return exists, nil
}

// UpdateProfile applies the non-nil fields of upd and returns the updated user
func (r *UserRepository) UpdateProfile(ctx context.Context, id int64, upd models.ProfileUpdate) (*models.User, error) {
	query := `
		UPDATE users SET
			name = COALESCE($2, name),
			bio = COALESCE($3, bio),
			avatar_url = COALESCE($4, avatar_url),
			cover_url = COALESCE($5, cover_url)
		WHERE id = $1
		RETURNING ` + userColumns
	user, err := scanUser(r.db.QueryRow(ctx, query, id, upd.Name, upd.Bio, upd.AvatarURL, upd.CoverURL))
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("user not found: %w", models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return user, nil
}

// UpdatePushToken updates the push token for a user
func (r *UserRepository) UpdatePushToken(ctx context.Context, userID int64, pushToken *string) error {
	query := `UPDATE users SET push_token = $1 WHERE id = $2`
	result, err := r.db.Exec(ctx, query, pushToken, userID)
	if err != nil {
		return fmt.Errorf("failed to update push token: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("user not found: %w", models.ErrNotFound)
	}
	return nil
}

// List returns users newest first
func (r *UserRepository) List(ctx context.Context, limit, offset int) ([]*models.PublicUser, error) {
	query := `
		SELECT id, name, username, avatar_url, bio
		FROM users
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`
	return r.queryPublicUsers(ctx, query, limit, offset)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds an ILIKE pattern matching q literally anywhere
func containsPattern(q string) string {
	return "%" + likeEscaper.Replace(q) + "%"
}

// Search matches name or username case-insensitively. Wildcards in q are
// matched literally.
func (r *UserRepository) Search(ctx context.Context, q string, limit int) ([]*models.PublicUser, error) {
	query := `
		SELECT id, name, username, avatar_url, bio
		FROM users
		WHERE name ILIKE $1 ESCAPE '\' OR username ILIKE $1 ESCAPE '\'
		ORDER BY name
		LIMIT $2
	`
	return r.queryPublicUsers(ctx, query, containsPattern(q), limit)
}

// Suggestions returns random users the viewer does not follow yet.
// viewerID 0 means anonymous.
func (r *UserRepository) Suggestions(ctx context.Context, viewerID int64, limit int) ([]*models.PublicUser, error) {
	query := `
		SELECT u.id, u.name, u.username, u.avatar_url, u.bio
		FROM users u
		WHERE u.id <> $1
		  AND NOT EXISTS (
			SELECT 1 FROM followers f
			WHERE f.follower_id = $1 AND f.following_id = u.id
		  )
		ORDER BY RANDOM()
		LIMIT $2
	`
	return r.queryPublicUsers(ctx, query, viewerID, limit)
}

func (r *UserRepository) queryPublicUsers(ctx context.Context, query string, args ...any) ([]*models.PublicUser, error) {
	return queryPublicUsers(ctx, r.db, query, args...)
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func queryPublicUsers(ctx context.Context, db querier, query string, args ...any) ([]*models.PublicUser, error) {
	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	users := []*models.PublicUser{}
	for rows.Next() {
		var u models.PublicUser
		if err := rows.Scan(&u.ID, &u.Name, &u.Username, &u.AvatarURL, &u.Bio); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, &u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return users, nil
}
