package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"connectiu-backend/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength = 6
	maxListLimit      = 100
	defaultListLimit  = 50
	suggestionsLimit  = 5
	searchLimit       = 20
)

// Claims are the session token claims
type Claims struct {
	UserID   int64  `json:"id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// UserService handles registration, login, sessions and profiles
type UserService struct {
	users      UserStore
	posts      PostStore
	follows    FollowStore
	jwtSecret  []byte
	tokenTTL   time.Duration
	bcryptCost int
}

// NewUserService creates a new user service
func NewUserService(users UserStore, posts PostStore, follows FollowStore, jwtSecret string, tokenTTL time.Duration) *UserService {
	return &UserService{
		users:      users,
		posts:      posts,
		follows:    follows,
		jwtSecret:  []byte(jwtSecret),
		tokenTTL:   tokenTTL,
		bcryptCost: bcrypt.DefaultCost,
	}
}

// WithBcryptCost overrides the hashing cost; tests use bcrypt.MinCost
func (s *UserService) WithBcryptCost(cost int) *UserService {
	s.bcryptCost = cost
	return s
}

// RegisterRequest represents a registration request
type RegisterRequest struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is returned on successful login
type LoginResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Register validates the request, hashes the password and stores the user
func (s *UserService) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if req.Name == "" || req.Username == "" || req.Email == "" || req.Password == "" {
		return nil, models.NewValidationError("name, username, email and password are required")
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return nil, models.NewValidationError("invalid email address")
	}
	if len(req.Password) < minPasswordLength {
		return nil, models.NewValidationError(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Name:     req.Name,
		Username: req.Username,
		Email:    req.Email,
		Password: string(hash),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, models.ErrDuplicate) {
			return nil, models.NewConflictError("username or email already in use", err)
		}
		return nil, fmt.Errorf("failed to register user: %w", err)
	}
	return user, nil
}

// Login checks the credentials and issues a session token.
// Unknown email and wrong password are indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return nil, models.NewValidationError("email and password are required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.NewUnauthorizedError("invalid email or password")
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, models.NewUnauthorizedError("invalid email or password")
	}

	token, err := s.GenerateJWT(user)
	if err != nil {
		return nil, err
	}
	return &LoginResponse{Token: token, User: user}, nil
}

// GenerateJWT generates a session token for a user
func (s *UserService) GenerateJWT(user *models.User) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:   user.ID,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// ValidateJWT validates a session token and returns the user ID
func (s *UserService) ValidateJWT(tokenString string) (int64, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return 0, errors.New("invalid token")
	}
	if claims.UserID <= 0 {
		return 0, errors.New("id not found in token")
	}
	return claims.UserID, nil
}

// GetProfile returns a user with follow counts and posts as seen by viewerID
func (s *UserService) GetProfile(ctx context.Context, userID, viewerID int64) (*models.Profile, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.NewNotFoundError("user")
		}
		return nil, err
	}

	followers, err := s.follows.CountFollowers(ctx, userID)
	if err != nil {
		return nil, err
	}
	following, err := s.follows.CountFollowing(ctx, userID)
	if err != nil {
		return nil, err
	}
	posts, err := s.posts.ByUser(ctx, userID, viewerID)
	if err != nil {
		return nil, err
	}

	return &models.Profile{
		User:      user.ProfileView(viewerID),
		Followers: followers,
		Following: following,
		Posts:     posts,
	}, nil
}

// UpdateProfile edits the caller's own profile
func (s *UserService) UpdateProfile(ctx context.Context, callerID, userID int64, upd models.ProfileUpdate) (*models.User, error) {
	if callerID != userID {
		return nil, models.NewForbiddenError("you can only edit your own profile")
	}
	if upd.Name != nil && strings.TrimSpace(*upd.Name) == "" {
		return nil, models.NewValidationError("name cannot be empty")
	}

	user, err := s.users.UpdateProfile(ctx, userID, upd)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.NewNotFoundError("user")
		}
		return nil, err
	}
	return user, nil
}

// UpdatePushToken stores or clears the caller's APNs device token
func (s *UserService) UpdatePushToken(ctx context.Context, userID int64, pushToken string) error {
	var token *string
	if t := strings.TrimSpace(pushToken); t != "" {
		token = &t
	}
	if err := s.users.UpdatePushToken(ctx, userID, token); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.NewNotFoundError("user")
		}
		return err
	}
	return nil
}

// ListUsers returns users newest first
func (s *UserService) ListUsers(ctx context.Context, limit, offset int) ([]*models.PublicUser, error) {
	limit, offset = normalizePage(limit, offset)
	return s.users.List(ctx, limit, offset)
}

// SearchUsers matches users by name or username
func (s *UserService) SearchUsers(ctx context.Context, q string) ([]*models.PublicUser, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, models.NewValidationError("search query is required")
	}
	return s.users.Search(ctx, q, searchLimit)
}

// Suggestions returns a few users the viewer does not follow yet
func (s *UserService) Suggestions(ctx context.Context, viewerID int64) ([]*models.PublicUser, error) {
	return s.users.Suggestions(ctx, viewerID, suggestionsLimit)
}

// normalizePage clamps pagination parameters
func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
