package services

import (
	"context"
	"errors"

	"connectiu-backend/internal/models"

	"github.com/rs/zerolog/log"
)

// FollowService handles follow relationships
type FollowService struct {
	follows   FollowStore
	users     UserStore
	publisher Publisher
}

// NewFollowService creates a new follow service. publisher may be nil.
func NewFollowService(follows FollowStore, users UserStore, publisher Publisher) *FollowService {
	return &FollowService{follows: follows, users: users, publisher: publisher}
}

// Toggle follows targetID if followerID does not follow it yet, otherwise unfollows
func (s *FollowService) Toggle(ctx context.Context, followerID, targetID int64) (bool, error) {
	if followerID == targetID {
		return false, models.NewValidationError("you cannot follow yourself")
	}
	follower, err := s.users.GetByID(ctx, followerID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return false, models.NewNotFoundError("user")
		}
		return false, err
	}
	exists, err := s.users.Exists(ctx, targetID)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, models.NewNotFoundError("user")
	}

	following, err := s.follows.Toggle(ctx, followerID, targetID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return false, models.NewNotFoundError("user")
		}
		return false, err
	}

	if following {
		s.notifyNewFollower(targetID, follower)
	}
	return following, nil
}

// Unfollow removes the edge if present
func (s *FollowService) Unfollow(ctx context.Context, followerID, targetID int64) error {
	if followerID == targetID {
		return models.NewValidationError("you cannot unfollow yourself")
	}
	return s.follows.Delete(ctx, followerID, targetID)
}

// IsFollowing reports whether followerID follows followingID
func (s *FollowService) IsFollowing(ctx context.Context, followerID, followingID int64) (bool, error) {
	if followerID == followingID {
		return false, nil
	}
	return s.follows.IsFollowing(ctx, followerID, followingID)
}

func (s *FollowService) Followers(ctx context.Context, userID int64) ([]*models.PublicUser, error) {
	return s.follows.Followers(ctx, userID)
}

func (s *FollowService) Following(ctx context.Context, userID int64) ([]*models.PublicUser, error) {
	return s.follows.Following(ctx, userID)
}

// Friends returns the users userID follows that also follow userID back
func (s *FollowService) Friends(ctx context.Context, userID int64) ([]*models.PublicUser, error) {
	return s.follows.Friends(ctx, userID)
}

func (s *FollowService) notifyNewFollower(targetID int64, follower *models.User) {
	if s.publisher == nil || !s.publisher.IsOnline(targetID) {
		return
	}
	message := WSMessage{
		Type: EventNewFollower,
		Data: models.PublicUser{
			ID:        follower.ID,
			Name:      follower.Name,
			Username:  follower.Username,
			AvatarURL: follower.AvatarURL,
		},
	}
	if err := s.publisher.SendToUser(targetID, message); err != nil {
		log.Warn().Err(err).Int64("user_id", targetID).Msg("Failed to notify new follower")
	}
}
