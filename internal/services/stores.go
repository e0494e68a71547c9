package services

import (
	"context"

	"connectiu-backend/internal/models"
)

// UserStore is the persistence the user service needs
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Exists(ctx context.Context, id int64) (bool, error)
	UpdateProfile(ctx context.Context, id int64, upd models.ProfileUpdate) (*models.User, error)
	UpdatePushToken(ctx context.Context, userID int64, pushToken *string) error
	List(ctx context.Context, limit, offset int) ([]*models.PublicUser, error)
	Search(ctx context.Context, q string, limit int) ([]*models.PublicUser, error)
	Suggestions(ctx context.Context, viewerID int64, limit int) ([]*models.PublicUser, error)
}

// PostStore is the persistence the post service needs
type PostStore interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id int64) (*models.Post, error)
	Exists(ctx context.Context, id int64) (bool, error)
	Update(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id int64) error
	Feed(ctx context.Context, viewerID int64, limit, offset int) ([]*models.FeedPost, error)
	ByUser(ctx context.Context, userID, viewerID int64) ([]*models.FeedPost, error)
	Trending(ctx context.Context, viewerID int64, limit int) ([]*models.FeedPost, error)
	ToggleLike(ctx context.Context, postID, userID int64) (bool, int64, error)
}

// CommentStore is the persistence the comment service needs
type CommentStore interface {
	Create(ctx context.Context, comment *models.Comment) error
	ListByPost(ctx context.Context, postID int64) ([]*models.Comment, error)
}

// FollowStore is the persistence the follow service needs
type FollowStore interface {
	Toggle(ctx context.Context, followerID, followingID int64) (bool, error)
	Delete(ctx context.Context, followerID, followingID int64) error
	IsFollowing(ctx context.Context, followerID, followingID int64) (bool, error)
	CountFollowers(ctx context.Context, userID int64) (int64, error)
	CountFollowing(ctx context.Context, userID int64) (int64, error)
	Followers(ctx context.Context, userID int64) ([]*models.PublicUser, error)
	Following(ctx context.Context, userID int64) ([]*models.PublicUser, error)
	Friends(ctx context.Context, userID int64) ([]*models.PublicUser, error)
}

// EventStore is the persistence the event service needs
type EventStore interface {
	Create(ctx context.Context, event *models.Event) error
	Exists(ctx context.Context, id int64) (bool, error)
	List(ctx context.Context, viewerID int64) ([]*models.Event, error)
	ToggleAttendance(ctx context.Context, eventID, userID int64) (bool, int64, error)
}

// ChatStore is the persistence the chat service needs
type ChatStore interface {
	SendMessage(ctx context.Context, senderID, receiverID int64, content string) (*models.Message, error)
	GetConversation(ctx context.Context, id int64) (*models.Conversation, error)
	FindConversation(ctx context.Context, userA, userB int64) (*models.Conversation, error)
	ListMessages(ctx context.Context, conversationID int64, limit int) ([]*models.Message, error)
	ListConversations(ctx context.Context, userID int64) ([]*models.ConversationSummary, error)
}
