package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"connectiu-backend/internal/models"

	"github.com/rs/zerolog/log"
)

const (
	messageHistoryLimit = 200
	maxMessageLength    = 2000
	pushTimeout         = 10 * time.Second
	pushPreviewLength   = 120
)

// ChatService handles direct messages between users
type ChatService struct {
	chat      ChatStore
	users     UserStore
	publisher Publisher
	pusher    PushNotifier
}

// NewChatService creates a new chat service. publisher and pusher may be nil.
func NewChatService(chat ChatStore, users UserStore, publisher Publisher, pusher PushNotifier) *ChatService {
	return &ChatService{chat: chat, users: users, publisher: publisher, pusher: pusher}
}

// SendMessageRequest represents a send message request
type SendMessageRequest struct {
	ReceiverID int64  `json:"receiver_id"`
	Content    string `json:"content"`
}

// SendMessage stores a message from senderID and notifies the receiver
func (s *ChatService) SendMessage(ctx context.Context, senderID int64, req SendMessageRequest) (*models.Message, error) {
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, models.NewValidationError("content is required")
	}
	if len(content) > maxMessageLength {
		return nil, models.NewValidationError("message is too long")
	}
	if req.ReceiverID <= 0 {
		return nil, models.NewValidationError("receiver_id is required")
	}
	if req.ReceiverID == senderID {
		return nil, models.NewValidationError("you cannot message yourself")
	}

	sender, err := s.users.GetByID(ctx, senderID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.NewNotFoundError("user")
		}
		return nil, err
	}
	receiver, err := s.users.GetByID(ctx, req.ReceiverID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.NewNotFoundError("receiver")
		}
		return nil, err
	}

	msg, err := s.chat.SendMessage(ctx, senderID, receiver.ID, content)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.NewNotFoundError("receiver")
		}
		return nil, err
	}

	s.deliver(sender, receiver, msg)
	return msg, nil
}

// ConversationMessages returns the messages of a conversation the caller takes part in
func (s *ChatService) ConversationMessages(ctx context.Context, callerID, conversationID int64) ([]*models.Message, error) {
	conv, err := s.chat.GetConversation(ctx, conversationID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.NewNotFoundError("conversation")
		}
		return nil, err
	}
	if conv.User1ID != callerID && conv.User2ID != callerID {
		return nil, models.NewForbiddenError("you are not part of this conversation")
	}
	return s.chat.ListMessages(ctx, conv.ID, messageHistoryLimit)
}

// History returns the messages exchanged by two users, empty if they never talked
func (s *ChatService) History(ctx context.Context, callerID, userA, userB int64) ([]*models.Message, error) {
	if callerID != userA && callerID != userB {
		return nil, models.NewForbiddenError("you can only read your own conversations")
	}
	conv, err := s.chat.FindConversation(ctx, userA, userB)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return []*models.Message{}, nil
		}
		return nil, err
	}
	return s.chat.ListMessages(ctx, conv.ID, messageHistoryLimit)
}

// Conversations lists the caller's conversations, most recent first
func (s *ChatService) Conversations(ctx context.Context, userID int64) ([]*models.ConversationSummary, error) {
	return s.chat.ListConversations(ctx, userID)
}

// deliver pushes the message over the websocket, falling back to APNs
// when the receiver is offline and registered a device token
func (s *ChatService) deliver(sender, receiver *models.User, msg *models.Message) {
	if s.publisher != nil && s.publisher.IsOnline(receiver.ID) {
		message := WSMessage{
			Type:     EventNewMessage,
			SenderID: sender.ID,
			Data:     msg,
		}
		err := s.publisher.SendToUser(receiver.ID, message)
		if err == nil {
			return
		}
		log.Warn().Err(err).Int64("user_id", receiver.ID).Msg("Failed to deliver message over websocket")
	}

	if s.pusher == nil || receiver.PushToken == nil || *receiver.PushToken == "" {
		return
	}

	// The request context may already be done once the handler returns.
	go func(token string) {
		ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
		defer cancel()
		if err := s.pusher.Notify(ctx, token, sender.Name, preview(msg.Content)); err != nil {
			log.Warn().Err(err).Int64("user_id", receiver.ID).Msg("Failed to send push notification")
		}
	}(*receiver.PushToken)
}

func preview(content string) string {
	runes := []rune(content)
	if len(runes) <= pushPreviewLength {
		return content
	}
	return string(runes[:pushPreviewLength]) + "…"
}
