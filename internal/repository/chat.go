package repository

import (
	"context"
	"fmt"
	"time"

	"connectiu-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ChatRepository handles database operations for conversations and messages
type ChatRepository struct {
	db *pgxpool.Pool
}

// NewChatRepository creates a new chat repository
func NewChatRepository(db *pgxpool.Pool) *ChatRepository {
	return &ChatRepository{db: db}
}

// findOrCreateConversation relies on the (user1_id, user2_id) unique key: the
// no-op DO UPDATE makes RETURNING yield the existing row on conflict.
const findOrCreateConversation = `
	INSERT INTO conversations (user1_id, user2_id)
	VALUES ($1, $2)
	ON CONFLICT (user1_id, user2_id) DO UPDATE SET user1_id = EXCLUDED.user1_id
	RETURNING id, user1_id, user2_id, created_at
`

// SendMessage finds or creates the conversation between sender and receiver
// and appends a message to it, in one transaction
func (r *ChatRepository) SendMessage(ctx context.Context, senderID, receiverID int64, content string) (*models.Message, error) {
	user1, user2 := models.OrderedPair(senderID, receiverID)
	msg := &models.Message{SenderID: senderID, Content: content}

	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		var conv models.Conversation
		err := tx.QueryRow(ctx, findOrCreateConversation, user1, user2).
			Scan(&conv.ID, &conv.User1ID, &conv.User2ID, &conv.CreatedAt)
		if err != nil {
			if isForeignKeyViolation(err) {
				return fmt.Errorf("user not found: %w", models.ErrNotFound)
			}
			return fmt.Errorf("failed to find or create conversation: %w", err)
		}

		msg.ConversationID = conv.ID
		err = tx.QueryRow(ctx, `
			INSERT INTO messages (conversation_id, sender_id, content)
			VALUES ($1, $2, $3)
			RETURNING id, created_at
		`, conv.ID, senderID, content).Scan(&msg.ID, &msg.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to create message: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// GetConversation retrieves a conversation by ID
func (r *ChatRepository) GetConversation(ctx context.Context, id int64) (*models.Conversation, error) {
	query := `SELECT id, user1_id, user2_id, created_at FROM conversations WHERE id = $1`
	var conv models.Conversation
	err := r.db.QueryRow(ctx, query, id).Scan(&conv.ID, &conv.User1ID, &conv.User2ID, &conv.CreatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("conversation not found: %w", models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	return &conv, nil
}

// FindConversation retrieves the conversation of an unordered user pair
func (r *ChatRepository) FindConversation(ctx context.Context, userA, userB int64) (*models.Conversation, error) {
	user1, user2 := models.OrderedPair(userA, userB)
	query := `
		SELECT id, user1_id, user2_id, created_at
		FROM conversations
		WHERE user1_id = $1 AND user2_id = $2
	`
	var conv models.Conversation
	err := r.db.QueryRow(ctx, query, user1, user2).Scan(&conv.ID, &conv.User1ID, &conv.User2ID, &conv.CreatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("conversation not found: %w", models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find conversation: %w", err)
	}
	return &conv, nil
}

// ListMessages returns the messages of a conversation oldest first
func (r *ChatRepository) ListMessages(ctx context.Context, conversationID int64, limit int) ([]*models.Message, error) {
	query := `
		SELECT id, conversation_id, sender_id, content, created_at
		FROM (
			SELECT id, conversation_id, sender_id, content, created_at
			FROM messages
			WHERE conversation_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2
		) recent
		ORDER BY created_at ASC, id ASC
	`
	rows, err := r.db.Query(ctx, query, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}
	defer rows.Close()

	messages := []*models.Message{}
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}
	return messages, nil
}

// ListConversations returns userID's conversations with the other participant
// and the latest message, most recently active first
func (r *ChatRepository) ListConversations(ctx context.Context, userID int64) ([]*models.ConversationSummary, error) {
	query := `
		SELECT c.id, u.id, u.name, u.username, u.avatar_url,
		       m.id, m.sender_id, m.content, m.created_at
		FROM conversations c
		JOIN users u
		  ON u.id = CASE WHEN c.user1_id = $1 THEN c.user2_id ELSE c.user1_id END
		LEFT JOIN LATERAL (
			SELECT id, sender_id, content, created_at
			FROM messages
			WHERE conversation_id = c.id
			ORDER BY created_at DESC, id DESC
			LIMIT 1
		) m ON true
		WHERE c.user1_id = $1 OR c.user2_id = $1
		ORDER BY COALESCE(m.created_at, c.created_at) DESC
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get conversations: %w", err)
	}
	defer rows.Close()

	summaries := []*models.ConversationSummary{}
	for rows.Next() {
		var (
			s         models.ConversationSummary
			msgID     *int64
			senderID  *int64
			content   *string
			createdAt *time.Time
		)
		err := rows.Scan(
			&s.ID, &s.OtherUser.ID, &s.OtherUser.Name, &s.OtherUser.Username, &s.OtherUser.AvatarURL,
			&msgID, &senderID, &content, &createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		if msgID != nil {
			s.LastMessage = &models.Message{
				ID:             *msgID,
				ConversationID: s.ID,
				SenderID:       *senderID,
				Content:        *content,
				CreatedAt:      *createdAt,
			}
		}
		summaries = append(summaries, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating conversations: %w", err)
	}
	return summaries, nil
}
