package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"connectiu-backend/internal/metrics"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const writeWait = 10 * time.Second

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type       string      `json:"type"`
	SenderID   int64       `json:"sender_id,omitempty"`
	ReceiverID int64       `json:"receiver_id,omitempty"`
	Message    string      `json:"message,omitempty"`
	Data       interface{} `json:"data,omitempty"`
}

// wsClient serializes writes; gorilla connections allow one concurrent writer
type wsClient struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *wsClient) write(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// WSHub manages WebSocket connections, one per user
type WSHub struct {
	mu          sync.RWMutex
	connections map[int64]*wsClient
}

// NewWSHub creates a new WebSocket hub
func NewWSHub() *WSHub {
	return &WSHub{
		connections: make(map[int64]*wsClient),
	}
}

// Register registers a new WebSocket connection for a user, replacing any previous one
func (h *WSHub) Register(userID int64, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if existing, exists := h.connections[userID]; exists {
		existing.conn.Close()
	} else {
		metrics.WSConnections.Inc()
	}

	h.connections[userID] = &wsClient{conn: conn}

	log.Info().Int64("user_id", userID).Msg("WebSocket connection registered")
}

// Unregister removes conn for a user. A newer connection registered by the
// same user is left alone.
func (h *WSHub) Unregister(userID int64, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client, exists := h.connections[userID]
	if !exists || client.conn != conn {
		return
	}
	client.conn.Close()
	delete(h.connections, userID)
	metrics.WSConnections.Dec()
	log.Info().Int64("user_id", userID).Msg("WebSocket connection unregistered")
}

// SendToUser sends a message to a specific user
func (h *WSHub) SendToUser(userID int64, message WSMessage) error {
	h.mu.RLock()
	client, exists := h.connections[userID]
	h.mu.RUnlock()

	if !exists {
		return fmt.Errorf("user %d is not connected", userID)
	}

	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	if err := client.write(data); err != nil {
		h.Unregister(userID, client.conn)
		return fmt.Errorf("failed to send message: %w", err)
	}

	return nil
}

// IsOnline checks if a user is online
func (h *WSHub) IsOnline(userID int64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, exists := h.connections[userID]
	return exists
}

// OnlineCount returns the number of connected users
func (h *WSHub) OnlineCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// ErrInvalidReceiver is returned by RelayTyping for a missing or self receiver
var ErrInvalidReceiver = errors.New("invalid receiver_id")

// RelayTyping forwards a typing indicator from senderID to receiverID.
// Offline receivers are ignored.
func (h *WSHub) RelayTyping(senderID, receiverID int64) error {
	if receiverID <= 0 || receiverID == senderID {
		return ErrInvalidReceiver
	}
	if !h.IsOnline(receiverID) {
		return nil
	}
	return h.SendToUser(receiverID, WSMessage{
		Type:     EventTyping,
		SenderID: senderID,
	})
}

// SendError sends an error event to a user
func (h *WSHub) SendError(userID int64, text string) error {
	return h.SendToUser(userID, WSMessage{Type: EventError, Message: text})
}

// Close closes every connection
func (h *WSHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for userID, client := range h.connections {
		client.conn.Close()
		delete(h.connections, userID)
		metrics.WSConnections.Dec()
	}
}
