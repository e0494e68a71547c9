package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"connectiu-backend/internal/middleware"
	"connectiu-backend/internal/services"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const maxWSMessageBytes = 4096

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // browsers authenticate with the token query parameter
	},
}

// WebSocketHandler handles WebSocket connections
type WebSocketHandler struct {
	hub       *services.WSHub
	validator middleware.TokenValidator
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(hub *services.WSHub, validator middleware.TokenValidator) *WebSocketHandler {
	return &WebSocketHandler{
		hub:       hub,
		validator: validator,
	}
}

// HandleWebSocket handles GET /ws?token=
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		respondError(w, "token required", http.StatusUnauthorized)
		return
	}

	userID, err := h.validator.ValidateJWT(token)
	if err != nil {
		respondError(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}
	conn.SetReadLimit(maxWSMessageBytes)

	h.hub.Register(userID, conn)
	defer h.hub.Unregister(userID, conn)

	for {
		_, messageBytes, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Int64("user_id", userID).Msg("WebSocket error")
			}
			return
		}

		var msg services.WSMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			h.sendError(userID, "Invalid message format")
			continue
		}

		h.handleMessage(userID, msg)
	}
}

// handleMessage processes incoming WebSocket messages
func (h *WebSocketHandler) handleMessage(userID int64, msg services.WSMessage) {
	switch msg.Type {
	case services.EventTyping:
		err := h.hub.RelayTyping(userID, msg.ReceiverID)
		switch {
		case errors.Is(err, services.ErrInvalidReceiver):
			h.sendError(userID, "receiver_id is required")
		case err != nil:
			log.Debug().Err(err).Int64("user_id", userID).Int64("receiver_id", msg.ReceiverID).Msg("Failed to relay typing")
		}
	default:
		h.sendError(userID, "Unknown message type")
	}
}

func (h *WebSocketHandler) sendError(userID int64, message string) {
	if err := h.hub.SendError(userID, message); err != nil {
		log.Debug().Err(err).Int64("user_id", userID).Msg("Failed to send WebSocket error")
	}
}
