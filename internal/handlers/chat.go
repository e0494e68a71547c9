package handlers

import (
	"net/http"

	"connectiu-backend/internal/middleware"
	"connectiu-backend/internal/services"
)

// ChatHandler handles direct message requests
type ChatHandler struct {
	chatService *services.ChatService
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chatService *services.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// Send handles POST /api/chat/send
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req services.SendMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	msg, err := h.chatService.SendMessage(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		respondServiceError(w, r, err, "Failed to send message")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"success":         true,
		"conversation_id": msg.ConversationID,
		"message":         msg,
	})
}

// Messages handles GET /api/chat/{conversationId}
func (h *ChatHandler) Messages(w http.ResponseWriter, r *http.Request) {
	conversationID, ok := urlID(w, r, "conversationId")
	if !ok {
		return
	}

	msgs, err := h.chatService.ConversationMessages(r.Context(), middleware.GetUserID(r.Context()), conversationID)
	if err != nil {
		respondServiceError(w, r, err, "Failed to get messages")
		return
	}
	respondJSON(w, http.StatusOK, msgs)
}

// History handles GET /api/chat/history/{user1}/{user2}
func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	user1, ok := urlID(w, r, "user1")
	if !ok {
		return
	}
	user2, ok := urlID(w, r, "user2")
	if !ok {
		return
	}

	msgs, err := h.chatService.History(r.Context(), middleware.GetUserID(r.Context()), user1, user2)
	if err != nil {
		respondServiceError(w, r, err, "Failed to get chat history")
		return
	}
	respondJSON(w, http.StatusOK, msgs)
}

// Conversations handles GET /api/chat/conversations
func (h *ChatHandler) Conversations(w http.ResponseWriter, r *http.Request) {
	convs, err := h.chatService.Conversations(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		respondServiceError(w, r, err, "Failed to get conversations")
		return
	}
	respondJSON(w, http.StatusOK, convs)
}
