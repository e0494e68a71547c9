package handlers

import (
	"net/http"

	"connectiu-backend/internal/middleware"
	"connectiu-backend/internal/services"
)

// EventHandler handles event requests
type EventHandler struct {
	eventService *services.EventService
}

// NewEventHandler creates a new event handler
func NewEventHandler(eventService *services.EventService) *EventHandler {
	return &EventHandler{eventService: eventService}
}

type attendRequest struct {
	EventoID int64 `json:"evento_id"`
}

// ListEvents handles GET /api/eventos
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.eventService.ListEvents(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		respondServiceError(w, r, err, "Failed to get events")
		return
	}
	respondJSON(w, http.StatusOK, events)
}

// CreateEvent handles POST /api/eventos
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req services.EventRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	event, err := h.eventService.CreateEvent(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		respondServiceError(w, r, err, "Failed to create event")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"evento":  event,
	})
}

// ToggleAttendance handles POST /api/eventos/asistir
func (h *EventHandler) ToggleAttendance(w http.ResponseWriter, r *http.Request) {
	var req attendRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.eventService.ToggleAttendance(r.Context(), middleware.GetUserID(r.Context()), req.EventoID)
	if err != nil {
		respondServiceError(w, r, err, "Failed to update attendance")
		return
	}
	respondJSON(w, http.StatusOK, res)
}
