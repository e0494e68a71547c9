package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"connectiu-backend/internal/models"
)

// fecha layouts accepted on create, RFC 3339 first
var eventDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// EventService handles events and attendance
type EventService struct {
	events EventStore
}

// NewEventService creates a new event service
func NewEventService(events EventStore) *EventService {
	return &EventService{events: events}
}

// EventRequest represents a create event request
type EventRequest struct {
	Titulo string `json:"titulo"`
	Lugar  string `json:"lugar"`
	Fecha  string `json:"fecha"`
}

// AttendanceResult is the state after an attendance toggle
type AttendanceResult struct {
	Asistiendo      bool  `json:"asistiendo"`
	AsistentesCount int64 `json:"asistentes_count"`
}

// ListEvents returns all events ordered by date, with attendance for viewerID
func (s *EventService) ListEvents(ctx context.Context, viewerID int64) ([]*models.Event, error) {
	return s.events.List(ctx, viewerID)
}

// CreateEvent creates an event owned by userID
func (s *EventService) CreateEvent(ctx context.Context, userID int64, req EventRequest) (*models.Event, error) {
	titulo := strings.TrimSpace(req.Titulo)
	lugar := strings.TrimSpace(req.Lugar)
	fecha := strings.TrimSpace(req.Fecha)
	if titulo == "" || lugar == "" || fecha == "" {
		return nil, models.NewValidationError("titulo, lugar and fecha are required")
	}

	when, err := parseEventDate(fecha)
	if err != nil {
		return nil, models.NewValidationError("invalid fecha")
	}

	event := &models.Event{
		Titulo: titulo,
		Lugar:  lugar,
		Fecha:  when,
		UserID: userID,
	}
	if err := s.events.Create(ctx, event); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.NewNotFoundError("user")
		}
		return nil, err
	}
	return event, nil
}

// ToggleAttendance marks or unmarks userID as attending an event
func (s *EventService) ToggleAttendance(ctx context.Context, userID, eventID int64) (*AttendanceResult, error) {
	if eventID <= 0 {
		return nil, models.NewValidationError("evento_id is required")
	}
	exists, err := s.events.Exists(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, models.NewNotFoundError("event")
	}

	attending, count, err := s.events.ToggleAttendance(ctx, eventID, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.NewNotFoundError("event")
		}
		return nil, err
	}
	return &AttendanceResult{Asistiendo: attending, AsistentesCount: count}, nil
}

func parseEventDate(value string) (time.Time, error) {
	var lastErr error
	for _, layout := range eventDateLayouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
