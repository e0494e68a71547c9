package repository

import (
	"context"
	"fmt"

	"connectiu-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EventRepository handles database operations for events and attendance
type EventRepository struct {
	db *pgxpool.Pool
}

// NewEventRepository creates a new event repository
func NewEventRepository(db *pgxpool.Pool) *EventRepository {
	return &EventRepository{db: db}
}

// Create creates a new event
func (r *EventRepository) Create(ctx context.Context, event *models.Event) error {
	query := `
		INSERT INTO eventos (titulo, lugar, fecha, user_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	err := r.db.QueryRow(ctx, query, event.Titulo, event.Lugar, event.Fecha, event.UserID).
		Scan(&event.ID, &event.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("failed to create event: %w", models.ErrNotFound)
		}
		return fmt.Errorf("failed to create event: %w", err)
	}
	return nil
}

// Exists checks if an event exists
func (r *EventRepository) Exists(ctx context.Context, id int64) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM eventos WHERE id = $1)`
	var exists bool
	if err := r.db.QueryRow(ctx, query, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check event existence: %w", err)
	}
	return exists, nil
}

// List returns events by date with creator, attendance count and the viewer's attendance
func (r *EventRepository) List(ctx context.Context, viewerID int64) ([]*models.Event, error) {
	query := `
		SELECT e.id, e.titulo, e.lugar, e.fecha, e.user_id, e.created_at,
		       u.name, u.avatar_url,
		       COUNT(a.user_id) AS asistentes_count,
		       COALESCE(BOOL_OR(a.user_id = $1), false) AS asistiendo
		FROM eventos e
		JOIN users u ON u.id = e.user_id
		LEFT JOIN asistencias a ON a.evento_id = e.id
		GROUP BY e.id, u.id
		ORDER BY e.fecha ASC, e.id ASC
	`
	rows, err := r.db.Query(ctx, query, viewerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}
	defer rows.Close()

	events := []*models.Event{}
	for rows.Next() {
		var e models.Event
		err := rows.Scan(
			&e.ID, &e.Titulo, &e.Lugar, &e.Fecha, &e.UserID, &e.CreatedAt,
			&e.CreadorNombre, &e.AvatarURL, &e.AsistentesCount, &e.Asistiendo,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}
	return events, nil
}

// ToggleAttendance flips userID's attendance to eventID and returns the
// new state and attendee count
func (r *EventRepository) ToggleAttendance(ctx context.Context, eventID, userID int64) (bool, int64, error) {
	var attending bool
	var count int64
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		result, err := tx.Exec(ctx,
			`DELETE FROM asistencias WHERE evento_id = $1 AND user_id = $2`,
			eventID, userID,
		)
		if err != nil {
			return fmt.Errorf("failed to delete attendance: %w", err)
		}
		if result.RowsAffected() == 0 {
			_, err := tx.Exec(ctx, `
				INSERT INTO asistencias (evento_id, user_id) VALUES ($1, $2)
				ON CONFLICT (user_id, evento_id) DO NOTHING
			`, eventID, userID)
			if err != nil {
				if isForeignKeyViolation(err) {
					return fmt.Errorf("event not found: %w", models.ErrNotFound)
				}
				return fmt.Errorf("failed to insert attendance: %w", err)
			}
			attending = true
		}
		err = tx.QueryRow(ctx, `SELECT COUNT(*) FROM asistencias WHERE evento_id = $1`, eventID).Scan(&count)
		if err != nil {
			return fmt.Errorf("failed to count attendance: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, 0, err
	}
	return attending, count, nil
}
