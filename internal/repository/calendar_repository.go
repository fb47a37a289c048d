package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ririnrahma1306/campusboard/internal/models"
)

// CalendarRepository provides database access for personal calendar entries.
type CalendarRepository struct {
	db *sqlx.DB
}

// NewCalendarRepository creates a new instance of CalendarRepository.
func NewCalendarRepository(db *sqlx.DB) *CalendarRepository {
	return &CalendarRepository{db: db}
}

const calendarColumns = `id, user_id, event_id, event_title, event_date, event_end_date, added_at`

// Create inserts a saved entry. The (user_id, event_id) pair is unique
// at the schema level so double saves surface as constraint violations.
func (r *CalendarRepository) Create(ctx context.Context, e *models.CalendarEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.AddedAt.IsZero() {
		e.AddedAt = time.Now().UTC()
	}

	const query = `INSERT INTO calendar_entries (id, user_id, event_id, event_title, event_date, event_end_date, added_at)
VALUES (:id, :user_id, :event_id, :event_title, :event_date, :event_end_date, :added_at)`
	if _, err := r.db.NamedExecContext(ctx, query, e); err != nil {
		return fmt.Errorf("create calendar entry: %w", err)
	}
	return nil
}

// FindByUserAndEvent returns the user's entry for an event, if saved.
func (r *CalendarRepository) FindByUserAndEvent(ctx context.Context, userID, eventID string) (*models.CalendarEntry, error) {
	query := `SELECT ` + calendarColumns + ` FROM calendar_entries WHERE user_id = $1 AND event_id = $2 LIMIT 1`
	var e models.CalendarEntry
	if err := r.db.GetContext(ctx, &e, query, userID, eventID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find calendar entry: %w", err)
	}
	return &e, nil
}

// ListByUser returns all of a user's saved entries ordered by event date.
func (r *CalendarRepository) ListByUser(ctx context.Context, userID string) ([]models.CalendarEntry, error) {
	query := `SELECT ` + calendarColumns + ` FROM calendar_entries WHERE user_id = $1 ORDER BY event_date ASC, added_at ASC`
	var rows []models.CalendarEntry
	if err := r.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, fmt.Errorf("list calendar entries: %w", err)
	}
	return rows, nil
}

// DeleteByUserAndEvent removes the user's entry for an event.
func (r *CalendarRepository) DeleteByUserAndEvent(ctx context.Context, userID, eventID string) error {
	const query = `DELETE FROM calendar_entries WHERE user_id = $1 AND event_id = $2`
	if _, err := r.db.ExecContext(ctx, query, userID, eventID); err != nil {
		return fmt.Errorf("delete calendar entry: %w", err)
	}
	return nil
}

// DeleteByEvent removes every user's entry for a deleted event.
func (r *CalendarRepository) DeleteByEvent(ctx context.Context, eventID string) error {
	const query = `DELETE FROM calendar_entries WHERE event_id = $1`
	if _, err := r.db.ExecContext(ctx, query, eventID); err != nil {
		return fmt.Errorf("delete calendar entries by event: %w", err)
	}
	return nil
}

// DeleteByUser clears a user's calendar (used on account deletion).
func (r *CalendarRepository) DeleteByUser(ctx context.Context, userID string) error {
	const query = `DELETE FROM calendar_entries WHERE user_id = $1`
	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("delete calendar entries by user: %w", err)
	}
	return nil
}
