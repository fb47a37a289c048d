package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ririnrahma1306/campusboard/internal/models"
)

// EventRepository provides database access for campus events.
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository creates a new instance of EventRepository.
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

const eventColumns = `id, title, description, start_date, end_date, location, source_announcement_id, created_by, created_at, updated_at`

// Create inserts a new event row.
func (r *EventRepository) Create(ctx context.Context, e *models.Event) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = now

	const query = `INSERT INTO events (id, title, description, start_date, end_date, location, source_announcement_id, created_by, created_at, updated_at)
VALUES (:id, :title, :description, :start_date, :end_date, :location, :source_announcement_id, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, e); err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

// FindByID returns an event by identifier.
func (r *EventRepository) FindByID(ctx context.Context, id string) (*models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1 LIMIT 1`
	var e models.Event
	if err := r.db.GetContext(ctx, &e, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find event by id: %w", err)
	}
	return &e, nil
}

// List returns events ordered by start date ascending. Date bounds
// compare as plain strings since dates are stored in ISO form.
func (r *EventRepository) List(ctx context.Context, filter models.EventFilter) ([]models.Event, int, error) {
	baseQuery := `FROM events WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.FromDate != "" {
		conditions = append(conditions, fmt.Sprintf("COALESCE(NULLIF(end_date, ''), start_date) >= $%d", len(args)+1))
		args = append(args, filter.FromDate)
	}
	if filter.ToDate != "" {
		conditions = append(conditions, fmt.Sprintf("start_date <= $%d", len(args)+1))
		args = append(args, filter.ToDate)
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY start_date ASC, created_at ASC LIMIT %d OFFSET %d", eventColumns, baseQuery, pageSize, offset)

	var rows []models.Event
	if err := r.db.SelectContext(ctx, &rows, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list events: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count events: %w", err)
	}

	return rows, total, nil
}

// DeleteBySourceAnnouncement removes events spawned from an announcement.
func (r *EventRepository) DeleteBySourceAnnouncement(ctx context.Context, announcementID string) error {
	const query = `DELETE FROM events WHERE source_announcement_id = $1`
	if _, err := r.db.ExecContext(ctx, query, announcementID); err != nil {
		return fmt.Errorf("delete events by source announcement: %w", err)
	}
	return nil
}

// Delete removes an event. Saved calendar entries cascade at the schema level.
func (r *EventRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM events WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}
