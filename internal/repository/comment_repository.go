package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ririnrahma1306/campusboard/internal/models"
)

// CommentRepository provides database access for announcement comments.
type CommentRepository struct {
	db *sqlx.DB
}

// NewCommentRepository creates a new instance of CommentRepository.
func NewCommentRepository(db *sqlx.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

const commentColumns = `id, announcement_id, author_id, author_name, author_role, author_photo_path, content, reports, is_reported, created_at`

// Create inserts a new comment row.
func (r *CommentRepository) Create(ctx context.Context, c *models.Comment) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	if c.Reports == nil {
		c.Reports = pq.StringArray{}
	}

	const query = `INSERT INTO comments (id, announcement_id, author_id, author_name, author_role, author_photo_path, content, reports, is_reported, created_at)
VALUES (:id, :announcement_id, :author_id, :author_name, :author_role, :author_photo_path, :content, :reports, :is_reported, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, c); err != nil {
		return fmt.Errorf("create comment: %w", err)
	}
	return nil
}

// FindByID returns a comment by identifier.
func (r *CommentRepository) FindByID(ctx context.Context, id string) (*models.Comment, error) {
	query := `SELECT ` + commentColumns + ` FROM comments WHERE id = $1 LIMIT 1`
	var c models.Comment
	if err := r.db.GetContext(ctx, &c, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find comment by id: %w", err)
	}
	return &c, nil
}

// ListByAnnouncement returns comments for an announcement, oldest first.
func (r *CommentRepository) ListByAnnouncement(ctx context.Context, announcementID string) ([]models.Comment, error) {
	query := `SELECT ` + commentColumns + ` FROM comments WHERE announcement_id = $1 ORDER BY created_at ASC`
	var rows []models.Comment
	if err := r.db.SelectContext(ctx, &rows, query, announcementID); err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return rows, nil
}

// ListReported returns comments flagged for moderation, newest first.
func (r *CommentRepository) ListReported(ctx context.Context) ([]models.Comment, error) {
	query := `SELECT ` + commentColumns + ` FROM comments WHERE is_reported = TRUE ORDER BY created_at DESC`
	var rows []models.Comment
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list reported comments: %w", err)
	}
	return rows, nil
}

// AddReport appends a reporter id and flags the comment. The reporter
// set stays duplicate free because callers check membership first and
// array_append runs under the same row update.
func (r *CommentRepository) AddReport(ctx context.Context, id, reporterID string) error {
	const query = `UPDATE comments SET reports = array_append(reports, $2), is_reported = TRUE WHERE id = $1 AND NOT ($2 = ANY(reports))`
	if _, err := r.db.ExecContext(ctx, query, id, reporterID); err != nil {
		return fmt.Errorf("add comment report: %w", err)
	}
	return nil
}

// ClearReports dismisses all reports on a comment.
func (r *CommentRepository) ClearReports(ctx context.Context, id string) error {
	const query = `UPDATE comments SET reports = '{}', is_reported = FALSE WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("clear comment reports: %w", err)
	}
	return nil
}

// UpdateContent replaces the comment text.
func (r *CommentRepository) UpdateContent(ctx context.Context, id, content string) error {
	const query = `UPDATE comments SET content = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, content); err != nil {
		return fmt.Errorf("update comment content: %w", err)
	}
	return nil
}

// Delete removes a comment row.
func (r *CommentRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM comments WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	return nil
}
