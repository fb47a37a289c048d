package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ririnrahma1306/campusboard/internal/models"
)

func announcementRows(now time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "title", "content", "category", "status", "image_path", "video_url", "start_date", "end_date", "location", "author_id", "author_name", "approved_by", "approved_at", "created_at", "updated_at"}).
		AddRow("a1", "Seminar AI", "Detail acara", string(models.CategorySeminar), string(models.StatusPublished), nil, nil, "2026-09-10", "2026-09-10", "Aula Utama", "u1", "Rina", "admin1", now, now, now)
}

func TestCreateAnnouncement(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAnnouncementRepository(db)

	mock.ExpectExec("INSERT INTO announcements").WillReturnResult(sqlmock.NewResult(1, 1))

	a := &models.Announcement{
		Title:      "Seminar AI",
		Content:    "Detail acara",
		Category:   models.CategorySeminar,
		Status:     models.StatusPending,
		AuthorID:   "u1",
		AuthorName: "Rina",
	}
	require.NoError(t, repo.Create(context.Background(), a))
	assert.NotEmpty(t, a.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListAnnouncementsByStatusAndCategory(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAnnouncementRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, title, content, category, status, image_path, start_date, end_date, author_id, author_name, approved_by, approved_at, created_at, updated_at FROM announcements WHERE 1=1 AND status = $1 AND category = $2 ORDER BY created_at DESC LIMIT 20 OFFSET 0")).
		WithArgs(string(models.StatusPublished), string(models.CategorySeminar)).
		WillReturnRows(announcementRows(time.Now()))

	countRows := sqlmock.NewRows([]string{"count"}).AddRow(1)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM announcements WHERE 1=1 AND status = $1 AND category = $2")).
		WithArgs(string(models.StatusPublished), string(models.CategorySeminar)).
		WillReturnRows(countRows)

	status := models.StatusPublished
	category := models.CategorySeminar
	rows, total, err := repo.List(context.Background(), models.AnnouncementFilter{Status: &status, Category: &category})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateAnnouncementStatus(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAnnouncementRepository(db)

	approver := "admin1"
	now := time.Now()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE announcements SET status = $2, approved_by = $3, approved_at = $4, updated_at = $5 WHERE id = $1")).
		WithArgs("a1", string(models.StatusPublished), &approver, &now, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateStatus(context.Background(), "a1", models.StatusPublished, &approver, &now))
	assert.NoError(t, mock.ExpectationsWereMet())
}
