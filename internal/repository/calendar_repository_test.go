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

func TestListCalendarEntriesByUser(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCalendarRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "user_id", "event_id", "event_title", "event_date", "event_end_date", "added_at"}).
		AddRow("e1", "u1", "ev1", "Wisuda", "2026-09-15", nil, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, event_id, event_title, event_date, event_end_date, added_at FROM calendar_entries WHERE user_id = $1 ORDER BY event_date ASC, added_at ASC")).
		WithArgs("u1").
		WillReturnRows(rows)

	entries, err := repo.ListByUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, "Wisuda", entries[0].EventTitle)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateCalendarEntry(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCalendarRepository(db)

	mock.ExpectExec("INSERT INTO calendar_entries").WillReturnResult(sqlmock.NewResult(1, 1))

	entry := &models.CalendarEntry{UserID: "u1", EventID: "ev1", EventTitle: "Wisuda", EventDate: "2026-09-15"}
	require.NoError(t, repo.Create(context.Background(), entry))
	assert.NotEmpty(t, entry.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteCalendarEntriesByEvent(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCalendarRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM calendar_entries WHERE event_id = $1")).
		WithArgs("ev1").
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, repo.DeleteByEvent(context.Background(), "ev1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
