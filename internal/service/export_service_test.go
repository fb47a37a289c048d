package service

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ririnrahma1306/campusboard/internal/models"
	"github.com/ririnrahma1306/campusboard/pkg/export"
	"github.com/ririnrahma1306/campusboard/pkg/storage"
)

type recapStub struct{}

func (recapStub) List(ctx context.Context, filter models.AnnouncementFilter) ([]models.Announcement, int, error) {
	start := "2025-03-10"
	return []models.Announcement{
		{ID: "a1", Title: "Seminar Nasional", Category: models.CategorySeminar, Status: models.StatusPublished, AuthorName: "Andi", StartDate: &start, CreatedAt: time.Now()},
	}, 1, nil
}

type eventRecapStub struct{}

func (eventRecapStub) List(ctx context.Context, filter models.EventFilter) ([]models.Event, int, error) {
	return []models.Event{
		{ID: "e1", Title: "Wisuda", StartDate: "2025-03-15", EndDate: "2025-03-16", Location: models.DefaultEventLocation, CreatedAt: time.Now()},
	}, 1, nil
}

func newExportServiceForTest(t *testing.T) (*ExportService, *storage.LocalStorage) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	cfg := ExportConfig{APIPrefix: "/api/v1", ResultTTL: time.Hour}
	svc := NewExportService(recapStub{}, eventRecapStub{}, store, signer, cfg, zap.NewNop(), export.NewCSVExporter(), export.NewPDFExporter())
	return svc, store
}

func TestExportServiceGenerateCSV(t *testing.T) {
	svc, store := newExportServiceForTest(t)
	job := &models.ExportJob{
		ID:        "job-1",
		Type:      models.ExportTypeAnnouncements,
		Params:    models.ExportJobParams{Format: models.ExportFormatCSV},
		CreatedBy: "admin",
	}
	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)
	require.NotEmpty(t, result.RelativePath)
	require.Contains(t, result.URL, "/exports/download/")

	path, err := store.Path(result.RelativePath)
	require.NoError(t, err)
	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Greater(t, info.Size(), int64(0))
}

func TestExportServiceGeneratePDF(t *testing.T) {
	svc, store := newExportServiceForTest(t)
	job := &models.ExportJob{
		ID:        "job-2",
		Type:      models.ExportTypeEvents,
		Params:    models.ExportJobParams{Format: models.ExportFormatPDF},
		CreatedBy: "admin",
	}
	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)
	require.NotEmpty(t, result.RelativePath)

	path, err := store.Path(result.RelativePath)
	require.NoError(t, err)
	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Greater(t, info.Size(), int64(0))
}

type pagedAnnouncementStub struct {
	rows    []models.Announcement
	filters []models.AnnouncementFilter
}

func (s *pagedAnnouncementStub) List(ctx context.Context, filter models.AnnouncementFilter) ([]models.Announcement, int, error) {
	s.filters = append(s.filters, filter)
	offset := (filter.Page - 1) * filter.PageSize
	if offset >= len(s.rows) {
		return nil, len(s.rows), nil
	}
	end := offset + filter.PageSize
	if end > len(s.rows) {
		end = len(s.rows)
	}
	return s.rows[offset:end], len(s.rows), nil
}

type pagedEventStub struct {
	rows []models.Event
}

func (s *pagedEventStub) List(ctx context.Context, filter models.EventFilter) ([]models.Event, int, error) {
	offset := (filter.Page - 1) * filter.PageSize
	if offset >= len(s.rows) {
		return nil, len(s.rows), nil
	}
	end := offset + filter.PageSize
	if end > len(s.rows) {
		end = len(s.rows)
	}
	return s.rows[offset:end], len(s.rows), nil
}

func TestExportServiceAnnouncementRecapCoversAllPages(t *testing.T) {
	announcements := &pagedAnnouncementStub{}
	for i := 0; i < 230; i++ {
		announcements.rows = append(announcements.rows, models.Announcement{
			ID: uuid.NewString(), Title: "Pengumuman", Category: models.CategorySeminar,
			Status: models.StatusPublished, AuthorName: "Andi", CreatedAt: time.Now(),
		})
	}
	svc := NewExportService(announcements, eventRecapStub{}, nil, nil, ExportConfig{}, zap.NewNop(), nil, nil)

	dataset, _, err := svc.buildAnnouncementDataset(context.Background(), models.ExportJobParams{Format: models.ExportFormatCSV})
	require.NoError(t, err)
	require.Len(t, dataset.Rows, 230)
}

func TestExportServiceEventRecapCoversAllPages(t *testing.T) {
	events := &pagedEventStub{}
	for i := 0; i < 150; i++ {
		events.rows = append(events.rows, models.Event{
			ID: uuid.NewString(), Title: "Acara", StartDate: "2025-03-15", CreatedAt: time.Now(),
		})
	}
	svc := NewExportService(recapStub{}, events, nil, nil, ExportConfig{}, zap.NewNop(), nil, nil)

	dataset, _, err := svc.buildEventDataset(context.Background(), models.ExportJobParams{Format: models.ExportFormatCSV})
	require.NoError(t, err)
	require.Len(t, dataset.Rows, 150)
}

func TestExportServiceAnnouncementRecapAppliesDateRange(t *testing.T) {
	from, to := "2025-03-01", "2025-03-31"
	announcements := &pagedAnnouncementStub{}
	svc := NewExportService(announcements, eventRecapStub{}, nil, nil, ExportConfig{}, zap.NewNop(), nil, nil)

	_, _, err := svc.buildAnnouncementDataset(context.Background(), models.ExportJobParams{
		Format: models.ExportFormatCSV, FromDate: &from, ToDate: &to,
	})
	require.NoError(t, err)
	require.NotEmpty(t, announcements.filters)
	require.Equal(t, from, announcements.filters[0].CreatedFrom)
	require.Equal(t, to, announcements.filters[0].CreatedTo)
}

func TestExportServiceTokenRoundTrip(t *testing.T) {
	svc, _ := newExportServiceForTest(t)
	job := &models.ExportJob{
		ID:        "job-3",
		Type:      models.ExportTypeAnnouncements,
		Params:    models.ExportJobParams{Format: models.ExportFormatCSV},
		CreatedBy: "admin",
	}
	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)

	claims, err := svc.ParseToken(result.Token, false)
	require.NoError(t, err)
	require.Equal(t, job.ID, claims.JobID)
	require.Equal(t, result.RelativePath, claims.Path)

	f, err := svc.Open(claims.Path)
	require.NoError(t, err)
	require.NoError(t, f.Close())
}
