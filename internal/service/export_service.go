package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ririnrahma1306/campusboard/internal/models"
	"github.com/ririnrahma1306/campusboard/pkg/export"
	"github.com/ririnrahma1306/campusboard/pkg/storage"
)

type recapAnnouncementSource interface {
	List(ctx context.Context, filter models.AnnouncementFilter) ([]models.Announcement, int, error)
}

type recapEventSource interface {
	List(ctx context.Context, filter models.EventFilter) ([]models.Event, int, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ExportFormat
	ExpiresAt    time.Time
}

// ExportService builds recap datasets and persists rendered files.
type ExportService struct {
	announcements recapAnnouncementSource
	events        recapEventSource
	storage       fileStorage
	csv           csvRenderer
	pdf           pdfRenderer
	signer        *storage.SignedURLSigner
	logger        *zap.Logger
	cfg           ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(announcements recapAnnouncementSource, events recapEventSource, fs fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		announcements: announcements,
		events:        events,
		storage:       fs,
		csv:           csv,
		pdf:           pdf,
		signer:        signer,
		logger:        logger,
		cfg:           cfg,
	}
}

// Generate builds the dataset according to the job definition and stores
// the rendered export.
func (s *ExportService) Generate(ctx context.Context, job *models.ExportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	dataset, title, err := s.buildDataset(ctx, job)
	if err != nil {
		return nil, err
	}

	var payload []byte
	switch job.Params.Format {
	case models.ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	default:
		err = fmt.Errorf("unsupported format %s", job.Params.Format)
	}
	if err != nil {
		return nil, err
	}

	filename := s.buildFilename(job)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, err
	}

	token, claims, err := s.signer.Sign(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	signedURL := strings.TrimRight(s.cfg.APIPrefix, "/")
	if signedURL == "" {
		signedURL = "/api/v1"
	}
	signedURL = fmt.Sprintf("%s/exports/download/%s", signedURL, token)

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          signedURL,
		Format:       job.Params.Format,
		ExpiresAt:    claims.ExpiresAt,
	}, nil
}

// ParseToken validates a download token and returns its claims.
func (s *ExportService) ParseToken(token string, allowExpired bool) (storage.DownloadClaims, error) {
	return s.signer.Verify(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) buildFilename(job *models.ExportJob) string {
	timestamp := time.Now().UTC().Format("20060102_150405")
	return fmt.Sprintf("recaps/%s_%s.%s", strings.ToLower(string(job.Type)), timestamp, job.Params.Format)
}

func (s *ExportService) buildDataset(ctx context.Context, job *models.ExportJob) (export.Dataset, string, error) {
	switch job.Type {
	case models.ExportTypeAnnouncements:
		return s.buildAnnouncementDataset(ctx, job.Params)
	case models.ExportTypeEvents:
		return s.buildEventDataset(ctx, job.Params)
	default:
		return export.Dataset{}, "", fmt.Errorf("unsupported export type %s", job.Type)
	}
}

// exportPageSize matches the repositories' page size ceiling.
const exportPageSize = 100

func (s *ExportService) buildAnnouncementDataset(ctx context.Context, params models.ExportJobParams) (export.Dataset, string, error) {
	var rows []models.Announcement
	for page := 1; ; page++ {
		batch, total, err := s.announcements.List(ctx, models.AnnouncementFilter{
			Category:    params.Category,
			CreatedFrom: deref(params.FromDate),
			CreatedTo:   deref(params.ToDate),
			Page:        page,
			PageSize:    exportPageSize,
		})
		if err != nil {
			return export.Dataset{}, "", err
		}
		rows = append(rows, batch...)
		if len(batch) == 0 || len(rows) >= total {
			break
		}
	}

	dataRows := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		dataRows = append(dataRows, map[string]string{
			"Title":      row.Title,
			"Category":   string(row.Category),
			"Status":     string(row.Status),
			"Author":     row.AuthorName,
			"Start Date": deref(row.StartDate),
			"End Date":   deref(row.EndDate),
			"Created At": row.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	dataset := export.Dataset{
		Headers: []string{"Title", "Category", "Status", "Author", "Start Date", "End Date", "Created At"},
		Rows:    dataRows,
	}
	return dataset, "Announcement Recap", nil
}

func (s *ExportService) buildEventDataset(ctx context.Context, params models.ExportJobParams) (export.Dataset, string, error) {
	var rows []models.Event
	for page := 1; ; page++ {
		batch, total, err := s.events.List(ctx, models.EventFilter{
			FromDate: deref(params.FromDate),
			ToDate:   deref(params.ToDate),
			Page:     page,
			PageSize: exportPageSize,
		})
		if err != nil {
			return export.Dataset{}, "", err
		}
		rows = append(rows, batch...)
		if len(batch) == 0 || len(rows) >= total {
			break
		}
	}

	dataRows := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		dataRows = append(dataRows, map[string]string{
			"Title":      row.Title,
			"Start Date": row.StartDate,
			"End Date":   row.EndDate,
			"Location":   row.Location,
			"Created At": row.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	dataset := export.Dataset{
		Headers: []string{"Title", "Start Date", "End Date", "Location", "Created At"},
		Rows:    dataRows,
	}
	return dataset, "Event Recap", nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
