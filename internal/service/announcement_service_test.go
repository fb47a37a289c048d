package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ririnrahma1306/campusboard/internal/models"
	appErrors "github.com/ririnrahma1306/campusboard/pkg/errors"
)

type mockAnnouncementRepo struct {
	byID          map[string]*models.Announcement
	created       []*models.Announcement
	listed        []models.Announcement
	listCalls     int
	statusUpdates []models.AnnouncementStatus
	deleted       []string
}

func (m *mockAnnouncementRepo) Create(ctx context.Context, a *models.Announcement) error {
	m.created = append(m.created, a)
	return nil
}

func (m *mockAnnouncementRepo) FindByID(ctx context.Context, id string) (*models.Announcement, error) {
	a, ok := m.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return a, nil
}

func (m *mockAnnouncementRepo) List(ctx context.Context, filter models.AnnouncementFilter) ([]models.Announcement, int, error) {
	m.listCalls++
	return m.listed, len(m.listed), nil
}

func (m *mockAnnouncementRepo) UpdateStatus(ctx context.Context, id string, status models.AnnouncementStatus, approvedBy *string, approvedAt *time.Time) error {
	m.statusUpdates = append(m.statusUpdates, status)
	if a, ok := m.byID[id]; ok {
		a.Status = status
		a.ApprovedBy = approvedBy
		a.ApprovedAt = approvedAt
	}
	return nil
}

func (m *mockAnnouncementRepo) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	return nil
}

type mockEventSpawner struct {
	created       []*models.Event
	clearedSource []string
}

func (m *mockEventSpawner) Create(ctx context.Context, e *models.Event) error {
	m.created = append(m.created, e)
	return nil
}

func (m *mockEventSpawner) DeleteBySourceAnnouncement(ctx context.Context, announcementID string) error {
	m.clearedSource = append(m.clearedSource, announcementID)
	return nil
}

type mockBoardCache struct {
	hits      map[string]interface{}
	sets      []string
	deletions []string
}

func (m *mockBoardCache) Get(ctx context.Context, key string, dest interface{}) error {
	cached, ok := m.hits[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	if page, ok := dest.(*BoardPage); ok {
		*page = *cached.(*BoardPage)
	}
	return nil
}

func (m *mockBoardCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.sets = append(m.sets, key)
	return nil
}

func (m *mockBoardCache) DeleteByPattern(ctx context.Context, pattern string) error {
	m.deletions = append(m.deletions, pattern)
	return nil
}

type mockAuditTrail struct {
	logs []*models.AuditLog
}

func (m *mockAuditTrail) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.logs = append(m.logs, log)
	return nil
}

type mockMedia struct {
	saved   []string
	deleted []string
}

func (m *mockMedia) Save(filename string, data []byte) (string, error) {
	m.saved = append(m.saved, filename)
	return filename, nil
}

func (m *mockMedia) Delete(filename string) error {
	m.deleted = append(m.deleted, filename)
	return nil
}

func newAnnouncementService(repo *mockAnnouncementRepo, events *mockEventSpawner, cache *mockBoardCache, audit *mockAuditTrail) *AnnouncementService {
	svc := NewAnnouncementService(repo, events, cache, audit, &mockMedia{}, validator.New(), zap.NewNop(), AnnouncementServiceConfig{
		CacheTTL: time.Minute,
		PageSize: 10,
	})
	svc.now = func() time.Time { return time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC) }
	return svc
}

func strPtr(s string) *string { return &s }

func TestAnnouncementCreateAdminPublishesImmediately(t *testing.T) {
	repo := &mockAnnouncementRepo{byID: map[string]*models.Announcement{}}
	events := &mockEventSpawner{}
	cache := &mockBoardCache{}
	svc := newAnnouncementService(repo, events, cache, &mockAuditTrail{})

	admin := &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin, DisplayName: "Bu Rektor"}
	a, err := svc.Create(context.Background(), admin, models.CreateAnnouncementRequest{
		Title:     "Seminar Nasional",
		Content:   "Pendaftaran dibuka.",
		Category:  models.CategorySeminar,
		StartDate: strPtr("2025-03-20"),
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPublished, a.Status)
	require.NotNil(t, a.ApprovedBy)
	assert.Equal(t, "admin-1", *a.ApprovedBy)
	assert.NotNil(t, a.ApprovedAt)

	require.Len(t, events.created, 1)
	spawned := events.created[0]
	assert.Equal(t, "Seminar Nasional", spawned.Title)
	assert.Equal(t, "2025-03-20", spawned.StartDate)
	assert.Equal(t, "2025-03-20", spawned.EndDate)
	assert.Equal(t, models.DefaultEventLocation, spawned.Location)
	require.NotNil(t, spawned.SourceAnnouncementID)
	assert.Equal(t, a.ID, *spawned.SourceAnnouncementID)

	assert.Contains(t, cache.deletions, "board:*")
}

func TestAnnouncementCreateUserEntersPendingQueue(t *testing.T) {
	repo := &mockAnnouncementRepo{byID: map[string]*models.Announcement{}}
	events := &mockEventSpawner{}
	svc := newAnnouncementService(repo, events, &mockBoardCache{}, &mockAuditTrail{})

	author := &models.JWTClaims{UserID: "user-1", Role: models.RoleUser, DisplayName: "Andi"}
	a, err := svc.Create(context.Background(), author, models.CreateAnnouncementRequest{
		Title:    "Lomba Esai",
		Content:  "Batas akhir bulan ini.",
		Category: models.CategoryLomba,
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, a.Status)
	assert.Nil(t, a.ApprovedBy)
	assert.Empty(t, events.created)
}

func TestAnnouncementCreateRejectsPastStartDate(t *testing.T) {
	svc := newAnnouncementService(&mockAnnouncementRepo{}, &mockEventSpawner{}, &mockBoardCache{}, &mockAuditTrail{})

	author := &models.JWTClaims{UserID: "user-1", Role: models.RoleUser}
	_, err := svc.Create(context.Background(), author, models.CreateAnnouncementRequest{
		Title:     "Terlambat",
		Content:   "Sudah lewat.",
		Category:  models.CategoryAkademik,
		StartDate: strPtr("2025-03-09"),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAnnouncementCreateRejectsEndBeforeStart(t *testing.T) {
	svc := newAnnouncementService(&mockAnnouncementRepo{}, &mockEventSpawner{}, &mockBoardCache{}, &mockAuditTrail{})

	author := &models.JWTClaims{UserID: "user-1", Role: models.RoleUser}
	_, err := svc.Create(context.Background(), author, models.CreateAnnouncementRequest{
		Title:     "Terbalik",
		Content:   "Rentang tidak valid.",
		Category:  models.CategoryAkademik,
		StartDate: strPtr("2025-03-20"),
		EndDate:   strPtr("2025-03-15"),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAnnouncementApprovePending(t *testing.T) {
	pending := &models.Announcement{ID: "a1", Title: "Beasiswa LPDP", Content: "Info", Category: models.CategoryBeasiswa, Status: models.StatusPending, StartDate: strPtr("2025-04-01"), EndDate: strPtr("2025-04-03"), AuthorID: "user-1"}
	repo := &mockAnnouncementRepo{byID: map[string]*models.Announcement{"a1": pending}}
	events := &mockEventSpawner{}
	cache := &mockBoardCache{}
	audit := &mockAuditTrail{}
	svc := newAnnouncementService(repo, events, cache, audit)

	admin := &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}
	a, err := svc.Approve(context.Background(), admin, "a1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPublished, a.Status)
	require.Len(t, events.created, 1)
	assert.Equal(t, "2025-04-03", events.created[0].EndDate)
	assert.Contains(t, cache.deletions, "board:*")
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionAnnouncementApprove, audit.logs[0].Action)
}

func TestAnnouncementApproveNonPendingConflicts(t *testing.T) {
	published := &models.Announcement{ID: "a1", Status: models.StatusPublished}
	repo := &mockAnnouncementRepo{byID: map[string]*models.Announcement{"a1": published}}
	svc := newAnnouncementService(repo, &mockEventSpawner{}, &mockBoardCache{}, &mockAuditTrail{})

	admin := &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}
	_, err := svc.Approve(context.Background(), admin, "a1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.statusUpdates)
}

func TestAnnouncementRejectPending(t *testing.T) {
	pending := &models.Announcement{ID: "a1", Status: models.StatusPending}
	repo := &mockAnnouncementRepo{byID: map[string]*models.Announcement{"a1": pending}}
	events := &mockEventSpawner{}
	audit := &mockAuditTrail{}
	svc := newAnnouncementService(repo, events, &mockBoardCache{}, audit)

	admin := &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}
	a, err := svc.Reject(context.Background(), admin, "a1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, a.Status)
	assert.Nil(t, a.ApprovedBy)
	assert.Empty(t, events.created)

	// A rejected announcement cannot be approved afterwards.
	_, err = svc.Approve(context.Background(), admin, "a1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestAnnouncementBoardServedFromCache(t *testing.T) {
	repo := &mockAnnouncementRepo{}
	cached := &BoardPage{Items: []models.Announcement{{ID: "a1", Title: "Cached"}}, Pagination: models.Pagination{Page: 1, PageSize: 10, TotalCount: 1}}
	cache := &mockBoardCache{hits: map[string]interface{}{boardCacheKey(nil, "", 1): cached}}
	svc := newAnnouncementService(repo, &mockEventSpawner{}, cache, &mockAuditTrail{})

	page, err := svc.Board(context.Background(), nil, "", 1)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Cached", page.Items[0].Title)
	assert.Zero(t, repo.listCalls)
}

func TestAnnouncementBoardCachesMiss(t *testing.T) {
	repo := &mockAnnouncementRepo{listed: []models.Announcement{{ID: "a1", Status: models.StatusPublished}}}
	cache := &mockBoardCache{}
	svc := newAnnouncementService(repo, &mockEventSpawner{}, cache, &mockAuditTrail{})

	page, err := svc.Board(context.Background(), nil, "", 1)
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
	assert.Equal(t, 1, repo.listCalls)
	assert.NotEmpty(t, cache.sets)
}

func TestAnnouncementDeleteRemovesSpawnedEvent(t *testing.T) {
	published := &models.Announcement{ID: "a1", Status: models.StatusPublished, AuthorID: "user-1", ImagePath: strPtr("announcements/img.png")}
	repo := &mockAnnouncementRepo{byID: map[string]*models.Announcement{"a1": published}}
	events := &mockEventSpawner{}
	cache := &mockBoardCache{}
	media := &mockMedia{}
	svc := NewAnnouncementService(repo, events, cache, &mockAuditTrail{}, media, validator.New(), zap.NewNop(), AnnouncementServiceConfig{PageSize: 10})

	actor := &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}
	require.NoError(t, svc.Delete(context.Background(), actor, "a1"))
	assert.Contains(t, repo.deleted, "a1")
	assert.Contains(t, events.clearedSource, "a1")
	assert.Contains(t, media.deleted, "announcements/img.png")
	assert.Contains(t, cache.deletions, "board:*")
}

func TestAnnouncementDeleteForbiddenForNonAdmin(t *testing.T) {
	published := &models.Announcement{ID: "a1", Status: models.StatusPublished, AuthorID: "user-1"}
	repo := &mockAnnouncementRepo{byID: map[string]*models.Announcement{"a1": published}}
	svc := newAnnouncementService(repo, &mockEventSpawner{}, &mockBoardCache{}, &mockAuditTrail{})

	actor := &models.JWTClaims{UserID: "user-1", Role: models.RoleUser}
	err := svc.Delete(context.Background(), actor, "a1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.deleted)
}
