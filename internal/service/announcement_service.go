package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ririnrahma1306/campusboard/internal/models"
	appErrors "github.com/ririnrahma1306/campusboard/pkg/errors"
)

const isoDateLayout = "2006-01-02"

type announcementRepository interface {
	Create(ctx context.Context, a *models.Announcement) error
	FindByID(ctx context.Context, id string) (*models.Announcement, error)
	List(ctx context.Context, filter models.AnnouncementFilter) ([]models.Announcement, int, error)
	UpdateStatus(ctx context.Context, id string, status models.AnnouncementStatus, approvedBy *string, approvedAt *time.Time) error
	Delete(ctx context.Context, id string) error
}

type announcementEventRepository interface {
	Create(ctx context.Context, e *models.Event) error
	DeleteBySourceAnnouncement(ctx context.Context, announcementID string) error
}

type announcementCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

type announcementAuditor interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// AnnouncementServiceConfig tunes board listing behaviour.
type AnnouncementServiceConfig struct {
	CacheTTL      time.Duration
	PageSize      int
	MaxImageBytes int64
}

// BoardPage is the cached shape of a published board listing.
type BoardPage struct {
	Items      []models.Announcement `json:"items"`
	Pagination models.Pagination     `json:"pagination"`
}

// AnnouncementService implements the approval workflow around the
// announcement board.
type AnnouncementService struct {
	repo      announcementRepository
	events    announcementEventRepository
	cache     announcementCache
	audit     announcementAuditor
	media     mediaStorage
	validator *validator.Validate
	logger    *zap.Logger
	config    AnnouncementServiceConfig
	now       func() time.Time
}

// NewAnnouncementService constructs an AnnouncementService instance.
func NewAnnouncementService(repo announcementRepository, events announcementEventRepository, cache announcementCache, audit announcementAuditor, media mediaStorage, validate *validator.Validate, logger *zap.Logger, config AnnouncementServiceConfig) *AnnouncementService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.CacheTTL <= 0 {
		config.CacheTTL = 5 * time.Minute
	}
	if config.PageSize <= 0 {
		config.PageSize = 20
	}
	if config.MaxImageBytes <= 0 {
		config.MaxImageBytes = 800 * 1024
	}
	return &AnnouncementService{
		repo:      repo,
		events:    events,
		cache:     cache,
		audit:     audit,
		media:     media,
		validator: validate,
		logger:    logger,
		config:    config,
		now:       time.Now,
	}
}

// Create submits an announcement. Admin submissions publish immediately
// and, when dated, spawn a campus event. Regular users enter the
// pending queue.
func (s *AnnouncementService) Create(ctx context.Context, author *models.JWTClaims, req models.CreateAnnouncementRequest) (*models.Announcement, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid announcement payload")
	}
	if !models.ValidCategory(req.Category) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown category")
	}

	today := s.today()
	if req.StartDate != nil && *req.StartDate < today {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start date cannot be in the past")
	}
	if req.EndDate != nil {
		if req.StartDate == nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "end date requires a start date")
		}
		if *req.EndDate < *req.StartDate {
			return nil, appErrors.Clone(appErrors.ErrValidation, "end date cannot precede start date")
		}
	}

	var imagePath *string
	if req.Image != "" {
		data, ext, err := decodeImagePayload(req.Image, s.config.MaxImageBytes)
		if err != nil {
			return nil, err
		}
		relPath := fmt.Sprintf("announcements/%s%s", uuid.NewString(), ext)
		if _, err := s.media.Save(relPath, data); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store image")
		}
		imagePath = &relPath
	}

	a := &models.Announcement{
		ID:         uuid.NewString(),
		Title:      req.Title,
		Content:    req.Content,
		Category:   req.Category,
		Status:     models.StatusPending,
		ImagePath:  imagePath,
		VideoURL:   req.VideoURL,
		StartDate:  req.StartDate,
		EndDate:    req.EndDate,
		Location:   req.Location,
		AuthorID:   author.UserID,
		AuthorName: author.DisplayName,
	}

	if author.Role == models.RoleAdmin {
		now := s.now().UTC()
		a.Status = models.StatusPublished
		a.ApprovedBy = &author.UserID
		a.ApprovedAt = &now
	}

	if err := s.repo.Create(ctx, a); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create announcement")
	}

	if a.Status == models.StatusPublished {
		s.spawnEvent(ctx, a, author.UserID)
		s.invalidateBoard(ctx)
	}

	return a, nil
}

// Board returns the published listing with Redis acceleration. Search
// and category filters bypass the cache key only through their own keys.
func (s *AnnouncementService) Board(ctx context.Context, category *models.AnnouncementCategory, search string, page int) (*BoardPage, error) {
	if category != nil && !models.ValidCategory(*category) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown category")
	}
	if page < 1 {
		page = 1
	}

	key := boardCacheKey(category, search, page)
	if s.cache != nil {
		var cached BoardPage
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("board cache read failed", zap.Error(err))
		}
	}

	status := models.StatusPublished
	items, total, err := s.repo.List(ctx, models.AnnouncementFilter{
		Status:   &status,
		Category: category,
		Search:   search,
		Page:     page,
		PageSize: s.config.PageSize,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list board")
	}

	result := &BoardPage{
		Items:      items,
		Pagination: models.Pagination{Page: page, PageSize: s.config.PageSize, TotalCount: total},
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, result, s.config.CacheTTL); err != nil {
			s.logger.Warn("board cache write failed", zap.Error(err))
		}
	}

	return result, nil
}

// Get returns one announcement. Unpublished rows are visible only to
// their author and admins.
func (s *AnnouncementService) Get(ctx context.Context, viewer *models.JWTClaims, id string) (*models.Announcement, error) {
	a, err := s.findByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if a.Status != models.StatusPublished {
		if viewer == nil || (viewer.Role != models.RoleAdmin && viewer.UserID != a.AuthorID) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "announcement not found")
		}
	}
	return a, nil
}

// ListMine returns the caller's own announcements in every status.
func (s *AnnouncementService) ListMine(ctx context.Context, authorID string, page int) ([]models.Announcement, *models.Pagination, error) {
	if page < 1 {
		page = 1
	}
	items, total, err := s.repo.List(ctx, models.AnnouncementFilter{
		AuthorID: authorID,
		Page:     page,
		PageSize: s.config.PageSize,
	})
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list own announcements")
	}
	return items, &models.Pagination{Page: page, PageSize: s.config.PageSize, TotalCount: total}, nil
}

// ListPending returns the admin approval queue, oldest submissions last.
func (s *AnnouncementService) ListPending(ctx context.Context, page int) ([]models.Announcement, *models.Pagination, error) {
	if page < 1 {
		page = 1
	}
	status := models.StatusPending
	items, total, err := s.repo.List(ctx, models.AnnouncementFilter{
		Status:   &status,
		Page:     page,
		PageSize: s.config.PageSize,
	})
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pending announcements")
	}
	return items, &models.Pagination{Page: page, PageSize: s.config.PageSize, TotalCount: total}, nil
}

// Approve publishes a pending announcement and spawns its event when
// dated. Only pending rows can move.
func (s *AnnouncementService) Approve(ctx context.Context, admin *models.JWTClaims, id string) (*models.Announcement, error) {
	a, err := s.findByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status != models.StatusPending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "announcement is not pending")
	}

	now := s.now().UTC()
	if err := s.repo.UpdateStatus(ctx, id, models.StatusPublished, &admin.UserID, &now); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to publish announcement")
	}
	a.Status = models.StatusPublished
	a.ApprovedBy = &admin.UserID
	a.ApprovedAt = &now

	s.spawnEvent(ctx, a, admin.UserID)
	s.invalidateBoard(ctx)
	s.recordModeration(ctx, admin.UserID, models.AuditActionAnnouncementApprove, id)

	return a, nil
}

// Reject declines a pending announcement. Rejected rows never publish.
func (s *AnnouncementService) Reject(ctx context.Context, admin *models.JWTClaims, id string) (*models.Announcement, error) {
	a, err := s.findByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status != models.StatusPending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "announcement is not pending")
	}

	if err := s.repo.UpdateStatus(ctx, id, models.StatusRejected, nil, nil); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reject announcement")
	}
	a.Status = models.StatusRejected
	a.ApprovedBy = nil
	a.ApprovedAt = nil

	s.recordModeration(ctx, admin.UserID, models.AuditActionAnnouncementReject, id)

	return a, nil
}

// Delete removes an announcement along with its image and any event it
// spawned. Admin only; comments cascade at the schema level.
func (s *AnnouncementService) Delete(ctx context.Context, actor *models.JWTClaims, id string) error {
	a, err := s.findByID(ctx, id)
	if err != nil {
		return err
	}

	if actor.Role != models.RoleAdmin {
		return appErrors.Clone(appErrors.ErrForbidden, "only admins can delete announcements")
	}

	if err := s.events.DeleteBySourceAnnouncement(ctx, id); err != nil {
		s.logger.Warn("failed to remove spawned events", zap.String("announcement_id", id), zap.Error(err))
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete announcement")
	}

	if a.ImagePath != nil && *a.ImagePath != "" {
		if err := s.media.Delete(*a.ImagePath); err != nil {
			s.logger.Warn("failed to remove announcement image", zap.String("path", *a.ImagePath), zap.Error(err))
		}
	}

	if a.Status == models.StatusPublished {
		s.invalidateBoard(ctx)
	}

	return nil
}

func (s *AnnouncementService) findByID(ctx context.Context, id string) (*models.Announcement, error) {
	a, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "announcement not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load announcement")
	}
	return a, nil
}

func (s *AnnouncementService) spawnEvent(ctx context.Context, a *models.Announcement, createdBy string) {
	if a.StartDate == nil || *a.StartDate == "" {
		return
	}
	endDate := *a.StartDate
	if a.EndDate != nil && *a.EndDate != "" {
		endDate = *a.EndDate
	}
	location := models.DefaultEventLocation
	if a.Location != nil && *a.Location != "" {
		location = *a.Location
	}
	event := &models.Event{
		ID:                   uuid.NewString(),
		Title:                a.Title,
		Description:          a.Content,
		StartDate:            *a.StartDate,
		EndDate:              endDate,
		Location:             location,
		SourceAnnouncementID: &a.ID,
		CreatedBy:            createdBy,
	}
	if err := s.events.Create(ctx, event); err != nil {
		s.logger.Error("failed to spawn event from announcement", zap.String("announcement_id", a.ID), zap.Error(err))
	}
}

func (s *AnnouncementService) invalidateBoard(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "board:*"); err != nil {
		s.logger.Warn("board cache invalidation failed", zap.Error(err))
	}
}

func (s *AnnouncementService) recordModeration(ctx context.Context, adminID, action, resourceID string) {
	if s.audit == nil {
		return
	}
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &adminID,
		Action:     action,
		Resource:   "announcements",
		ResourceID: &resourceID,
	}); err != nil {
		s.logger.Warn("failed to record moderation audit log", zap.Error(err))
	}
}

func (s *AnnouncementService) today() string {
	return s.now().Format(isoDateLayout)
}

func boardCacheKey(category *models.AnnouncementCategory, search string, page int) string {
	cat := "all"
	if category != nil {
		cat = string(*category)
	}
	return fmt.Sprintf("board:%s:%s:%d", cat, search, page)
}
