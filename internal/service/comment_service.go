package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ririnrahma1306/campusboard/internal/models"
	appErrors "github.com/ririnrahma1306/campusboard/pkg/errors"
)

type commentRepository interface {
	Create(ctx context.Context, c *models.Comment) error
	FindByID(ctx context.Context, id string) (*models.Comment, error)
	ListByAnnouncement(ctx context.Context, announcementID string) ([]models.Comment, error)
	ListReported(ctx context.Context) ([]models.Comment, error)
	UpdateContent(ctx context.Context, id, content string) error
	AddReport(ctx context.Context, id, reporterID string) error
	ClearReports(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

type commentAnnouncementSource interface {
	FindByID(ctx context.Context, id string) (*models.Announcement, error)
}

type commentUserSource interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// CommentService covers discussion threads and their moderation.
type CommentService struct {
	repo          commentRepository
	announcements commentAnnouncementSource
	users         commentUserSource
	audit         announcementAuditor
	validator     *validator.Validate
	logger        *zap.Logger
}

// NewCommentService constructs a CommentService instance.
func NewCommentService(repo commentRepository, announcements commentAnnouncementSource, users commentUserSource, audit announcementAuditor, validate *validator.Validate, logger *zap.Logger) *CommentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &CommentService{repo: repo, announcements: announcements, users: users, audit: audit, validator: validate, logger: logger}
}

// Create posts a comment under a published announcement, snapshotting
// the author's name, role and photo.
func (s *CommentService) Create(ctx context.Context, author *models.JWTClaims, announcementID string, req models.CreateCommentRequest) (*models.Comment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid comment payload")
	}

	a, err := s.announcements.FindByID(ctx, announcementID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "announcement not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load announcement")
	}
	if a.Status != models.StatusPublished {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "announcement not found")
	}

	comment := &models.Comment{
		ID:             uuid.NewString(),
		AnnouncementID: announcementID,
		AuthorID:       author.UserID,
		AuthorName:     author.DisplayName,
		AuthorRole:     author.Role,
		Content:        req.Content,
	}

	// Pick up the author's current photo for the snapshot. Best effort,
	// the comment posts even when the profile lookup fails.
	if user, err := s.users.FindByID(ctx, author.UserID); err == nil {
		comment.AuthorPhotoPath = user.PhotoPath
	}

	if err := s.repo.Create(ctx, comment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create comment")
	}
	return comment, nil
}

// List returns the discussion thread oldest first.
func (s *CommentService) List(ctx context.Context, announcementID string) ([]models.Comment, error) {
	comments, err := s.repo.ListByAnnouncement(ctx, announcementID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list comments")
	}
	return comments, nil
}

// Update replaces a comment's text. Only the author may edit.
func (s *CommentService) Update(ctx context.Context, actor *models.JWTClaims, commentID string, req models.CreateCommentRequest) (*models.Comment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid comment payload")
	}

	comment, err := s.findByID(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if comment.AuthorID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot edit another user's comment")
	}

	if err := s.repo.UpdateContent(ctx, commentID, req.Content); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update comment")
	}

	comment.Content = req.Content
	return comment, nil
}

// Report flags a comment for moderation. Each user can report a comment
// once; authors cannot report their own comments.
func (s *CommentService) Report(ctx context.Context, reporterID, commentID string) (*models.Comment, error) {
	comment, err := s.findByID(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if comment.AuthorID == reporterID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot report own comment")
	}
	if comment.ReportedBy(reporterID) {
		return nil, appErrors.Clone(appErrors.ErrConflict, "comment already reported")
	}

	if err := s.repo.AddReport(ctx, commentID, reporterID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to report comment")
	}

	return s.findByID(ctx, commentID)
}

// ListReported returns the moderation queue.
func (s *CommentService) ListReported(ctx context.Context) ([]models.Comment, error) {
	comments, err := s.repo.ListReported(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reported comments")
	}
	return comments, nil
}

// Dismiss clears every report on a comment, keeping it visible.
func (s *CommentService) Dismiss(ctx context.Context, adminID, commentID string) (*models.Comment, error) {
	if _, err := s.findByID(ctx, commentID); err != nil {
		return nil, err
	}

	if err := s.repo.ClearReports(ctx, commentID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to dismiss reports")
	}

	s.recordModeration(ctx, adminID, commentID, "dismiss")
	return s.findByID(ctx, commentID)
}

// Delete removes a comment. Authors may delete their own; admins may
// delete any (the moderation path).
func (s *CommentService) Delete(ctx context.Context, actor *models.JWTClaims, commentID string) error {
	comment, err := s.findByID(ctx, commentID)
	if err != nil {
		return err
	}

	if actor.Role != models.RoleAdmin && actor.UserID != comment.AuthorID {
		return appErrors.Clone(appErrors.ErrForbidden, "cannot delete another user's comment")
	}

	if err := s.repo.Delete(ctx, commentID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete comment")
	}

	if actor.Role == models.RoleAdmin && actor.UserID != comment.AuthorID {
		s.recordModeration(ctx, actor.UserID, commentID, "delete")
	}
	return nil
}

func (s *CommentService) findByID(ctx context.Context, id string) (*models.Comment, error) {
	comment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "comment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load comment")
	}
	return comment, nil
}

func (s *CommentService) recordModeration(ctx context.Context, adminID, commentID, outcome string) {
	if s.audit == nil {
		return
	}
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &adminID,
		Action:     models.AuditActionCommentModerate,
		Resource:   "comments",
		ResourceID: &commentID,
		NewValues:  []byte(`{"outcome":"` + outcome + `"}`),
	}); err != nil {
		s.logger.Warn("failed to record comment moderation audit log", zap.Error(err))
	}
}
