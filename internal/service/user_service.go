package service

import (
	"context"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/ririnrahma1306/campusboard/internal/models"
	appErrors "github.com/ririnrahma1306/campusboard/pkg/errors"
)

type userRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	UpdateProfile(ctx context.Context, id, displayName, bio string, updatedAt time.Time) error
	UpdatePhotoPath(ctx context.Context, id string, photoPath *string, updatedAt time.Time) error
	UpdateRole(ctx context.Context, id string, role models.UserRole, updatedAt time.Time) error
	Deactivate(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	RevokeUserRefreshTokens(ctx context.Context, userID string) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type userCalendarRepository interface {
	DeleteByUser(ctx context.Context, userID string) error
}

type mediaStorage interface {
	Save(filename string, data []byte) (string, error)
	Delete(filename string) error
}

// UserServiceConfig tunes profile media handling.
type UserServiceConfig struct {
	MaxPhotoBytes int64
}

// UserService provides profile and account management use cases.
type UserService struct {
	repo      userRepository
	calendars userCalendarRepository
	media     mediaStorage
	validator *validator.Validate
	logger    *zap.Logger
	config    UserServiceConfig
}

// NewUserService constructs a UserService instance.
func NewUserService(repo userRepository, calendars userCalendarRepository, media mediaStorage, validate *validator.Validate, logger *zap.Logger, config UserServiceConfig) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.MaxPhotoBytes <= 0 {
		config.MaxPhotoBytes = 800 * 1024
	}
	return &UserService{repo: repo, calendars: calendars, media: media, validator: validate, logger: logger, config: config}
}

// GetProfile loads a user's profile.
func (s *UserService) GetProfile(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return user, nil
}

// UpdateProfile updates display name and bio.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, req models.UpdateProfileRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid profile payload")
	}

	if _, err := s.GetProfile(ctx, userID); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateProfile(ctx, userID, req.DisplayName, req.Bio, time.Now().UTC()); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update profile")
	}

	return s.GetProfile(ctx, userID)
}

// UploadPhoto decodes a base64 payload, stores it under media storage
// and records the relative path on the user row. The previous photo
// file is removed afterwards.
func (s *UserService) UploadPhoto(ctx context.Context, userID string, req models.UploadPhotoRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid photo payload")
	}

	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	data, ext, err := decodeImagePayload(req.Photo, s.config.MaxPhotoBytes)
	if err != nil {
		return nil, err
	}

	relPath := fmt.Sprintf("photos/%s/%s%s", userID, uuid.NewString(), ext)
	if _, err := s.media.Save(relPath, data); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store photo")
	}

	oldPath := user.PhotoPath
	if err := s.repo.UpdatePhotoPath(ctx, userID, &relPath, time.Now().UTC()); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update photo path")
	}

	if oldPath != nil && *oldPath != "" {
		if err := s.media.Delete(*oldPath); err != nil {
			s.logger.Warn("failed to remove previous photo", zap.String("path", *oldPath), zap.Error(err))
		}
	}

	return s.GetProfile(ctx, userID)
}

// DeleteAccount permanently removes the account after re-checking the
// password. Calendar entries and the stored photo are removed with it;
// authored announcements and comments keep their author snapshots.
func (s *UserService) DeleteAccount(ctx context.Context, userID string, req models.DeleteAccountRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid delete payload")
	}

	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return err
	}
	if user.Role == models.RoleAdmin {
		return appErrors.Clone(appErrors.ErrForbidden, "admin accounts cannot delete themselves")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return appErrors.Clone(appErrors.ErrReauthRequired, "password confirmation does not match")
	}

	if err := s.repo.RevokeUserRefreshTokens(ctx, userID); err != nil {
		s.logger.Warn("failed to revoke refresh tokens during account deletion", zap.Error(err))
	}
	if err := s.calendars.DeleteByUser(ctx, userID); err != nil {
		s.logger.Warn("failed to clear calendar during account deletion", zap.Error(err))
	}
	if user.PhotoPath != nil && *user.PhotoPath != "" {
		if err := s.media.Delete(*user.PhotoPath); err != nil {
			s.logger.Warn("failed to remove photo during account deletion", zap.Error(err))
		}
	}

	if err := s.repo.Delete(ctx, userID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete account")
	}

	if err := s.repo.CreateAuditLog(ctx, &models.AuditLog{
		Action:     models.AuditActionAccountDelete,
		Resource:   "users",
		ResourceID: &userID,
		OldValues:  []byte(fmt.Sprintf(`{"email":%q}`, user.Email)),
	}); err != nil {
		s.logger.Warn("failed to record account deletion audit log", zap.Error(err))
	}

	return nil
}

// ListUsers returns users for the admin directory.
func (s *UserService) ListUsers(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	return users, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// ChangeRole promotes or demotes a user. The acting admin cannot change
// their own role.
func (s *UserService) ChangeRole(ctx context.Context, actorID, targetID string, req models.ChangeRoleRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid role payload")
	}
	if actorID == targetID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot change own role")
	}

	target, err := s.GetProfile(ctx, targetID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateRole(ctx, targetID, req.Role, time.Now().UTC()); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to change role")
	}

	if err := s.repo.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actorID,
		Action:     models.AuditActionRoleChange,
		Resource:   "users",
		ResourceID: &targetID,
		OldValues:  []byte(fmt.Sprintf(`{"role":%q}`, target.Role)),
		NewValues:  []byte(fmt.Sprintf(`{"role":%q}`, req.Role)),
	}); err != nil {
		s.logger.Warn("failed to record role change audit log", zap.Error(err))
	}

	return s.GetProfile(ctx, targetID)
}

// Deactivate disables another account. Deactivated users keep their
// data but can no longer sign in.
func (s *UserService) Deactivate(ctx context.Context, actorID, targetID string) (*models.User, error) {
	if actorID == targetID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot deactivate own account")
	}

	if _, err := s.GetProfile(ctx, targetID); err != nil {
		return nil, err
	}

	if err := s.repo.Deactivate(ctx, targetID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate user")
	}
	if err := s.repo.RevokeUserRefreshTokens(ctx, targetID); err != nil {
		s.logger.Warn("failed to revoke refresh tokens during deactivation", zap.Error(err))
	}

	if err := s.repo.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actorID,
		Action:     models.AuditActionAccountDeactivate,
		Resource:   "users",
		ResourceID: &targetID,
		NewValues:  []byte(`{"active":false}`),
	}); err != nil {
		s.logger.Warn("failed to record deactivation audit log", zap.Error(err))
	}

	return s.GetProfile(ctx, targetID)
}

// decodeImagePayload accepts either a raw base64 string or a data URL
// and enforces the decoded size limit.
func decodeImagePayload(payload string, maxBytes int64) ([]byte, string, error) {
	ext := ".png"
	encoded := payload
	if strings.HasPrefix(payload, "data:") {
		idx := strings.Index(payload, ";base64,")
		if idx < 0 {
			return nil, "", appErrors.Clone(appErrors.ErrValidation, "image must be base64 encoded")
		}
		mime := payload[len("data:"):idx]
		switch mime {
		case "image/png":
			ext = ".png"
		case "image/jpeg", "image/jpg":
			ext = ".jpg"
		case "image/webp":
			ext = ".webp"
		case "image/gif":
			ext = ".gif"
		default:
			return nil, "", appErrors.Clone(appErrors.ErrValidation, "unsupported image type")
		}
		encoded = payload[idx+len(";base64,"):]
	}

	// Reject oversized payloads before decoding. Base64 expands by 4/3
	// so this bound is conservative.
	if int64(len(encoded)) > (maxBytes*4)/3+4 {
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "image exceeds the maximum allowed size")
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "image must be base64 encoded")
	}
	if int64(len(data)) > maxBytes {
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "image exceeds the maximum allowed size")
	}
	return data, ext, nil
}
