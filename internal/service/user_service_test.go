package service

import (
	"context"
	"database/sql"
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/ririnrahma1306/campusboard/internal/models"
	appErrors "github.com/ririnrahma1306/campusboard/pkg/errors"
)

type mockUserRepo struct {
	user          *models.User
	users         []models.User
	deleted       []string
	deactivated   []string
	revokedFor    []string
	roleChanges   []models.UserRole
	auditLogs     []*models.AuditLog
	profileName   string
	profileBio    string
	photoPathSets []*string
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if m.user == nil || m.user.ID != id {
		return nil, sql.ErrNoRows
	}
	return m.user, nil
}

func (m *mockUserRepo) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	return m.users, len(m.users), nil
}

func (m *mockUserRepo) UpdateProfile(ctx context.Context, id, displayName, bio string, updatedAt time.Time) error {
	m.profileName = displayName
	m.profileBio = bio
	if m.user != nil {
		m.user.DisplayName = displayName
		m.user.Bio = bio
	}
	return nil
}

func (m *mockUserRepo) UpdatePhotoPath(ctx context.Context, id string, photoPath *string, updatedAt time.Time) error {
	m.photoPathSets = append(m.photoPathSets, photoPath)
	if m.user != nil {
		m.user.PhotoPath = photoPath
	}
	return nil
}

func (m *mockUserRepo) UpdateRole(ctx context.Context, id string, role models.UserRole, updatedAt time.Time) error {
	m.roleChanges = append(m.roleChanges, role)
	if m.user != nil {
		m.user.Role = role
	}
	return nil
}

func (m *mockUserRepo) Deactivate(ctx context.Context, id string) error {
	m.deactivated = append(m.deactivated, id)
	if m.user != nil && m.user.ID == id {
		m.user.Active = false
	}
	return nil
}

func (m *mockUserRepo) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockUserRepo) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	m.revokedFor = append(m.revokedFor, userID)
	return nil
}

func (m *mockUserRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.auditLogs = append(m.auditLogs, log)
	return nil
}

type mockUserCalendars struct {
	clearedFor []string
}

func (m *mockUserCalendars) DeleteByUser(ctx context.Context, userID string) error {
	m.clearedFor = append(m.clearedFor, userID)
	return nil
}

func newUserService(repo *mockUserRepo, calendars *mockUserCalendars, media *mockMedia) *UserService {
	return NewUserService(repo, calendars, media, validator.New(), zap.NewNop(), UserServiceConfig{MaxPhotoBytes: 800 * 1024})
}

func pngPayload(size int) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(make([]byte, size))
}

func TestUserUpdateProfile(t *testing.T) {
	repo := &mockUserRepo{user: &models.User{ID: "u1", DisplayName: "Lama"}}
	svc := newUserService(repo, &mockUserCalendars{}, &mockMedia{})

	user, err := svc.UpdateProfile(context.Background(), "u1", models.UpdateProfileRequest{DisplayName: "Baru", Bio: "Mahasiswa FT"})
	require.NoError(t, err)
	assert.Equal(t, "Baru", user.DisplayName)
	assert.Equal(t, "Mahasiswa FT", repo.profileBio)
}

func TestUserUploadPhotoReplacesOld(t *testing.T) {
	old := "photos/u1/old.png"
	repo := &mockUserRepo{user: &models.User{ID: "u1", PhotoPath: &old}}
	media := &mockMedia{}
	svc := newUserService(repo, &mockUserCalendars{}, media)

	user, err := svc.UploadPhoto(context.Background(), "u1", models.UploadPhotoRequest{Photo: pngPayload(128)})
	require.NoError(t, err)
	require.NotNil(t, user.PhotoPath)
	assert.True(t, strings.HasPrefix(*user.PhotoPath, "photos/u1/"))
	assert.True(t, strings.HasSuffix(*user.PhotoPath, ".png"))
	assert.Contains(t, media.deleted, old)
	require.Len(t, media.saved, 1)
}

func TestUserUploadPhotoTooLarge(t *testing.T) {
	repo := &mockUserRepo{user: &models.User{ID: "u1"}}
	media := &mockMedia{}
	svc := newUserService(repo, &mockUserCalendars{}, media)

	_, err := svc.UploadPhoto(context.Background(), "u1", models.UploadPhotoRequest{Photo: pngPayload(900 * 1024)})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, media.saved)
}

func TestUserUploadPhotoUnsupportedType(t *testing.T) {
	repo := &mockUserRepo{user: &models.User{ID: "u1"}}
	svc := newUserService(repo, &mockUserCalendars{}, &mockMedia{})

	payload := "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString([]byte("<svg/>"))
	_, err := svc.UploadPhoto(context.Background(), "u1", models.UploadPhotoRequest{Photo: payload})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUserDeleteAccountWrongPassword(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("rahasia1"), bcrypt.DefaultCost)
	repo := &mockUserRepo{user: &models.User{ID: "u1", PasswordHash: string(hash)}}
	svc := newUserService(repo, &mockUserCalendars{}, &mockMedia{})

	err := svc.DeleteAccount(context.Background(), "u1", models.DeleteAccountRequest{Password: "salah"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrReauthRequired.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.deleted)
}

func TestUserDeleteAccountCleansUp(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("rahasia1"), bcrypt.DefaultCost)
	photo := "photos/u1/avatar.png"
	repo := &mockUserRepo{user: &models.User{ID: "u1", Email: "user@kampus.ac.id", PasswordHash: string(hash), PhotoPath: &photo}}
	calendars := &mockUserCalendars{}
	media := &mockMedia{}
	svc := newUserService(repo, calendars, media)

	require.NoError(t, svc.DeleteAccount(context.Background(), "u1", models.DeleteAccountRequest{Password: "rahasia1"}))
	assert.Contains(t, repo.deleted, "u1")
	assert.Contains(t, repo.revokedFor, "u1")
	assert.Contains(t, calendars.clearedFor, "u1")
	assert.Contains(t, media.deleted, photo)
	require.NotEmpty(t, repo.auditLogs)
	assert.Equal(t, models.AuditActionAccountDelete, repo.auditLogs[0].Action)
}

func TestUserDeleteAccountAdminForbidden(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("rahasia1"), bcrypt.DefaultCost)
	repo := &mockUserRepo{user: &models.User{ID: "admin-1", Role: models.RoleAdmin, PasswordHash: string(hash)}}
	svc := newUserService(repo, &mockUserCalendars{}, &mockMedia{})

	err := svc.DeleteAccount(context.Background(), "admin-1", models.DeleteAccountRequest{Password: "rahasia1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.deleted)
}

func TestUserDeactivate(t *testing.T) {
	repo := &mockUserRepo{user: &models.User{ID: "u2", Role: models.RoleUser, Active: true}}
	svc := newUserService(repo, &mockUserCalendars{}, &mockMedia{})

	user, err := svc.Deactivate(context.Background(), "admin-1", "u2")
	require.NoError(t, err)
	assert.False(t, user.Active)
	assert.Contains(t, repo.revokedFor, "u2")

	_, err = svc.Deactivate(context.Background(), "admin-1", "admin-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestUserChangeRole(t *testing.T) {
	repo := &mockUserRepo{user: &models.User{ID: "u2", Role: models.RoleUser}}
	svc := newUserService(repo, &mockUserCalendars{}, &mockMedia{})

	user, err := svc.ChangeRole(context.Background(), "admin-1", "u2", models.ChangeRoleRequest{Role: models.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, user.Role)
	require.NotEmpty(t, repo.auditLogs)
	assert.Equal(t, models.AuditActionRoleChange, repo.auditLogs[0].Action)
}

func TestUserChangeOwnRole(t *testing.T) {
	repo := &mockUserRepo{user: &models.User{ID: "admin-1", Role: models.RoleAdmin}}
	svc := newUserService(repo, &mockUserCalendars{}, &mockMedia{})

	_, err := svc.ChangeRole(context.Background(), "admin-1", "admin-1", models.ChangeRoleRequest{Role: models.RoleUser})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.roleChanges)
}
