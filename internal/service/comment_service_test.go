package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ririnrahma1306/campusboard/internal/models"
	appErrors "github.com/ririnrahma1306/campusboard/pkg/errors"
)

type mockCommentRepo struct {
	byID    map[string]*models.Comment
	created []*models.Comment
	deleted []string
	cleared []string
}

func (m *mockCommentRepo) Create(ctx context.Context, c *models.Comment) error {
	m.created = append(m.created, c)
	return nil
}

func (m *mockCommentRepo) FindByID(ctx context.Context, id string) (*models.Comment, error) {
	c, ok := m.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return c, nil
}

func (m *mockCommentRepo) ListByAnnouncement(ctx context.Context, announcementID string) ([]models.Comment, error) {
	var out []models.Comment
	for _, c := range m.byID {
		if c.AnnouncementID == announcementID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *mockCommentRepo) ListReported(ctx context.Context) ([]models.Comment, error) {
	var out []models.Comment
	for _, c := range m.byID {
		if c.IsReported {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *mockCommentRepo) UpdateContent(ctx context.Context, id, content string) error {
	if c, ok := m.byID[id]; ok {
		c.Content = content
	}
	return nil
}

func (m *mockCommentRepo) AddReport(ctx context.Context, id, reporterID string) error {
	if c, ok := m.byID[id]; ok && !c.ReportedBy(reporterID) {
		c.Reports = append(c.Reports, reporterID)
		c.IsReported = true
	}
	return nil
}

func (m *mockCommentRepo) ClearReports(ctx context.Context, id string) error {
	m.cleared = append(m.cleared, id)
	if c, ok := m.byID[id]; ok {
		c.Reports = pq.StringArray{}
		c.IsReported = false
	}
	return nil
}

func (m *mockCommentRepo) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	delete(m.byID, id)
	return nil
}

type mockAnnouncementSource struct {
	announcement *models.Announcement
}

func (m *mockAnnouncementSource) FindByID(ctx context.Context, id string) (*models.Announcement, error) {
	if m.announcement == nil || m.announcement.ID != id {
		return nil, sql.ErrNoRows
	}
	return m.announcement, nil
}

type mockUserSource struct {
	user *models.User
}

func (m *mockUserSource) FindByID(ctx context.Context, id string) (*models.User, error) {
	if m.user == nil {
		return nil, sql.ErrNoRows
	}
	return m.user, nil
}

func newCommentService(repo *mockCommentRepo, announcements *mockAnnouncementSource, users *mockUserSource, audit *mockAuditTrail) *CommentService {
	return NewCommentService(repo, announcements, users, audit, validator.New(), zap.NewNop())
}

func TestCommentCreateSnapshotsAuthor(t *testing.T) {
	photo := "photos/u1/avatar.png"
	repo := &mockCommentRepo{byID: map[string]*models.Comment{}}
	announcements := &mockAnnouncementSource{announcement: &models.Announcement{ID: "a1", Status: models.StatusPublished}}
	users := &mockUserSource{user: &models.User{ID: "u1", PhotoPath: &photo}}
	svc := newCommentService(repo, announcements, users, &mockAuditTrail{})

	author := &models.JWTClaims{UserID: "u1", Role: models.RoleUser, DisplayName: "Andi"}
	comment, err := svc.Create(context.Background(), author, "a1", models.CreateCommentRequest{Content: "Mantap!"})
	require.NoError(t, err)
	assert.Equal(t, "Andi", comment.AuthorName)
	assert.Equal(t, models.RoleUser, comment.AuthorRole)
	require.NotNil(t, comment.AuthorPhotoPath)
	assert.Equal(t, photo, *comment.AuthorPhotoPath)
	require.Len(t, repo.created, 1)
}

func TestCommentCreateUnpublishedAnnouncement(t *testing.T) {
	repo := &mockCommentRepo{byID: map[string]*models.Comment{}}
	announcements := &mockAnnouncementSource{announcement: &models.Announcement{ID: "a1", Status: models.StatusPending}}
	svc := newCommentService(repo, announcements, &mockUserSource{}, &mockAuditTrail{})

	author := &models.JWTClaims{UserID: "u1", Role: models.RoleUser}
	_, err := svc.Create(context.Background(), author, "a1", models.CreateCommentRequest{Content: "Halo"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.created)
}

func TestCommentUpdateOwn(t *testing.T) {
	repo := &mockCommentRepo{byID: map[string]*models.Comment{
		"c1": {ID: "c1", AuthorID: "u1", Content: "Typo disini"},
	}}
	svc := newCommentService(repo, &mockAnnouncementSource{}, &mockUserSource{}, &mockAuditTrail{})

	author := &models.JWTClaims{UserID: "u1", Role: models.RoleUser}
	comment, err := svc.Update(context.Background(), author, "c1", models.CreateCommentRequest{Content: "Sudah diperbaiki"})
	require.NoError(t, err)
	assert.Equal(t, "Sudah diperbaiki", comment.Content)

	other := &models.JWTClaims{UserID: "u2", Role: models.RoleUser}
	_, err = svc.Update(context.Background(), other, "c1", models.CreateCommentRequest{Content: "Bukan milikku"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestCommentReport(t *testing.T) {
	repo := &mockCommentRepo{byID: map[string]*models.Comment{
		"c1": {ID: "c1", AuthorID: "u1", Content: "Spam", Reports: pq.StringArray{}},
	}}
	svc := newCommentService(repo, &mockAnnouncementSource{}, &mockUserSource{}, &mockAuditTrail{})

	comment, err := svc.Report(context.Background(), "u2", "c1")
	require.NoError(t, err)
	assert.True(t, comment.IsReported)
	assert.Equal(t, 1, comment.ReportCount())

	// The same user cannot report twice.
	_, err = svc.Report(context.Background(), "u2", "c1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Equal(t, 1, repo.byID["c1"].ReportCount())

	// A second user adds to the same report list.
	comment, err = svc.Report(context.Background(), "u3", "c1")
	require.NoError(t, err)
	assert.Equal(t, 2, comment.ReportCount())
}

func TestCommentReportOwnComment(t *testing.T) {
	repo := &mockCommentRepo{byID: map[string]*models.Comment{
		"c1": {ID: "c1", AuthorID: "u1", Content: "Milik sendiri"},
	}}
	svc := newCommentService(repo, &mockAnnouncementSource{}, &mockUserSource{}, &mockAuditTrail{})

	_, err := svc.Report(context.Background(), "u1", "c1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestCommentDismissClearsReports(t *testing.T) {
	repo := &mockCommentRepo{byID: map[string]*models.Comment{
		"c1": {ID: "c1", AuthorID: "u1", Reports: pq.StringArray{"u2", "u3"}, IsReported: true},
	}}
	audit := &mockAuditTrail{}
	svc := newCommentService(repo, &mockAnnouncementSource{}, &mockUserSource{}, audit)

	comment, err := svc.Dismiss(context.Background(), "admin-1", "c1")
	require.NoError(t, err)
	assert.False(t, comment.IsReported)
	assert.Zero(t, comment.ReportCount())
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionCommentModerate, audit.logs[0].Action)
}

func TestCommentDeleteByModerator(t *testing.T) {
	repo := &mockCommentRepo{byID: map[string]*models.Comment{
		"c1": {ID: "c1", AuthorID: "u1", IsReported: true},
	}}
	audit := &mockAuditTrail{}
	svc := newCommentService(repo, &mockAnnouncementSource{}, &mockUserSource{}, audit)

	admin := &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}
	require.NoError(t, svc.Delete(context.Background(), admin, "c1"))
	assert.Contains(t, repo.deleted, "c1")
	require.Len(t, audit.logs, 1)
}

func TestCommentDeleteOtherUsersComment(t *testing.T) {
	repo := &mockCommentRepo{byID: map[string]*models.Comment{
		"c1": {ID: "c1", AuthorID: "u1"},
	}}
	svc := newCommentService(repo, &mockAnnouncementSource{}, &mockUserSource{}, &mockAuditTrail{})

	actor := &models.JWTClaims{UserID: "u2", Role: models.RoleUser}
	err := svc.Delete(context.Background(), actor, "c1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.deleted)
}
