package service

import (
	"context"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ririnrahma1306/campusboard/internal/models"
)

type mockReminderSource struct {
	reminders []models.Notification
}

func (m *mockReminderSource) Reminders(ctx context.Context, userID string) ([]models.Notification, error) {
	return m.reminders, nil
}

type mockPendingSource struct {
	pending []models.Announcement
}

func (m *mockPendingSource) ListPending(ctx context.Context, page int) ([]models.Announcement, *models.Pagination, error) {
	return m.pending, &models.Pagination{Page: page, TotalCount: len(m.pending)}, nil
}

type mockReportedSource struct {
	reported []models.Comment
}

func (m *mockReportedSource) ListReported(ctx context.Context) ([]models.Comment, error) {
	return m.reported, nil
}

func TestNotificationFeedRegularUser(t *testing.T) {
	reminders := &mockReminderSource{reminders: []models.Notification{
		{Type: models.NotificationReminder, Title: "Pengingat Besok"},
	}}
	pending := &mockPendingSource{pending: []models.Announcement{{ID: "a1", Title: "Seminar", AuthorName: "Andi"}}}
	reported := &mockReportedSource{reported: []models.Comment{{ID: "c1", AuthorName: "Budi"}}}
	svc := NewNotificationService(reminders, pending, reported, zap.NewNop())

	feed, err := svc.Feed(context.Background(), &models.JWTClaims{UserID: "u1", Role: models.RoleUser})
	require.NoError(t, err)
	require.Len(t, feed, 1)
	assert.Equal(t, "Pengingat Besok", feed[0].Title)
}

func TestNotificationFeedAdminSeesQueues(t *testing.T) {
	reminders := &mockReminderSource{}
	pending := &mockPendingSource{pending: []models.Announcement{{ID: "a1", Title: "Seminar", AuthorName: "Andi"}}}
	reported := &mockReportedSource{reported: []models.Comment{{ID: "c1", AuthorName: "Budi", Reports: pq.StringArray{"u2", "u3"}, IsReported: true}}}
	svc := NewNotificationService(reminders, pending, reported, zap.NewNop())

	feed, err := svc.Feed(context.Background(), &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})
	require.NoError(t, err)
	require.Len(t, feed, 2)

	approval := feed[0]
	assert.Equal(t, models.NotificationApproval, approval.Type)
	assert.Equal(t, "Butuh Persetujuan", approval.Title)
	assert.Equal(t, "admin", approval.TargetView)
	assert.Equal(t, "pending", approval.TargetTab)
	assert.Equal(t, "a1", approval.ResourceID)

	report := feed[1]
	assert.Equal(t, models.NotificationReport, report.Type)
	assert.Equal(t, "Laporan Masuk", report.Title)
	assert.Equal(t, "moderation", report.TargetTab)
	assert.Contains(t, report.Description, "2 kali")
}
