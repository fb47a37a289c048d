package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ririnrahma1306/campusboard/internal/models"
)

type reminderSource interface {
	Reminders(ctx context.Context, userID string) ([]models.Notification, error)
}

type pendingSource interface {
	ListPending(ctx context.Context, page int) ([]models.Announcement, *models.Pagination, error)
}

type reportedSource interface {
	ListReported(ctx context.Context) ([]models.Comment, error)
}

// NotificationService aggregates the per-user feed. Regular users see
// their calendar reminders; admins additionally see the approval and
// moderation queues.
type NotificationService struct {
	reminders reminderSource
	pending   pendingSource
	reported  reportedSource
	logger    *zap.Logger
}

// NewNotificationService constructs a NotificationService instance.
func NewNotificationService(reminders reminderSource, pending pendingSource, reported reportedSource, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{reminders: reminders, pending: pending, reported: reported, logger: logger}
}

// Feed computes the notification list for the caller.
func (s *NotificationService) Feed(ctx context.Context, user *models.JWTClaims) ([]models.Notification, error) {
	feed, err := s.reminders.Reminders(ctx, user.UserID)
	if err != nil {
		return nil, err
	}

	if user.Role != models.RoleAdmin {
		return feed, nil
	}

	pending, _, err := s.pending.ListPending(ctx, 1)
	if err != nil {
		return nil, err
	}
	for _, a := range pending {
		feed = append(feed, models.Notification{
			Type:        models.NotificationApproval,
			Title:       "Butuh Persetujuan",
			Description: fmt.Sprintf("%q menunggu persetujuan dari %s", a.Title, a.AuthorName),
			TargetView:  "admin",
			TargetTab:   "pending",
			ResourceID:  a.ID,
		})
	}

	reported, err := s.reported.ListReported(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range reported {
		feed = append(feed, models.Notification{
			Type:        models.NotificationReport,
			Title:       "Laporan Masuk",
			Description: fmt.Sprintf("Komentar dari %s dilaporkan %d kali", c.AuthorName, c.ReportCount()),
			TargetView:  "admin",
			TargetTab:   "moderation",
			ResourceID:  c.ID,
		})
	}

	return feed, nil
}
