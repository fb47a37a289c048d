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

type calendarRepository interface {
	Create(ctx context.Context, e *models.CalendarEntry) error
	FindByUserAndEvent(ctx context.Context, userID, eventID string) (*models.CalendarEntry, error)
	ListByUser(ctx context.Context, userID string) ([]models.CalendarEntry, error)
	DeleteByUserAndEvent(ctx context.Context, userID, eventID string) error
}

type calendarEventSource interface {
	FindByID(ctx context.Context, id string) (*models.Event, error)
	List(ctx context.Context, filter models.EventFilter) ([]models.Event, int, error)
}

// CalendarService manages personal calendars, reminder computation and
// the month grid.
type CalendarService struct {
	repo      calendarRepository
	events    calendarEventSource
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewCalendarService constructs a CalendarService instance.
func NewCalendarService(repo calendarRepository, events calendarEventSource, validate *validator.Validate, logger *zap.Logger) *CalendarService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &CalendarService{repo: repo, events: events, validator: validate, logger: logger, now: time.Now}
}

// Save adds an event to the caller's calendar, snapshotting its title
// and dates. Events whose last day has already passed cannot be saved,
// and the same event cannot be saved twice.
func (s *CalendarService) Save(ctx context.Context, userID string, req models.SaveCalendarEntryRequest) (*models.CalendarEntry, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid calendar payload")
	}

	event, err := s.events.FindByID(ctx, req.EventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}

	today := s.today()
	end := event.EndDate
	if end == "" {
		end = event.StartDate
	}
	if end < today {
		return nil, appErrors.Clone(appErrors.ErrEventPassed, "event has already ended")
	}

	if _, err := s.repo.FindByUserAndEvent(ctx, userID, req.EventID); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "event is already on the calendar")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check calendar")
	}

	var endDate *string
	if event.EndDate != "" && event.EndDate != event.StartDate {
		endDate = &event.EndDate
	}

	entry := &models.CalendarEntry{
		ID:           uuid.NewString(),
		UserID:       userID,
		EventID:      event.ID,
		EventTitle:   event.Title,
		EventDate:    event.StartDate,
		EventEndDate: endDate,
		AddedAt:      s.now().UTC(),
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save calendar entry")
	}
	return entry, nil
}

// Remove deletes the caller's entry for an event.
func (s *CalendarService) Remove(ctx context.Context, userID, eventID string) error {
	if _, err := s.repo.FindByUserAndEvent(ctx, userID, eventID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "calendar entry not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load calendar entry")
	}
	if err := s.repo.DeleteByUserAndEvent(ctx, userID, eventID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove calendar entry")
	}
	return nil
}

// List returns the caller's saved entries ordered by event date.
func (s *CalendarService) List(ctx context.Context, userID string) ([]models.CalendarEntry, error) {
	entries, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list calendar entries")
	}
	return entries, nil
}

// Reminders computes the notification items for the user's saved
// events relative to the local calendar date. An entry can yield both a
// start and an end reminder on different days but never a duplicate.
func (s *CalendarService) Reminders(ctx context.Context, userID string) ([]models.Notification, error) {
	entries, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list calendar entries")
	}

	today := s.today()
	tomorrow := s.now().AddDate(0, 0, 1).Format(isoDateLayout)

	reminders := make([]models.Notification, 0)
	for _, entry := range entries {
		if entry.EventDate == "" {
			continue
		}

		switch {
		case entry.EventDate == tomorrow:
			reminders = append(reminders, models.Notification{
				Type:        models.NotificationReminder,
				Title:       "Pengingat Besok",
				Description: fmt.Sprintf("%s dimulai besok", entry.EventTitle),
				IsToday:     false,
				TargetView:  "calendar",
				EventID:     entry.EventID,
			})
		case entry.EventDate == today:
			title := "Acara HARI INI!"
			description := fmt.Sprintf("%s berlangsung hari ini", entry.EventTitle)
			if entry.MultiDay() {
				title = "Acara DIMULAI Hari Ini!"
				description = fmt.Sprintf("%s dimulai hari ini", entry.EventTitle)
			}
			reminders = append(reminders, models.Notification{
				Type:        models.NotificationReminder,
				Title:       title,
				Description: description,
				IsToday:     true,
				TargetView:  "calendar",
				EventID:     entry.EventID,
			})
		}

		if entry.MultiDay() && entry.End() == today {
			reminders = append(reminders, models.Notification{
				Type:        models.NotificationReminder,
				Title:       "Acara BERAKHIR Hari Ini!",
				Description: fmt.Sprintf("%s berakhir hari ini", entry.EventTitle),
				IsToday:     true,
				TargetView:  "calendar",
				EventID:     entry.EventID,
			})
		}
	}

	return reminders, nil
}

// MonthGrid builds a Sunday-first month view of the campus event
// schedule. Leading blank cells pad the first week so day 1 falls on
// its weekday column. An event occupies every day between its start
// and end dates inclusive; events the caller keeps on their personal
// calendar are marked saved.
func (s *CalendarService) MonthGrid(ctx context.Context, userID string, year, month int) (*models.MonthGrid, error) {
	if month < 1 || month > 12 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "month must be between 1 and 12")
	}
	if year < 1970 || year > 9999 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "year out of range")
	}

	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.Local)
	daysInMonth := first.AddDate(0, 1, -1).Day()
	firstDate := fmt.Sprintf("%04d-%02d-01", year, month)
	lastDate := fmt.Sprintf("%04d-%02d-%02d", year, month, daysInMonth)

	events, err := s.monthEvents(ctx, firstDate, lastDate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list events")
	}

	entries, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list calendar entries")
	}
	saved := make(map[string]bool, len(entries))
	for _, entry := range entries {
		saved[entry.EventID] = true
	}

	leadingBlanks := int(first.Weekday())
	cells := make([]models.GridCell, 0, leadingBlanks+daysInMonth)
	for i := 0; i < leadingBlanks; i++ {
		cells = append(cells, models.GridCell{})
	}

	today := s.today()
	for day := 1; day <= daysInMonth; day++ {
		date := fmt.Sprintf("%04d-%02d-%02d", year, month, day)
		cell := models.GridCell{Day: day, Date: date, IsToday: date == today, IsPast: date < today}
		for _, event := range events {
			if event.StartDate == "" {
				continue
			}
			if date >= event.StartDate && date <= event.End() {
				cell.Events = append(cell.Events, models.GridEvent{Event: event, Saved: saved[event.ID]})
			}
		}
		cells = append(cells, cell)
	}

	return &models.MonthGrid{Year: year, Month: month, Cells: cells}, nil
}

// monthEvents pages through every event overlapping the date range.
func (s *CalendarService) monthEvents(ctx context.Context, from, to string) ([]models.Event, error) {
	var events []models.Event
	for page := 1; ; page++ {
		batch, total, err := s.events.List(ctx, models.EventFilter{FromDate: from, ToDate: to, Page: page, PageSize: 100})
		if err != nil {
			return nil, err
		}
		events = append(events, batch...)
		if len(batch) == 0 || len(events) >= total {
			return events, nil
		}
	}
}

func (s *CalendarService) today() string {
	return s.now().Format(isoDateLayout)
}
