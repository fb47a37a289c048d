package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ririnrahma1306/campusboard/internal/models"
	appErrors "github.com/ririnrahma1306/campusboard/pkg/errors"
)

type eventRepository interface {
	Create(ctx context.Context, e *models.Event) error
	FindByID(ctx context.Context, id string) (*models.Event, error)
	List(ctx context.Context, filter models.EventFilter) ([]models.Event, int, error)
	Delete(ctx context.Context, id string) error
}

type eventCalendarRepository interface {
	DeleteByEvent(ctx context.Context, eventID string) error
}

// EventService manages the campus event schedule.
type EventService struct {
	repo      eventRepository
	calendars eventCalendarRepository
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewEventService constructs an EventService instance.
func NewEventService(repo eventRepository, calendars eventCalendarRepository, validate *validator.Validate, logger *zap.Logger) *EventService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &EventService{repo: repo, calendars: calendars, validator: validate, logger: logger, now: time.Now}
}

// Create schedules an event directly. Admin only at the route level.
func (s *EventService) Create(ctx context.Context, createdBy string, req models.CreateEventRequest) (*models.Event, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid event payload")
	}

	today := s.now().Format(isoDateLayout)
	if req.StartDate < today {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start date cannot be in the past")
	}

	endDate := req.StartDate
	if req.EndDate != nil && *req.EndDate != "" {
		if *req.EndDate < req.StartDate {
			return nil, appErrors.Clone(appErrors.ErrValidation, "end date cannot precede start date")
		}
		endDate = *req.EndDate
	}

	location := req.Location
	if location == "" {
		location = models.DefaultEventLocation
	}

	event := &models.Event{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Description: req.Description,
		StartDate:   req.StartDate,
		EndDate:     endDate,
		Location:    location,
		CreatedBy:   createdBy,
	}

	if err := s.repo.Create(ctx, event); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create event")
	}
	return event, nil
}

// Get returns one event by id.
func (s *EventService) Get(ctx context.Context, id string) (*models.Event, error) {
	event, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	return event, nil
}

// List returns events in start-date order.
func (s *EventService) List(ctx context.Context, filter models.EventFilter) ([]models.Event, *models.Pagination, error) {
	events, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list events")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return events, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// Delete removes an event and every calendar entry pointing at it.
func (s *EventService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}

	if err := s.calendars.DeleteByEvent(ctx, id); err != nil {
		s.logger.Warn("failed to clear calendar entries for deleted event", zap.String("event_id", id), zap.Error(err))
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete event")
	}
	return nil
}
