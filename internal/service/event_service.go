package service

import (
	"context"
	"time"

	"go-gin-event-scheduler/internal/calendar"
	"go-gin-event-scheduler/internal/clock"
	"go-gin-event-scheduler/internal/model"
	"go-gin-event-scheduler/internal/repository"
	apperrors "go-gin-event-scheduler/pkg/app_errors"
)

type EventService interface {
	Create(ctx context.Context, req model.CreateEventRequest) (*model.Event, error)
	List(ctx context.Context, sortBy model.SortBy) ([]*model.Event, error)
	GetByID(ctx context.Context, id int) (*model.Event, error)
	Update(ctx context.Context, id int, req model.UpdateEventRequest) (*model.Event, error)
	Delete(ctx context.Context, id int) error
	Search(ctx context.Context, query string) ([]*model.Event, error)
	// Reminders 列出即將開始的活動（不論是否已提醒）
	Reminders(ctx context.Context) ([]model.Reminder, error)
	// Calendar 將所有活動輸出為 iCalendar
	Calendar(ctx context.Context) (string, error)
}

type EventServiceImpl struct {
	repo   repository.EventRepository
	clock  clock.Clock
	window time.Duration
}

func NewEventService(repo repository.EventRepository, clk clock.Clock, window time.Duration) EventService {
	return &EventServiceImpl{repo: repo, clock: clk, window: window}
}

func (s *EventServiceImpl) Create(ctx context.Context, req model.CreateEventRequest) (*model.Event, error) {
	params, err := createParams(req)
	if err != nil {
		return nil, err
	}
	return s.repo.Create(ctx, params)
}

func (s *EventServiceImpl) List(ctx context.Context, sortBy model.SortBy) ([]*model.Event, error) {
	return s.repo.List(ctx, sortBy)
}

func (s *EventServiceImpl) GetByID(ctx context.Context, id int) (*model.Event, error) {
	return s.repo.FindByID(ctx, id)
}

// Update reports a missing id before any problem with the payload.
func (s *EventServiceImpl) Update(ctx context.Context, id int, req model.UpdateEventRequest) (*model.Event, error) {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, err
	}
	params, err := updateParams(req)
	if err != nil {
		return nil, err
	}
	return s.repo.Update(ctx, id, params)
}

func (s *EventServiceImpl) Delete(ctx context.Context, id int) error {
	return s.repo.Delete(ctx, id)
}

func (s *EventServiceImpl) Search(ctx context.Context, query string) ([]*model.Event, error) {
	return s.repo.Search(ctx, query)
}

func (s *EventServiceImpl) Reminders(ctx context.Context) ([]model.Reminder, error) {
	now := model.NewTimestamp(s.clock.Now())
	events, err := s.repo.Upcoming(ctx, now, s.window)
	if err != nil {
		return nil, err
	}
	reminders := make([]model.Reminder, 0, len(events))
	for _, e := range events {
		reminders = append(reminders, model.Reminder{
			Event:        e.ToResponse(),
			MinutesUntil: model.MinutesUntil(now, e.StartTime),
		})
	}
	return reminders, nil
}

func (s *EventServiceImpl) Calendar(ctx context.Context) (string, error) {
	events, err := s.repo.List(ctx, model.SortByInsertion)
	if err != nil {
		return "", err
	}
	return calendar.Render(events, s.clock.Now()), nil
}

func createParams(req model.CreateEventRequest) (model.CreateEventParams, error) {
	params := model.CreateEventParams{
		Title:     req.Title,
		Recurring: req.Recurring,
	}
	if req.Description != nil {
		params.Description = *req.Description
	}
	if err := params.ValidateTitle(); err != nil {
		return params, err
	}

	var err error
	if params.StartTime, err = requiredTimestamp("start_time", req.StartTime); err != nil {
		return params, err
	}
	if params.EndTime, err = requiredTimestamp("end_time", req.EndTime); err != nil {
		return params, err
	}
	return params, params.Validate()
}

func updateParams(req model.UpdateEventRequest) (model.UpdateEventParams, error) {
	params := model.UpdateEventParams{
		Title:       req.Title,
		Description: req.Description,
		Recurring:   req.Recurring,
	}
	if req.StartTime != nil {
		ts, err := requiredTimestamp("start_time", *req.StartTime)
		if err != nil {
			return params, err
		}
		params.StartTime = &ts
	}
	if req.EndTime != nil {
		ts, err := requiredTimestamp("end_time", *req.EndTime)
		if err != nil {
			return params, err
		}
		params.EndTime = &ts
	}
	return params, params.Validate()
}

func requiredTimestamp(field, value string) (model.Timestamp, error) {
	if value == "" {
		return model.Timestamp{}, apperrors.Invalid("%s is required", field)
	}
	ts, err := model.ParseTimestamp(value)
	if err != nil {
		return model.Timestamp{}, apperrors.Invalid("%s: %v", field, err)
	}
	return ts, nil
}
