package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"go-gin-event-scheduler/internal/clock"
	"go-gin-event-scheduler/internal/model"
	"go-gin-event-scheduler/internal/storage"
	apperrors "go-gin-event-scheduler/pkg/app_errors"
	"go-gin-event-scheduler/pkg/logger"

	"go.uber.org/zap"
)

type EventRepository interface {
	Create(ctx context.Context, params model.CreateEventParams) (*model.Event, error)
	List(ctx context.Context, sortBy model.SortBy) ([]*model.Event, error)
	FindByID(ctx context.Context, id int) (*model.Event, error)
	Update(ctx context.Context, id int, params model.UpdateEventParams) (*model.Event, error)
	Delete(ctx context.Context, id int) error
	Search(ctx context.Context, query string) ([]*model.Event, error)

	// Upcoming returns events starting in (now, now+window], earliest first.
	Upcoming(ctx context.Context, now model.Timestamp, window time.Duration) ([]*model.Event, error)
	// DueSoon is Upcoming restricted to events not yet alerted.
	DueSoon(ctx context.Context, now model.Timestamp, window time.Duration) ([]*model.Event, error)
	// MarkAlerted flags the given events and returns how many changed. A mark
	// is skipped when the event was rescheduled since it was read.
	MarkAlerted(ctx context.Context, marks []model.AlertedMark) (int, error)
}

// EventRepositoryImpl holds every event in memory behind an RWMutex and writes
// the full state through to the store before a mutation is applied. A failed
// Save leaves the in-memory state untouched.
type EventRepositoryImpl struct {
	mu     sync.RWMutex
	events map[int]*model.Event
	order  []int
	nextID int

	store storage.Store
	clock clock.Clock
}

func NewEventRepository(ctx context.Context, store storage.Store, clk clock.Clock) (EventRepository, error) {
	snap, err := store.Load(ctx)
	if err != nil {
		return nil, apperrors.Persistence("load", err)
	}

	r := &EventRepositoryImpl{
		events: make(map[int]*model.Event, len(snap.Events)),
		order:  make([]int, 0, len(snap.Events)),
		nextID: snap.NextID,
		store:  store,
		clock:  clk,
	}
	for _, e := range snap.Events {
		r.events[e.ID] = e
		r.order = append(r.order, e.ID)
	}
	return r, nil
}

func (r *EventRepositoryImpl) Create(ctx context.Context, params model.CreateEventParams) (*model.Event, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	event := &model.Event{
		ID:          r.nextID,
		Title:       params.Title,
		Description: params.Description,
		StartTime:   params.StartTime,
		EndTime:     params.EndTime,
		CreatedAt:   model.NewTimestamp(r.clock.Now()),
	}
	if params.Recurring != nil {
		recurring := *params.Recurring
		event.Recurring = &recurring
	}

	next := append(r.snapshotLocked(), event)
	if err := r.saveLocked(ctx, "create", next, r.nextID+1); err != nil {
		return nil, err
	}

	r.events[event.ID] = event
	r.order = append(r.order, event.ID)
	r.nextID++

	return event.Clone(), nil
}

func (r *EventRepositoryImpl) List(ctx context.Context, sortBy model.SortBy) ([]*model.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	events := r.cloneLocked(func(*model.Event) bool { return true })
	if sortBy == model.SortByStartTime {
		sortByStart(events)
	}
	return events, nil
}

func (r *EventRepositoryImpl) FindByID(ctx context.Context, id int) (*model.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	event, ok := r.events[id]
	if !ok {
		return nil, apperrors.ErrEventNotFound
	}
	return event.Clone(), nil
}

func (r *EventRepositoryImpl) Update(ctx context.Context, id int, params model.UpdateEventParams) (*model.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.events[id]
	if !ok {
		return nil, apperrors.ErrEventNotFound
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if params.IsEmpty() {
		return current.Clone(), nil
	}

	updated := current.Clone()
	params.Apply(updated)
	now := model.NewTimestamp(r.clock.Now())
	updated.UpdatedAt = &now

	next := r.snapshotLocked()
	for i, e := range next {
		if e.ID == id {
			next[i] = updated
		}
	}
	if err := r.saveLocked(ctx, "update", next, r.nextID); err != nil {
		return nil, err
	}

	r.events[id] = updated
	return updated.Clone(), nil
}

func (r *EventRepositoryImpl) Delete(ctx context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.events[id]; !ok {
		return apperrors.ErrEventNotFound
	}

	next := make([]*model.Event, 0, len(r.order))
	order := make([]int, 0, len(r.order))
	for _, eid := range r.order {
		if eid == id {
			continue
		}
		next = append(next, r.events[eid])
		order = append(order, eid)
	}
	if err := r.saveLocked(ctx, "delete", next, r.nextID); err != nil {
		return err
	}

	delete(r.events, id)
	r.order = order
	return nil
}

func (r *EventRepositoryImpl) Search(ctx context.Context, query string) ([]*model.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.cloneLocked(func(e *model.Event) bool { return e.Matches(query) }), nil
}

func (r *EventRepositoryImpl) Upcoming(ctx context.Context, now model.Timestamp, window time.Duration) ([]*model.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	events := r.cloneLocked(func(e *model.Event) bool {
		return model.InWindow(now, e.StartTime, window)
	})
	sortByStart(events)
	return events, nil
}

func (r *EventRepositoryImpl) DueSoon(ctx context.Context, now model.Timestamp, window time.Duration) ([]*model.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	events := r.cloneLocked(func(e *model.Event) bool {
		return !e.Alerted && model.InWindow(now, e.StartTime, window)
	})
	sortByStart(events)
	return events, nil
}

// MarkAlerted keeps the in-memory flags even when the save fails, so the
// running process never raises the same alert twice; the next successful
// save carries them to disk.
func (r *EventRepositoryImpl) MarkAlerted(ctx context.Context, marks []model.AlertedMark) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	changed := make([]int, 0, len(marks))
	for _, m := range marks {
		e, ok := r.events[m.EventID]
		if !ok || e.Alerted || !e.StartTime.Equal(m.StartTime) {
			continue
		}
		marked := e.Clone()
		marked.Alerted = true
		r.events[m.EventID] = marked
		changed = append(changed, m.EventID)
	}
	if len(changed) == 0 {
		return 0, nil
	}

	if err := r.saveLocked(ctx, "mark alerted", r.snapshotLocked(), r.nextID); err != nil {
		logger.WithComponent("repository").Warn("alerted flags kept in memory only",
			zap.Ints("event_ids", changed), zap.Error(err))
		return len(changed), err
	}
	return len(changed), nil
}

// snapshotLocked returns the live events in insertion order. Callers must hold r.mu.
func (r *EventRepositoryImpl) snapshotLocked() []*model.Event {
	events := make([]*model.Event, 0, len(r.order)+1)
	for _, id := range r.order {
		events = append(events, r.events[id])
	}
	return events
}

func (r *EventRepositoryImpl) cloneLocked(keep func(*model.Event) bool) []*model.Event {
	events := make([]*model.Event, 0, len(r.order))
	for _, id := range r.order {
		if e := r.events[id]; keep(e) {
			events = append(events, e.Clone())
		}
	}
	return events
}

func (r *EventRepositoryImpl) saveLocked(ctx context.Context, op string, events []*model.Event, nextID int) error {
	err := r.store.Save(ctx, &storage.Snapshot{Events: events, NextID: nextID})
	if err != nil {
		logger.WithComponent("repository").Error("state save failed", zap.String("operation", op), zap.Error(err))
		return apperrors.Persistence(op, err)
	}
	return nil
}

// sortByStart orders by start time, ties by id.
func sortByStart(events []*model.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if !a.StartTime.Equal(b.StartTime) {
			return a.StartTime.Before(b.StartTime)
		}
		return a.ID < b.ID
	})
}
