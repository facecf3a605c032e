package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"go-gin-event-scheduler/internal/clock"
	"go-gin-event-scheduler/internal/model"
	"go-gin-event-scheduler/internal/repository"
	"go-gin-event-scheduler/internal/storage"
	apperrors "go-gin-event-scheduler/pkg/app_errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 12, 1, 8, 0, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }

func newTestService(t *testing.T) (EventService, repository.EventRepository, *clock.Manual) {
	t.Helper()
	clk := clock.NewManual(testNow)
	repo, err := repository.NewEventRepository(context.Background(), storage.NewMemoryStore(), clk)
	require.NoError(t, err)
	return NewEventService(repo, clk, time.Hour), repo, clk
}

func TestEventService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		e, err := svc.Create(ctx, model.CreateEventRequest{
			Title:       "Standup",
			Description: strPtr("daily sync"),
			StartTime:   "2024-12-01 09:00:00",
			EndTime:     "2024-12-01T09:30:00",
			Recurring:   strPtr("daily"),
		})

		require.NoError(t, err)
		assert.Equal(t, 1, e.ID)
		assert.Equal(t, "daily sync", e.Description)
		assert.Equal(t, "2024-12-01T09:00:00", e.StartTime.String())
		assert.Equal(t, "2024-12-01T09:30:00", e.EndTime.String())
		assert.Equal(t, "daily", *e.Recurring)
	})

	cases := []struct {
		name    string
		req     model.CreateEventRequest
		message string
	}{
		{"MissingTitle", model.CreateEventRequest{StartTime: "2024-12-01 09:00:00", EndTime: "2024-12-01 10:00:00"}, "title is required"},
		{"BlankTitle", model.CreateEventRequest{Title: "   ", StartTime: "2024-12-01 09:00:00", EndTime: "2024-12-01 10:00:00"}, "title is required"},
		{"MissingStart", model.CreateEventRequest{Title: "x", EndTime: "2024-12-01 10:00:00"}, "start_time is required"},
		{"MissingEnd", model.CreateEventRequest{Title: "x", StartTime: "2024-12-01 09:00:00"}, "end_time is required"},
		{"BadStart", model.CreateEventRequest{Title: "x", StartTime: "tomorrow", EndTime: "2024-12-01 10:00:00"}, "start_time"},
		{"BadEnd", model.CreateEventRequest{Title: "x", StartTime: "2024-12-01 09:00:00", EndTime: "2024-13-01 10:00:00"}, "end_time"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, repo, _ := newTestService(t)
			_, err := svc.Create(ctx, tc.req)

			require.ErrorIs(t, err, apperrors.ErrInvalidInput)
			assert.True(t, strings.HasPrefix(apperrors.Message(err), tc.message), apperrors.Message(err))
			events, _ := repo.List(ctx, model.SortByInsertion)
			assert.Empty(t, events)
		})
	}
}

func TestEventService_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("ParsesTimestamps", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		_, err := svc.Create(ctx, model.CreateEventRequest{Title: "x", StartTime: "2024-12-01 09:00:00", EndTime: "2024-12-01 10:00:00"})
		require.NoError(t, err)

		e, err := svc.Update(ctx, 1, model.UpdateEventRequest{StartTime: strPtr("2024-12-02 09:00"), Recurring: model.Some("weekly")})

		require.NoError(t, err)
		assert.Equal(t, "2024-12-02T09:00:00", e.StartTime.String())
		assert.Equal(t, "2024-12-01T10:00:00", e.EndTime.String())
		assert.Equal(t, "weekly", *e.Recurring)
		require.NotNil(t, e.UpdatedAt)
	})

	t.Run("BadTimestamp", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		_, err := svc.Create(ctx, model.CreateEventRequest{Title: "x", StartTime: "2024-12-01 09:00:00", EndTime: "2024-12-01 10:00:00"})
		require.NoError(t, err)

		_, err = svc.Update(ctx, 1, model.UpdateEventRequest{EndTime: strPtr("soon")})
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

		_, err = svc.Update(ctx, 1, model.UpdateEventRequest{EndTime: strPtr("")})
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})

	t.Run("NotFound", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		_, err := svc.Update(ctx, 9, model.UpdateEventRequest{Title: strPtr("y")})
		assert.ErrorIs(t, err, apperrors.ErrEventNotFound)
	})

	t.Run("NotFoundWinsOverBadPayload", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		_, err := svc.Update(ctx, 999, model.UpdateEventRequest{StartTime: strPtr("not-a-time")})
		assert.ErrorIs(t, err, apperrors.ErrEventNotFound)
		assert.NotErrorIs(t, err, apperrors.ErrInvalidInput)

		_, err = svc.Update(ctx, 999, model.UpdateEventRequest{Title: strPtr("")})
		assert.ErrorIs(t, err, apperrors.ErrEventNotFound)
	})
}

func TestEventService_Reminders(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newTestService(t)
	for _, req := range []model.CreateEventRequest{
		{Title: "later", StartTime: "2024-12-01 09:45:00", EndTime: "2024-12-01 10:00:00"},
		{Title: "soon", StartTime: "2024-12-01 08:20:30", EndTime: "2024-12-01 09:00:00"},
		{Title: "edge", StartTime: "2024-12-01 09:00:00", EndTime: "2024-12-01 09:30:00"},
		{Title: "past", StartTime: "2024-12-01 07:00:00", EndTime: "2024-12-01 07:30:00"},
	} {
		_, err := svc.Create(ctx, req)
		require.NoError(t, err)
	}
	// alerted events are still reminders
	_, err := repo.MarkAlerted(ctx, []model.AlertedMark{{EventID: 2, StartTime: model.MustParseTimestamp("2024-12-01 08:20:30")}})
	require.NoError(t, err)

	reminders, err := svc.Reminders(ctx)

	require.NoError(t, err)
	require.Len(t, reminders, 2)
	assert.Equal(t, "soon", reminders[0].Event.Title)
	assert.Equal(t, 20, reminders[0].MinutesUntil)
	assert.Equal(t, "edge", reminders[1].Event.Title)
	assert.Equal(t, 60, reminders[1].MinutesUntil)
}

func TestEventService_SearchDeleteList(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)
	_, err := svc.Create(ctx, model.CreateEventRequest{Title: "Team Meeting", StartTime: "2024-12-02 09:00:00", EndTime: "2024-12-02 10:00:00"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, model.CreateEventRequest{Title: "Gym", StartTime: "2024-12-01 18:00:00", EndTime: "2024-12-01 19:00:00"})
	require.NoError(t, err)

	results, err := svc.Search(ctx, "meet")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Team Meeting", results[0].Title)

	sorted, err := svc.List(ctx, model.SortByStartTime)
	require.NoError(t, err)
	assert.Equal(t, "Gym", sorted[0].Title)

	require.NoError(t, svc.Delete(ctx, 1))
	_, err = svc.GetByID(ctx, 1)
	assert.ErrorIs(t, err, apperrors.ErrEventNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, 1), apperrors.ErrEventNotFound)
}

func TestEventService_Calendar(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)
	_, err := svc.Create(ctx, model.CreateEventRequest{Title: "Standup", StartTime: "2024-12-01 09:00:00", EndTime: "2024-12-01 09:30:00", Recurring: strPtr("weekly")})
	require.NoError(t, err)

	out, err := svc.Calendar(ctx)

	require.NoError(t, err)
	assert.Contains(t, out, "BEGIN:VCALENDAR")
	assert.Contains(t, out, "SUMMARY:Standup")
	assert.Contains(t, out, "DTSTART:20241201T090000")
	assert.Contains(t, out, "RRULE:FREQ=WEEKLY")
}
