package model

import (
	"time"

	"github.com/google/uuid"
)

// Alert is raised once per event when it enters the due-soon window.
type Alert struct {
	ID           uuid.UUID `json:"id"`
	EventID      int       `json:"event_id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	StartTime    Timestamp `json:"start_time"`
	MinutesUntil int       `json:"minutes_until"`
	RaisedAt     Timestamp `json:"raised_at"`
}

func NewAlert(e *Event, now Timestamp) *Alert {
	return &Alert{
		ID:           uuid.New(),
		EventID:      e.ID,
		Title:        e.Title,
		Description:  e.Description,
		StartTime:    e.StartTime,
		MinutesUntil: MinutesUntil(now, e.StartTime),
		RaisedAt:     now,
	}
}

// AlertedMark names the event occurrence an alert was raised for. A mark
// whose start no longer matches the stored event is stale.
type AlertedMark struct {
	EventID   int
	StartTime Timestamp
}

func (e *Event) AlertedMark() AlertedMark {
	return AlertedMark{EventID: e.ID, StartTime: e.StartTime}
}

// Reminder is an upcoming event together with whole minutes until it starts.
type Reminder struct {
	Event        EventResponse `json:"event"`
	MinutesUntil int           `json:"minutes_until"`
}

// MinutesUntil truncates toward zero, so 59m59s reports 59.
func MinutesUntil(now, start Timestamp) int {
	return int(start.Sub(now.Time) / time.Minute)
}

// InWindow reports whether start lies in (now, now+window].
func InWindow(now, start Timestamp, window time.Duration) bool {
	return start.After(now) && !start.After(now.Add(window))
}
