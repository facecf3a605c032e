package model

import (
	"strings"

	apperrors "go-gin-event-scheduler/pkg/app_errors"
)

// Event is the stored record. Alerted is internal to the due-soon scanner
// and is persisted but never rendered to API clients.
type Event struct {
	ID          int        `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	StartTime   Timestamp  `json:"start_time"`
	EndTime     Timestamp  `json:"end_time"`
	Recurring   *string    `json:"recurring"`
	CreatedAt   Timestamp  `json:"created_at"`
	UpdatedAt   *Timestamp `json:"updated_at,omitempty"`
	Alerted     bool       `json:"alerted"`
}

// Clone returns a deep copy so callers never share pointers with the repository.
func (e *Event) Clone() *Event {
	c := *e
	if e.Recurring != nil {
		r := *e.Recurring
		c.Recurring = &r
	}
	if e.UpdatedAt != nil {
		u := *e.UpdatedAt
		c.UpdatedAt = &u
	}
	return &c
}

// Matches reports whether query is a case-insensitive substring of the title or description.
func (e *Event) Matches(query string) bool {
	if query == "" {
		return true
	}
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(e.Title), q) ||
		strings.Contains(strings.ToLower(e.Description), q)
}

// CreateEventParams 建立活動參數
type CreateEventParams struct {
	Title       string
	Description string
	StartTime   Timestamp
	EndTime     Timestamp
	Recurring   *string
}

func (p CreateEventParams) Validate() error {
	if err := p.ValidateTitle(); err != nil {
		return err
	}
	if p.StartTime.IsZero() {
		return apperrors.Invalid("start_time is required")
	}
	if p.EndTime.IsZero() {
		return apperrors.Invalid("end_time is required")
	}
	return nil
}

// ValidateTitle reports a blank title before the timestamps are looked at.
func (p CreateEventParams) ValidateTitle() error {
	if strings.TrimSpace(p.Title) == "" {
		return apperrors.Invalid("title is required")
	}
	return nil
}

// UpdateEventParams carries only the fields a caller supplied. Recurring may
// be explicitly cleared, so it uses Optional instead of a bare pointer.
type UpdateEventParams struct {
	Title       *string
	Description *string
	StartTime   *Timestamp
	EndTime     *Timestamp
	Recurring   Optional[string]
}

func (p UpdateEventParams) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.StartTime == nil &&
		p.EndTime == nil && !p.Recurring.Set
}

func (p UpdateEventParams) Validate() error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return apperrors.Invalid("title must not be empty")
	}
	if p.StartTime != nil && p.StartTime.IsZero() {
		return apperrors.Invalid("start_time must not be empty")
	}
	if p.EndTime != nil && p.EndTime.IsZero() {
		return apperrors.Invalid("end_time must not be empty")
	}
	return nil
}

// Apply writes the supplied fields onto e. A changed start time re-arms the alert.
func (p UpdateEventParams) Apply(e *Event) {
	if p.Title != nil {
		e.Title = *p.Title
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.StartTime != nil {
		if !p.StartTime.Equal(e.StartTime) {
			e.Alerted = false
		}
		e.StartTime = *p.StartTime
	}
	if p.EndTime != nil {
		e.EndTime = *p.EndTime
	}
	if p.Recurring.Set {
		if p.Recurring.Value == nil {
			e.Recurring = nil
		} else {
			r := *p.Recurring.Value
			e.Recurring = &r
		}
	}
}

// SortBy selects the ordering of List.
type SortBy string

const (
	SortByInsertion SortBy = ""
	SortByStartTime SortBy = "start_time"
)

// ParseSortBy maps the query value onto a known ordering; anything unrecognised keeps insertion order.
func ParseSortBy(s string) SortBy {
	if strings.EqualFold(strings.TrimSpace(s), string(SortByStartTime)) {
		return SortByStartTime
	}
	return SortByInsertion
}

// CreateEventRequest 建立活動請求
type CreateEventRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
	StartTime   string  `json:"start_time"`
	EndTime     string  `json:"end_time"`
	Recurring   *string `json:"recurring"`
}

// UpdateEventRequest 更新活動請求
type UpdateEventRequest struct {
	Title       *string          `json:"title"`
	Description *string          `json:"description"`
	StartTime   *string          `json:"start_time"`
	EndTime     *string          `json:"end_time"`
	Recurring   Optional[string] `json:"recurring"`
}

// EventResponse 活動響應
type EventResponse struct {
	ID          int        `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	StartTime   Timestamp  `json:"start_time"`
	EndTime     Timestamp  `json:"end_time"`
	Recurring   *string    `json:"recurring"`
	CreatedAt   Timestamp  `json:"created_at"`
	UpdatedAt   *Timestamp `json:"updated_at,omitempty"`
}

func (e *Event) ToResponse() EventResponse {
	return EventResponse{
		ID:          e.ID,
		Title:       e.Title,
		Description: e.Description,
		StartTime:   e.StartTime,
		EndTime:     e.EndTime,
		Recurring:   e.Recurring,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

func ToResponses(events []*Event) []EventResponse {
	out := make([]EventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, e.ToResponse())
	}
	return out
}
