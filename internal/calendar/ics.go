// Package calendar renders the event collection as an iCalendar feed.
package calendar

import (
	"fmt"
	"strings"
	"time"

	"go-gin-event-scheduler/internal/model"

	ical "github.com/arran4/golang-ical"
)

const (
	ProductID = "-//go-gin-event-scheduler//events//EN"
	// floatingLayout is a DATE-TIME without a zone; stored timestamps carry none.
	floatingLayout = "20060102T150405"

	propertyRecurring = ical.ComponentProperty("X-RECURRING")
)

var frequencies = map[string]string{
	"daily":   "DAILY",
	"weekly":  "WEEKLY",
	"monthly": "MONTHLY",
	"yearly":  "YEARLY",
}

// UID is the stable VEVENT identifier for an event id.
func UID(id int) string {
	return fmt.Sprintf("event-%d@go-gin-event-scheduler", id)
}

// Render serializes events in the given order. stamp becomes every DTSTAMP, in UTC.
func Render(events []*model.Event, stamp time.Time) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(ProductID)

	for _, e := range events {
		ve := cal.AddEvent(UID(e.ID))
		ve.SetProperty(ical.ComponentPropertyDtstamp, stamp.UTC().Format(floatingLayout)+"Z")
		ve.SetProperty(ical.ComponentPropertyCreated, e.CreatedAt.Format(floatingLayout))
		if e.UpdatedAt != nil {
			ve.SetProperty(ical.ComponentPropertyLastModified, e.UpdatedAt.Format(floatingLayout))
		}
		ve.SetProperty(ical.ComponentPropertyDtStart, e.StartTime.Format(floatingLayout))
		ve.SetProperty(ical.ComponentPropertyDtEnd, e.EndTime.Format(floatingLayout))
		ve.SetSummary(e.Title)
		if e.Description != "" {
			ve.SetDescription(e.Description)
		}
		if e.Recurring != nil {
			if freq, ok := Frequency(*e.Recurring); ok {
				ve.SetProperty(ical.ComponentPropertyRrule, "FREQ="+freq)
			} else {
				ve.SetProperty(propertyRecurring, *e.Recurring)
			}
		}
	}
	return cal.Serialize()
}

// Frequency maps a recurrence label onto an RRULE FREQ value.
func Frequency(label string) (string, bool) {
	freq, ok := frequencies[strings.ToLower(strings.TrimSpace(label))]
	return freq, ok
}
