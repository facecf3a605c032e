package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// TimestampLayout is the wire and storage form of every timestamp.
const TimestampLayout = "2006-01-02T15:04:05"

var acceptedLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// Timestamp is a wall-clock date and time without a zone. Values are held in UTC
// purely as a carrier; the zone carries no meaning.
type Timestamp struct {
	time.Time
}

// NewTimestamp keeps the wall-clock fields of t, drops the zone and sub-second part.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)}
}

// ParseTimestamp accepts "YYYY-MM-DDTHH:MM:SS" with either a 'T' or a space separator.
// Minutes-only and date-only forms are accepted too; fractional seconds are dropped.
func ParseTimestamp(s string) (Timestamp, error) {
	value := strings.TrimSpace(s)
	if value == "" {
		return Timestamp{}, fmt.Errorf("empty timestamp")
	}
	if len(value) > 10 && value[10] == ' ' {
		value = value[:10] + "T" + value[11:]
	}
	// layout "15" also takes a one-digit hour; the wire format is HH
	if len(value) > 10 && (len(value) < 13 || !isDigit(value[11]) || !isDigit(value[12])) {
		return Timestamp{}, fmt.Errorf("invalid timestamp %q, hour must be two digits", s)
	}
	for _, layout := range acceptedLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return NewTimestamp(t), nil
		}
	}
	return Timestamp{}, fmt.Errorf("invalid timestamp %q, expected YYYY-MM-DDTHH:MM:SS or 'YYYY-MM-DD HH:MM:SS'", s)
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func MustParseTimestamp(s string) Timestamp {
	ts, err := ParseTimestamp(s)
	if err != nil {
		panic(err)
	}
	return ts
}

func (t Timestamp) String() string {
	return t.Format(TimestampLayout)
}

func (t Timestamp) Add(d time.Duration) Timestamp {
	return Timestamp{t.Time.Add(d)}
}

func (t Timestamp) Before(u Timestamp) bool { return t.Time.Before(u.Time) }
func (t Timestamp) After(u Timestamp) bool  { return t.Time.After(u.Time) }
func (t Timestamp) Equal(u Timestamp) bool  { return t.Time.Equal(u.Time) }

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	ts, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*t = ts
	return nil
}
