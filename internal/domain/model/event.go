// Package model contains domain models passed between layers.
package model

import (
	"strings"
	"time"
)

// DateLayout is the calendar-day key format used by ledgers.
const DateLayout = "2006-01-02"

// IdentityEvent is one recognizer match: a subject was seen at an instant
// with some confidence. Events are never persisted directly.
type IdentityEvent struct {
	SubjectID   string    // stable dedup key
	DisplayName string    // presentation only
	Timestamp   time.Time // frame instant
	Confidence  float64   // recognizer score
}

// AttendanceRecord is a confirmed, immutable ledger row.
type AttendanceRecord struct {
	DisplayName string
	SubjectID   string
	Timestamp   time.Time
	Date        DateKey
}

// DateKey identifies one calendar day, formatted as YYYY-MM-DD.
type DateKey string

// DateOf returns the calendar day of t in loc. A nil loc means t's own location.
func DateOf(t time.Time, loc *time.Location) DateKey {
	if loc != nil {
		t = t.In(loc)
	}
	return DateKey(t.Format(DateLayout))
}

// ParseDate validates s and returns it as a DateKey.
func ParseDate(s string) (DateKey, error) {
	if _, err := time.Parse(DateLayout, s); err != nil {
		return "", err
	}
	return DateKey(s), nil
}

// Valid reports whether d is a well-formed date.
func (d DateKey) Valid() bool {
	_, err := time.Parse(DateLayout, string(d))
	return err == nil
}

func (d DateKey) String() string { return string(d) }

// ParseEnrollmentName splits an enrollment label of the form "<name>_<id>"
// into display name and subject id. The id is everything after the last
// underscore; labels without one use the whole label for both.
func ParseEnrollmentName(label string) (displayName, subjectID string) {
	label = strings.TrimSpace(label)
	i := strings.LastIndex(label, "_")
	if i <= 0 || i == len(label)-1 {
		return label, label
	}
	return label[:i], label[i+1:]
}

// Prev returns the day before d, or d itself if d is malformed.
func (d DateKey) Prev() DateKey {
	t, err := time.Parse(DateLayout, string(d))
	if err != nil {
		return d
	}
	return DateKey(t.AddDate(0, 0, -1).Format(DateLayout))
}
