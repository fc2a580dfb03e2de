// Package types contains common types used across the application
package types

import (
	"time"

	"github.com/okian/rollcall/internal/domain/model"
)

// TimestampLayout is the ledger and API timestamp format.
const TimestampLayout = "2006-01-02 15:04:05"

// AttendanceEntry is the read shape of one ledger row.
type AttendanceEntry struct {
	Name      string `json:"name"`
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
}

// FromRecord converts a ledger record to its read shape.
func FromRecord(r model.AttendanceRecord) AttendanceEntry {
	return AttendanceEntry{
		Name:      r.DisplayName,
		ID:        r.SubjectID,
		Timestamp: r.Timestamp.Format(TimestampLayout),
	}
}

// FromRecords converts a slice of records, preserving order.
func FromRecords(rs []model.AttendanceRecord) []AttendanceEntry {
	out := make([]AttendanceEntry, len(rs))
	for i, r := range rs {
		out[i] = FromRecord(r)
	}
	return out
}

// SessionInfo describes a recognition session.
type SessionInfo struct {
	ID              string           `json:"id"`
	Active          bool             `json:"active"`
	StartedAt       time.Time        `json:"started_at"`
	StoppedAt       *time.Time       `json:"stopped_at,omitempty"`
	TrackedSubjects int              `json:"tracked_subjects"`
	QueueLength     int              `json:"queue_length"`
	Outcomes        map[string]int64 `json:"outcomes"`
}

// Stats is the service snapshot served on /stats.
type Stats struct {
	Started       bool         `json:"started"`
	Today         string       `json:"today"`
	Timezone      string       `json:"timezone"`
	Threshold     int          `json:"threshold"`
	WorkerCount   int          `json:"worker_count"`
	QueueCapacity int          `json:"queue_capacity"`
	CachedDays    int          `json:"cached_days"`
	TodayRecords  int          `json:"today_records"`
	Session       *SessionInfo `json:"session,omitempty"`
}
