package calendar

import (
	"time"

	"github.com/google/uuid"
)

type EntryStatus string

const (
	EntryScheduled EntryStatus = "scheduled"
	EntryConfirmed EntryStatus = "confirmed"
	EntryCompleted EntryStatus = "completed"
	EntryCancelled EntryStatus = "cancelled"
	EntryNoShow    EntryStatus = "no_show"
)

// Entry is the calendar-view representation of an appointment, keyed back to
// the canonical record via AppointmentID. It is a read-optimized projection
// and never authoritative for conflict checks.
type Entry struct {
	ID            uuid.UUID
	AppointmentID uuid.UUID
	Title         string
	Location      *string
	StartTime     time.Time
	EndTime       time.Time
	Status        EntryStatus
	ContactName   *string
	ContactEmail  *string
	ContactPhone  *string
	Notes         *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	DeletedAt     *time.Time
}
