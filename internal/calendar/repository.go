package calendar

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrEntryNotFound = errors.New("calendar entry not found")

// EntryUpdate carries mirror fields that follow the canonical record. Nil
// pointers leave the stored value untouched.
type EntryUpdate struct {
	Title        *string
	Location     *string
	StartTime    *time.Time
	EndTime      *time.Time
	ContactName  *string
	ContactEmail *string
	ContactPhone *string
	Notes        *string
}

// Repository owns the calendar_entries table. All writes are keyed by the
// appointment back-reference so sync calls stay idempotent.
type Repository interface {
	GetByAppointmentID(ctx context.Context, appointmentID uuid.UUID) (*Entry, error)
	Insert(ctx context.Context, e *Entry) (*Entry, error)
	UpdateByAppointmentID(ctx context.Context, appointmentID uuid.UUID, upd EntryUpdate) (*Entry, error)
	UpdateStatus(ctx context.Context, appointmentID uuid.UUID, status EntryStatus) error
	SoftDeleteByAppointmentID(ctx context.Context, appointmentID uuid.UUID) error
	ListActive(ctx context.Context, from, to time.Time) ([]Entry, error)
}
