package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/casavista/appointment-engine/internal/appointment"
	"github.com/casavista/appointment-engine/internal/calendar"
)

// DefaultEntryDuration pads mirror entries to a one-hour block, matching the
// calendar views' rendering convention.
const DefaultEntryDuration = time.Hour

// MirrorStatus projects a canonical appointment status onto the mirror's
// status vocabulary. rescheduled shows as scheduled at its new date.
func MirrorStatus(s appointment.Status) calendar.EntryStatus {
	switch s {
	case appointment.StatusConfirmed:
		return calendar.EntryConfirmed
	case appointment.StatusCompleted:
		return calendar.EntryCompleted
	case appointment.StatusCancelled:
		return calendar.EntryCancelled
	case appointment.StatusNoShow:
		return calendar.EntryNoShow
	default:
		return calendar.EntryScheduled
	}
}

// Coordinator is the single chokepoint between the appointment store and the
// calendar mirror. Every lifecycle event on the primary store routes through
// exactly one of its methods; nothing else writes to the mirror. Each method
// is idempotent and independently retriable.
type Coordinator struct {
	entries calendar.Repository
}

func NewCoordinator(entries calendar.Repository) *Coordinator {
	return &Coordinator{entries: entries}
}

// OnCreated projects a freshly created appointment onto the mirror. Calling
// it again for the same appointment returns the existing entry.
func (c *Coordinator) OnCreated(ctx context.Context, d *appointment.AppointmentDetail) (*calendar.Entry, error) {
	existing, err := c.entries.GetByAppointmentID(ctx, d.ID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, calendar.ErrEntryNotFound) {
		return nil, fmt.Errorf("look up mirror entry: %w", err)
	}

	entry := c.projectEntry(d)
	created, err := c.entries.Insert(ctx, entry)
	if err != nil {
		return nil, fmt.Errorf("insert mirror entry: %w", err)
	}
	return created, nil
}

// OnUpdated propagates field changes to the mirror row. A missing row (race
// with OnCreated, or a gap the reconciler has not caught yet) is created.
func (c *Coordinator) OnUpdated(ctx context.Context, d *appointment.AppointmentDetail) error {
	upd := calendar.EntryUpdate{
		Title:        strPtr(entryTitle(d)),
		StartTime:    timePtr(d.AppointmentDate),
		EndTime:      timePtr(d.AppointmentDate.Add(DefaultEntryDuration)),
		ContactName:  strPtr(d.ClientName),
		ContactEmail: strPtr(d.ClientEmail),
		ContactPhone: d.ClientPhone,
		Notes:        d.SpecialRequests,
	}
	if d.Property != nil {
		upd.Location = d.Property.Location
	}

	_, err := c.entries.UpdateByAppointmentID(ctx, d.ID, upd)
	if errors.Is(err, calendar.ErrEntryNotFound) {
		if _, insErr := c.entries.Insert(ctx, c.projectEntry(d)); insErr != nil {
			return fmt.Errorf("insert mirror entry on update: %w", insErr)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("update mirror entry: %w", err)
	}
	return nil
}

// OnStatusChanged writes only the mirror's status field.
func (c *Coordinator) OnStatusChanged(ctx context.Context, appointmentID uuid.UUID, newStatus appointment.Status) error {
	if err := c.entries.UpdateStatus(ctx, appointmentID, MirrorStatus(newStatus)); err != nil {
		return fmt.Errorf("update mirror status: %w", err)
	}
	return nil
}

// OnDeleted marks the mirror row soft-deleted. It never hard-deletes and is
// a no-op when no mirror row exists or the row is already marked.
func (c *Coordinator) OnDeleted(ctx context.Context, appointmentID uuid.UUID) error {
	if err := c.entries.SoftDeleteByAppointmentID(ctx, appointmentID); err != nil {
		return fmt.Errorf("soft delete mirror entry: %w", err)
	}
	return nil
}

func (c *Coordinator) projectEntry(d *appointment.AppointmentDetail) *calendar.Entry {
	entry := &calendar.Entry{
		AppointmentID: d.ID,
		Title:         entryTitle(d),
		StartTime:     d.AppointmentDate,
		EndTime:       d.AppointmentDate.Add(DefaultEntryDuration),
		Status:        MirrorStatus(d.Status),
		ContactName:   strPtr(d.ClientName),
		ContactEmail:  strPtr(d.ClientEmail),
		ContactPhone:  d.ClientPhone,
		Notes:         d.SpecialRequests,
	}
	if d.Property != nil {
		entry.Location = d.Property.Location
	}
	return entry
}

func entryTitle(d *appointment.AppointmentDetail) string {
	if d.Property != nil && d.Property.Title != "" {
		return fmt.Sprintf("Appointment - %s", d.Property.Title)
	}
	return fmt.Sprintf("Appointment - %s", d.ClientName)
}

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }
