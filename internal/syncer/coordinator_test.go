package syncer

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casavista/appointment-engine/internal/appointment"
	"github.com/casavista/appointment-engine/internal/calendar"
)

// memEntryRepo is an in-memory calendar.Repository keyed by appointment id.
type memEntryRepo struct {
	entries map[uuid.UUID]*calendar.Entry
	inserts int
}

func newMemEntryRepo() *memEntryRepo {
	return &memEntryRepo{entries: make(map[uuid.UUID]*calendar.Entry)}
}

func (r *memEntryRepo) GetByAppointmentID(ctx context.Context, appointmentID uuid.UUID) (*calendar.Entry, error) {
	e, ok := r.entries[appointmentID]
	if !ok {
		return nil, calendar.ErrEntryNotFound
	}
	cp := *e
	return &cp, nil
}

// Insert mirrors the store's upsert: an existing row for the appointment is
// overwritten with the projected fields and revived if soft-deleted.
func (r *memEntryRepo) Insert(ctx context.Context, e *calendar.Entry) (*calendar.Entry, error) {
	r.inserts++
	cp := *e
	if prev, ok := r.entries[cp.AppointmentID]; ok {
		cp.ID = prev.ID
	} else if cp.ID == uuid.Nil {
		cp.ID = uuid.New()
	}
	cp.DeletedAt = nil
	r.entries[cp.AppointmentID] = &cp
	return &cp, nil
}

func (r *memEntryRepo) UpdateByAppointmentID(ctx context.Context, appointmentID uuid.UUID, upd calendar.EntryUpdate) (*calendar.Entry, error) {
	e, ok := r.entries[appointmentID]
	if !ok || e.DeletedAt != nil {
		return nil, calendar.ErrEntryNotFound
	}
	if upd.Title != nil {
		e.Title = *upd.Title
	}
	if upd.StartTime != nil {
		e.StartTime = *upd.StartTime
	}
	if upd.EndTime != nil {
		e.EndTime = *upd.EndTime
	}
	if upd.Location != nil {
		e.Location = upd.Location
	}
	cp := *e
	return &cp, nil
}

func (r *memEntryRepo) UpdateStatus(ctx context.Context, appointmentID uuid.UUID, status calendar.EntryStatus) error {
	e, ok := r.entries[appointmentID]
	if !ok || e.DeletedAt != nil {
		return calendar.ErrEntryNotFound
	}
	e.Status = status
	return nil
}

func (r *memEntryRepo) SoftDeleteByAppointmentID(ctx context.Context, appointmentID uuid.UUID) error {
	if e, ok := r.entries[appointmentID]; ok && e.DeletedAt == nil {
		now := time.Now()
		e.DeletedAt = &now
	}
	return nil
}

func (r *memEntryRepo) ListActive(ctx context.Context, from, to time.Time) ([]calendar.Entry, error) {
	var out []calendar.Entry
	for _, e := range r.entries {
		if e.DeletedAt == nil && !e.StartTime.Before(from) && e.StartTime.Before(to) {
			out = append(out, *e)
		}
	}
	return out, nil
}

func sampleDetail() *appointment.AppointmentDetail {
	d := &appointment.AppointmentDetail{
		Appointment: appointment.Appointment{
			ID:              uuid.New(),
			AdvisorID:       uuid.New(),
			ClientName:      "Marta Soler",
			ClientEmail:     "marta@example.com",
			Status:          appointment.StatusPending,
			AppointmentType: appointment.TypeViewing,
			AppointmentDate: time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC),
		},
	}
	loc := "Carrer de Mallorca 21, Barcelona"
	d.Property = &appointment.Property{ID: 7, Title: "Eixample loft", Location: &loc}
	return d
}

func TestMirrorStatus(t *testing.T) {
	tests := []struct {
		from appointment.Status
		want calendar.EntryStatus
	}{
		{appointment.StatusPending, calendar.EntryScheduled},
		{appointment.StatusConfirmed, calendar.EntryConfirmed},
		{appointment.StatusCompleted, calendar.EntryCompleted},
		{appointment.StatusCancelled, calendar.EntryCancelled},
		{appointment.StatusNoShow, calendar.EntryNoShow},
		{appointment.StatusRescheduled, calendar.EntryScheduled},
	}

	for _, tt := range tests {
		t.Run(string(tt.from), func(t *testing.T) {
			assert.Equal(t, tt.want, MirrorStatus(tt.from))
		})
	}
}

func TestOnCreated(t *testing.T) {
	t.Run("projects the appointment onto the mirror", func(t *testing.T) {
		repo := newMemEntryRepo()
		coord := NewCoordinator(repo)
		d := sampleDetail()

		entry, err := coord.OnCreated(context.Background(), d)
		require.NoError(t, err)

		assert.Equal(t, d.ID, entry.AppointmentID)
		assert.Equal(t, "Appointment - Eixample loft", entry.Title)
		assert.True(t, entry.StartTime.Equal(d.AppointmentDate))
		assert.True(t, entry.EndTime.Equal(d.AppointmentDate.Add(DefaultEntryDuration)))
		assert.Equal(t, calendar.EntryScheduled, entry.Status)
		require.NotNil(t, entry.ContactName)
		assert.Equal(t, "Marta Soler", *entry.ContactName)
		require.NotNil(t, entry.Location)
		assert.Equal(t, "Carrer de Mallorca 21, Barcelona", *entry.Location)
	})

	t.Run("repeat call returns the existing entry", func(t *testing.T) {
		repo := newMemEntryRepo()
		coord := NewCoordinator(repo)
		d := sampleDetail()

		first, err := coord.OnCreated(context.Background(), d)
		require.NoError(t, err)
		second, err := coord.OnCreated(context.Background(), d)
		require.NoError(t, err)

		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, 1, repo.inserts)
	})

	t.Run("falls back to the client name without a property", func(t *testing.T) {
		repo := newMemEntryRepo()
		coord := NewCoordinator(repo)
		d := sampleDetail()
		d.Property = nil

		entry, err := coord.OnCreated(context.Background(), d)
		require.NoError(t, err)
		assert.Equal(t, "Appointment - Marta Soler", entry.Title)
	})
}

func TestOnUpdated(t *testing.T) {
	t.Run("moves the mirror window with the appointment", func(t *testing.T) {
		repo := newMemEntryRepo()
		coord := NewCoordinator(repo)
		d := sampleDetail()

		_, err := coord.OnCreated(context.Background(), d)
		require.NoError(t, err)

		d.AppointmentDate = time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC)
		require.NoError(t, coord.OnUpdated(context.Background(), d))

		entry, err := repo.GetByAppointmentID(context.Background(), d.ID)
		require.NoError(t, err)
		assert.True(t, entry.StartTime.Equal(d.AppointmentDate))
		assert.True(t, entry.EndTime.Equal(d.AppointmentDate.Add(DefaultEntryDuration)))
	})

	t.Run("creates the missing row instead of failing", func(t *testing.T) {
		repo := newMemEntryRepo()
		coord := NewCoordinator(repo)
		d := sampleDetail()

		require.NoError(t, coord.OnUpdated(context.Background(), d))
		assert.Equal(t, 1, repo.inserts)
	})

	t.Run("revives a soft-deleted row with the full projection", func(t *testing.T) {
		repo := newMemEntryRepo()
		coord := NewCoordinator(repo)
		d := sampleDetail()

		_, err := coord.OnCreated(context.Background(), d)
		require.NoError(t, err)
		require.NoError(t, coord.OnDeleted(context.Background(), d.ID))

		d.Status = appointment.StatusConfirmed
		d.AppointmentDate = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
		require.NoError(t, coord.OnUpdated(context.Background(), d))

		entry := repo.entries[d.ID]
		assert.Nil(t, entry.DeletedAt)
		assert.True(t, entry.StartTime.Equal(d.AppointmentDate))
		assert.Equal(t, calendar.EntryConfirmed, entry.Status)
	})
}

func TestOnStatusChanged(t *testing.T) {
	repo := newMemEntryRepo()
	coord := NewCoordinator(repo)
	d := sampleDetail()

	_, err := coord.OnCreated(context.Background(), d)
	require.NoError(t, err)

	require.NoError(t, coord.OnStatusChanged(context.Background(), d.ID, appointment.StatusConfirmed))

	entry, err := repo.GetByAppointmentID(context.Background(), d.ID)
	require.NoError(t, err)
	assert.Equal(t, calendar.EntryConfirmed, entry.Status)
}

func TestOnDeleted(t *testing.T) {
	repo := newMemEntryRepo()
	coord := NewCoordinator(repo)
	d := sampleDetail()

	_, err := coord.OnCreated(context.Background(), d)
	require.NoError(t, err)

	require.NoError(t, coord.OnDeleted(context.Background(), d.ID))
	require.NoError(t, coord.OnDeleted(context.Background(), d.ID), "repeat delete stays a no-op")

	entry := repo.entries[d.ID]
	require.NotNil(t, entry.DeletedAt)
}

func TestReconcilerRun(t *testing.T) {
	t.Run("upserts a mirror row per active appointment", func(t *testing.T) {
		repo := newMemEntryRepo()
		coord := NewCoordinator(repo)

		a, b := sampleDetail(), sampleDetail()
		b.Status = appointment.StatusConfirmed
		src := staticSource{details: []appointment.AppointmentDetail{*a, *b}}

		report, err := NewReconciler(src, coord).Run(context.Background())
		require.NoError(t, err)

		assert.Equal(t, Report{Total: 2, Synced: 2}, report)
		require.Len(t, repo.entries, 2)
		assert.Equal(t, calendar.EntryConfirmed, repo.entries[b.ID].Status)
	})

	t.Run("heals a mirror stuck behind a missed cancellation", func(t *testing.T) {
		repo := newMemEntryRepo()
		coord := NewCoordinator(repo)

		d := sampleDetail()
		d.Status = appointment.StatusConfirmed
		_, err := coord.OnCreated(context.Background(), d)
		require.NoError(t, err)

		// The primary store moved to cancelled but the status sync was lost.
		d.Status = appointment.StatusCancelled
		src := staticSource{details: []appointment.AppointmentDetail{*d}}

		report, err := NewReconciler(src, coord).Run(context.Background())
		require.NoError(t, err)

		assert.Equal(t, 1, report.Synced)
		assert.Equal(t, calendar.EntryCancelled, repo.entries[d.ID].Status)
	})

	t.Run("rerun is idempotent", func(t *testing.T) {
		repo := newMemEntryRepo()
		coord := NewCoordinator(repo)
		src := staticSource{details: []appointment.AppointmentDetail{*sampleDetail()}}
		rec := NewReconciler(src, coord)

		_, err := rec.Run(context.Background())
		require.NoError(t, err)
		report, err := rec.Run(context.Background())
		require.NoError(t, err)

		assert.Equal(t, 1, report.Synced)
		assert.Equal(t, 1, repo.inserts)
	})
}

type staticSource struct {
	details []appointment.AppointmentDetail
}

func (s staticSource) ListUndeletedDetails(ctx context.Context) ([]appointment.AppointmentDetail, error) {
	return s.details, nil
}
