package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const entryColumns = `id, appointment_id, title, location, start_time, end_time, status,
	contact_name, contact_email, contact_phone, notes, created_at, updated_at, deleted_at`

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func scanEntry(row pgx.Row) (*Entry, error) {
	var e Entry

	err := row.Scan(
		&e.ID,
		&e.AppointmentID,
		&e.Title,
		&e.Location,
		&e.StartTime,
		&e.EndTime,
		&e.Status,
		&e.ContactName,
		&e.ContactEmail,
		&e.ContactPhone,
		&e.Notes,
		&e.CreatedAt,
		&e.UpdatedAt,
		&e.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEntryNotFound
		}
		return nil, err
	}

	return &e, nil
}

func (r *PgRepository) GetByAppointmentID(ctx context.Context, appointmentID uuid.UUID) (*Entry, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+entryColumns+`
		FROM calendar_entries
		WHERE appointment_id = $1
	`, appointmentID)
	return scanEntry(row)
}

func (r *PgRepository) Insert(ctx context.Context, e *Entry) (*Entry, error) {
	id := e.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO calendar_entries (id, appointment_id, title, location, start_time, end_time, status,
			contact_name, contact_email, contact_phone, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now(), now())
		ON CONFLICT (appointment_id) DO UPDATE
		SET title         = EXCLUDED.title,
		    location      = EXCLUDED.location,
		    start_time    = EXCLUDED.start_time,
		    end_time      = EXCLUDED.end_time,
		    status        = EXCLUDED.status,
		    contact_name  = EXCLUDED.contact_name,
		    contact_email = EXCLUDED.contact_email,
		    contact_phone = EXCLUDED.contact_phone,
		    notes         = EXCLUDED.notes,
		    deleted_at    = NULL,
		    updated_at    = now()
		RETURNING `+entryColumns+`
	`, id, e.AppointmentID, e.Title, e.Location, e.StartTime, e.EndTime, e.Status,
		e.ContactName, e.ContactEmail, e.ContactPhone, e.Notes)

	return scanEntry(row)
}

func (r *PgRepository) UpdateByAppointmentID(ctx context.Context, appointmentID uuid.UUID, upd EntryUpdate) (*Entry, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE calendar_entries
		SET title         = COALESCE($2, title),
		    location      = COALESCE($3, location),
		    start_time    = COALESCE($4, start_time),
		    end_time      = COALESCE($5, end_time),
		    contact_name  = COALESCE($6, contact_name),
		    contact_email = COALESCE($7, contact_email),
		    contact_phone = COALESCE($8, contact_phone),
		    notes         = COALESCE($9, notes),
		    updated_at    = now()
		WHERE appointment_id = $1 AND deleted_at IS NULL
		RETURNING `+entryColumns+`
	`, appointmentID, upd.Title, upd.Location, upd.StartTime, upd.EndTime,
		upd.ContactName, upd.ContactEmail, upd.ContactPhone, upd.Notes)

	return scanEntry(row)
}

func (r *PgRepository) UpdateStatus(ctx context.Context, appointmentID uuid.UUID, status EntryStatus) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE calendar_entries
		SET status = $2,
		    updated_at = now()
		WHERE appointment_id = $1 AND deleted_at IS NULL
	`, appointmentID, status)
	if err != nil {
		return fmt.Errorf("update entry status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrEntryNotFound
	}
	return nil
}

func (r *PgRepository) SoftDeleteByAppointmentID(ctx context.Context, appointmentID uuid.UUID) error {
	// COALESCE keeps the first deletion timestamp on repeated calls.
	_, err := r.pool.Exec(ctx, `
		UPDATE calendar_entries
		SET deleted_at = COALESCE(deleted_at, now()),
		    updated_at = now()
		WHERE appointment_id = $1
	`, appointmentID)
	if err != nil {
		return fmt.Errorf("soft delete entry: %w", err)
	}
	return nil
}

func (r *PgRepository) ListActive(ctx context.Context, from, to time.Time) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+entryColumns+`
		FROM calendar_entries
		WHERE deleted_at IS NULL
		  AND start_time >= $1
		  AND start_time <= $2
		ORDER BY start_time ASC
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

var _ Repository = (*PgRepository)(nil)
