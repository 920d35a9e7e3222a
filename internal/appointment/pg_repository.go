package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const appointmentColumns = `id, advisor_id, property_id, client_name, client_email, client_phone,
	appointment_type, visit_type, attendees, contact_method, marketing_consent, special_requests,
	appointment_date, status, rescheduled_date, follow_up_notes, cancellation_reason,
	created_at, updated_at, deleted_at`

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanAdvisor(row pgx.Row) (*Advisor, error) {
	var a Advisor

	err := row.Scan(
		&a.ID,
		&a.Name,
		&a.Email,
		&a.Phone,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAdvisorNotFound
		}
		return nil, err
	}

	return &a, nil
}

func scanProperty(row pgx.Row) (*Property, error) {
	var p Property

	err := row.Scan(
		&p.ID,
		&p.Title,
		&p.Location,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPropertyNotFound
		}
		return nil, err
	}

	return &p, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment

	err := row.Scan(
		&a.ID,
		&a.AdvisorID,
		&a.PropertyID,
		&a.ClientName,
		&a.ClientEmail,
		&a.ClientPhone,
		&a.AppointmentType,
		&a.VisitType,
		&a.Attendees,
		&a.ContactMethod,
		&a.MarketingConsent,
		&a.SpecialRequests,
		&a.AppointmentDate,
		&a.Status,
		&a.RescheduledDate,
		&a.FollowUpNotes,
		&a.CancellationReason,
		&a.CreatedAt,
		&a.UpdatedAt,
		&a.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	return &a, nil
}

func scanDetail(row pgx.Row) (*AppointmentDetail, error) {
	var d AppointmentDetail
	var advisorName *string
	var advisorEmail, advisorPhone *string
	var propertyTitle, propertyLocation *string

	err := row.Scan(
		&d.ID,
		&d.AdvisorID,
		&d.PropertyID,
		&d.ClientName,
		&d.ClientEmail,
		&d.ClientPhone,
		&d.AppointmentType,
		&d.VisitType,
		&d.Attendees,
		&d.ContactMethod,
		&d.MarketingConsent,
		&d.SpecialRequests,
		&d.AppointmentDate,
		&d.Status,
		&d.RescheduledDate,
		&d.FollowUpNotes,
		&d.CancellationReason,
		&d.CreatedAt,
		&d.UpdatedAt,
		&d.DeletedAt,
		&advisorName,
		&advisorEmail,
		&advisorPhone,
		&propertyTitle,
		&propertyLocation,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	if advisorName != nil {
		d.Advisor = &Advisor{ID: d.AdvisorID, Name: *advisorName, Email: advisorEmail, Phone: advisorPhone}
	}
	if d.PropertyID != nil && propertyTitle != nil {
		d.Property = &Property{ID: *d.PropertyID, Title: *propertyTitle, Location: propertyLocation}
	}

	return &d, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

const detailQuery = `
	SELECT a.id, a.advisor_id, a.property_id, a.client_name, a.client_email, a.client_phone,
		a.appointment_type, a.visit_type, a.attendees, a.contact_method, a.marketing_consent, a.special_requests,
		a.appointment_date, a.status, a.rescheduled_date, a.follow_up_notes, a.cancellation_reason,
		a.created_at, a.updated_at, a.deleted_at,
		adv.name, adv.email, adv.phone,
		p.title, p.location
	FROM appointments a
	LEFT JOIN advisors adv ON adv.id = a.advisor_id
	LEFT JOIN properties p ON p.id = a.property_id`

// Interface methods

func (r *PgRepository) GetAdvisorByID(ctx context.Context, id uuid.UUID) (*Advisor, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, email, phone, created_at, updated_at
		FROM advisors
		WHERE id = $1
	`, id)
	return scanAdvisor(row)
}

func (r *PgRepository) GetPropertyByID(ctx context.Context, id int64) (*Property, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, title, location, created_at, updated_at
		FROM properties
		WHERE id = $1
	`, id)
	return scanProperty(row)
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) GetAppointmentDetail(ctx context.Context, id uuid.UUID) (*AppointmentDetail, error) {
	row := r.pool.QueryRow(ctx, detailQuery+`
		WHERE a.id = $1
	`, id)
	return scanDetail(row)
}

func (r *PgRepository) ListActiveByAdvisor(ctx context.Context, advisorID uuid.UUID) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE advisor_id = $1
		  AND status NOT IN ('cancelled', 'no_show')
		  AND deleted_at IS NULL
		ORDER BY appointment_date ASC
	`, advisorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectAppointments(rows)
}

func (r *PgRepository) CreateAppointment(ctx context.Context, appt *Appointment) (*Appointment, error) {
	id := appt.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (id, advisor_id, property_id, client_name, client_email, client_phone,
			appointment_type, visit_type, attendees, contact_method, marketing_consent, special_requests,
			appointment_date, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, now(), now())
		RETURNING `+appointmentColumns+`
	`, id, appt.AdvisorID, appt.PropertyID, appt.ClientName, appt.ClientEmail, appt.ClientPhone,
		appt.AppointmentType, appt.VisitType, appt.Attendees, appt.ContactMethod, appt.MarketingConsent,
		appt.SpecialRequests, appt.AppointmentDate, appt.Status)

	created, err := scanAppointment(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateSlot
		}
		return nil, err
	}
	return created, nil
}

func (r *PgRepository) UpdateAppointment(ctx context.Context, id uuid.UUID, upd AppointmentUpdate) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET advisor_id       = COALESCE($2, advisor_id),
		    property_id      = COALESCE($3, property_id),
		    client_name      = COALESCE($4, client_name),
		    client_email     = COALESCE($5, client_email),
		    client_phone     = COALESCE($6, client_phone),
		    appointment_type = COALESCE($7, appointment_type),
		    visit_type       = COALESCE($8, visit_type),
		    attendees        = COALESCE($9, attendees),
		    contact_method   = COALESCE($10, contact_method),
		    special_requests = COALESCE($11, special_requests),
		    appointment_date = COALESCE($12, appointment_date),
		    updated_at       = now()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING `+appointmentColumns+`
	`, id, upd.AdvisorID, upd.PropertyID, upd.ClientName, upd.ClientEmail, upd.ClientPhone,
		upd.AppointmentType, upd.VisitType, upd.Attendees, upd.ContactMethod, upd.SpecialRequests,
		upd.AppointmentDate)

	updated, err := scanAppointment(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateSlot
		}
		return nil, err
	}
	return updated, nil
}

func (r *PgRepository) ApplyTransition(ctx context.Context, id uuid.UUID, from Status, ch Changes) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status              = $3,
		    appointment_date    = COALESCE($4, appointment_date),
		    rescheduled_date    = COALESCE($5, rescheduled_date),
		    follow_up_notes     = COALESCE($6, follow_up_notes),
		    cancellation_reason = COALESCE($7, cancellation_reason),
		    updated_at          = now()
		WHERE id = $1
		  AND status = $2
		  AND deleted_at IS NULL
		RETURNING `+appointmentColumns+`
	`, id, from, ch.Status, ch.AppointmentDate, ch.RescheduledDate, ch.FollowUpNotes, ch.CancellationReason)

	updated, err := scanAppointment(row)
	if err == nil {
		return updated, nil
	}
	if isUniqueViolation(err) {
		return nil, ErrDuplicateSlot
	}
	if !errors.Is(err, ErrAppointmentNotFound) {
		return nil, err
	}

	// Distinguish a vanished row from a lost status race.
	if _, lookupErr := r.GetAppointmentByID(ctx, id); lookupErr != nil {
		return nil, lookupErr
	}
	return nil, ErrStatusMoved
}

func (r *PgRepository) ReassignAdvisor(ctx context.Context, id, advisorID uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET advisor_id = $2,
		    updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING `+appointmentColumns+`
	`, id, advisorID)

	updated, err := scanAppointment(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateSlot
		}
		return nil, err
	}
	return updated, nil
}

func (r *PgRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE appointments
		SET deleted_at = COALESCE(deleted_at, now()),
		    updated_at = now()
		WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("soft delete appointment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

func (r *PgRepository) ListAppointments(ctx context.Context, f ListFilter) ([]AppointmentDetail, error) {
	where := []string{"a.deleted_at IS NULL"}
	args := []any{}

	if f.AdvisorID != nil {
		args = append(args, *f.AdvisorID)
		where = append(where, fmt.Sprintf("a.advisor_id = $%d", len(args)))
	}
	if f.Status != nil {
		args = append(args, *f.Status)
		where = append(where, fmt.Sprintf("a.status = $%d", len(args)))
	}
	if f.From != nil {
		args = append(args, *f.From)
		where = append(where, fmt.Sprintf("a.appointment_date >= $%d", len(args)))
	}
	if f.To != nil {
		args = append(args, *f.To)
		where = append(where, fmt.Sprintf("a.appointment_date <= $%d", len(args)))
	}

	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}
	args = append(args, limit, offset)

	query := fmt.Sprintf(`%s
		WHERE %s
		ORDER BY a.appointment_date ASC
		LIMIT $%d OFFSET $%d`, detailQuery, strings.Join(where, " AND "), len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectDetails(rows)
}

func (r *PgRepository) ListDetailsByIDs(ctx context.Context, ids []uuid.UUID) ([]AppointmentDetail, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := r.pool.Query(ctx, detailQuery+`
		WHERE a.id = ANY($1)
		ORDER BY a.appointment_date ASC
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectDetails(rows)
}

func (r *PgRepository) ListUndeletedDetails(ctx context.Context) ([]AppointmentDetail, error) {
	rows, err := r.pool.Query(ctx, detailQuery+`
		WHERE a.deleted_at IS NULL
		ORDER BY a.created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectDetails(rows)
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func collectDetails(rows pgx.Rows) ([]AppointmentDetail, error) {
	var result []AppointmentDetail
	for rows.Next() {
		d, err := scanDetail(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *d)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

var _ Repository = (*PgRepository)(nil)
