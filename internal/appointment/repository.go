package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrAdvisorNotFound     = errors.New("advisor not found")
	ErrPropertyNotFound    = errors.New("property not found")
	ErrAppointmentNotFound = errors.New("appointment not found")

	// ErrStatusMoved means the compare-and-swap status update found a
	// different stored status than expected.
	ErrStatusMoved = errors.New("appointment status changed concurrently")

	// ErrDuplicateSlot is the store-level uniqueness constraint firing on a
	// conflicting (advisor, date) insert that slipped past the advisory check.
	ErrDuplicateSlot = errors.New("advisor already booked at this time")
)

// AppointmentUpdate carries editable booking fields. Nil pointers leave the
// stored value untouched.
type AppointmentUpdate struct {
	AdvisorID       *uuid.UUID
	PropertyID      *int64
	ClientName      *string
	ClientEmail     *string
	ClientPhone     *string
	AppointmentType *AppointmentType
	VisitType       *string
	Attendees       *int
	ContactMethod   *string
	SpecialRequests *string
	AppointmentDate *time.Time
}

type ListFilter struct {
	AdvisorID *uuid.UUID
	Status    *Status
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
}

// Repository contains all DB interactions needed by the service.
type Repository interface {
	GetAdvisorByID(ctx context.Context, id uuid.UUID) (*Advisor, error)
	GetPropertyByID(ctx context.Context, id int64) (*Property, error)

	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	GetAppointmentDetail(ctx context.Context, id uuid.UUID) (*AppointmentDetail, error)

	// For conflict checks: non-deleted appointments whose status still
	// occupies the advisor's slot.
	ListActiveByAdvisor(ctx context.Context, advisorID uuid.UUID) ([]Appointment, error)

	CreateAppointment(ctx context.Context, appt *Appointment) (*Appointment, error)
	UpdateAppointment(ctx context.Context, id uuid.UUID, upd AppointmentUpdate) (*Appointment, error)

	// ApplyTransition commits a planned status change only if the stored
	// status still equals from.
	ApplyTransition(ctx context.Context, id uuid.UUID, from Status, ch Changes) (*Appointment, error)

	ReassignAdvisor(ctx context.Context, id, advisorID uuid.UUID) (*Appointment, error)
	SoftDelete(ctx context.Context, id uuid.UUID) error

	ListAppointments(ctx context.Context, f ListFilter) ([]AppointmentDetail, error)
	ListDetailsByIDs(ctx context.Context, ids []uuid.UUID) ([]AppointmentDetail, error)

	// Reconciler catch-up. Includes cancelled and no-show rows: a missed
	// status sync must still be healed on the mirror.
	ListUndeletedDetails(ctx context.Context) ([]AppointmentDetail, error)
}
