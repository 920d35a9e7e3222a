package appointment

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/casavista/appointment-engine/internal/availability"
	"github.com/casavista/appointment-engine/internal/calendar"
	"github.com/casavista/appointment-engine/internal/config"
	"github.com/casavista/appointment-engine/internal/notify"
	redisclient "github.com/casavista/appointment-engine/internal/redis"
)

var (
	ErrSlotBeingBooked = errors.New("slot is currently being booked, please retry")
)

// ConflictError reports the active appointment occupying the requested slot.
type ConflictError struct {
	ConflictingID   uuid.UUID
	ConflictingDate time.Time
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("advisor already booked at %s (appointment %s)",
		e.ConflictingDate.Format(time.RFC3339), e.ConflictingID)
}

// Syncer receives every lifecycle event on the appointment store and projects
// it onto the calendar mirror. A failed sync call is a soft failure: the
// primary write has already committed and stays authoritative.
type Syncer interface {
	OnCreated(ctx context.Context, d *AppointmentDetail) (*calendar.Entry, error)
	OnUpdated(ctx context.Context, d *AppointmentDetail) error
	OnStatusChanged(ctx context.Context, appointmentID uuid.UUID, newStatus Status) error
	OnDeleted(ctx context.Context, appointmentID uuid.UUID) error
}

// BookingRequest is a scheduling-form submission.
type BookingRequest struct {
	AdvisorID        uuid.UUID
	PropertyID       *int64
	ClientName       string
	ClientEmail      string
	ClientPhone      *string
	AppointmentType  AppointmentType
	VisitType        string
	Attendees        int
	ContactMethod    string
	MarketingConsent bool
	SpecialRequests  *string
	AppointmentDate  time.Time

	// Confirmed creates the booking directly in confirmed status, used by
	// admin-created appointments.
	Confirmed bool
}

type Service struct {
	repo    Repository
	checker *availability.Checker
	locker  redisclient.Locker
	syncer  Syncer
	sink    notify.Sink
}

func NewService(repo Repository, locker redisclient.Locker, syncer Syncer, sink notify.Sink, cfg config.Config) *Service {
	if sink == nil {
		sink = notify.NopSink{}
	}
	return &Service{
		repo:    repo,
		checker: availability.NewChecker(repoSource{repo: repo}, cfg.SlotDuration, cfg.AvailabilityTimeout),
		locker:  locker,
		syncer:  syncer,
		sink:    sink,
	}
}

// repoSource adapts the repository to the availability checker's view.
type repoSource struct {
	repo Repository
}

func (s repoSource) ActiveBookings(ctx context.Context, advisorID uuid.UUID) ([]availability.Booked, error) {
	appts, err := s.repo.ListActiveByAdvisor(ctx, advisorID)
	if err != nil {
		return nil, err
	}

	booked := make([]availability.Booked, 0, len(appts))
	for _, a := range appts {
		booked = append(booked, availability.Booked{ID: a.ID, Start: a.AppointmentDate})
	}
	return booked, nil
}

// CheckAvailability is the advisory pre-submit probe used by booking forms.
func (s *Service) CheckAvailability(ctx context.Context, advisorID uuid.UUID, at time.Time, exclude *uuid.UUID) (availability.Result, error) {
	return s.checker.Check(ctx, advisorID, at, exclude)
}

// Book creates an appointment after an availability check inside the
// advisor-slot lock. The lock narrows the check-then-write window; the
// store's uniqueness constraint catches whatever still slips through.
func (s *Service) Book(ctx context.Context, req BookingRequest) (*Appointment, error) {
	if err := validateBooking(req); err != nil {
		return nil, err
	}

	if _, err := s.repo.GetAdvisorByID(ctx, req.AdvisorID); err != nil {
		if errors.Is(err, ErrAdvisorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load advisor: %w", err)
	}

	status := StatusPending
	if req.Confirmed {
		status = StatusConfirmed
	}

	var created *Appointment

	err := s.locker.WithBookingLock(ctx, req.AdvisorID, req.AppointmentDate, func(lockCtx context.Context) error {
		res, err := s.checker.Check(lockCtx, req.AdvisorID, req.AppointmentDate, nil)
		if err != nil {
			return err
		}
		if !res.Available {
			return &ConflictError{ConflictingID: res.Conflict.ID, ConflictingDate: res.Conflict.Start}
		}

		appt, err := s.repo.CreateAppointment(lockCtx, &Appointment{
			AdvisorID:        req.AdvisorID,
			PropertyID:       req.PropertyID,
			ClientName:       req.ClientName,
			ClientEmail:      req.ClientEmail,
			ClientPhone:      req.ClientPhone,
			AppointmentType:  req.AppointmentType,
			VisitType:        req.VisitType,
			Attendees:        req.Attendees,
			ContactMethod:    req.ContactMethod,
			MarketingConsent: req.MarketingConsent,
			SpecialRequests:  req.SpecialRequests,
			AppointmentDate:  req.AppointmentDate,
			Status:           status,
		})
		if err != nil {
			if errors.Is(err, ErrDuplicateSlot) {
				return &ConflictError{ConflictingDate: req.AppointmentDate}
			}
			return fmt.Errorf("create appointment: %w", err)
		}

		created = appt
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotBeingBooked
		}
		return nil, err
	}

	s.syncCreated(ctx, created.ID)

	return created, nil
}

// Update edits booking fields. Moving the appointment to a new date or
// advisor re-checks availability with the appointment itself excluded, so an
// edit never conflicts with its own slot.
func (s *Service) Update(ctx context.Context, id uuid.UUID, upd AppointmentUpdate) (*Appointment, error) {
	current, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.DeletedAt != nil {
		return nil, ErrAppointmentNotFound
	}

	advisorID := current.AdvisorID
	if upd.AdvisorID != nil {
		advisorID = *upd.AdvisorID
	}
	date := current.AppointmentDate
	if upd.AppointmentDate != nil {
		date = *upd.AppointmentDate
	}

	if advisorID != current.AdvisorID || !date.Equal(current.AppointmentDate) {
		res, err := s.checker.Check(ctx, advisorID, date, &id)
		if err != nil {
			return nil, err
		}
		if !res.Available {
			return nil, &ConflictError{ConflictingID: res.Conflict.ID, ConflictingDate: res.Conflict.Start}
		}
	}

	updated, err := s.repo.UpdateAppointment(ctx, id, upd)
	if err != nil {
		if errors.Is(err, ErrDuplicateSlot) {
			return nil, &ConflictError{ConflictingDate: date}
		}
		return nil, err
	}

	s.syncUpdated(ctx, id)

	return updated, nil
}

// ChangeStatus drives the appointment state machine. Transitions that require
// an explanation are rejected before any write when the field is missing;
// rescheduling re-checks availability at the new date before committing.
// Side effects (the confirmation payload) run after the commit and never
// roll it back.
func (s *Service) ChangeStatus(ctx context.Context, id uuid.UUID, to Status, p TransitionParams) (*Appointment, error) {
	current, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.DeletedAt != nil {
		return nil, ErrAppointmentNotFound
	}

	changes, effects, err := PlanTransition(current.Status, to, p)
	if err != nil {
		return nil, err
	}

	if to == StatusRescheduled {
		res, err := s.checker.Check(ctx, current.AdvisorID, *changes.AppointmentDate, &id)
		if err != nil {
			return nil, err
		}
		if !res.Available {
			return nil, &ConflictError{ConflictingID: res.Conflict.ID, ConflictingDate: res.Conflict.Start}
		}
	}

	updated, err := s.repo.ApplyTransition(ctx, id, current.Status, changes)
	if err != nil {
		if errors.Is(err, ErrStatusMoved) {
			return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, current.Status, to)
		}
		if errors.Is(err, ErrDuplicateSlot) {
			date := current.AppointmentDate
			if changes.AppointmentDate != nil {
				date = *changes.AppointmentDate
			}
			return nil, &ConflictError{ConflictingDate: date}
		}
		return nil, err
	}

	if err := s.syncer.OnStatusChanged(ctx, id, updated.Status); err != nil {
		log.Printf("mirror sync lagging for appointment %s: %v", id, err)
	}

	s.runSideEffects(ctx, updated, effects)

	return updated, nil
}

// Reassign moves an appointment to another advisor, checking the target
// advisor's availability first. No status implications.
func (s *Service) Reassign(ctx context.Context, id, advisorID uuid.UUID) (*Appointment, error) {
	current, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.DeletedAt != nil {
		return nil, ErrAppointmentNotFound
	}

	if _, err := s.repo.GetAdvisorByID(ctx, advisorID); err != nil {
		return nil, err
	}

	res, err := s.checker.Check(ctx, advisorID, current.AppointmentDate, &id)
	if err != nil {
		return nil, err
	}
	if !res.Available {
		return nil, &ConflictError{ConflictingID: res.Conflict.ID, ConflictingDate: res.Conflict.Start}
	}

	updated, err := s.repo.ReassignAdvisor(ctx, id, advisorID)
	if err != nil {
		if errors.Is(err, ErrDuplicateSlot) {
			return nil, &ConflictError{ConflictingDate: current.AppointmentDate}
		}
		return nil, err
	}

	s.syncUpdated(ctx, id)

	return updated, nil
}

// SoftDelete marks the appointment deleted and mirrors the marker. Records
// are never hard-deleted.
func (s *Service) SoftDelete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return err
	}

	if err := s.syncer.OnDeleted(ctx, id); err != nil {
		log.Printf("mirror sync lagging for appointment %s: %v", id, err)
	}

	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*AppointmentDetail, error) {
	detail, err := s.repo.GetAppointmentDetail(ctx, id)
	if err != nil {
		return nil, err
	}
	if detail.DeletedAt != nil {
		return nil, ErrAppointmentNotFound
	}
	return detail, nil
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]AppointmentDetail, error) {
	return s.repo.ListAppointments(ctx, f)
}

func (s *Service) DetailsByIDs(ctx context.Context, ids []uuid.UUID) ([]AppointmentDetail, error) {
	return s.repo.ListDetailsByIDs(ctx, ids)
}

func (s *Service) syncCreated(ctx context.Context, id uuid.UUID) {
	detail, err := s.repo.GetAppointmentDetail(ctx, id)
	if err != nil {
		log.Printf("mirror sync lagging for appointment %s: %v", id, err)
		return
	}
	if _, err := s.syncer.OnCreated(ctx, detail); err != nil {
		log.Printf("mirror sync lagging for appointment %s: %v", id, err)
	}
}

func (s *Service) syncUpdated(ctx context.Context, id uuid.UUID) {
	detail, err := s.repo.GetAppointmentDetail(ctx, id)
	if err != nil {
		log.Printf("mirror sync lagging for appointment %s: %v", id, err)
		return
	}
	if err := s.syncer.OnUpdated(ctx, detail); err != nil {
		log.Printf("mirror sync lagging for appointment %s: %v", id, err)
	}
}

func (s *Service) runSideEffects(ctx context.Context, appt *Appointment, effects []SideEffect) {
	for _, effect := range effects {
		switch effect {
		case EffectNotifyConfirmation:
			s.notifyConfirmation(ctx, appt.ID)
		}
	}
}

func (s *Service) notifyConfirmation(ctx context.Context, id uuid.UUID) {
	detail, err := s.repo.GetAppointmentDetail(ctx, id)
	if err != nil {
		log.Printf("skip confirmation notify for appointment %s: %v", id, err)
		return
	}

	payload := notify.Payload{
		ClientName:      detail.ClientName,
		AppointmentDate: detail.AppointmentDate,
		AppointmentType: string(detail.AppointmentType),
		AppointmentID:   detail.ID.String(),
	}
	if detail.Property != nil {
		payload.PropertyTitle = detail.Property.Title
	}
	if detail.Advisor != nil {
		payload.AdvisorName = detail.Advisor.Name
	}

	if err := s.sink.SendConfirmation(ctx, payload); err != nil {
		log.Printf("confirmation notify failed for appointment %s: %v", id, err)
	}
}

func validateBooking(req BookingRequest) error {
	if req.AdvisorID == uuid.Nil {
		return &ValidationError{Field: "advisor_id", Reason: "required"}
	}
	if req.ClientName == "" {
		return &ValidationError{Field: "client_name", Reason: "required"}
	}
	if req.ClientEmail == "" {
		return &ValidationError{Field: "client_email", Reason: "required"}
	}
	if req.AppointmentDate.IsZero() {
		return &ValidationError{Field: "appointment_date", Reason: "required"}
	}
	return nil
}
