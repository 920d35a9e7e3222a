package appointment

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending     Status = "pending"
	StatusConfirmed   Status = "confirmed"
	StatusCompleted   Status = "completed"
	StatusCancelled   Status = "cancelled"
	StatusNoShow      Status = "no_show"
	StatusRescheduled Status = "rescheduled"
)

// Active reports whether a status occupies the advisor's slot. Cancelled and
// no-show appointments free the slot but stay queryable.
func (s Status) Active() bool {
	return s != StatusCancelled && s != StatusNoShow
}

type AppointmentType string

const (
	TypeViewing      AppointmentType = "viewing"
	TypeConsultation AppointmentType = "consultation"
	TypeValuation    AppointmentType = "valuation"
	TypeFollowUp     AppointmentType = "follow_up"
)

type Advisor struct {
	ID        uuid.UUID
	Name      string
	Email     *string
	Phone     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Property struct {
	ID        int64
	Title     string
	Location  *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Appointment is the canonical booking record. AppointmentDate is the sole
// conflict key; a reschedule moves it to the new date and records the same
// date in RescheduledDate.
type Appointment struct {
	ID                 uuid.UUID
	AdvisorID          uuid.UUID
	PropertyID         *int64
	ClientName         string
	ClientEmail        string
	ClientPhone        *string
	AppointmentType    AppointmentType
	VisitType          string
	Attendees          int
	ContactMethod      string
	MarketingConsent   bool
	SpecialRequests    *string
	AppointmentDate    time.Time
	Status             Status
	RescheduledDate    *time.Time
	FollowUpNotes      *string
	CancellationReason *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
	DeletedAt          *time.Time
}

// AppointmentDetail hydrates the joined advisor and property rows, used by
// exports and notification payloads.
type AppointmentDetail struct {
	Appointment
	Advisor  *Advisor
	Property *Property
}
