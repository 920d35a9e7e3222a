package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/casavista/appointment-engine/internal/appointment"
)

type BookingRequest struct {
	AdvisorID        string     `json:"advisor_id"`
	PropertyID       *int64     `json:"property_id,omitempty"`
	ClientName       string     `json:"client_name"`
	ClientEmail      string     `json:"client_email"`
	ClientPhone      *string    `json:"client_phone,omitempty"`
	AppointmentType  string     `json:"appointment_type"`
	VisitType        string     `json:"visit_type"`
	Attendees        int        `json:"attendees"`
	ContactMethod    string     `json:"contact_method"`
	MarketingConsent bool       `json:"marketing_consent"`
	SpecialRequests  *string    `json:"special_requests,omitempty"`
	AppointmentDate  *time.Time `json:"appointment_date"`
	Confirmed        bool       `json:"confirmed,omitempty"`
}

type UpdateAppointmentRequest struct {
	AdvisorID       *string    `json:"advisor_id,omitempty"`
	PropertyID      *int64     `json:"property_id,omitempty"`
	ClientName      *string    `json:"client_name,omitempty"`
	ClientEmail     *string    `json:"client_email,omitempty"`
	ClientPhone     *string    `json:"client_phone,omitempty"`
	AppointmentType *string    `json:"appointment_type,omitempty"`
	VisitType       *string    `json:"visit_type,omitempty"`
	Attendees       *int       `json:"attendees,omitempty"`
	ContactMethod   *string    `json:"contact_method,omitempty"`
	SpecialRequests *string    `json:"special_requests,omitempty"`
	AppointmentDate *time.Time `json:"appointment_date,omitempty"`
}

type StatusChangeRequest struct {
	Status             string     `json:"status"`
	CancellationReason string     `json:"cancellation_reason,omitempty"`
	FollowUpNotes      string     `json:"follow_up_notes,omitempty"`
	RescheduledDate    *time.Time `json:"rescheduled_date,omitempty"`
}

type BulkRequest struct {
	IDs       []string   `json:"ids"`
	Operation string     `json:"operation"`
	Params    BulkParams `json:"params"`
}

type BulkParams struct {
	Status             string     `json:"status,omitempty"`
	CancellationReason string     `json:"cancellation_reason,omitempty"`
	FollowUpNotes      string     `json:"follow_up_notes,omitempty"`
	RescheduledDate    *time.Time `json:"rescheduled_date,omitempty"`
	AdvisorID          string     `json:"advisor_id,omitempty"`
}

type BulkFailure struct {
	ID    uuid.UUID `json:"id"`
	Error string    `json:"error"`
}

type BulkResponse struct {
	Succeeded []uuid.UUID   `json:"succeeded"`
	Failed    []BulkFailure `json:"failed"`
}

type AppointmentResponse struct {
	ID                 uuid.UUID  `json:"id"`
	AdvisorID          uuid.UUID  `json:"advisor_id"`
	PropertyID         *int64     `json:"property_id,omitempty"`
	ClientName         string     `json:"client_name"`
	ClientEmail        string     `json:"client_email"`
	ClientPhone        *string    `json:"client_phone,omitempty"`
	AppointmentType    string     `json:"appointment_type"`
	VisitType          string     `json:"visit_type,omitempty"`
	Attendees          int        `json:"attendees,omitempty"`
	ContactMethod      string     `json:"contact_method,omitempty"`
	MarketingConsent   bool       `json:"marketing_consent"`
	SpecialRequests    *string    `json:"special_requests,omitempty"`
	AppointmentDate    time.Time  `json:"appointment_date"`
	Status             string     `json:"status"`
	RescheduledDate    *time.Time `json:"rescheduled_date,omitempty"`
	FollowUpNotes      *string    `json:"follow_up_notes,omitempty"`
	CancellationReason *string    `json:"cancellation_reason,omitempty"`
	AdvisorName        string     `json:"advisor_name,omitempty"`
	PropertyTitle      string     `json:"property_title,omitempty"`
}

type AvailabilityResponse struct {
	Available    bool       `json:"available"`
	ConflictID   *uuid.UUID `json:"conflict_id,omitempty"`
	ConflictDate *time.Time `json:"conflict_date,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func toAppointmentResponse(a *appointment.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:                 a.ID,
		AdvisorID:          a.AdvisorID,
		PropertyID:         a.PropertyID,
		ClientName:         a.ClientName,
		ClientEmail:        a.ClientEmail,
		ClientPhone:        a.ClientPhone,
		AppointmentType:    string(a.AppointmentType),
		VisitType:          a.VisitType,
		Attendees:          a.Attendees,
		ContactMethod:      a.ContactMethod,
		MarketingConsent:   a.MarketingConsent,
		SpecialRequests:    a.SpecialRequests,
		AppointmentDate:    a.AppointmentDate,
		Status:             string(a.Status),
		RescheduledDate:    a.RescheduledDate,
		FollowUpNotes:      a.FollowUpNotes,
		CancellationReason: a.CancellationReason,
	}
}

func toDetailResponse(d *appointment.AppointmentDetail) AppointmentResponse {
	resp := toAppointmentResponse(&d.Appointment)
	if d.Advisor != nil {
		resp.AdvisorName = d.Advisor.Name
	}
	if d.Property != nil {
		resp.PropertyTitle = d.Property.Title
	}
	return resp
}
