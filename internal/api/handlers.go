package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/casavista/appointment-engine/internal/appointment"
	"github.com/casavista/appointment-engine/internal/availability"
	"github.com/casavista/appointment-engine/internal/bulk"
)

func bookAppointmentHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BookingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		advisorID, err := uuid.Parse(req.AdvisorID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_advisor_id", "advisor_id must be a valid UUID")
			return
		}
		if req.AppointmentDate == nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_date", "appointment_date is required")
			return
		}

		appt, err := svc.Book(r.Context(), appointment.BookingRequest{
			AdvisorID:        advisorID,
			PropertyID:       req.PropertyID,
			ClientName:       req.ClientName,
			ClientEmail:      req.ClientEmail,
			ClientPhone:      req.ClientPhone,
			AppointmentType:  appointment.AppointmentType(req.AppointmentType),
			VisitType:        req.VisitType,
			Attendees:        req.Attendees,
			ContactMethod:    req.ContactMethod,
			MarketingConsent: req.MarketingConsent,
			SpecialRequests:  req.SpecialRequests,
			AppointmentDate:  *req.AppointmentDate,
			Confirmed:        req.Confirmed,
		})
		if err != nil {
			handleAppointmentError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
	}
}

func listAppointmentsHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var f appointment.ListFilter

		q := r.URL.Query()
		if v := q.Get("advisor_id"); v != "" {
			id, err := uuid.Parse(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_advisor_id", "advisor_id must be a valid UUID")
				return
			}
			f.AdvisorID = &id
		}
		if v := q.Get("status"); v != "" {
			status := appointment.Status(v)
			f.Status = &status
		}
		if v := q.Get("from"); v != "" {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_from", "from must be RFC3339")
				return
			}
			f.From = &t
		}
		if v := q.Get("to"); v != "" {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_to", "to must be RFC3339")
				return
			}
			f.To = &t
		}
		f.Limit, _ = strconv.Atoi(q.Get("limit"))
		f.Offset, _ = strconv.Atoi(q.Get("offset"))

		details, err := svc.List(r.Context(), f)
		if err != nil {
			handleAppointmentError(w, err)
			return
		}

		resp := make([]AppointmentResponse, 0, len(details))
		for i := range details {
			resp = append(resp, toDetailResponse(&details[i]))
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func getAppointmentHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r)
		if !ok {
			return
		}

		detail, err := svc.Get(r.Context(), id)
		if err != nil {
			handleAppointmentError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toDetailResponse(detail))
	}
}

func updateAppointmentHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r)
		if !ok {
			return
		}

		var req UpdateAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		upd := appointment.AppointmentUpdate{
			PropertyID:      req.PropertyID,
			ClientName:      req.ClientName,
			ClientEmail:     req.ClientEmail,
			ClientPhone:     req.ClientPhone,
			VisitType:       req.VisitType,
			Attendees:       req.Attendees,
			ContactMethod:   req.ContactMethod,
			SpecialRequests: req.SpecialRequests,
			AppointmentDate: req.AppointmentDate,
		}
		if req.AdvisorID != nil {
			advisorID, err := uuid.Parse(*req.AdvisorID)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_advisor_id", "advisor_id must be a valid UUID")
				return
			}
			upd.AdvisorID = &advisorID
		}
		if req.AppointmentType != nil {
			t := appointment.AppointmentType(*req.AppointmentType)
			upd.AppointmentType = &t
		}

		appt, err := svc.Update(r.Context(), id, upd)
		if err != nil {
			handleAppointmentError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func changeStatusHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r)
		if !ok {
			return
		}

		var req StatusChangeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		appt, err := svc.ChangeStatus(r.Context(), id, appointment.Status(req.Status), appointment.TransitionParams{
			CancellationReason: req.CancellationReason,
			FollowUpNotes:      req.FollowUpNotes,
			RescheduledDate:    req.RescheduledDate,
		})
		if err != nil {
			handleAppointmentError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func deleteAppointmentHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r)
		if !ok {
			return
		}

		if err := svc.SoftDelete(r.Context(), id); err != nil {
			handleAppointmentError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func checkAvailabilityHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		advisorID, err := uuid.Parse(q.Get("advisor_id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_advisor_id", "advisor_id must be a valid UUID")
			return
		}

		at, err := time.Parse(time.RFC3339, q.Get("time"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_time", "time must be RFC3339")
			return
		}

		var exclude *uuid.UUID
		if v := q.Get("exclude"); v != "" {
			excludeID, err := uuid.Parse(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_exclude", "exclude must be a valid UUID")
				return
			}
			exclude = &excludeID
		}

		res, err := svc.CheckAvailability(r.Context(), advisorID, at, exclude)
		if err != nil {
			handleAppointmentError(w, err)
			return
		}

		resp := AvailabilityResponse{Available: res.Available}
		if res.Conflict != nil {
			resp.ConflictID = &res.Conflict.ID
			resp.ConflictDate = &res.Conflict.Start
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func bulkHandler(proc BulkProcessor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BulkRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if len(req.IDs) == 0 {
			writeError(w, http.StatusBadRequest, "empty_selection", "ids must not be empty")
			return
		}

		ids := make([]uuid.UUID, 0, len(req.IDs))
		for _, raw := range req.IDs {
			id, err := uuid.Parse(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_id", "ids must be valid UUIDs: "+raw)
				return
			}
			ids = append(ids, id)
		}

		op := bulk.Operation{Kind: bulk.OperationKind(req.Operation)}
		switch op.Kind {
		case bulk.OpStatus:
			op.Status = appointment.Status(req.Params.Status)
			op.Params = appointment.TransitionParams{
				CancellationReason: req.Params.CancellationReason,
				FollowUpNotes:      req.Params.FollowUpNotes,
				RescheduledDate:    req.Params.RescheduledDate,
			}
		case bulk.OpReassign:
			advisorID, err := uuid.Parse(req.Params.AdvisorID)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_advisor_id", "params.advisor_id must be a valid UUID")
				return
			}
			op.AdvisorID = advisorID
		case bulk.OpDelete, bulk.OpExport:
		default:
			writeError(w, http.StatusBadRequest, "unknown_operation", "operation must be delete, status, reassign or export")
			return
		}

		res, err := proc.Apply(r.Context(), bulk.NewSelection(ids...), op)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		if op.Kind == bulk.OpExport {
			w.Header().Set("Content-Type", "text/csv")
			w.Header().Set("Content-Disposition", `attachment; filename="appointments.csv"`)
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(res.CSV)
			return
		}

		resp := BulkResponse{Succeeded: res.Succeeded}
		for _, f := range res.Failed {
			resp.Failed = append(resp.Failed, BulkFailure{ID: f.ID, Error: f.Err})
		}
		if resp.Succeeded == nil {
			resp.Succeeded = []uuid.UUID{}
		}
		if resp.Failed == nil {
			resp.Failed = []BulkFailure{}
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func calendarFeedHandler(feed CalendarFeed) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now()
		from := now.AddDate(0, -1, 0)
		to := now.AddDate(0, 3, 0)

		q := r.URL.Query()
		if v := q.Get("from"); v != "" {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_from", "from must be RFC3339")
				return
			}
			from = t
		}
		if v := q.Get("to"); v != "" {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_to", "to must be RFC3339")
				return
			}
			to = t
		}

		ical, err := feed.Feed(r.Context(), from, to)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(ical))
	}
}

func parseIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func handleAppointmentError(w http.ResponseWriter, err error) {
	var validationErr *appointment.ValidationError
	var conflictErr *appointment.ConflictError

	switch {
	case errors.As(err, &validationErr):
		writeError(w, http.StatusUnprocessableEntity, "validation_failed", validationErr.Error())
	case errors.As(err, &conflictErr):
		writeError(w, http.StatusConflict, "time_conflict", conflictErr.Error())
	case errors.Is(err, appointment.ErrInvalidStatusTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	case errors.Is(err, appointment.ErrSlotBeingBooked):
		writeError(w, http.StatusConflict, "slot_being_booked", "slot is currently being booked, please retry shortly")
	case errors.Is(err, availability.ErrSourceUnavailable):
		writeError(w, http.StatusServiceUnavailable, "availability_unknown", "availability could not be determined, booking is blocked")
	case errors.Is(err, appointment.ErrAdvisorNotFound):
		writeError(w, http.StatusNotFound, "advisor_not_found", err.Error())
	case errors.Is(err, appointment.ErrPropertyNotFound):
		writeError(w, http.StatusNotFound, "property_not_found", err.Error())
	case errors.Is(err, appointment.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
