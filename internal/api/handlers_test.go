package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casavista/appointment-engine/internal/appointment"
	"github.com/casavista/appointment-engine/internal/availability"
	"github.com/casavista/appointment-engine/internal/bulk"
)

// stubService returns canned values per method.
type stubService struct {
	bookResult   *appointment.Appointment
	bookErr      error
	statusResult *appointment.Appointment
	statusErr    error
	checkResult  availability.Result
	checkErr     error
}

func (s *stubService) Book(ctx context.Context, req appointment.BookingRequest) (*appointment.Appointment, error) {
	return s.bookResult, s.bookErr
}

func (s *stubService) Update(ctx context.Context, id uuid.UUID, upd appointment.AppointmentUpdate) (*appointment.Appointment, error) {
	return nil, appointment.ErrAppointmentNotFound
}

func (s *stubService) ChangeStatus(ctx context.Context, id uuid.UUID, to appointment.Status, p appointment.TransitionParams) (*appointment.Appointment, error) {
	return s.statusResult, s.statusErr
}

func (s *stubService) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return nil
}

func (s *stubService) Get(ctx context.Context, id uuid.UUID) (*appointment.AppointmentDetail, error) {
	return nil, appointment.ErrAppointmentNotFound
}

func (s *stubService) List(ctx context.Context, f appointment.ListFilter) ([]appointment.AppointmentDetail, error) {
	return nil, nil
}

func (s *stubService) CheckAvailability(ctx context.Context, advisorID uuid.UUID, at time.Time, exclude *uuid.UUID) (availability.Result, error) {
	return s.checkResult, s.checkErr
}

func bookingBody() string {
	return `{
		"advisor_id": "` + uuid.NewString() + `",
		"client_name": "Joan Mercader",
		"client_email": "joan@example.com",
		"appointment_type": "viewing",
		"appointment_date": "2025-03-10T15:00:00Z"
	}`
}

func TestBookAppointmentHandler(t *testing.T) {
	tests := []struct {
		name       string
		svc        *stubService
		body       string
		wantStatus int
		wantCode   string
	}{
		{
			name: "created",
			svc: &stubService{bookResult: &appointment.Appointment{
				ID: uuid.New(), AdvisorID: uuid.New(), Status: appointment.StatusPending,
			}},
			body:       bookingBody(),
			wantStatus: http.StatusCreated,
		},
		{
			name:       "validation failure is 422",
			svc:        &stubService{bookErr: &appointment.ValidationError{Field: "client_name", Reason: "required"}},
			body:       bookingBody(),
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "validation_failed",
		},
		{
			name: "slot conflict is 409",
			svc: &stubService{bookErr: &appointment.ConflictError{
				ConflictingID: uuid.New(), ConflictingDate: time.Now(),
			}},
			body:       bookingBody(),
			wantStatus: http.StatusConflict,
			wantCode:   "time_conflict",
		},
		{
			name:       "contended lock is 409",
			svc:        &stubService{bookErr: appointment.ErrSlotBeingBooked},
			body:       bookingBody(),
			wantStatus: http.StatusConflict,
			wantCode:   "slot_being_booked",
		},
		{
			name:       "unknown availability is 503",
			svc:        &stubService{bookErr: availability.ErrSourceUnavailable},
			body:       bookingBody(),
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   "availability_unknown",
		},
		{
			name:       "unknown advisor is 404",
			svc:        &stubService{bookErr: appointment.ErrAdvisorNotFound},
			body:       bookingBody(),
			wantStatus: http.StatusNotFound,
			wantCode:   "advisor_not_found",
		},
		{
			name:       "bad json is 400",
			svc:        &stubService{},
			body:       "{",
			wantStatus: http.StatusBadRequest,
			wantCode:   "invalid_request_body",
		},
		{
			name:       "missing date is 400",
			svc:        &stubService{},
			body:       `{"advisor_id": "` + uuid.NewString() + `", "client_name": "x", "client_email": "x@example.com"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "invalid_appointment_date",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/appointments", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()

			bookAppointmentHandler(tt.svc).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantCode != "" {
				var resp ErrorResponse
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
				assert.Equal(t, tt.wantCode, resp.Error)
			}
		})
	}
}

func TestChangeStatusHandler(t *testing.T) {
	t.Run("invalid transition is 409", func(t *testing.T) {
		svc := &stubService{statusErr: appointment.ErrInvalidStatusTransition}

		req := newStatusRequest(t, uuid.New(), `{"status": "completed"}`)
		rec := httptest.NewRecorder()
		changeStatusHandler(svc).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("successful transition returns the updated record", func(t *testing.T) {
		id := uuid.New()
		svc := &stubService{statusResult: &appointment.Appointment{ID: id, Status: appointment.StatusConfirmed}}

		req := newStatusRequest(t, id, `{"status": "confirmed"}`)
		rec := httptest.NewRecorder()
		changeStatusHandler(svc).ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp AppointmentResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "confirmed", resp.Status)
	})

	t.Run("malformed id is 400", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/appointments/not-a-uuid/status", strings.NewReader(`{"status": "confirmed"}`))
		req = withURLParam(req, "id", "not-a-uuid")
		rec := httptest.NewRecorder()
		changeStatusHandler(&stubService{}).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestCheckAvailabilityHandler(t *testing.T) {
	t.Run("conflict reported with its source", func(t *testing.T) {
		conflictID := uuid.New()
		at := time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)
		svc := &stubService{checkResult: availability.Result{
			Available: false,
			Conflict:  &availability.Booked{ID: conflictID, Start: at},
		}}

		req := httptest.NewRequest(http.MethodGet, "/availability?advisor_id="+uuid.NewString()+"&time=2025-03-10T15:00:00Z", nil)
		rec := httptest.NewRecorder()
		checkAvailabilityHandler(svc).ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp AvailabilityResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.False(t, resp.Available)
		require.NotNil(t, resp.ConflictID)
		assert.Equal(t, conflictID, *resp.ConflictID)
	})

	t.Run("unreachable source is 503", func(t *testing.T) {
		svc := &stubService{checkErr: availability.ErrSourceUnavailable}

		req := httptest.NewRequest(http.MethodGet, "/availability?advisor_id="+uuid.NewString()+"&time=2025-03-10T15:00:00Z", nil)
		rec := httptest.NewRecorder()
		checkAvailabilityHandler(svc).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("missing time is 400", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/availability?advisor_id="+uuid.NewString(), nil)
		rec := httptest.NewRecorder()
		checkAvailabilityHandler(&stubService{}).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

type stubBulk struct {
	result bulk.Result
	gotOp  bulk.Operation
	gotIDs int
}

func (s *stubBulk) Apply(ctx context.Context, sel *bulk.Selection, op bulk.Operation) (bulk.Result, error) {
	s.gotOp = op
	s.gotIDs = sel.Count()
	return s.result, nil
}

func TestBulkHandler(t *testing.T) {
	t.Run("partial failure reported per id", func(t *testing.T) {
		ok, failed := uuid.New(), uuid.New()
		proc := &stubBulk{result: bulk.Result{
			Succeeded: []uuid.UUID{ok},
			Failed:    []bulk.Failure{{ID: failed, Err: "appointment not found"}},
		}}

		body := `{"ids": ["` + ok.String() + `", "` + failed.String() + `"], "operation": "delete"}`
		req := httptest.NewRequest(http.MethodPost, "/appointments/bulk", strings.NewReader(body))
		rec := httptest.NewRecorder()
		bulkHandler(proc).ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp BulkResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, []uuid.UUID{ok}, resp.Succeeded)
		require.Len(t, resp.Failed, 1)
		assert.Equal(t, failed, resp.Failed[0].ID)
		assert.Equal(t, 2, proc.gotIDs)
	})

	t.Run("export streams csv", func(t *testing.T) {
		proc := &stubBulk{result: bulk.Result{CSV: []byte("id,client_name\n")}}

		body := `{"ids": ["` + uuid.NewString() + `"], "operation": "export"}`
		req := httptest.NewRequest(http.MethodPost, "/appointments/bulk", strings.NewReader(body))
		rec := httptest.NewRecorder()
		bulkHandler(proc).ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
		assert.Equal(t, "id,client_name\n", rec.Body.String())
	})

	t.Run("empty selection is 400", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/appointments/bulk", strings.NewReader(`{"ids": [], "operation": "delete"}`))
		rec := httptest.NewRecorder()
		bulkHandler(&stubBulk{}).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown operation is 400", func(t *testing.T) {
		body := `{"ids": ["` + uuid.NewString() + `"], "operation": "archive"}`
		req := httptest.NewRequest(http.MethodPost, "/appointments/bulk", strings.NewReader(body))
		rec := httptest.NewRecorder()
		bulkHandler(&stubBulk{}).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("status params forwarded", func(t *testing.T) {
		proc := &stubBulk{}

		body := `{
			"ids": ["` + uuid.NewString() + `"],
			"operation": "status",
			"params": {"status": "cancelled", "cancellation_reason": "development delayed"}
		}`
		req := httptest.NewRequest(http.MethodPost, "/appointments/bulk", strings.NewReader(body))
		rec := httptest.NewRecorder()
		bulkHandler(proc).ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, bulk.OpStatus, proc.gotOp.Kind)
		assert.Equal(t, appointment.StatusCancelled, proc.gotOp.Status)
		assert.Equal(t, "development delayed", proc.gotOp.Params.CancellationReason)
	})
}

func newStatusRequest(t *testing.T, id uuid.UUID, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/appointments/"+id.String()+"/status", strings.NewReader(body))
	return withURLParam(req, "id", id.String())
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}
