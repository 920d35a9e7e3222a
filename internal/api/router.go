package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/casavista/appointment-engine/internal/appointment"
	"github.com/casavista/appointment-engine/internal/availability"
	"github.com/casavista/appointment-engine/internal/bulk"
)

// AppointmentService is the handler-facing surface of the appointment
// service. Narrowed to an interface so handler tests can stub it.
type AppointmentService interface {
	Book(ctx context.Context, req appointment.BookingRequest) (*appointment.Appointment, error)
	Update(ctx context.Context, id uuid.UUID, upd appointment.AppointmentUpdate) (*appointment.Appointment, error)
	ChangeStatus(ctx context.Context, id uuid.UUID, to appointment.Status, p appointment.TransitionParams) (*appointment.Appointment, error)
	SoftDelete(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (*appointment.AppointmentDetail, error)
	List(ctx context.Context, f appointment.ListFilter) ([]appointment.AppointmentDetail, error)
	CheckAvailability(ctx context.Context, advisorID uuid.UUID, at time.Time, exclude *uuid.UUID) (availability.Result, error)
}

type BulkProcessor interface {
	Apply(ctx context.Context, sel *bulk.Selection, op bulk.Operation) (bulk.Result, error)
}

type CalendarFeed interface {
	Feed(ctx context.Context, from, to time.Time) (string, error)
}

type RouterConfig struct {
	Service *appointment.Service
	Bulk    *bulk.Processor
	Feed    CalendarFeed
	PgPool  *pgxpool.Pool
	Redis   *redis.Client
	Env     string
	Version string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	r.Post("/appointments", bookAppointmentHandler(cfg.Service))
	r.Get("/appointments", listAppointmentsHandler(cfg.Service))
	r.Get("/appointments/{id}", getAppointmentHandler(cfg.Service))
	r.Patch("/appointments/{id}", updateAppointmentHandler(cfg.Service))
	r.Post("/appointments/{id}/status", changeStatusHandler(cfg.Service))
	r.Delete("/appointments/{id}", deleteAppointmentHandler(cfg.Service))
	r.Post("/appointments/bulk", bulkHandler(cfg.Bulk))
	r.Get("/availability", checkAvailabilityHandler(cfg.Service))
	r.Get("/calendar/feed.ics", calendarFeedHandler(cfg.Feed))

	return r
}
