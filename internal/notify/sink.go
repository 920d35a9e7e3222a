package notify

import (
	"context"
	"time"
)

// Payload is the structured confirmation message handed to the delivery
// channel. The engine only decides when and with what content to send it.
type Payload struct {
	ClientName      string    `json:"client_name"`
	AppointmentDate time.Time `json:"appointment_date"`
	AppointmentType string    `json:"appointment_type"`
	PropertyTitle   string    `json:"property_title"`
	AdvisorName     string    `json:"advisor_name"`
	AppointmentID   string    `json:"appointment_id"`
}

// Sink accepts confirmation payloads. Delivery is fire-and-forget: a failed
// send never rolls back the status change that produced it.
type Sink interface {
	SendConfirmation(ctx context.Context, p Payload) error
}

// NopSink discards payloads, used when no broker is configured and in tests.
type NopSink struct{}

func (NopSink) SendConfirmation(context.Context, Payload) error { return nil }
