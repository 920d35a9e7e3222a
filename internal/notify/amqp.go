package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	ExchangeName           = "notifications"
	ExchangeKind           = "topic"
	RoutingKeyConfirmation = "appointment.confirmed"
)

// AMQPSink publishes confirmation payloads to a topic exchange consumed by
// the messaging delivery service (WhatsApp/email dispatch lives there).
type AMQPSink struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

func NewAMQPSink(url string) (*AMQPSink, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}

	if err := ch.ExchangeDeclare(ExchangeName, ExchangeKind, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("rabbitmq exchange declare: %w", err)
	}

	return &AMQPSink{conn: conn, channel: ch}, nil
}

func (s *AMQPSink) SendConfirmation(ctx context.Context, p Payload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	if err := s.channel.PublishWithContext(
		ctx,
		ExchangeName,
		RoutingKeyConfirmation,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	); err != nil {
		return fmt.Errorf("publish confirmation: %w", err)
	}

	log.Printf("[notify] published confirmation for appointment %s", p.AppointmentID)
	return nil
}

func (s *AMQPSink) Close() {
	if s.channel != nil {
		s.channel.Close()
	}
	if s.conn != nil {
		s.conn.Close()
	}
}
