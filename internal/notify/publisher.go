// Package notify delivers committed appointment lifecycle events to the
// notification collaborator over RabbitMQ. Delivery is fire-and-forget:
// publish failures are logged and never surface into the booking path.
package notify

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/expohall/booking-engine/internal/booking"
)

const queueName = "appointment.events"

type Publisher struct {
	ch  *amqp.Channel
	log *zap.Logger
}

// NewPublisher opens a channel on the given connection and declares the
// durable event queue.
func NewPublisher(conn *amqp.Connection, log *zap.Logger) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}
	if _, err := ch.QueueDeclare(
		queueName,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	); err != nil {
		_ = ch.Close()
		return nil, err
	}
	return &Publisher{ch: ch, log: log}, nil
}

func (p *Publisher) Close() error {
	return p.ch.Close()
}

// Emit publishes the event as a persistent JSON message on the default
// exchange.
func (p *Publisher) Emit(ctx context.Context, ev booking.Event) {
	body, err := json.Marshal(ev)
	if err != nil {
		p.log.Warn("marshal appointment event", zap.Error(err))
		return
	}

	err = p.ch.PublishWithContext(ctx,
		"",        // default exchange
		queueName, // routing key = queue name
		false,     // mandatory
		false,     // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)
	if err != nil {
		p.log.Warn("publish appointment event",
			zap.String("appointment_id", ev.AppointmentID.String()),
			zap.String("new_status", string(ev.NewStatus)),
			zap.Error(err),
		)
	}
}
