package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// channel is the slice of *amqp.Channel the publisher needs.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher sends every notification as a JSON message on a topic exchange.
// Downstream workers own contact sync, email rendering and the calendar mirror.
type Publisher struct {
	conn     *amqp.Connection
	ch       channel
	exchange string
}

func NewPublisher(url, exchange string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &Publisher{conn: conn, ch: ch, exchange: exchange}, nil
}

func (p *Publisher) UpsertContact(ctx context.Context, c Contact) error {
	return p.publishJSON(ctx, KeyContactUpsert, c)
}

func (p *Publisher) SendBookingConfirmation(ctx context.Context, m BookingMessage) error {
	return p.publishJSON(ctx, KeyBookingConfirmed, m)
}

func (p *Publisher) SendRescheduleNotice(ctx context.Context, m BookingMessage) error {
	return p.publishJSON(ctx, KeyBookingReschedule, m)
}

func (p *Publisher) SendCancellationNotice(ctx context.Context, m BookingMessage) error {
	return p.publishJSON(ctx, KeyBookingCancelled, m)
}

func (p *Publisher) MirrorEventUpdate(ctx context.Context, m BookingMessage) error {
	return p.publishJSON(ctx, KeyEventUpdated, m)
}

func (p *Publisher) publishJSON(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return p.ch.PublishWithContext(ctx, p.exchange, key, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    time.Now().UTC(),
		Body:         b,
	})
}

func (p *Publisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
