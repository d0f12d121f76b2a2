package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/cimillas/room-booking/internal/domain"
)

const (
	DefaultExchange       = "room_booking.events"
	defaultPublishTimeout = time.Second
)

// AMQPPublisher publishes events to a durable topic exchange. The routing
// key is the event type, e.g. "reservation.approved".
type AMQPPublisher struct {
	conn     *amqp.Connection
	exchange string
	timeout  time.Duration

	mu sync.Mutex
	ch *amqp.Channel
}

type AMQPOption func(*AMQPPublisher)

// WithPublishTimeout caps each publish so a stalled broker cannot hold up
// the caller for longer than d.
func WithPublishTimeout(d time.Duration) AMQPOption {
	return func(p *AMQPPublisher) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// DialAMQP connects to url and declares exchange.
func DialAMQP(url, exchange string, opts ...AMQPOption) (*AMQPPublisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	p := &AMQPPublisher{conn: conn, exchange: exchange, timeout: defaultPublishTimeout}
	for _, opt := range opts {
		opt(p)
	}
	if _, err := p.channel(); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return p, nil
}

// channel returns the open channel, reopening it after a broker-side close.
func (p *AMQPPublisher) channel() (*amqp.Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	ch, err := p.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}
	err = ch.ExchangeDeclare(
		p.exchange,
		amqp.ExchangeTopic,
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", p.exchange, err)
	}
	p.ch = ch
	return ch, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, event domain.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	ch, err := p.channel()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	err = ch.PublishWithContext(
		ctx,
		p.exchange,
		string(event.Type),
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    event.ReservationID + ":" + string(event.To),
			Timestamp:    event.At,
			Type:         string(event.Type),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	return nil
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	if p.ch != nil {
		_ = p.ch.Close()
	}
	p.mu.Unlock()
	return p.conn.Close()
}
