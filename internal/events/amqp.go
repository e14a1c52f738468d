package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/example/campus-reservations/internal/application"
)

// DefaultQueue is the queue events are routed to when none is configured.
const DefaultQueue = "reservations.events"

// Channel is the subset of *amqp.Channel used by AMQPPublisher.
type Channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher sends persistent JSON messages to a durable queue through the
// default exchange. When the broker closes the channel, the next Publish
// reopens it once before giving up.
type AMQPPublisher struct {
	mu      sync.Mutex
	conn    *amqp.Connection
	channel Channel
	reopen  func() (Channel, error)
	queue   string
	logger  *slog.Logger
	now     func() time.Time
}

// DialAMQP connects to the broker, opens a channel and declares the queue.
func DialAMQP(url, queue string, logger *slog.Logger) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq: dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq: open channel: %w", err)
	}

	publisher, err := NewAMQPPublisher(ch, queue, logger)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	publisher.conn = conn
	publisher.reopen = func() (Channel, error) {
		if publisher.conn == nil || publisher.conn.IsClosed() {
			conn, err := amqp.Dial(url)
			if err != nil {
				return nil, fmt.Errorf("rabbitmq: redial: %w", err)
			}
			publisher.conn = conn
		}
		ch, err := publisher.conn.Channel()
		if err != nil {
			return nil, fmt.Errorf("rabbitmq: reopen channel: %w", err)
		}
		return ch, nil
	}
	return publisher, nil
}

// NewAMQPPublisher wraps an open channel and declares the durable queue.
func NewAMQPPublisher(ch Channel, queue string, logger *slog.Logger) (*AMQPPublisher, error) {
	if queue == "" {
		queue = DefaultQueue
	}
	if logger == nil {
		logger = slog.Default()
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("rabbitmq: declare queue %s: %w", queue, err)
	}
	return &AMQPPublisher{
		channel: ch,
		queue:   queue,
		logger:  logger.With("component", "amqp_publisher", "queue", queue),
		now:     time.Now,
	}, nil
}

// Publish implements application.EventPublisher.
func (p *AMQPPublisher) Publish(ctx context.Context, event application.ReservationEvent) error {
	body, err := NewMessage(event).Encode()
	if err != nil {
		return err
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    p.now().UTC(),
		Type:         event.Type,
		Body:         body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.channel.PublishWithContext(ctx, "", p.queue, false, false, msg)
	if errors.Is(err, amqp.ErrClosed) && p.reopen != nil {
		if rerr := p.reconnect(ctx); rerr != nil {
			err = errors.Join(err, rerr)
		} else {
			err = p.channel.PublishWithContext(ctx, "", p.queue, false, false, msg)
		}
	}
	if err != nil {
		return fmt.Errorf("rabbitmq: publish %s: %w", event.Type, err)
	}

	p.logger.DebugContext(ctx, "event published",
		"event_type", event.Type,
		"reservation_id", event.Reservation.ID,
		"message_id", msg.MessageId,
	)
	return nil
}

// reconnect replaces a closed channel and redeclares the queue. p.mu must be held.
func (p *AMQPPublisher) reconnect(ctx context.Context) error {
	ch, err := p.reopen()
	if err != nil {
		return err
	}
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return fmt.Errorf("rabbitmq: declare queue %s: %w", p.queue, err)
	}
	_ = p.channel.Close()
	p.channel = ch
	p.logger.WarnContext(ctx, "amqp channel reopened")
	return nil
}

// Close closes the channel and, when owned, the connection.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var errs []error
	if err := p.channel.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
		errs = append(errs, err)
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
