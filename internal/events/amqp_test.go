package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/example/campus-reservations/internal/application"
)

type channelStub struct {
	declared   []string
	durable    bool
	published  []amqp.Publishing
	keys       []string
	exchanges  []string
	declareErr error
	publishErr error
	closed     bool
}

func (c *channelStub) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	if c.declareErr != nil {
		return amqp.Queue{}, c.declareErr
	}
	c.declared = append(c.declared, name)
	c.durable = durable
	return amqp.Queue{Name: name}, nil
}

func (c *channelStub) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	if c.publishErr != nil {
		return c.publishErr
	}
	c.exchanges = append(c.exchanges, exchange)
	c.keys = append(c.keys, key)
	c.published = append(c.published, msg)
	return nil
}

func (c *channelStub) Close() error {
	c.closed = true
	return nil
}

func sampleEvent() application.ReservationEvent {
	start := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)
	return application.ReservationEvent{
		Type: application.EventReservationCreated,
		Reservation: application.Reservation{
			ID:         "res-001",
			ResourceID: "station-1",
			ActorID:    "alice",
			Kind:       application.ResourceKindStation,
			Start:      start,
			End:        start.Add(2 * time.Hour),
			Status:     application.ReservationStatusActive,
			Purpose:    "not on the wire",
		},
		OccurredAt: start.Add(-time.Hour),
	}
}

func TestAMQPPublisher_Publish(t *testing.T) {
	ch := &channelStub{}
	publisher, err := NewAMQPPublisher(ch, "", nil)
	if err != nil {
		t.Fatalf("NewAMQPPublisher() error = %v", err)
	}
	if len(ch.declared) != 1 || ch.declared[0] != DefaultQueue || !ch.durable {
		t.Fatalf("expected durable %s declared, got %v durable=%v", DefaultQueue, ch.declared, ch.durable)
	}

	if err := publisher.Publish(context.Background(), sampleEvent()); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if len(ch.published) != 1 {
		t.Fatalf("expected one publish, got %d", len(ch.published))
	}
	if ch.exchanges[0] != "" || ch.keys[0] != DefaultQueue {
		t.Fatalf("expected default exchange routed to queue, got %q/%q", ch.exchanges[0], ch.keys[0])
	}

	msg := ch.published[0]
	if msg.DeliveryMode != amqp.Persistent {
		t.Fatalf("expected persistent delivery, got %d", msg.DeliveryMode)
	}
	if msg.ContentType != "application/json" || msg.Type != application.EventReservationCreated {
		t.Fatalf("unexpected headers: %q %q", msg.ContentType, msg.Type)
	}
	if msg.MessageId == "" {
		t.Fatal("expected message id")
	}

	var decoded Message
	if err := json.Unmarshal(msg.Body, &decoded); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if decoded.Reservation.ID != "res-001" || decoded.Reservation.Kind != "station" || decoded.Reservation.Status != "active" {
		t.Fatalf("unexpected payload: %+v", decoded.Reservation)
	}
	var raw map[string]any
	_ = json.Unmarshal(msg.Body, &raw)
	reservation := raw["reservation"].(map[string]any)
	if _, ok := reservation["purpose"]; ok {
		t.Fatal("metadata should not be published")
	}
}

func TestAMQPPublisher_Errors(t *testing.T) {
	t.Run("declare failure", func(t *testing.T) {
		ch := &channelStub{declareErr: errors.New("access refused")}
		if _, err := NewAMQPPublisher(ch, "q", nil); err == nil {
			t.Fatal("expected declare error")
		}
	})

	t.Run("publish failure", func(t *testing.T) {
		ch := &channelStub{}
		publisher, err := NewAMQPPublisher(ch, "q", nil)
		if err != nil {
			t.Fatalf("NewAMQPPublisher() error = %v", err)
		}
		ch.publishErr = amqp.ErrClosed
		if err := publisher.Publish(context.Background(), sampleEvent()); !errors.Is(err, amqp.ErrClosed) {
			t.Fatalf("expected ErrClosed, got %v", err)
		}
	})

	t.Run("closed channel is reopened once", func(t *testing.T) {
		stale := &channelStub{}
		publisher, err := NewAMQPPublisher(stale, "q", nil)
		if err != nil {
			t.Fatalf("NewAMQPPublisher() error = %v", err)
		}
		stale.publishErr = amqp.ErrClosed
		fresh := &channelStub{}
		reopened := 0
		publisher.reopen = func() (Channel, error) {
			reopened++
			return fresh, nil
		}

		if err := publisher.Publish(context.Background(), sampleEvent()); err != nil {
			t.Fatalf("Publish() error = %v", err)
		}
		if reopened != 1 {
			t.Fatalf("expected one reopen, got %d", reopened)
		}
		if !stale.closed {
			t.Fatal("expected stale channel closed")
		}
		if len(fresh.declared) != 1 || fresh.declared[0] != "q" || !fresh.durable {
			t.Fatalf("expected durable redeclare of q, got %v", fresh.declared)
		}
		if len(fresh.published) != 1 {
			t.Fatalf("expected message on fresh channel, got %d", len(fresh.published))
		}

		if err := publisher.Publish(context.Background(), sampleEvent()); err != nil {
			t.Fatalf("second Publish() error = %v", err)
		}
		if reopened != 1 || len(fresh.published) != 2 {
			t.Fatalf("expected fresh channel reused, reopened=%d published=%d", reopened, len(fresh.published))
		}
	})

	t.Run("reopen failure surfaces both errors", func(t *testing.T) {
		ch := &channelStub{}
		publisher, err := NewAMQPPublisher(ch, "q", nil)
		if err != nil {
			t.Fatalf("NewAMQPPublisher() error = %v", err)
		}
		ch.publishErr = amqp.ErrClosed
		dialErr := errors.New("connection refused")
		publisher.reopen = func() (Channel, error) { return nil, dialErr }

		err = publisher.Publish(context.Background(), sampleEvent())
		if !errors.Is(err, amqp.ErrClosed) || !errors.Is(err, dialErr) {
			t.Fatalf("expected ErrClosed and dial error, got %v", err)
		}
	})

	t.Run("close", func(t *testing.T) {
		ch := &channelStub{}
		publisher, _ := NewAMQPPublisher(ch, "q", nil)
		if err := publisher.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}
		if !ch.closed {
			t.Fatal("expected channel closed")
		}
	})
}

func TestNewMessageNormalisesToUTC(t *testing.T) {
	event := sampleEvent()
	zone := time.FixedZone("UTC+9", 9*3600)
	event.Reservation.Start = event.Reservation.Start.In(zone)

	msg := NewMessage(event)
	if msg.Reservation.Start.Location() != time.UTC {
		t.Fatalf("expected UTC start, got %v", msg.Reservation.Start.Location())
	}
	if !msg.Reservation.Start.Equal(event.Reservation.Start) {
		t.Fatal("instant changed during conversion")
	}
}
