// Package events publishes reservation lifecycle events to RabbitMQ.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/example/campus-reservations/internal/application"
)

// Message is the JSON body delivered for each lifecycle event.
type Message struct {
	Type        string             `json:"type"`
	OccurredAt  time.Time          `json:"occurred_at"`
	Reservation ReservationPayload `json:"reservation"`
}

// ReservationPayload is the reservation snapshot carried by a Message.
type ReservationPayload struct {
	ID         string    `json:"id"`
	ResourceID string    `json:"resource_id"`
	ActorID    string    `json:"actor_id"`
	Kind       string    `json:"kind"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	Status     string    `json:"status"`
	AlertSent  bool      `json:"alert_sent"`
}

// NewMessage converts an application event into its wire form.
func NewMessage(event application.ReservationEvent) Message {
	r := event.Reservation
	return Message{
		Type:       event.Type,
		OccurredAt: event.OccurredAt.UTC(),
		Reservation: ReservationPayload{
			ID:         r.ID,
			ResourceID: r.ResourceID,
			ActorID:    r.ActorID,
			Kind:       string(r.Kind),
			Start:      r.Start.UTC(),
			End:        r.End.UTC(),
			Status:     string(r.Status),
			AlertSent:  r.AlertSent,
		},
	}
}

// Encode marshals the message body.
func (m Message) Encode() ([]byte, error) {
	body, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode %s event: %w", m.Type, err)
	}
	return body, nil
}
