package persistence

import (
	"context"
	"time"
)

// ResourceFilter narrows resource queries.
type ResourceFilter struct {
	Kind       string
	ActiveOnly bool
}

// ResourceRepository stores catalog entries.
type ResourceRepository interface {
	CreateResource(ctx context.Context, resource Resource) error
	UpdateResource(ctx context.Context, resource Resource) error
	GetResource(ctx context.Context, id string) (Resource, error)
	ListResources(ctx context.Context, filter ResourceFilter) ([]Resource, error)
	SetResourceStatus(ctx context.Context, id, status string, at time.Time) error
}

// ReservationFilter narrows reservation queries. Zero values are ignored.
type ReservationFilter struct {
	ResourceID string
	ActorID    string
	Kind       string
	Statuses   []string
	// EndsAfter keeps reservations with End > EndsAfter.
	EndsAfter *time.Time
	// EndsAtOrBefore keeps reservations with End <= EndsAtOrBefore.
	EndsAtOrBefore *time.Time
	AlertSent      *bool
}

// ReservationRepository stores reservations. Implementations must reject,
// atomically with the write, an active reservation that overlaps another active
// reservation on the same resource (ErrOverlap) and a second active station
// reservation for the same actor (ErrActiveClaimExists).
type ReservationRepository interface {
	CreateReservation(ctx context.Context, reservation Reservation) error
	UpdateReservation(ctx context.Context, reservation Reservation) error
	GetReservation(ctx context.Context, id string) (Reservation, error)
	ListReservations(ctx context.Context, filter ReservationFilter) ([]Reservation, error)
	// TransitionReservation moves a reservation from one status to another and
	// returns ErrStaleState when the stored status is not from.
	TransitionReservation(ctx context.Context, id, from, to string, at time.Time) error
	// MarkAlertSent sets the alert flag on an active reservation and returns
	// ErrStaleState when the flag was already set or the reservation is no
	// longer active.
	MarkAlertSent(ctx context.Context, id string, at time.Time) error
	CountActiveReservations(ctx context.Context, resourceID string) (int, error)
}

// AttributeRepository stores free-form attributes keyed by a discriminated
// owner reference.
type AttributeRepository interface {
	SetAttributes(ctx context.Context, owner OwnerRef, values map[string]string, at time.Time) error
	GetAttributes(ctx context.Context, owner OwnerRef) (map[string]string, error)
}
