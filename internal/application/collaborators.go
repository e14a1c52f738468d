package application

import (
	"context"
	"time"
)

// ResourceRepository captures the catalog persistence operations.
type ResourceRepository interface {
	CreateResource(ctx context.Context, resource Resource) (Resource, error)
	UpdateResource(ctx context.Context, resource Resource) (Resource, error)
	GetResource(ctx context.Context, id string) (Resource, error)
	ListResources(ctx context.Context, filter ResourceFilter) ([]Resource, error)
	SetResourceStatus(ctx context.Context, id string, status ResourceStatus, at time.Time) error
}

// ResourceFilter narrows resource queries.
type ResourceFilter struct {
	Kind       ResourceKind
	ActiveOnly bool
}

// ReservationRepository captures the reservation persistence operations.
// Implementations reject overlapping active windows and duplicate active
// station claims at commit time.
type ReservationRepository interface {
	CreateReservation(ctx context.Context, reservation Reservation) (Reservation, error)
	UpdateReservation(ctx context.Context, reservation Reservation) (Reservation, error)
	GetReservation(ctx context.Context, id string) (Reservation, error)
	ListReservations(ctx context.Context, filter ReservationFilter) ([]Reservation, error)
	TransitionReservation(ctx context.Context, id string, from, to ReservationStatus, at time.Time) error
	MarkAlertSent(ctx context.Context, id string, at time.Time) error
	CountActiveReservations(ctx context.Context, resourceID string) (int, error)
}

// ReservationFilter narrows reservation queries. Zero values are ignored.
type ReservationFilter struct {
	ResourceID     string
	ActorID        string
	Kind           ResourceKind
	Statuses       []ReservationStatus
	EndsAfter      *time.Time
	EndsAtOrBefore *time.Time
	AlertSent      *bool
}

// Attribute owner kinds.
const (
	AttributeOwnerReservation = "reservation"
	AttributeOwnerResource    = "resource"
)

// AttributeOwner is a discriminated reference to the record an attribute
// belongs to.
type AttributeOwner struct {
	Kind string
	ID   string
}

// AttributeStore holds free-form key/value metadata.
type AttributeStore interface {
	SetAttributes(ctx context.Context, owner AttributeOwner, values map[string]string, at time.Time) error
	GetAttributes(ctx context.Context, owner AttributeOwner) (map[string]string, error)
}

// Lifecycle event types.
const (
	EventReservationCreated      = "reservation.created"
	EventReservationUpdated      = "reservation.updated"
	EventReservationCancelled    = "reservation.cancelled"
	EventReservationExpired      = "reservation.expired"
	EventReservationCompleted    = "reservation.completed"
	EventReservationExpiringSoon = "reservation.expiring_soon"
)

// ReservationEvent describes a reservation lifecycle change.
type ReservationEvent struct {
	Type        string
	Reservation Reservation
	OccurredAt  time.Time
}

// EventPublisher delivers lifecycle events. Publish failures are logged by
// the services and never fail the operation.
type EventPublisher interface {
	Publish(ctx context.Context, event ReservationEvent) error
}

// Locker serialises check-then-insert sequences. Lock acquires every key and
// returns a function releasing them.
type Locker interface {
	Lock(ctx context.Context, keys ...string) (unlock func(), err error)
}

// Metrics records lifecycle counters.
type Metrics interface {
	ReservationCreated(kind string)
	ReservationRejected(kind, reason string)
	ReservationTransitioned(kind, status string)
	ExpiringSoonAlerted(kind string)
	SweepObserved(duration time.Duration, transitioned int)
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, ReservationEvent) error { return nil }

type noopLocker struct{}

func (noopLocker) Lock(context.Context, ...string) (func(), error) { return func() {}, nil }

type noopMetrics struct{}

func (noopMetrics) ReservationCreated(string) {}
func (noopMetrics) ReservationRejected(string, string) {}
func (noopMetrics) ReservationTransitioned(string, string) {}
func (noopMetrics) ExpiringSoonAlerted(string) {}
func (noopMetrics) SweepObserved(time.Duration, int) {}

func resourceLockKey(id string) string {
	return "resource:" + id
}

func actorLockKey(id string) string {
	return "actor:" + id
}
