package persistence

import "time"

// Resource kinds.
const (
	KindRoom    = "room"
	KindStation = "station"
)

// Resource statuses.
const (
	ResourceAvailable    = "available"
	ResourceReserved     = "reserved"
	ResourceOccupied     = "occupied"
	ResourceOutOfService = "out_of_service"
)

// Reservation statuses.
const (
	ReservationActive    = "active"
	ReservationCancelled = "cancelled"
	ReservationExpired   = "expired"
	ReservationCompleted = "completed"
)

// Attribute owner kinds.
const (
	OwnerReservation = "reservation"
	OwnerResource    = "resource"
)

// Resource represents a reservable unit in the catalog.
type Resource struct {
	ID        string
	Kind      string
	Label     string
	Location  string
	Capacity  int
	Status    string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Reservation represents a claim on a resource for a half-open time window.
type Reservation struct {
	ID         string
	ResourceID string
	ActorID    string
	Kind       string
	Start      time.Time
	End        time.Time
	Status     string
	AlertSent  bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// OwnerRef identifies the record an attribute belongs to.
type OwnerRef struct {
	Kind string
	ID   string
}

// Attribute is a single key/value pair attached to an owner.
type Attribute struct {
	Owner     OwnerRef
	Key       string
	Value     string
	UpdatedAt time.Time
}
