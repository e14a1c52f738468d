package application

import "time"

// Principal represents the authenticated actor invoking a service method.
type Principal struct {
	UserID  string
	IsAdmin bool
}

// ResourceKind distinguishes bookable rooms from lab stations.
type ResourceKind string

const (
	// ResourceKindRoom is a bookable room.
	ResourceKindRoom ResourceKind = "room"
	// ResourceKindStation is a lab station with single-claim and duration rules.
	ResourceKindStation ResourceKind = "station"
)

// Valid reports whether the kind is known.
func (k ResourceKind) Valid() bool {
	return k == ResourceKindRoom || k == ResourceKindStation
}

// ResourceStatus is the status projected from active reservations.
type ResourceStatus string

const (
	ResourceStatusAvailable    ResourceStatus = "available"
	ResourceStatusReserved     ResourceStatus = "reserved"
	ResourceStatusOccupied     ResourceStatus = "occupied"
	ResourceStatusOutOfService ResourceStatus = "out_of_service"
)

// ReservationStatus is the lifecycle state of a reservation.
type ReservationStatus string

const (
	ReservationStatusActive    ReservationStatus = "active"
	ReservationStatusCancelled ReservationStatus = "cancelled"
	ReservationStatusExpired   ReservationStatus = "expired"
	ReservationStatusCompleted ReservationStatus = "completed"
)

// Valid reports whether the status is known.
func (s ReservationStatus) Valid() bool {
	switch s {
	case ReservationStatusActive, ReservationStatusCancelled, ReservationStatusExpired, ReservationStatusCompleted:
		return true
	}
	return false
}

// Resource is a reservable catalog entry.
type Resource struct {
	ID        string
	Kind      ResourceKind
	Label     string
	Location  string
	Capacity  int
	Status    ResourceStatus
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Reservation is a claim on a resource for the half-open window [Start, End).
type Reservation struct {
	ID         string
	ResourceID string
	ActorID    string
	Kind       ResourceKind
	Start      time.Time
	End        time.Time
	Status     ReservationStatus
	AlertSent  bool
	Purpose    string
	Notes      string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ResourceInput captures caller provided resource fields. ID is optional and
// generated when empty.
type ResourceInput struct {
	ID       string
	Kind     ResourceKind
	Label    string
	Location string
	Capacity int
	IsActive *bool
}

// CreateResourceParams wraps the data required to create a resource.
type CreateResourceParams struct {
	Principal Principal
	Input     ResourceInput
}

// UpdateResourceParams wraps the data required to update a resource.
type UpdateResourceParams struct {
	Principal  Principal
	ResourceID string
	Input      ResourceInput
}

// ListResourcesParams wraps the filters for listing resources.
type ListResourcesParams struct {
	Principal  Principal
	Kind       ResourceKind
	ActiveOnly bool
}

// ReservationInput captures caller provided reservation fields. An empty
// ActorID means the principal reserves for themselves.
type ReservationInput struct {
	ResourceID string
	ActorID    string
	Kind       ResourceKind
	Start      time.Time
	End        time.Time
	Purpose    string
	Notes      string
}

// CreateReservationParams wraps the data required to create a reservation.
type CreateReservationParams struct {
	Principal Principal
	Input     ReservationInput
}

// ReservationPatch lists the fields a room reservation update may change.
// Nil fields keep their current value; an empty Purpose or Notes clears it.
type ReservationPatch struct {
	ResourceID *string
	Start      *time.Time
	End        *time.Time
	Purpose    *string
	Notes      *string
}

// UpdateReservationParams wraps the data required to update a reservation.
type UpdateReservationParams struct {
	Principal     Principal
	ReservationID string
	Patch         ReservationPatch
}

// CancelReservationParams wraps the data required to cancel a reservation.
type CancelReservationParams struct {
	Principal     Principal
	ReservationID string
}

// ListReservationsParams wraps the filters for listing reservations. Mine
// restricts the result to the principal's own reservations.
type ListReservationsParams struct {
	Principal  Principal
	ResourceID string
	ActorID    string
	Status     ReservationStatus
	Kind       ResourceKind
	Mine       bool
}

// AvailabilityParams wraps an availability query.
type AvailabilityParams struct {
	Principal  Principal
	ResourceID string
	Start      time.Time
	End        time.Time
}

// Availability is the outcome of an availability query.
type Availability struct {
	ResourceID string
	Start      time.Time
	End        time.Time
	Available  bool
	Conflicts  []ReservationConflict
}

// ExpiringSoonParams wraps an expiring-soon check. A zero Within uses the
// configured default horizon.
type ExpiringSoonParams struct {
	Principal Principal
	ActorID   string
	Within    time.Duration
}

// SweepResult summarises a sweep pass.
type SweepResult struct {
	Expired     int
	Completed   int
	ResourceIDs []string
}

// Transitioned returns the number of reservations moved out of active.
func (r SweepResult) Transitioned() int {
	return r.Expired + r.Completed
}
