package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/campus-reservations/internal/application"
	"github.com/example/campus-reservations/internal/persistence"
)

var (
	resourceCounter    uint64
	reservationCounter uint64
)

// referenceTime is a Monday morning before the first bookable slot.
var referenceTime = time.Date(2025, time.March, 3, 7, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// At returns the reference day at the given wall clock time.
func At(hour, minute int) time.Time {
	day := time.Date(referenceTime.Year(), referenceTime.Month(), referenceTime.Day(), 0, 0, 0, 0, time.UTC)
	return day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

// ---------------------------- Resource fixtures ----------------------------

// ResourceFixture represents a deterministic catalog entry that can be
// materialised for application or persistence tests.
type ResourceFixture struct {
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

// ResourceOption configures the generated resource fixture.
type ResourceOption func(*ResourceFixture)

// NewResourceFixture returns an active room fixture with optional overrides.
func NewResourceFixture(opts ...ResourceOption) ResourceFixture {
	idx := atomic.AddUint64(&resourceCounter, 1)
	created := referenceTime.Add(-time.Duration(idx) * time.Hour)
	fixture := ResourceFixture{
		ID:        fmt.Sprintf("resource-%03d", idx),
		Kind:      persistence.KindRoom,
		Label:     fmt.Sprintf("Room %03d", idx),
		Location:  "Main Building",
		Capacity:  10,
		Status:    persistence.ResourceAvailable,
		IsActive:  true,
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithResourceID overrides the generated resource ID.
func WithResourceID(id string) ResourceOption {
	return func(f *ResourceFixture) {
		f.ID = id
	}
}

// WithResourceKind overrides the resource kind.
func WithResourceKind(kind string) ResourceOption {
	return func(f *ResourceFixture) {
		f.Kind = kind
		if kind == persistence.KindStation && f.Capacity > 1 {
			f.Capacity = 1
		}
	}
}

// WithResourceLabel overrides the generated label.
func WithResourceLabel(label string) ResourceOption {
	return func(f *ResourceFixture) {
		f.Label = label
	}
}

// WithResourceLocation overrides the location.
func WithResourceLocation(location string) ResourceOption {
	return func(f *ResourceFixture) {
		f.Location = location
	}
}

// WithResourceCapacity overrides the capacity.
func WithResourceCapacity(capacity int) ResourceOption {
	return func(f *ResourceFixture) {
		f.Capacity = capacity
	}
}

// WithResourceStatus overrides the stored status.
func WithResourceStatus(status string) ResourceOption {
	return func(f *ResourceFixture) {
		f.Status = status
	}
}

// WithResourceInactive marks the resource as withdrawn from booking.
func WithResourceInactive() ResourceOption {
	return func(f *ResourceFixture) {
		f.IsActive = false
		f.Status = persistence.ResourceOutOfService
	}
}

// Application returns the fixture as an application.Resource value.
func (f ResourceFixture) Application() application.Resource {
	return application.Resource{
		ID:        f.ID,
		Kind:      application.ResourceKind(f.Kind),
		Label:     f.Label,
		Location:  f.Location,
		Capacity:  f.Capacity,
		Status:    application.ResourceStatus(f.Status),
		IsActive:  f.IsActive,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

// Persistence returns the fixture as a persistence.Resource value.
func (f ResourceFixture) Persistence() persistence.Resource {
	return persistence.Resource{
		ID:        f.ID,
		Kind:      f.Kind,
		Label:     f.Label,
		Location:  f.Location,
		Capacity:  f.Capacity,
		Status:    f.Status,
		IsActive:  f.IsActive,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

// -------------------------- Reservation fixtures ---------------------------

// ReservationFixture represents a deterministic reservation. The default is an
// active one hour room booking from 09:00 on the reference day.
type ReservationFixture struct {
	ID         string
	ResourceID string
	ActorID    string
	Kind       string
	Start      time.Time
	End        time.Time
	Status     string
	AlertSent  bool
	Purpose    string
	Notes      string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ReservationOption configures the generated reservation fixture.
type ReservationOption func(*ReservationFixture)

// NewReservationFixture returns a reservation fixture with optional overrides.
func NewReservationFixture(opts ...ReservationOption) ReservationFixture {
	idx := atomic.AddUint64(&reservationCounter, 1)
	fixture := ReservationFixture{
		ID:         fmt.Sprintf("reservation-%03d", idx),
		ResourceID: "room-1",
		ActorID:    "alice",
		Kind:       persistence.KindRoom,
		Start:      At(9, 0),
		End:        At(10, 0),
		Status:     persistence.ReservationActive,
		CreatedAt:  referenceTime,
		UpdatedAt:  referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithReservationID overrides the generated reservation ID.
func WithReservationID(id string) ReservationOption {
	return func(f *ReservationFixture) {
		f.ID = id
	}
}

// WithReservationResource sets the reserved resource and its kind.
func WithReservationResource(resourceID, kind string) ReservationOption {
	return func(f *ReservationFixture) {
		f.ResourceID = resourceID
		f.Kind = kind
	}
}

// WithReservationActor overrides the holder.
func WithReservationActor(actorID string) ReservationOption {
	return func(f *ReservationFixture) {
		f.ActorID = actorID
	}
}

// WithReservationWindow overrides the half-open window.
func WithReservationWindow(start, end time.Time) ReservationOption {
	return func(f *ReservationFixture) {
		f.Start = start
		f.End = end
	}
}

// WithReservationStatus overrides the lifecycle status.
func WithReservationStatus(status string) ReservationOption {
	return func(f *ReservationFixture) {
		f.Status = status
	}
}

// WithReservationAlertSent marks the expiring-soon alert as delivered.
func WithReservationAlertSent() ReservationOption {
	return func(f *ReservationFixture) {
		f.AlertSent = true
	}
}

// WithReservationPurpose sets the purpose metadata.
func WithReservationPurpose(purpose string) ReservationOption {
	return func(f *ReservationFixture) {
		f.Purpose = purpose
	}
}

// Application returns the fixture as an application.Reservation value.
func (f ReservationFixture) Application() application.Reservation {
	return application.Reservation{
		ID:         f.ID,
		ResourceID: f.ResourceID,
		ActorID:    f.ActorID,
		Kind:       application.ResourceKind(f.Kind),
		Start:      f.Start,
		End:        f.End,
		Status:     application.ReservationStatus(f.Status),
		AlertSent:  f.AlertSent,
		Purpose:    f.Purpose,
		Notes:      f.Notes,
		CreatedAt:  f.CreatedAt,
		UpdatedAt:  f.UpdatedAt,
	}
}

// Persistence returns the fixture as a persistence.Reservation value. Purpose
// and notes live in the attribute store and are not part of the row.
func (f ReservationFixture) Persistence() persistence.Reservation {
	return persistence.Reservation{
		ID:         f.ID,
		ResourceID: f.ResourceID,
		ActorID:    f.ActorID,
		Kind:       f.Kind,
		Start:      f.Start,
		End:        f.End,
		Status:     f.Status,
		AlertSent:  f.AlertSent,
		CreatedAt:  f.CreatedAt,
		UpdatedAt:  f.UpdatedAt,
	}
}
