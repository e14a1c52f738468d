// Package memory provides an in-process persistence layer that enforces the
// same reservation constraints as the SQL backends under a single lock.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/example/campus-reservations/internal/persistence"
	"github.com/example/campus-reservations/internal/scheduler"
)

// Store keeps resources, reservations and attributes in memory.
type Store struct {
	mu           sync.RWMutex
	resources    map[string]persistence.Resource
	reservations map[string]persistence.Reservation
	attributes   map[persistence.OwnerRef]map[string]string
}

// Open returns a new empty Store.
func Open() *Store {
	return &Store{
		resources:    make(map[string]persistence.Resource),
		reservations: make(map[string]persistence.Reservation),
		attributes:   make(map[persistence.OwnerRef]map[string]string),
	}
}

// Close releases resources held by the store. No-op for the in-memory implementation.
func (s *Store) Close() error {
	return nil
}

// Migrate initialises the store. No-op for the in-memory implementation.
func (s *Store) Migrate(context.Context) error {
	return nil
}

// --- ResourceRepository implementation ---

// CreateResource stores a new catalog entry.
func (s *Store) CreateResource(ctx context.Context, resource persistence.Resource) error {
	if resource.ID == "" || !validKind(resource.Kind) || resource.Capacity < 0 {
		return persistence.ErrConstraintViolation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.resources[resource.ID]; ok {
		return fmt.Errorf("memory: resource %s: %w", resource.ID, persistence.ErrDuplicate)
	}
	if resource.Status == "" {
		resource.Status = persistence.ResourceAvailable
	}

	s.resources[resource.ID] = resource
	return nil
}

// UpdateResource replaces the mutable fields of an existing resource.
func (s *Store) UpdateResource(ctx context.Context, resource persistence.Resource) error {
	if !validKind(resource.Kind) || resource.Capacity < 0 {
		return persistence.ErrConstraintViolation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.resources[resource.ID]
	if !ok {
		return persistence.ErrNotFound
	}

	existing.Label = resource.Label
	existing.Location = resource.Location
	existing.Capacity = resource.Capacity
	existing.IsActive = resource.IsActive
	existing.UpdatedAt = resource.UpdatedAt
	s.resources[resource.ID] = existing
	return nil
}

// GetResource retrieves a resource by ID.
func (s *Store) GetResource(ctx context.Context, id string) (persistence.Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	resource, ok := s.resources[id]
	if !ok {
		return persistence.Resource{}, persistence.ErrNotFound
	}
	return resource, nil
}

// ListResources returns resources ordered by label then ID.
func (s *Store) ListResources(ctx context.Context, filter persistence.ResourceFilter) ([]persistence.Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	resources := make([]persistence.Resource, 0, len(s.resources))
	for _, resource := range s.resources {
		if filter.Kind != "" && resource.Kind != filter.Kind {
			continue
		}
		if filter.ActiveOnly && !resource.IsActive {
			continue
		}
		resources = append(resources, resource)
	}

	sort.Slice(resources, func(i, j int) bool {
		if resources[i].Label == resources[j].Label {
			return resources[i].ID < resources[j].ID
		}
		return resources[i].Label < resources[j].Label
	})

	return resources, nil
}

// SetResourceStatus records the projected status of a resource.
func (s *Store) SetResourceStatus(ctx context.Context, id, status string, at time.Time) error {
	if !validResourceStatus(status) {
		return persistence.ErrConstraintViolation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	resource, ok := s.resources[id]
	if !ok {
		return persistence.ErrNotFound
	}
	resource.Status = status
	resource.UpdatedAt = at
	s.resources[id] = resource
	return nil
}

// --- ReservationRepository implementation ---

// CreateReservation stores a new reservation after checking the overlap and
// single-active-claim constraints under the write lock.
func (s *Store) CreateReservation(ctx context.Context, reservation persistence.Reservation) error {
	if err := validateReservation(reservation); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.reservations[reservation.ID]; ok {
		return fmt.Errorf("memory: reservation %s: %w", reservation.ID, persistence.ErrDuplicate)
	}
	if _, ok := s.resources[reservation.ResourceID]; !ok {
		return persistence.ErrForeignKeyViolation
	}
	if err := s.checkConstraintsLocked(reservation); err != nil {
		return err
	}

	s.reservations[reservation.ID] = reservation
	return nil
}

// UpdateReservation replaces the resource, window and timestamps of an
// existing reservation.
func (s *Store) UpdateReservation(ctx context.Context, reservation persistence.Reservation) error {
	if err := validateReservation(reservation); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.reservations[reservation.ID]
	if !ok {
		return persistence.ErrNotFound
	}
	if _, ok := s.resources[reservation.ResourceID]; !ok {
		return persistence.ErrForeignKeyViolation
	}

	updated := existing
	updated.ResourceID = reservation.ResourceID
	updated.Start = reservation.Start
	updated.End = reservation.End
	updated.UpdatedAt = reservation.UpdatedAt

	if err := s.checkConstraintsLocked(updated); err != nil {
		return err
	}

	s.reservations[reservation.ID] = updated
	return nil
}

// GetReservation retrieves a reservation by ID.
func (s *Store) GetReservation(ctx context.Context, id string) (persistence.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reservation, ok := s.reservations[id]
	if !ok {
		return persistence.Reservation{}, persistence.ErrNotFound
	}
	return reservation, nil
}

// ListReservations returns reservations matching the filter ordered by start
// time then ID.
func (s *Store) ListReservations(ctx context.Context, filter persistence.ReservationFilter) ([]persistence.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reservations := make([]persistence.Reservation, 0)
	for _, reservation := range s.reservations {
		if matchesFilter(reservation, filter) {
			reservations = append(reservations, reservation)
		}
	}

	sort.Slice(reservations, func(i, j int) bool {
		if reservations[i].Start.Equal(reservations[j].Start) {
			return reservations[i].ID < reservations[j].ID
		}
		return reservations[i].Start.Before(reservations[j].Start)
	})

	return reservations, nil
}

// TransitionReservation changes the status of a reservation when its stored
// status equals from.
func (s *Store) TransitionReservation(ctx context.Context, id, from, to string, at time.Time) error {
	if !validReservationStatus(to) {
		return persistence.ErrConstraintViolation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	reservation, ok := s.reservations[id]
	if !ok {
		return persistence.ErrNotFound
	}
	if reservation.Status != from {
		return persistence.ErrStaleState
	}

	reservation.Status = to
	reservation.UpdatedAt = at
	if to == persistence.ReservationActive {
		if err := s.checkConstraintsLocked(reservation); err != nil {
			return err
		}
	}

	s.reservations[id] = reservation
	return nil
}

// MarkAlertSent flags an active reservation whose alert has not been sent.
func (s *Store) MarkAlertSent(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	reservation, ok := s.reservations[id]
	if !ok {
		return persistence.ErrNotFound
	}
	if reservation.AlertSent || reservation.Status != persistence.ReservationActive {
		return persistence.ErrStaleState
	}

	reservation.AlertSent = true
	reservation.UpdatedAt = at
	s.reservations[id] = reservation
	return nil
}

// CountActiveReservations counts the active reservations on a resource.
func (s *Store) CountActiveReservations(ctx context.Context, resourceID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, reservation := range s.reservations {
		if reservation.ResourceID == resourceID && reservation.Status == persistence.ReservationActive {
			count++
		}
	}
	return count, nil
}

func (s *Store) checkConstraintsLocked(candidate persistence.Reservation) error {
	if candidate.Status != persistence.ReservationActive {
		return nil
	}
	for _, other := range s.reservations {
		if other.ID == candidate.ID || other.Status != persistence.ReservationActive {
			continue
		}
		if other.ResourceID == candidate.ResourceID &&
			scheduler.Overlaps(other.Start, other.End, candidate.Start, candidate.End) {
			return persistence.ErrOverlap
		}
		if candidate.Kind == persistence.KindStation && other.Kind == persistence.KindStation &&
			other.ActorID == candidate.ActorID {
			return persistence.ErrActiveClaimExists
		}
	}
	return nil
}

// --- AttributeRepository implementation ---

// SetAttributes upserts the supplied values for the owner. Empty values remove
// the key.
func (s *Store) SetAttributes(ctx context.Context, owner persistence.OwnerRef, values map[string]string, at time.Time) error {
	if !validOwnerKind(owner.Kind) || owner.ID == "" {
		return persistence.ErrConstraintViolation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.attributes[owner]
	if current == nil {
		current = make(map[string]string, len(values))
	}
	for key, value := range values {
		if value == "" {
			delete(current, key)
			continue
		}
		current[key] = value
	}
	if len(current) == 0 {
		delete(s.attributes, owner)
		return nil
	}
	s.attributes[owner] = current
	return nil
}

// GetAttributes returns a copy of the owner's attributes.
func (s *Store) GetAttributes(ctx context.Context, owner persistence.OwnerRef) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	current := s.attributes[owner]
	out := make(map[string]string, len(current))
	for key, value := range current {
		out[key] = value
	}
	return out, nil
}

func matchesFilter(reservation persistence.Reservation, filter persistence.ReservationFilter) bool {
	if filter.ResourceID != "" && reservation.ResourceID != filter.ResourceID {
		return false
	}
	if filter.ActorID != "" && reservation.ActorID != filter.ActorID {
		return false
	}
	if filter.Kind != "" && reservation.Kind != filter.Kind {
		return false
	}
	if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, reservation.Status) {
		return false
	}
	if filter.EndsAfter != nil && !reservation.End.After(*filter.EndsAfter) {
		return false
	}
	if filter.EndsAtOrBefore != nil && reservation.End.After(*filter.EndsAtOrBefore) {
		return false
	}
	if filter.AlertSent != nil && reservation.AlertSent != *filter.AlertSent {
		return false
	}
	return true
}

func validateReservation(reservation persistence.Reservation) error {
	if reservation.ID == "" || reservation.ResourceID == "" || reservation.ActorID == "" {
		return persistence.ErrConstraintViolation
	}
	if !validKind(reservation.Kind) || !validReservationStatus(reservation.Status) {
		return persistence.ErrConstraintViolation
	}
	if !reservation.End.After(reservation.Start) {
		return persistence.ErrConstraintViolation
	}
	return nil
}

func validKind(kind string) bool {
	return kind == persistence.KindRoom || kind == persistence.KindStation
}

func validResourceStatus(status string) bool {
	switch status {
	case persistence.ResourceAvailable, persistence.ResourceReserved, persistence.ResourceOccupied, persistence.ResourceOutOfService:
		return true
	}
	return false
}

func validReservationStatus(status string) bool {
	switch status {
	case persistence.ReservationActive, persistence.ReservationCancelled, persistence.ReservationExpired, persistence.ReservationCompleted:
		return true
	}
	return false
}

func validOwnerKind(kind string) bool {
	return kind == persistence.OwnerReservation || kind == persistence.OwnerResource
}
