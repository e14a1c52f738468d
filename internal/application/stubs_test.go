package application

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

// storeStub is an in-memory repository that enforces the same commit-time
// constraints as the real backends.
type storeStub struct {
	mu           sync.Mutex
	resources    map[string]Resource
	reservations map[string]Reservation
	attributes   map[AttributeOwner]map[string]string

	statusWrites int
	createErr    error
	skipChecks   bool
}

func newStoreStub() *storeStub {
	return &storeStub{
		resources:    make(map[string]Resource),
		reservations: make(map[string]Reservation),
		attributes:   make(map[AttributeOwner]map[string]string),
	}
}

func (s *storeStub) addResource(resource Resource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if resource.Status == "" {
		resource.Status = ResourceStatusAvailable
	}
	s.resources[resource.ID] = resource
}

func (s *storeStub) addReservation(reservation Reservation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reservations[reservation.ID] = reservation
}

func (s *storeStub) resource(id string) Resource {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resources[id]
}

func (s *storeStub) reservation(id string) Reservation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reservations[id]
}

func (s *storeStub) CreateResource(ctx context.Context, resource Resource) (Resource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.resources[resource.ID]; ok {
		return Resource{}, persistence.ErrDuplicate
	}
	s.resources[resource.ID] = resource
	return resource, nil
}

func (s *storeStub) UpdateResource(ctx context.Context, resource Resource) (Resource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.resources[resource.ID]; !ok {
		return Resource{}, persistence.ErrNotFound
	}
	s.resources[resource.ID] = resource
	return resource, nil
}

func (s *storeStub) GetResource(ctx context.Context, id string) (Resource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	resource, ok := s.resources[id]
	if !ok {
		return Resource{}, persistence.ErrNotFound
	}
	return resource, nil
}

func (s *storeStub) ListResources(ctx context.Context, filter ResourceFilter) ([]Resource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Resource
	for _, resource := range s.resources {
		if filter.Kind != "" && resource.Kind != filter.Kind {
			continue
		}
		if filter.ActiveOnly && !resource.IsActive {
			continue
		}
		out = append(out, resource)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out, nil
}

func (s *storeStub) SetResourceStatus(ctx context.Context, id string, status ResourceStatus, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	resource, ok := s.resources[id]
	if !ok {
		return persistence.ErrNotFound
	}
	resource.Status = status
	resource.UpdatedAt = at
	s.resources[id] = resource
	s.statusWrites++
	return nil
}

func (s *storeStub) CreateReservation(ctx context.Context, reservation Reservation) (Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return Reservation{}, s.createErr
	}
	if _, ok := s.resources[reservation.ResourceID]; !ok {
		return Reservation{}, persistence.ErrForeignKeyViolation
	}
	if err := s.checkLocked(reservation); err != nil {
		return Reservation{}, err
	}
	s.reservations[reservation.ID] = reservation
	return reservation, nil
}

func (s *storeStub) UpdateReservation(ctx context.Context, reservation Reservation) (Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reservations[reservation.ID]; !ok {
		return Reservation{}, persistence.ErrNotFound
	}
	if err := s.checkLocked(reservation); err != nil {
		return Reservation{}, err
	}
	s.reservations[reservation.ID] = reservation
	return reservation, nil
}

func (s *storeStub) checkLocked(candidate Reservation) error {
	if s.skipChecks || candidate.Status != ReservationStatusActive {
		return nil
	}
	for _, other := range s.reservations {
		if other.ID == candidate.ID || other.Status != ReservationStatusActive {
			continue
		}
		if other.ResourceID == candidate.ResourceID && scheduler.Overlaps(other.Start, other.End, candidate.Start, candidate.End) {
			return persistence.ErrOverlap
		}
		if candidate.Kind == ResourceKindStation && other.Kind == ResourceKindStation && other.ActorID == candidate.ActorID {
			return persistence.ErrActiveClaimExists
		}
	}
	return nil
}

func (s *storeStub) GetReservation(ctx context.Context, id string) (Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	reservation, ok := s.reservations[id]
	if !ok {
		return Reservation{}, persistence.ErrNotFound
	}
	return reservation, nil
}

func (s *storeStub) ListReservations(ctx context.Context, filter ReservationFilter) ([]Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Reservation
	for _, r := range s.reservations {
		if filter.ResourceID != "" && r.ResourceID != filter.ResourceID {
			continue
		}
		if filter.ActorID != "" && r.ActorID != filter.ActorID {
			continue
		}
		if filter.Kind != "" && r.Kind != filter.Kind {
			continue
		}
		if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, r.Status) {
			continue
		}
		if filter.EndsAfter != nil && !r.End.After(*filter.EndsAfter) {
			continue
		}
		if filter.EndsAtOrBefore != nil && r.End.After(*filter.EndsAtOrBefore) {
			continue
		}
		if filter.AlertSent != nil && r.AlertSent != *filter.AlertSent {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Start.Equal(out[j].Start) {
			return out[i].ID < out[j].ID
		}
		return out[i].Start.Before(out[j].Start)
	})
	return out, nil
}

func (s *storeStub) TransitionReservation(ctx context.Context, id string, from, to ReservationStatus, at time.Time) error {
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
	s.reservations[id] = reservation
	return nil
}

func (s *storeStub) MarkAlertSent(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	reservation, ok := s.reservations[id]
	if !ok {
		return persistence.ErrNotFound
	}
	if reservation.AlertSent || reservation.Status != ReservationStatusActive {
		return persistence.ErrStaleState
	}
	reservation.AlertSent = true
	s.reservations[id] = reservation
	return nil
}

func (s *storeStub) CountActiveReservations(ctx context.Context, resourceID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, r := range s.reservations {
		if r.ResourceID == resourceID && r.Status == ReservationStatusActive {
			count++
		}
	}
	return count, nil
}

func (s *storeStub) SetAttributes(ctx context.Context, owner AttributeOwner, values map[string]string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current := s.attributes[owner]
	if current == nil {
		current = make(map[string]string)
	}
	for key, value := range values {
		if value == "" {
			delete(current, key)
			continue
		}
		current[key] = value
	}
	s.attributes[owner] = current
	return nil
}

func (s *storeStub) GetAttributes(ctx context.Context, owner AttributeOwner) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string)
	for key, value := range s.attributes[owner] {
		out[key] = value
	}
	return out, nil
}

type publisherStub struct {
	mu     sync.Mutex
	events []ReservationEvent
	err    error
}

func (p *publisherStub) Publish(ctx context.Context, event ReservationEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *publisherStub) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, event := range p.events {
		out = append(out, event.Type)
	}
	return out
}

type lockerStub struct {
	mu   sync.Mutex
	keys [][]string
	err  error
}

func (l *lockerStub) Lock(ctx context.Context, keys ...string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	l.keys = append(l.keys, append([]string(nil), keys...))
	return func() {}, nil
}

type metricsStub struct {
	mu           sync.Mutex
	created      []string
	rejected     []string
	transitioned []string
	alerted      int
	sweeps       int
}

func (m *metricsStub) ReservationCreated(kind string) {
	m.mu.Lock()
	m.created = append(m.created, kind)
	m.mu.Unlock()
}

func (m *metricsStub) ReservationRejected(kind, reason string) {
	m.mu.Lock()
	m.rejected = append(m.rejected, kind+":"+reason)
	m.mu.Unlock()
}

func (m *metricsStub) ReservationTransitioned(kind, status string) {
	m.mu.Lock()
	m.transitioned = append(m.transitioned, kind+":"+status)
	m.mu.Unlock()
}

func (m *metricsStub) ExpiringSoonAlerted(kind string) {
	m.mu.Lock()
	m.alerted++
	m.mu.Unlock()
}

func (m *metricsStub) SweepObserved(duration time.Duration, transitioned int) {
	m.mu.Lock()
	m.sweeps++
	m.mu.Unlock()
}

// clockStub is a settable time source.
type clockStub struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clockStub) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clockStub) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func sequentialIDs(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%03d", prefix, n)
	}
}
