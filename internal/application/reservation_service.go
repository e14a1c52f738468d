package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/example/campus-reservations/internal/persistence"
	"github.com/example/campus-reservations/internal/scheduler"
)

// Default policy values.
const (
	DefaultMaxStationDuration = 4 * time.Hour
	DefaultExpiringSoonWindow = 15 * time.Minute
)

// Attribute keys for reservation metadata.
const (
	attributePurpose = "purpose"
	attributeNotes   = "notes"
)

// ReservationServiceDeps captures dependencies for constructing a reservation
// service. Only the repositories are required.
type ReservationServiceDeps struct {
	Resources          ResourceRepository
	Reservations       ReservationRepository
	Attributes         AttributeStore
	Sweeper            *Sweeper
	Projector          *StatusProjector
	Locker             Locker
	Events             EventPublisher
	Metrics            Metrics
	IDGenerator        func() string
	Now                func() time.Time
	Logger             *slog.Logger
	MaxStationDuration time.Duration
	ExpiringSoonWindow time.Duration
}

// ReservationService implements the reservation lifecycle for rooms and
// stations.
type ReservationService struct {
	resources          ResourceRepository
	reservations       ReservationRepository
	attributes         AttributeStore
	sweeper            *Sweeper
	projector          *StatusProjector
	locker             Locker
	events             EventPublisher
	metrics            Metrics
	idGenerator        func() string
	now                func() time.Time
	logger             *slog.Logger
	maxStationDuration time.Duration
	expiringSoonWindow time.Duration
}

// NewReservationService wires dependencies for reservation operations.
func NewReservationService(deps ReservationServiceDeps) *ReservationService {
	s := &ReservationService{
		resources:          deps.Resources,
		reservations:       deps.Reservations,
		attributes:         deps.Attributes,
		sweeper:            deps.Sweeper,
		projector:          deps.Projector,
		locker:             deps.Locker,
		events:             deps.Events,
		metrics:            deps.Metrics,
		idGenerator:        deps.IDGenerator,
		now:                deps.Now,
		logger:             defaultLogger(deps.Logger),
		maxStationDuration: deps.MaxStationDuration,
		expiringSoonWindow: deps.ExpiringSoonWindow,
	}
	if s.idGenerator == nil {
		s.idGenerator = func() string { return "" }
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.locker == nil {
		s.locker = noopLocker{}
	}
	if s.events == nil {
		s.events = noopPublisher{}
	}
	if s.metrics == nil {
		s.metrics = noopMetrics{}
	}
	if s.maxStationDuration <= 0 {
		s.maxStationDuration = DefaultMaxStationDuration
	}
	if s.expiringSoonWindow <= 0 {
		s.expiringSoonWindow = DefaultExpiringSoonWindow
	}
	if s.projector == nil {
		s.projector = NewStatusProjector(s.resources, s.reservations, s.now, s.logger)
	}
	if s.sweeper == nil {
		s.sweeper = NewSweeper(s.reservations, s.projector, s.events, s.metrics, s.now, s.logger)
	}
	return s
}

func (s *ReservationService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ReservationService", operation, attrs...)
}

// kindLabel bounds the metric label set to the known kinds.
func kindLabel(kind ResourceKind) string {
	if !kind.Valid() {
		return "unknown"
	}
	return string(kind)
}

// CreateReservation validates the request in a fixed order, first failure
// wins, then persists an active reservation.
func (s *ReservationService) CreateReservation(ctx context.Context, params CreateReservationParams) (reservation Reservation, err error) {
	if s == nil {
		err = fmt.Errorf("ReservationService is nil")
		return
	}
	if s.reservations == nil || s.resources == nil {
		err = fmt.Errorf("reservation repositories not configured")
		return
	}

	principal := params.Principal
	input := params.Input
	if input.ActorID == "" {
		input.ActorID = principal.UserID
	}

	logger := s.loggerWith(ctx, "CreateReservation",
		"principal_id", principal.UserID,
		"actor_id", input.ActorID,
		"resource_id", input.ResourceID,
		"kind", input.Kind,
	)
	defer func() {
		if err != nil {
			s.metrics.ReservationRejected(kindLabel(input.Kind), ErrorKind(err))
			logger.ErrorContext(ctx, "failed to create reservation", "error", err, "error_kind", ErrorKind(err))
			return
		}
		s.metrics.ReservationCreated(string(reservation.Kind))
		logger.With("reservation_id", reservation.ID).InfoContext(ctx, "reservation created")
	}()

	if _, err = s.sweeper.Sweep(ctx); err != nil {
		return
	}

	if input.ActorID != principal.UserID && !principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	now := s.now()
	if vErr := s.validateCreate(input, now); vErr.HasErrors() {
		err = vErr
		return
	}

	keys := []string{resourceLockKey(input.ResourceID)}
	if input.Kind == ResourceKindStation {
		keys = append(keys, actorLockKey(input.ActorID))
	}
	var unlock func()
	unlock, err = s.locker.Lock(ctx, keys...)
	if err != nil {
		err = fmt.Errorf("acquire reservation lock: %w", err)
		return
	}
	defer unlock()

	if input.Kind == ResourceKindStation {
		var claim *Reservation
		claim, err = s.activeStationClaim(ctx, input.ActorID, now)
		if err != nil {
			return
		}
		if claim != nil {
			err = s.duplicateClaimError(ctx, *claim)
			return
		}
	}

	if _, err = s.availableResource(ctx, input.ResourceID, input.Kind); err != nil {
		return
	}

	var conflicts []ReservationConflict
	conflicts, err = s.detectConflicts(ctx, input.ResourceID, input.Start, input.End, "")
	if err != nil {
		return
	}
	if len(conflicts) > 0 {
		err = &ConflictError{ResourceID: input.ResourceID, Start: input.Start, End: input.End, Conflicts: conflicts}
		return
	}

	candidate := Reservation{
		ID:         s.idGenerator(),
		ResourceID: input.ResourceID,
		ActorID:    input.ActorID,
		Kind:       input.Kind,
		Start:      input.Start,
		End:        input.End,
		Status:     ReservationStatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	reservation, err = s.reservations.CreateReservation(ctx, candidate)
	if err != nil {
		err = s.mapWriteError(ctx, err, candidate)
		return
	}

	reservation.Purpose = strings.TrimSpace(input.Purpose)
	reservation.Notes = strings.TrimSpace(input.Notes)
	s.writeMetadata(ctx, logger, reservation.ID, map[string]string{
		attributePurpose: reservation.Purpose,
		attributeNotes:   reservation.Notes,
	}, now)

	s.refreshStatus(ctx, logger, reservation.ResourceID)
	publishEvent(ctx, s.events, logger, ReservationEvent{Type: EventReservationCreated, Reservation: reservation, OccurredAt: now})
	return
}

// CancelReservation moves an active reservation to cancelled for its owner or
// an administrator.
func (s *ReservationService) CancelReservation(ctx context.Context, params CancelReservationParams) (reservation Reservation, err error) {
	if s == nil {
		err = fmt.Errorf("ReservationService is nil")
		return
	}
	if s.reservations == nil {
		err = fmt.Errorf("reservation repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "CancelReservation",
		"principal_id", params.Principal.UserID,
		"reservation_id", params.ReservationID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to cancel reservation", "error", err, "error_kind", ErrorKind(err))
			return
		}
		s.metrics.ReservationTransitioned(string(reservation.Kind), string(reservation.Status))
		logger.InfoContext(ctx, "reservation cancelled")
	}()

	if _, err = s.sweeper.Sweep(ctx); err != nil {
		return
	}

	reservation, err = s.reservations.GetReservation(ctx, params.ReservationID)
	if err != nil {
		err = mapReservationRepoError(err)
		return
	}

	if reservation.ActorID != params.Principal.UserID && !params.Principal.IsAdmin {
		err = ErrUnauthorized
		return
	}
	if reservation.Status != ReservationStatusActive {
		err = newValidationError("status", "only active reservations can be cancelled")
		return
	}

	now := s.now()
	if err = s.reservations.TransitionReservation(ctx, reservation.ID, ReservationStatusActive, ReservationStatusCancelled, now); err != nil {
		if errors.Is(err, persistence.ErrStaleState) {
			err = newValidationError("status", "only active reservations can be cancelled")
			return
		}
		err = mapReservationRepoError(err)
		return
	}

	reservation.Status = ReservationStatusCancelled
	reservation.UpdatedAt = now
	s.loadMetadata(ctx, logger, &reservation)

	s.refreshStatus(ctx, logger, reservation.ResourceID)
	publishEvent(ctx, s.events, logger, ReservationEvent{Type: EventReservationCancelled, Reservation: reservation, OccurredAt: now})
	return
}

// UpdateReservation changes the resource, window or metadata of an active
// room reservation. The single-claim rule is not re-checked.
func (s *ReservationService) UpdateReservation(ctx context.Context, params UpdateReservationParams) (reservation Reservation, err error) {
	if s == nil {
		err = fmt.Errorf("ReservationService is nil")
		return
	}
	if s.reservations == nil || s.resources == nil {
		err = fmt.Errorf("reservation repositories not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateReservation",
		"principal_id", params.Principal.UserID,
		"reservation_id", params.ReservationID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update reservation", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("resource_id", reservation.ResourceID).InfoContext(ctx, "reservation updated")
	}()

	if _, err = s.sweeper.Sweep(ctx); err != nil {
		return
	}

	var existing Reservation
	existing, err = s.reservations.GetReservation(ctx, params.ReservationID)
	if err != nil {
		err = mapReservationRepoError(err)
		return
	}

	if existing.ActorID != params.Principal.UserID && !params.Principal.IsAdmin {
		err = ErrUnauthorized
		return
	}
	if existing.Kind != ResourceKindRoom {
		err = newValidationError("kind", "only room reservations can be updated")
		return
	}
	if existing.Status != ReservationStatusActive {
		err = newValidationError("status", "only active reservations can be updated")
		return
	}

	patch := params.Patch
	updated := existing
	if patch.ResourceID != nil {
		updated.ResourceID = strings.TrimSpace(*patch.ResourceID)
	}
	if patch.Start != nil {
		updated.Start = *patch.Start
	}
	if patch.End != nil {
		updated.End = *patch.End
	}

	now := s.now()
	if updated.ResourceID == "" {
		err = newValidationError("resource_id", "resource is required")
		return
	}
	if !updated.End.After(updated.Start) {
		err = newValidationError("end", "end before start")
		return
	}
	windowChanged := !updated.Start.Equal(existing.Start) || !updated.End.Equal(existing.End)
	if windowChanged && updated.Start.Before(now) {
		err = newValidationError("start", "cannot reserve in the past")
		return
	}

	keys := []string{resourceLockKey(updated.ResourceID)}
	if updated.ResourceID != existing.ResourceID {
		keys = append(keys, resourceLockKey(existing.ResourceID))
	}
	var unlock func()
	unlock, err = s.locker.Lock(ctx, keys...)
	if err != nil {
		err = fmt.Errorf("acquire reservation lock: %w", err)
		return
	}
	defer unlock()

	if _, err = s.availableResource(ctx, updated.ResourceID, existing.Kind); err != nil {
		return
	}

	var conflicts []ReservationConflict
	conflicts, err = s.detectConflicts(ctx, updated.ResourceID, updated.Start, updated.End, existing.ID)
	if err != nil {
		return
	}
	if len(conflicts) > 0 {
		err = &ConflictError{ResourceID: updated.ResourceID, Start: updated.Start, End: updated.End, Conflicts: conflicts}
		return
	}

	updated.UpdatedAt = now
	reservation, err = s.reservations.UpdateReservation(ctx, updated)
	if err != nil {
		err = s.mapWriteError(ctx, err, updated)
		return
	}

	metadata := make(map[string]string)
	if patch.Purpose != nil {
		metadata[attributePurpose] = strings.TrimSpace(*patch.Purpose)
	}
	if patch.Notes != nil {
		metadata[attributeNotes] = strings.TrimSpace(*patch.Notes)
	}
	s.writeMetadata(ctx, logger, reservation.ID, metadata, now)
	s.loadMetadata(ctx, logger, &reservation)

	if existing.ResourceID != reservation.ResourceID {
		s.refreshStatus(ctx, logger, existing.ResourceID)
	}
	s.refreshStatus(ctx, logger, reservation.ResourceID)
	publishEvent(ctx, s.events, logger, ReservationEvent{Type: EventReservationUpdated, Reservation: reservation, OccurredAt: now})
	return
}

// GetReservation returns a single reservation with its metadata.
func (s *ReservationService) GetReservation(ctx context.Context, principal Principal, id string) (reservation Reservation, err error) {
	if s == nil {
		err = fmt.Errorf("ReservationService is nil")
		return
	}
	if s.reservations == nil {
		err = ErrNotFound
		return
	}

	logger := s.loggerWith(ctx, "GetReservation",
		"principal_id", principal.UserID,
		"reservation_id", id,
	)
	defer func() {
		if err != nil && !errors.Is(err, ErrNotFound) {
			logger.ErrorContext(ctx, "failed to get reservation", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	if _, err = s.sweeper.Sweep(ctx); err != nil {
		return
	}

	reservation, err = s.reservations.GetReservation(ctx, id)
	if err != nil {
		err = mapReservationRepoError(err)
		return
	}
	s.loadMetadata(ctx, logger, &reservation)
	return
}

// ListReservations returns reservations matching the filters ordered by start
// time for any authenticated user.
func (s *ReservationService) ListReservations(ctx context.Context, params ListReservationsParams) (reservations []Reservation, err error) {
	if s == nil {
		err = fmt.Errorf("ReservationService is nil")
		return
	}
	if s.reservations == nil {
		return nil, nil
	}

	logger := s.loggerWith(ctx, "ListReservations",
		"principal_id", params.Principal.UserID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list reservations", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(reservations)).InfoContext(ctx, "reservations listed")
	}()

	if _, err = s.sweeper.Sweep(ctx); err != nil {
		return
	}

	vErr := &ValidationError{}
	if params.Status != "" && !params.Status.Valid() {
		vErr.add("status", "unknown reservation status")
	}
	if params.Kind != "" && !params.Kind.Valid() {
		vErr.add("kind", "kind must be room or station")
	}
	if params.Mine && params.ActorID != "" && params.ActorID != params.Principal.UserID {
		vErr.add("actor_id", "actor filter conflicts with mine")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	filter := ReservationFilter{
		ResourceID: params.ResourceID,
		ActorID:    params.ActorID,
		Kind:       params.Kind,
	}
	if params.Mine {
		filter.ActorID = params.Principal.UserID
	}
	if params.Status != "" {
		filter.Statuses = []ReservationStatus{params.Status}
	}

	reservations, err = s.reservations.ListReservations(ctx, filter)
	if err != nil {
		return
	}
	for i := range reservations {
		s.loadMetadata(ctx, logger, &reservations[i])
	}
	return
}

// CheckAvailability reports whether a window on a resource is free.
func (s *ReservationService) CheckAvailability(ctx context.Context, params AvailabilityParams) (availability Availability, err error) {
	if s == nil {
		err = fmt.Errorf("ReservationService is nil")
		return
	}
	if s.reservations == nil || s.resources == nil {
		err = fmt.Errorf("reservation repositories not configured")
		return
	}

	logger := s.loggerWith(ctx, "CheckAvailability",
		"principal_id", params.Principal.UserID,
		"resource_id", params.ResourceID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to check availability", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("available", availability.Available).DebugContext(ctx, "availability checked")
	}()

	if _, err = s.sweeper.Sweep(ctx); err != nil {
		return
	}

	vErr := &ValidationError{}
	if strings.TrimSpace(params.ResourceID) == "" {
		vErr.add("resource_id", "resource is required")
	}
	if params.Start.IsZero() {
		vErr.add("start", "start is required")
	}
	if params.End.IsZero() {
		vErr.add("end", "end is required")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}
	if !params.End.After(params.Start) {
		err = newValidationError("end", "end before start")
		return
	}

	if _, err = s.resources.GetResource(ctx, params.ResourceID); err != nil {
		err = mapResourceRepoError(err)
		return
	}

	var conflicts []ReservationConflict
	conflicts, err = s.detectConflicts(ctx, params.ResourceID, params.Start, params.End, "")
	if err != nil {
		return
	}

	availability = Availability{
		ResourceID: params.ResourceID,
		Start:      params.Start,
		End:        params.End,
		Available:  len(conflicts) == 0,
		Conflicts:  conflicts,
	}
	return
}

// CheckExpiringSoon returns the actor's active station reservation that ends
// within the horizon and has not been alerted yet, marking it alerted. Each
// reservation is returned at most once; nil means nothing to report.
func (s *ReservationService) CheckExpiringSoon(ctx context.Context, params ExpiringSoonParams) (reservation *Reservation, err error) {
	if s == nil {
		err = fmt.Errorf("ReservationService is nil")
		return
	}
	if s.reservations == nil {
		return nil, nil
	}

	actorID := params.ActorID
	if actorID == "" {
		actorID = params.Principal.UserID
	}

	logger := s.loggerWith(ctx, "CheckExpiringSoon",
		"principal_id", params.Principal.UserID,
		"actor_id", actorID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to check expiring reservations", "error", err, "error_kind", ErrorKind(err))
			return
		}
		if reservation != nil {
			s.metrics.ExpiringSoonAlerted(string(reservation.Kind))
			logger.With("reservation_id", reservation.ID).InfoContext(ctx, "reservation expiring soon")
		}
	}()

	if _, err = s.sweeper.Sweep(ctx); err != nil {
		return
	}

	if actorID != params.Principal.UserID && !params.Principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	within := params.Within
	if within < 0 {
		err = newValidationError("within", "horizon cannot be negative")
		return
	}
	if within == 0 {
		within = s.expiringSoonWindow
	}

	now := s.now()
	horizon := now.Add(within)
	alertSent := false

	var candidates []Reservation
	candidates, err = s.reservations.ListReservations(ctx, ReservationFilter{
		ActorID:        actorID,
		Kind:           ResourceKindStation,
		Statuses:       []ReservationStatus{ReservationStatusActive},
		EndsAfter:      &now,
		EndsAtOrBefore: &horizon,
		AlertSent:      &alertSent,
	})
	if err != nil || len(candidates) == 0 {
		return
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].End.Equal(candidates[j].End) {
			return candidates[i].ID < candidates[j].ID
		}
		return candidates[i].End.Before(candidates[j].End)
	})
	found := candidates[0]

	if err = s.reservations.MarkAlertSent(ctx, found.ID, now); err != nil {
		if errors.Is(err, persistence.ErrStaleState) {
			err = nil
			return
		}
		err = mapReservationRepoError(err)
		return
	}

	found.AlertSent = true
	found.UpdatedAt = now
	s.loadMetadata(ctx, logger, &found)
	publishEvent(ctx, s.events, logger, ReservationEvent{Type: EventReservationExpiringSoon, Reservation: found, OccurredAt: now})

	reservation = &found
	return
}

// validateCreate runs the request-only checks. Missing fields are reported
// together; the ordering, past and duration checks stop at the first failure.
func (s *ReservationService) validateCreate(input ReservationInput, now time.Time) *ValidationError {
	vErr := &ValidationError{}

	if input.Kind == "" {
		vErr.add("kind", "kind is required")
	} else if !input.Kind.Valid() {
		vErr.add("kind", "kind must be room or station")
	}
	if strings.TrimSpace(input.ResourceID) == "" {
		vErr.add("resource_id", "resource is required")
	}
	if strings.TrimSpace(input.ActorID) == "" {
		vErr.add("actor_id", "actor is required")
	}
	if input.Start.IsZero() {
		vErr.add("start", "start is required")
	}
	if input.End.IsZero() {
		vErr.add("end", "end is required")
	}
	if vErr.HasErrors() {
		return vErr
	}

	if !input.End.After(input.Start) {
		return newValidationError("end", "end before start")
	}
	if input.Start.Before(now) {
		return newValidationError("start", "cannot reserve in the past")
	}
	if input.Kind == ResourceKindStation && input.End.Sub(input.Start) > s.maxStationDuration {
		return newValidationError("end", "duration exceeds cap")
	}

	return vErr
}

// availableResource loads the resource and checks it is active and of the
// requested kind.
func (s *ReservationService) availableResource(ctx context.Context, id string, kind ResourceKind) (Resource, error) {
	resource, err := s.resources.GetResource(ctx, id)
	if err != nil {
		return Resource{}, mapResourceRepoError(err)
	}
	if !resource.IsActive || resource.Kind != kind {
		return Resource{}, newValidationError("resource_id", "resource unavailable")
	}
	return resource, nil
}

func (s *ReservationService) activeStationClaim(ctx context.Context, actorID string, now time.Time) (*Reservation, error) {
	claims, err := s.reservations.ListReservations(ctx, ReservationFilter{
		ActorID:   actorID,
		Kind:      ResourceKindStation,
		Statuses:  []ReservationStatus{ReservationStatusActive},
		EndsAfter: &now,
	})
	if err != nil {
		return nil, fmt.Errorf("list active claims: %w", err)
	}
	if len(claims) == 0 {
		return nil, nil
	}
	return &claims[0], nil
}

func (s *ReservationService) duplicateClaimError(ctx context.Context, claim Reservation) error {
	dupErr := &DuplicateActiveReservationError{
		ActorID:       claim.ActorID,
		ReservationID: claim.ID,
		ResourceID:    claim.ResourceID,
		End:           claim.End,
	}
	if resource, err := s.resources.GetResource(ctx, claim.ResourceID); err == nil {
		dupErr.ResourceLabel = resource.Label
	}
	return dupErr
}

func (s *ReservationService) detectConflicts(ctx context.Context, resourceID string, start, end time.Time, excludeID string) ([]ReservationConflict, error) {
	active, err := s.reservations.ListReservations(ctx, ReservationFilter{
		ResourceID: resourceID,
		Statuses:   []ReservationStatus{ReservationStatusActive},
	})
	if err != nil {
		return nil, fmt.Errorf("list active reservations: %w", err)
	}

	windows := make([]scheduler.Window, 0, len(active))
	for _, reservation := range active {
		windows = append(windows, scheduler.Window{
			ID:         reservation.ID,
			ResourceID: reservation.ResourceID,
			Start:      reservation.Start,
			End:        reservation.End,
		})
	}

	found := scheduler.DetectConflicts(windows, scheduler.Window{ResourceID: resourceID, Start: start, End: end}, excludeID)
	if len(found) == 0 {
		return nil, nil
	}

	conflicts := make([]ReservationConflict, 0, len(found))
	for _, conflict := range found {
		conflicts = append(conflicts, ReservationConflict{
			ReservationID: conflict.WithReservationID,
			ResourceID:    conflict.ResourceID,
			Start:         conflict.Start,
			End:           conflict.End,
		})
	}
	return conflicts, nil
}

// mapWriteError translates commit-time constraint violations into the same
// errors the pre-checks produce.
func (s *ReservationService) mapWriteError(ctx context.Context, err error, candidate Reservation) error {
	switch {
	case errors.Is(err, persistence.ErrOverlap):
		conflictErr := &ConflictError{
			ResourceID:      candidate.ResourceID,
			Start:           candidate.Start,
			End:             candidate.End,
			StorageConflict: true,
		}
		if conflicts, cErr := s.detectConflicts(ctx, candidate.ResourceID, candidate.Start, candidate.End, candidate.ID); cErr == nil {
			conflictErr.Conflicts = conflicts
		}
		return conflictErr
	case errors.Is(err, persistence.ErrActiveClaimExists):
		claim, cErr := s.activeStationClaim(ctx, candidate.ActorID, s.now())
		if cErr == nil && claim != nil {
			return s.duplicateClaimError(ctx, *claim)
		}
		return &DuplicateActiveReservationError{ActorID: candidate.ActorID}
	case errors.Is(err, persistence.ErrForeignKeyViolation):
		return ErrNotFound
	}
	return mapReservationRepoError(err)
}

func (s *ReservationService) writeMetadata(ctx context.Context, logger *slog.Logger, reservationID string, values map[string]string, at time.Time) {
	if s.attributes == nil || len(values) == 0 {
		return
	}
	owner := AttributeOwner{Kind: AttributeOwnerReservation, ID: reservationID}
	if err := s.attributes.SetAttributes(ctx, owner, values, at); err != nil {
		logger.WarnContext(ctx, "failed to store reservation metadata", "reservation_id", reservationID, "error", err)
	}
}

func (s *ReservationService) loadMetadata(ctx context.Context, logger *slog.Logger, reservation *Reservation) {
	if s.attributes == nil {
		return
	}
	owner := AttributeOwner{Kind: AttributeOwnerReservation, ID: reservation.ID}
	values, err := s.attributes.GetAttributes(ctx, owner)
	if err != nil {
		logger.WarnContext(ctx, "failed to load reservation metadata", "reservation_id", reservation.ID, "error", err)
		return
	}
	reservation.Purpose = values[attributePurpose]
	reservation.Notes = values[attributeNotes]
}

func (s *ReservationService) refreshStatus(ctx context.Context, logger *slog.Logger, resourceID string) {
	if _, err := s.projector.Refresh(ctx, resourceID); err != nil {
		logger.WarnContext(ctx, "failed to refresh resource status", "resource_id", resourceID, "error", err)
	}
}

func mapReservationRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		return ErrAlreadyExists
	}
	if errors.Is(err, persistence.ErrStaleState) {
		return newValidationError("status", "reservation is no longer active")
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		return newValidationError("reservation", "reservation violates storage constraints")
	}
	return err
}
