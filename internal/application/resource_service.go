package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/campus-reservations/internal/persistence"
)

// ResourceService orchestrates validation, authorization, and persistence for
// the resource catalog.
type ResourceService struct {
	resources   ResourceRepository
	sweeper     *Sweeper
	projector   *StatusProjector
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewResourceService constructs a resource service with the provided dependencies.
func NewResourceService(resources ResourceRepository, sweeper *Sweeper, projector *StatusProjector, idGenerator func() string, now func() time.Time) *ResourceService {
	return NewResourceServiceWithLogger(resources, sweeper, projector, idGenerator, now, nil)
}

// NewResourceServiceWithLogger constructs a resource service with a specified logger.
func NewResourceServiceWithLogger(resources ResourceRepository, sweeper *Sweeper, projector *StatusProjector, idGenerator func() string, now func() time.Time, logger *slog.Logger) *ResourceService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &ResourceService{
		resources:   resources,
		sweeper:     sweeper,
		projector:   projector,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *ResourceService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ResourceService", operation, attrs...)
}

// CreateResource validates input and persists a new catalog entry for administrators.
func (s *ResourceService) CreateResource(ctx context.Context, params CreateResourceParams) (resource Resource, err error) {
	if s == nil {
		err = fmt.Errorf("ResourceService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CreateResource",
		"principal_id", params.Principal.UserID,
		"kind", params.Input.Kind,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create resource", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("resource_id", resource.ID).InfoContext(ctx, "resource created")
	}()

	if !params.Principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	vErr := &ValidationError{}
	if !params.Input.Kind.Valid() {
		vErr.add("kind", "kind must be room or station")
	}
	vErr.merge(validateResourceInput(params.Input))
	if vErr.HasErrors() {
		err = vErr
		return
	}

	isActive := true
	if params.Input.IsActive != nil {
		isActive = *params.Input.IsActive
	}

	id := strings.TrimSpace(params.Input.ID)
	if id == "" {
		id = s.idGenerator()
	}

	createdAt := s.now()
	resource = Resource{
		ID:        id,
		Kind:      params.Input.Kind,
		Label:     strings.TrimSpace(params.Input.Label),
		Location:  strings.TrimSpace(params.Input.Location),
		Capacity:  params.Input.Capacity,
		Status:    ProjectStatus(params.Input.Kind, isActive, 0),
		IsActive:  isActive,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}

	if s.resources == nil {
		return
	}

	resource, err = s.resources.CreateResource(ctx, resource)
	if err != nil {
		err = mapResourceRepoError(err)
		return
	}

	return
}

// UpdateResource changes label, location, capacity and activity of a resource
// for administrators. Deactivation projects out_of_service; reactivation
// re-projects from active reservations.
func (s *ResourceService) UpdateResource(ctx context.Context, params UpdateResourceParams) (resource Resource, err error) {
	if s == nil {
		err = fmt.Errorf("ResourceService is nil")
		return
	}
	if !params.Principal.IsAdmin {
		return Resource{}, ErrUnauthorized
	}
	if s.resources == nil {
		err = fmt.Errorf("resource repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateResource",
		"principal_id", params.Principal.UserID,
		"resource_id", params.ResourceID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update resource", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("status", resource.Status).InfoContext(ctx, "resource updated")
	}()

	var existing Resource
	existing, err = s.resources.GetResource(ctx, params.ResourceID)
	if err != nil {
		err = mapResourceRepoError(err)
		return
	}

	vErr := &ValidationError{}
	if params.Input.Kind != "" && params.Input.Kind != existing.Kind {
		vErr.add("kind", "kind cannot be changed")
	}
	vErr.merge(validateResourceInput(params.Input))
	if vErr.HasErrors() {
		err = vErr
		return
	}

	updated := existing
	updated.Label = strings.TrimSpace(params.Input.Label)
	updated.Location = strings.TrimSpace(params.Input.Location)
	updated.Capacity = params.Input.Capacity
	if params.Input.IsActive != nil {
		updated.IsActive = *params.Input.IsActive
	}
	updated.UpdatedAt = s.now()

	resource, err = s.resources.UpdateResource(ctx, updated)
	if err != nil {
		err = mapResourceRepoError(err)
		return
	}

	if s.projector != nil && updated.IsActive != existing.IsActive {
		var status ResourceStatus
		status, err = s.projector.Refresh(ctx, resource.ID)
		if err != nil {
			return
		}
		resource.Status = status
	}

	return
}

// GetResource returns a single resource after sweeping elapsed reservations.
func (s *ResourceService) GetResource(ctx context.Context, principal Principal, id string) (resource Resource, err error) {
	if s == nil {
		err = fmt.Errorf("ResourceService is nil")
		return
	}
	if s.resources == nil {
		err = ErrNotFound
		return
	}

	logger := s.loggerWith(ctx, "GetResource",
		"principal_id", principal.UserID,
		"resource_id", id,
	)
	defer func() {
		if err != nil && !errors.Is(err, ErrNotFound) {
			logger.ErrorContext(ctx, "failed to get resource", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	if _, err = s.sweeper.Sweep(ctx); err != nil {
		return
	}

	resource, err = s.resources.GetResource(ctx, id)
	if err != nil {
		err = mapResourceRepoError(err)
	}
	return
}

// ListResources returns the catalog ordered by label for any authenticated user.
func (s *ResourceService) ListResources(ctx context.Context, params ListResourcesParams) (resources []Resource, err error) {
	if s == nil {
		err = fmt.Errorf("ResourceService is nil")
		return
	}
	if s.resources == nil {
		return nil, nil
	}

	logger := s.loggerWith(ctx, "ListResources",
		"principal_id", params.Principal.UserID,
		"kind", params.Kind,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list resources", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(resources)).InfoContext(ctx, "resources listed")
	}()

	if _, err = s.sweeper.Sweep(ctx); err != nil {
		return
	}

	if params.Kind != "" && !params.Kind.Valid() {
		err = newValidationError("kind", "kind must be room or station")
		return
	}

	resources, err = s.resources.ListResources(ctx, ResourceFilter{Kind: params.Kind, ActiveOnly: params.ActiveOnly})
	return
}

func validateResourceInput(input ResourceInput) *ValidationError {
	vErr := &ValidationError{}

	if strings.TrimSpace(input.Label) == "" {
		vErr.add("label", "label is required")
	}
	if input.Capacity < 0 {
		vErr.add("capacity", "capacity cannot be negative")
	}

	return vErr
}

func mapResourceRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		return ErrAlreadyExists
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		return newValidationError("resource", "resource violates catalog constraints")
	}
	return err
}
