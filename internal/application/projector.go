package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// ProjectStatus derives a resource status from its activity flag and the
// number of active reservations referencing it.
func ProjectStatus(kind ResourceKind, isActive bool, activeReservations int) ResourceStatus {
	if !isActive {
		return ResourceStatusOutOfService
	}
	if activeReservations > 0 {
		if kind == ResourceKindStation {
			return ResourceStatusOccupied
		}
		return ResourceStatusReserved
	}
	return ResourceStatusAvailable
}

// StatusProjector keeps catalog status consistent with active reservations.
type StatusProjector struct {
	resources    ResourceRepository
	reservations ReservationRepository
	now          func() time.Time
	logger       *slog.Logger
}

// NewStatusProjector constructs a projector over the given repositories.
func NewStatusProjector(resources ResourceRepository, reservations ReservationRepository, now func() time.Time, logger *slog.Logger) *StatusProjector {
	if now == nil {
		now = time.Now
	}
	return &StatusProjector{
		resources:    resources,
		reservations: reservations,
		now:          now,
		logger:       defaultLogger(logger),
	}
}

// Refresh recomputes and stores the status of one resource. The store is only
// written when the status changes.
func (p *StatusProjector) Refresh(ctx context.Context, resourceID string) (ResourceStatus, error) {
	resource, err := p.resources.GetResource(ctx, resourceID)
	if err != nil {
		return "", mapResourceRepoError(err)
	}
	return p.refresh(ctx, resource)
}

// ReconcileAll refreshes every resource in the catalog and returns the number
// of resources whose status changed.
func (p *StatusProjector) ReconcileAll(ctx context.Context) (changed int, err error) {
	logger := serviceLogger(ctx, p.logger, "StatusProjector", "ReconcileAll")

	resources, err := p.resources.ListResources(ctx, ResourceFilter{})
	if err != nil {
		return 0, fmt.Errorf("list resources: %w", err)
	}

	for _, resource := range resources {
		status, err := p.refresh(ctx, resource)
		if err != nil {
			return changed, err
		}
		if status != resource.Status {
			changed++
		}
	}

	logger.InfoContext(ctx, "resource statuses reconciled", "resource_count", len(resources), "changed_count", changed)
	return changed, nil
}

func (p *StatusProjector) refresh(ctx context.Context, resource Resource) (ResourceStatus, error) {
	count, err := p.reservations.CountActiveReservations(ctx, resource.ID)
	if err != nil {
		return "", fmt.Errorf("count active reservations for %s: %w", resource.ID, err)
	}

	status := ProjectStatus(resource.Kind, resource.IsActive, count)
	if status == resource.Status {
		return status, nil
	}

	if err := p.resources.SetResourceStatus(ctx, resource.ID, status, p.now()); err != nil {
		return "", fmt.Errorf("set status of %s: %w", resource.ID, mapResourceRepoError(err))
	}

	serviceLogger(ctx, p.logger, "StatusProjector", "Refresh",
		"resource_id", resource.ID,
		"from_status", resource.Status,
		"to_status", status,
	).DebugContext(ctx, "resource status projected")
	return status, nil
}
