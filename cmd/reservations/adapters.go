package main

import (
	"context"
	"time"

	"github.com/example/campus-reservations/internal/application"
	"github.com/example/campus-reservations/internal/persistence"
)

type resourceRepositoryAdapter struct {
	repo persistence.ResourceRepository
}

func newResourceRepositoryAdapter(repo persistence.ResourceRepository) *resourceRepositoryAdapter {
	return &resourceRepositoryAdapter{repo: repo}
}

func (a *resourceRepositoryAdapter) CreateResource(ctx context.Context, resource application.Resource) (application.Resource, error) {
	if err := a.repo.CreateResource(ctx, toPersistenceResource(resource)); err != nil {
		return application.Resource{}, err
	}
	stored, err := a.repo.GetResource(ctx, resource.ID)
	if err != nil {
		return application.Resource{}, err
	}
	return toApplicationResource(stored), nil
}

func (a *resourceRepositoryAdapter) UpdateResource(ctx context.Context, resource application.Resource) (application.Resource, error) {
	if err := a.repo.UpdateResource(ctx, toPersistenceResource(resource)); err != nil {
		return application.Resource{}, err
	}
	stored, err := a.repo.GetResource(ctx, resource.ID)
	if err != nil {
		return application.Resource{}, err
	}
	return toApplicationResource(stored), nil
}

func (a *resourceRepositoryAdapter) GetResource(ctx context.Context, id string) (application.Resource, error) {
	stored, err := a.repo.GetResource(ctx, id)
	if err != nil {
		return application.Resource{}, err
	}
	return toApplicationResource(stored), nil
}

func (a *resourceRepositoryAdapter) ListResources(ctx context.Context, filter application.ResourceFilter) ([]application.Resource, error) {
	models, err := a.repo.ListResources(ctx, persistence.ResourceFilter{
		Kind:       string(filter.Kind),
		ActiveOnly: filter.ActiveOnly,
	})
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	resources := make([]application.Resource, 0, len(models))
	for _, model := range models {
		resources = append(resources, toApplicationResource(model))
	}
	return resources, nil
}

func (a *resourceRepositoryAdapter) SetResourceStatus(ctx context.Context, id string, status application.ResourceStatus, at time.Time) error {
	return a.repo.SetResourceStatus(ctx, id, string(status), at)
}

type reservationRepositoryAdapter struct {
	repo persistence.ReservationRepository
}

func newReservationRepositoryAdapter(repo persistence.ReservationRepository) *reservationRepositoryAdapter {
	return &reservationRepositoryAdapter{repo: repo}
}

func (a *reservationRepositoryAdapter) CreateReservation(ctx context.Context, reservation application.Reservation) (application.Reservation, error) {
	if err := a.repo.CreateReservation(ctx, toPersistenceReservation(reservation)); err != nil {
		return application.Reservation{}, err
	}
	stored, err := a.repo.GetReservation(ctx, reservation.ID)
	if err != nil {
		return application.Reservation{}, err
	}
	return toApplicationReservation(stored), nil
}

func (a *reservationRepositoryAdapter) UpdateReservation(ctx context.Context, reservation application.Reservation) (application.Reservation, error) {
	if err := a.repo.UpdateReservation(ctx, toPersistenceReservation(reservation)); err != nil {
		return application.Reservation{}, err
	}
	stored, err := a.repo.GetReservation(ctx, reservation.ID)
	if err != nil {
		return application.Reservation{}, err
	}
	return toApplicationReservation(stored), nil
}

func (a *reservationRepositoryAdapter) GetReservation(ctx context.Context, id string) (application.Reservation, error) {
	stored, err := a.repo.GetReservation(ctx, id)
	if err != nil {
		return application.Reservation{}, err
	}
	return toApplicationReservation(stored), nil
}

func (a *reservationRepositoryAdapter) ListReservations(ctx context.Context, filter application.ReservationFilter) ([]application.Reservation, error) {
	persistedFilter := persistence.ReservationFilter{
		ResourceID:     filter.ResourceID,
		ActorID:        filter.ActorID,
		Kind:           string(filter.Kind),
		EndsAfter:      filter.EndsAfter,
		EndsAtOrBefore: filter.EndsAtOrBefore,
		AlertSent:      filter.AlertSent,
	}
	for _, status := range filter.Statuses {
		persistedFilter.Statuses = append(persistedFilter.Statuses, string(status))
	}

	models, err := a.repo.ListReservations(ctx, persistedFilter)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	reservations := make([]application.Reservation, 0, len(models))
	for _, model := range models {
		reservations = append(reservations, toApplicationReservation(model))
	}
	return reservations, nil
}

func (a *reservationRepositoryAdapter) TransitionReservation(ctx context.Context, id string, from, to application.ReservationStatus, at time.Time) error {
	return a.repo.TransitionReservation(ctx, id, string(from), string(to), at)
}

func (a *reservationRepositoryAdapter) MarkAlertSent(ctx context.Context, id string, at time.Time) error {
	return a.repo.MarkAlertSent(ctx, id, at)
}

func (a *reservationRepositoryAdapter) CountActiveReservations(ctx context.Context, resourceID string) (int, error) {
	return a.repo.CountActiveReservations(ctx, resourceID)
}

type attributeStoreAdapter struct {
	repo persistence.AttributeRepository
}

func newAttributeStoreAdapter(repo persistence.AttributeRepository) *attributeStoreAdapter {
	return &attributeStoreAdapter{repo: repo}
}

func (a *attributeStoreAdapter) SetAttributes(ctx context.Context, owner application.AttributeOwner, values map[string]string, at time.Time) error {
	return a.repo.SetAttributes(ctx, toPersistenceOwner(owner), values, at)
}

func (a *attributeStoreAdapter) GetAttributes(ctx context.Context, owner application.AttributeOwner) (map[string]string, error) {
	return a.repo.GetAttributes(ctx, toPersistenceOwner(owner))
}

func toApplicationResource(model persistence.Resource) application.Resource {
	return application.Resource{
		ID:        model.ID,
		Kind:      application.ResourceKind(model.Kind),
		Label:     model.Label,
		Location:  model.Location,
		Capacity:  model.Capacity,
		Status:    application.ResourceStatus(model.Status),
		IsActive:  model.IsActive,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}

func toPersistenceResource(resource application.Resource) persistence.Resource {
	status := string(resource.Status)
	if status == "" {
		status = persistence.ResourceAvailable
	}
	return persistence.Resource{
		ID:        resource.ID,
		Kind:      string(resource.Kind),
		Label:     resource.Label,
		Location:  resource.Location,
		Capacity:  resource.Capacity,
		Status:    status,
		IsActive:  resource.IsActive,
		CreatedAt: resource.CreatedAt,
		UpdatedAt: resource.UpdatedAt,
	}
}

// Purpose and notes live in the attribute store and are not copied here.
func toApplicationReservation(model persistence.Reservation) application.Reservation {
	return application.Reservation{
		ID:         model.ID,
		ResourceID: model.ResourceID,
		ActorID:    model.ActorID,
		Kind:       application.ResourceKind(model.Kind),
		Start:      model.Start,
		End:        model.End,
		Status:     application.ReservationStatus(model.Status),
		AlertSent:  model.AlertSent,
		CreatedAt:  model.CreatedAt,
		UpdatedAt:  model.UpdatedAt,
	}
}

func toPersistenceReservation(reservation application.Reservation) persistence.Reservation {
	return persistence.Reservation{
		ID:         reservation.ID,
		ResourceID: reservation.ResourceID,
		ActorID:    reservation.ActorID,
		Kind:       string(reservation.Kind),
		Start:      reservation.Start,
		End:        reservation.End,
		Status:     string(reservation.Status),
		AlertSent:  reservation.AlertSent,
		CreatedAt:  reservation.CreatedAt,
		UpdatedAt:  reservation.UpdatedAt,
	}
}

func toPersistenceOwner(owner application.AttributeOwner) persistence.OwnerRef {
	kind := persistence.OwnerReservation
	if owner.Kind == application.AttributeOwnerResource {
		kind = persistence.OwnerResource
	}
	return persistence.OwnerRef{Kind: kind, ID: owner.ID}
}
