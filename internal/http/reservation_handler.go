package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/example/campus-reservations/internal/application"
)

type reservationService interface {
	CreateReservation(ctx context.Context, params application.CreateReservationParams) (application.Reservation, error)
	UpdateReservation(ctx context.Context, params application.UpdateReservationParams) (application.Reservation, error)
	CancelReservation(ctx context.Context, params application.CancelReservationParams) (application.Reservation, error)
	GetReservation(ctx context.Context, principal application.Principal, id string) (application.Reservation, error)
	ListReservations(ctx context.Context, params application.ListReservationsParams) ([]application.Reservation, error)
	CheckAvailability(ctx context.Context, params application.AvailabilityParams) (application.Availability, error)
	CheckExpiringSoon(ctx context.Context, params application.ExpiringSoonParams) (*application.Reservation, error)
}

// ReservationHandler serves the reservation lifecycle endpoints.
type ReservationHandler struct {
	service   reservationService
	responder responder
	logger    *slog.Logger
}

func NewReservationHandler(service reservationService, logger *slog.Logger) *ReservationHandler {
	base := defaultLogger(logger)
	return &ReservationHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *ReservationHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "ReservationHandler", operation, attrs...)
}

func (h *ReservationHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	var req createReservationRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode reservation request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create", "principal_id", principal.UserID, "resource_id", req.ResourceID)
	reservation, err := h.service.CreateReservation(r.Context(), application.CreateReservationParams{
		Principal: principal,
		Input:     req.toInput(),
	})
	if err != nil {
		logger.WarnContext(r.Context(), "reservation rejected", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("reservation_id", reservation.ID).InfoContext(r.Context(), "reservation created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, reservationResponse{Reservation: toReservationDTO(reservation)})
}

func (h *ReservationHandler) Update(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	reservationID := r.PathValue("id")

	var req updateReservationRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "Update", "reservation_id", reservationID, "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode reservation update", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Update", "principal_id", principal.UserID, "reservation_id", reservationID)
	reservation, err := h.service.UpdateReservation(r.Context(), application.UpdateReservationParams{
		Principal:     principal,
		ReservationID: reservationID,
		Patch:         req.toPatch(),
	})
	if err != nil {
		logger.WarnContext(r.Context(), "reservation update rejected", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "reservation updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, reservationResponse{Reservation: toReservationDTO(reservation)})
}

func (h *ReservationHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	reservationID := r.PathValue("id")
	logger := h.log(r.Context(), "Cancel", "principal_id", principal.UserID, "reservation_id", reservationID)

	reservation, err := h.service.CancelReservation(r.Context(), application.CancelReservationParams{
		Principal:     principal,
		ReservationID: reservationID,
	})
	if err != nil {
		logger.WarnContext(r.Context(), "reservation cancel rejected", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "reservation cancelled")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, reservationResponse{Reservation: toReservationDTO(reservation)})
}

func (h *ReservationHandler) Get(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	reservation, err := h.service.GetReservation(r.Context(), principal, r.PathValue("id"))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, reservationResponse{Reservation: toReservationDTO(reservation)})
}

func (h *ReservationHandler) List(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	query := r.URL.Query()

	mine := false
	if value := query.Get("mine"); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidQuery)
			return
		}
		mine = parsed
	}

	reservations, err := h.service.ListReservations(r.Context(), application.ListReservationsParams{
		Principal:  principal,
		ResourceID: strings.TrimSpace(query.Get("resource_id")),
		ActorID:    strings.TrimSpace(query.Get("actor_id")),
		Status:     application.ReservationStatus(strings.TrimSpace(query.Get("status"))),
		Kind:       application.ResourceKind(strings.TrimSpace(query.Get("kind"))),
		Mine:       mine,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listReservationsResponse{Reservations: toReservationDTOs(reservations)})
}

// Availability answers whether a window on the resource is free.
func (h *ReservationHandler) Availability(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	query := r.URL.Query()

	start, startErr := parseTimeParam(query.Get("start"))
	end, endErr := parseTimeParam(query.Get("end"))
	if startErr != nil || endErr != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidQuery)
		return
	}

	availability, err := h.service.CheckAvailability(r.Context(), application.AvailabilityParams{
		Principal:  principal,
		ResourceID: r.PathValue("id"),
		Start:      start,
		End:        end,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, availabilityResponse{
		ResourceID: availability.ResourceID,
		Start:      formatTime(availability.Start),
		End:        formatTime(availability.End),
		Available:  availability.Available,
		Conflicts:  toConflictDTOs(availability.Conflicts),
	})
}

// ExpiringSoon reports the caller's station claim that is about to end.
func (h *ReservationHandler) ExpiringSoon(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	query := r.URL.Query()

	var within time.Duration
	if value := query.Get("within"); value != "" {
		parsed, err := time.ParseDuration(value)
		if err != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidQuery)
			return
		}
		within = parsed
	}

	actorID := strings.TrimSpace(query.Get("actor_id"))
	if actorID == "" {
		actorID = principal.UserID
	}

	reservation, err := h.service.CheckExpiringSoon(r.Context(), application.ExpiringSoonParams{
		Principal: principal,
		ActorID:   actorID,
		Within:    within,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	response := expiringSoonResponse{}
	if reservation != nil {
		dto := toReservationDTO(*reservation)
		response.Reservation = &dto
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, response)
}

type createReservationRequest struct {
	ResourceID string    `json:"resource_id"`
	ActorID    string    `json:"actor_id"`
	Kind       string    `json:"kind"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	Purpose    string    `json:"purpose"`
	Notes      string    `json:"notes"`
}

func (r createReservationRequest) toInput() application.ReservationInput {
	return application.ReservationInput{
		ResourceID: strings.TrimSpace(r.ResourceID),
		ActorID:    strings.TrimSpace(r.ActorID),
		Kind:       application.ResourceKind(strings.TrimSpace(r.Kind)),
		Start:      r.Start,
		End:        r.End,
		Purpose:    strings.TrimSpace(r.Purpose),
		Notes:      strings.TrimSpace(r.Notes),
	}
}

type updateReservationRequest struct {
	ResourceID *string    `json:"resource_id"`
	Start      *time.Time `json:"start"`
	End        *time.Time `json:"end"`
	Purpose    *string    `json:"purpose"`
	Notes      *string    `json:"notes"`
}

func (r updateReservationRequest) toPatch() application.ReservationPatch {
	return application.ReservationPatch{
		ResourceID: r.ResourceID,
		Start:      r.Start,
		End:        r.End,
		Purpose:    r.Purpose,
		Notes:      r.Notes,
	}
}

type reservationResponse struct {
	Reservation reservationDTO `json:"reservation"`
}

type listReservationsResponse struct {
	Reservations []reservationDTO `json:"reservations"`
}

type expiringSoonResponse struct {
	Reservation *reservationDTO `json:"reservation"`
}

type availabilityResponse struct {
	ResourceID string        `json:"resource_id"`
	Start      string        `json:"start"`
	End        string        `json:"end"`
	Available  bool          `json:"available"`
	Conflicts  []conflictDTO `json:"conflicts,omitempty"`
}

type reservationDTO struct {
	ID         string `json:"id"`
	ResourceID string `json:"resource_id"`
	ActorID    string `json:"actor_id"`
	Kind       string `json:"kind"`
	Start      string `json:"start"`
	End        string `json:"end"`
	Status     string `json:"status"`
	AlertSent  bool   `json:"alert_sent"`
	Purpose    string `json:"purpose,omitempty"`
	Notes      string `json:"notes,omitempty"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

func toReservationDTO(reservation application.Reservation) reservationDTO {
	return reservationDTO{
		ID:         reservation.ID,
		ResourceID: reservation.ResourceID,
		ActorID:    reservation.ActorID,
		Kind:       string(reservation.Kind),
		Start:      formatTime(reservation.Start),
		End:        formatTime(reservation.End),
		Status:     string(reservation.Status),
		AlertSent:  reservation.AlertSent,
		Purpose:    reservation.Purpose,
		Notes:      reservation.Notes,
		CreatedAt:  formatTime(reservation.CreatedAt),
		UpdatedAt:  formatTime(reservation.UpdatedAt),
	}
}

func toReservationDTOs(reservations []application.Reservation) []reservationDTO {
	out := make([]reservationDTO, 0, len(reservations))
	for _, reservation := range reservations {
		out = append(out, toReservationDTO(reservation))
	}
	return out
}

func parseTimeParam(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, value)
}
