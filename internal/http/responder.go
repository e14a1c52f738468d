package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/campus-reservations/internal/application"
)

var (
	errBadRequestBody     = errors.New("request body is not valid JSON")
	errMissingBearerToken = errors.New("authentication required")
	errInvalidQuery       = errors.New("invalid query parameters")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := statusMessage(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).WarnContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

// handleServiceError maps application errors to HTTP responses.
func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	var (
		vErr        *application.ValidationError
		conflictErr *application.ConflictError
		claimErr    *application.DuplicateActiveReservationError
	)

	switch {
	case errors.Is(err, application.ErrUnauthorized):
		r.writeJSON(ctx, w, http.StatusForbidden, errorResponse{
			ErrorCode: "AUTH_FORBIDDEN",
			Message:   statusMessage(http.StatusForbidden),
		})
	case errors.Is(err, application.ErrNotFound):
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{
			ErrorCode: "NOT_FOUND",
			Message:   statusMessage(http.StatusNotFound),
		})
	case errors.Is(err, application.ErrAlreadyExists):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "ALREADY_EXISTS",
			Message:   "a record with this id already exists",
		})
	case errors.As(err, &conflictErr):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "RESERVATION_CONFLICT",
			Message:   conflictErr.Error(),
			Conflicts: toConflictDTOs(conflictErr.Conflicts),
		})
	case errors.As(err, &claimErr):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "ACTIVE_RESERVATION_EXISTS",
			Message:   claimErr.Error(),
			ActiveReservation: &activeClaimDTO{
				ReservationID: claimErr.ReservationID,
				ResourceID:    claimErr.ResourceID,
				ResourceLabel: claimErr.ResourceLabel,
				End:           formatTime(claimErr.End),
			},
		})
	case errors.As(err, &vErr):
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
			ErrorCode: "VALIDATION_FAILED",
			Message:   statusMessage(http.StatusUnprocessableEntity),
			Errors:    vErr.FieldErrors,
		})
	default:
		r.loggerFor(ctx).ErrorContext(ctx, "unexpected service error", "error", err)
		r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{
			ErrorCode: "INTERNAL",
			Message:   statusMessage(http.StatusInternalServerError),
		})
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

func statusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "the request is malformed"
	case http.StatusUnauthorized:
		return "authentication required"
	case http.StatusForbidden:
		return "you are not allowed to perform this operation"
	case http.StatusNotFound:
		return "the requested record was not found"
	case http.StatusConflict:
		return "the request conflicts with the current state"
	case http.StatusUnprocessableEntity:
		return "the request contains invalid fields"
	default:
		return "internal server error"
	}
}

type errorResponse struct {
	ErrorCode         string            `json:"error_code,omitempty"`
	Message           string            `json:"message"`
	Errors            map[string]string `json:"errors,omitempty"`
	Conflicts         []conflictDTO     `json:"conflicts,omitempty"`
	ActiveReservation *activeClaimDTO   `json:"active_reservation,omitempty"`
}

type conflictDTO struct {
	ReservationID string `json:"reservation_id"`
	ResourceID    string `json:"resource_id"`
	Start         string `json:"start"`
	End           string `json:"end"`
}

type activeClaimDTO struct {
	ReservationID string `json:"reservation_id,omitempty"`
	ResourceID    string `json:"resource_id,omitempty"`
	ResourceLabel string `json:"resource_label,omitempty"`
	End           string `json:"end,omitempty"`
}

func toConflictDTOs(conflicts []application.ReservationConflict) []conflictDTO {
	if len(conflicts) == 0 {
		return nil
	}
	out := make([]conflictDTO, 0, len(conflicts))
	for _, c := range conflicts {
		out = append(out, conflictDTO{
			ReservationID: c.ReservationID,
			ResourceID:    c.ResourceID,
			Start:         formatTime(c.Start),
			End:           formatTime(c.End),
		})
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
