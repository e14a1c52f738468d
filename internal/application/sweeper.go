package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/example/campus-reservations/internal/persistence"
)

// Sweeper transitions elapsed active reservations to their terminal status:
// stations expire and rooms complete.
type Sweeper struct {
	reservations ReservationRepository
	projector    *StatusProjector
	events       EventPublisher
	metrics      Metrics
	now          func() time.Time
	logger       *slog.Logger
}

// NewSweeper constructs a sweeper. Nil publisher and metrics are replaced by
// no-op implementations.
func NewSweeper(reservations ReservationRepository, projector *StatusProjector, events EventPublisher, metrics Metrics, now func() time.Time, logger *slog.Logger) *Sweeper {
	if events == nil {
		events = noopPublisher{}
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if now == nil {
		now = time.Now
	}
	return &Sweeper{
		reservations: reservations,
		projector:    projector,
		events:       events,
		metrics:      metrics,
		now:          now,
		logger:       defaultLogger(logger),
	}
}

// terminalStatus is the status an elapsed reservation of the kind moves to.
func terminalStatus(kind ResourceKind) ReservationStatus {
	if kind == ResourceKindStation {
		return ReservationStatusExpired
	}
	return ReservationStatusCompleted
}

// Sweep transitions every active reservation with End <= now. Reservations
// already moved by a concurrent sweep or cancellation are skipped.
func (s *Sweeper) Sweep(ctx context.Context) (result SweepResult, err error) {
	if s == nil || s.reservations == nil {
		return SweepResult{}, nil
	}

	started := time.Now()
	now := s.now()
	logger := serviceLogger(ctx, s.logger, "Sweeper", "Sweep")
	defer func() {
		s.metrics.SweepObserved(time.Since(started), result.Transitioned())
		if err != nil {
			logger.ErrorContext(ctx, "sweep failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		if result.Transitioned() > 0 {
			logger.InfoContext(ctx, "elapsed reservations transitioned",
				"expired_count", result.Expired,
				"completed_count", result.Completed,
			)
		}
	}()

	due, err := s.reservations.ListReservations(ctx, ReservationFilter{
		Statuses:       []ReservationStatus{ReservationStatusActive},
		EndsAtOrBefore: &now,
	})
	if err != nil {
		err = fmt.Errorf("list elapsed reservations: %w", err)
		return
	}

	touched := make(map[string]struct{})
	for _, reservation := range due {
		to := terminalStatus(reservation.Kind)
		if tErr := s.reservations.TransitionReservation(ctx, reservation.ID, ReservationStatusActive, to, now); tErr != nil {
			if errors.Is(tErr, persistence.ErrStaleState) {
				continue
			}
			err = fmt.Errorf("transition reservation %s: %w", reservation.ID, tErr)
			return
		}

		reservation.Status = to
		reservation.UpdatedAt = now
		if to == ReservationStatusExpired {
			result.Expired++
		} else {
			result.Completed++
		}
		touched[reservation.ResourceID] = struct{}{}

		s.metrics.ReservationTransitioned(string(reservation.Kind), string(to))
		eventType := EventReservationCompleted
		if to == ReservationStatusExpired {
			eventType = EventReservationExpired
		}
		publishEvent(ctx, s.events, logger, ReservationEvent{Type: eventType, Reservation: reservation, OccurredAt: now})
	}

	result.ResourceIDs = make([]string, 0, len(touched))
	for id := range touched {
		result.ResourceIDs = append(result.ResourceIDs, id)
	}
	sort.Strings(result.ResourceIDs)

	if s.projector != nil {
		for _, id := range result.ResourceIDs {
			if _, pErr := s.projector.Refresh(ctx, id); pErr != nil {
				logger.WarnContext(ctx, "failed to refresh resource status", "resource_id", id, "error", pErr)
			}
		}
	}

	return
}

// Run sweeps every interval until ctx is done. A non-positive interval
// disables the loop and Run returns immediately.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	if s == nil || interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Failures are logged by Sweep.
			_, _ = s.Sweep(ctx)
		}
	}
}

func publishEvent(ctx context.Context, events EventPublisher, logger *slog.Logger, event ReservationEvent) {
	if err := events.Publish(ctx, event); err != nil {
		logger.WarnContext(ctx, "failed to publish reservation event",
			"event_type", event.Type,
			"reservation_id", event.Reservation.ID,
			"error", err,
		)
	}
}
