package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/example/campus-reservations/internal/persistence"
)

const reservationColumns = `id, resource_id, actor_id, kind, start_time, end_time, status, alert_sent, created_at, updated_at`

// CreateReservation inserts a new reservation
func (s *Store) CreateReservation(ctx context.Context, reservation persistence.Reservation) error {
	if reservation.ID == "" || reservation.ResourceID == "" || reservation.ActorID == "" {
		return persistence.ErrConstraintViolation
	}
	stampTimes(&reservation.CreatedAt, &reservation.UpdatedAt)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reservations (`+reservationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		reservation.ID,
		reservation.ResourceID,
		reservation.ActorID,
		reservation.Kind,
		utc(reservation.Start),
		utc(reservation.End),
		reservation.Status,
		reservation.AlertSent,
		utc(reservation.CreatedAt),
		utc(reservation.UpdatedAt),
	)
	return mapError(err)
}

// UpdateReservation changes the resource and window of a reservation
func (s *Store) UpdateReservation(ctx context.Context, reservation persistence.Reservation) error {
	if reservation.ID == "" {
		return persistence.ErrNotFound
	}
	if reservation.UpdatedAt.IsZero() {
		reservation.UpdatedAt = time.Now().UTC()
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE reservations
		SET resource_id = $1, start_time = $2, end_time = $3, updated_at = $4
		WHERE id = $5`,
		reservation.ResourceID,
		utc(reservation.Start),
		utc(reservation.End),
		utc(reservation.UpdatedAt),
		reservation.ID,
	)
	if err != nil {
		return mapError(err)
	}
	return requireRow(result)
}

// GetReservation retrieves a reservation by ID
func (s *Store) GetReservation(ctx context.Context, id string) (persistence.Reservation, error) {
	if id == "" {
		return persistence.Reservation{}, persistence.ErrNotFound
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = $1`, id)
	reservation, err := scanReservation(row)
	if err != nil {
		return persistence.Reservation{}, mapError(err)
	}
	return reservation, nil
}

// ListReservations returns reservations matching the filter ordered by start
// time then ID
func (s *Store) ListReservations(ctx context.Context, filter persistence.ReservationFilter) ([]persistence.Reservation, error) {
	conditions, args := reservationConditions(filter)

	query := `SELECT ` + reservationColumns + ` FROM reservations`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY start_time ASC, id COLLATE "C" ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	reservations := make([]persistence.Reservation, 0)
	for rows.Next() {
		reservation, err := scanReservation(rows)
		if err != nil {
			return nil, mapError(err)
		}
		reservations = append(reservations, reservation)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return reservations, nil
}

// TransitionReservation moves a reservation from one status to another
func (s *Store) TransitionReservation(ctx context.Context, id, from, to string, at time.Time) error {
	return s.conditionalUpdate(ctx, id,
		`UPDATE reservations SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`,
		to, utc(at), id, from,
	)
}

// MarkAlertSent sets the alert flag once on an active reservation
func (s *Store) MarkAlertSent(ctx context.Context, id string, at time.Time) error {
	return s.conditionalUpdate(ctx, id,
		`UPDATE reservations SET alert_sent = TRUE, updated_at = $1 WHERE id = $2 AND status = 'active' AND NOT alert_sent`,
		utc(at), id,
	)
}

// CountActiveReservations counts the active reservations on a resource
func (s *Store) CountActiveReservations(ctx context.Context, resourceID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reservations WHERE resource_id = $1 AND status = 'active'`,
		resourceID,
	).Scan(&count)
	if err != nil {
		return 0, mapError(err)
	}
	return count, nil
}

// conditionalUpdate runs a guarded UPDATE and, when nothing changed, tells a
// missing reservation apart from a stale precondition.
func (s *Store) conditionalUpdate(ctx context.Context, id, query string, args ...any) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected > 0 {
			return nil
		}

		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT 1 FROM reservations WHERE id = $1`, id).Scan(&exists); err != nil {
			return err
		}
		return persistence.ErrStaleState
	})
	return mapError(err)
}

func reservationConditions(filter persistence.ReservationFilter) ([]string, []any) {
	var (
		conditions []string
		args       []any
	)
	add := func(clause string, value any) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(clause, len(args)))
	}

	if filter.ResourceID != "" {
		add("resource_id = $%d", filter.ResourceID)
	}
	if filter.ActorID != "" {
		add("actor_id = $%d", filter.ActorID)
	}
	if filter.Kind != "" {
		add("kind = $%d", filter.Kind)
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, 0, len(filter.Statuses))
		for _, status := range filter.Statuses {
			args = append(args, status)
			placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
		}
		conditions = append(conditions, "status IN ("+strings.Join(placeholders, ", ")+")")
	}
	if filter.EndsAfter != nil {
		add("end_time > $%d", utc(*filter.EndsAfter))
	}
	if filter.EndsAtOrBefore != nil {
		add("end_time <= $%d", utc(*filter.EndsAtOrBefore))
	}
	if filter.AlertSent != nil {
		add("alert_sent = $%d", *filter.AlertSent)
	}

	return conditions, args
}

func scanReservation(row rowScanner) (persistence.Reservation, error) {
	var reservation persistence.Reservation
	if err := row.Scan(
		&reservation.ID,
		&reservation.ResourceID,
		&reservation.ActorID,
		&reservation.Kind,
		&reservation.Start,
		&reservation.End,
		&reservation.Status,
		&reservation.AlertSent,
		&reservation.CreatedAt,
		&reservation.UpdatedAt,
	); err != nil {
		return persistence.Reservation{}, err
	}
	reservation.Start = utc(reservation.Start)
	reservation.End = utc(reservation.End)
	reservation.CreatedAt = utc(reservation.CreatedAt)
	reservation.UpdatedAt = utc(reservation.UpdatedAt)
	return reservation, nil
}
