package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/example/campus-reservations/internal/persistence"
)

const reservationColumns = `id, resource_id, actor_id, kind, start_time, end_time, status, alert_sent, created_at, updated_at`

// ReservationRepository implements persistence.ReservationRepository using
// SQLite. Overlap and single-claim rules are enforced by the schema triggers
// and the partial unique index.
type ReservationRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
	retry  *RetryHelper
}

// NewReservationRepository creates a new SQLite reservation repository
func NewReservationRepository(pool *ConnectionPool) *ReservationRepository {
	return &ReservationRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
		retry:  NewRetryHelper(DefaultRetryConfig()),
	}
}

// CreateReservation inserts a new reservation
func (r *ReservationRepository) CreateReservation(ctx context.Context, reservation persistence.Reservation) error {
	if reservation.ID == "" || reservation.ResourceID == "" || reservation.ActorID == "" {
		return persistence.ErrConstraintViolation
	}
	stampTimes(&reservation.CreatedAt, &reservation.UpdatedAt)

	query := `
		INSERT INTO reservations (` + reservationColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	return r.retry.WithRetry(ctx, func() error {
		_, err := r.helper.Exec(ctx, query,
			reservation.ID,
			reservation.ResourceID,
			reservation.ActorID,
			reservation.Kind,
			formatTime(reservation.Start),
			formatTime(reservation.End),
			reservation.Status,
			boolToInt(reservation.AlertSent),
			formatTime(reservation.CreatedAt),
			formatTime(reservation.UpdatedAt),
		)
		return err
	})
}

// UpdateReservation changes the resource and window of a reservation
func (r *ReservationRepository) UpdateReservation(ctx context.Context, reservation persistence.Reservation) error {
	if reservation.ID == "" {
		return persistence.ErrNotFound
	}
	if reservation.UpdatedAt.IsZero() {
		reservation.UpdatedAt = time.Now().UTC()
	}

	query := `
		UPDATE reservations
		SET resource_id = ?, start_time = ?, end_time = ?, updated_at = ?
		WHERE id = ?
	`

	var result sql.Result
	err := r.retry.WithRetry(ctx, func() (err error) {
		result, err = r.helper.Exec(ctx, query,
			reservation.ResourceID,
			formatTime(reservation.Start),
			formatTime(reservation.End),
			formatTime(reservation.UpdatedAt),
			reservation.ID,
		)
		return err
	})
	if err != nil {
		return err
	}

	return requireRow(result)
}

// GetReservation retrieves a reservation by ID
func (r *ReservationRepository) GetReservation(ctx context.Context, id string) (persistence.Reservation, error) {
	if id == "" {
		return persistence.Reservation{}, persistence.ErrNotFound
	}

	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = ?`

	reservation, err := scanReservation(r.helper.QueryRow(ctx, query, id))
	if err != nil {
		return persistence.Reservation{}, r.mapper.MapError(err)
	}
	return reservation, nil
}

// ListReservations returns reservations matching the filter ordered by start
// time then ID
func (r *ReservationRepository) ListReservations(ctx context.Context, filter persistence.ReservationFilter) ([]persistence.Reservation, error) {
	conditions, args := reservationConditions(filter)

	query := `SELECT ` + reservationColumns + ` FROM reservations`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY start_time ASC, id ASC"

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	reservations := make([]persistence.Reservation, 0)
	for rows.Next() {
		reservation, err := scanReservation(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		reservations = append(reservations, reservation)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return reservations, nil
}

// TransitionReservation moves a reservation from one status to another
func (r *ReservationRepository) TransitionReservation(ctx context.Context, id, from, to string, at time.Time) error {
	return r.conditionalUpdate(ctx, id,
		`UPDATE reservations SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		to, formatTime(at), id, from,
	)
}

// MarkAlertSent sets the alert flag once on an active reservation
func (r *ReservationRepository) MarkAlertSent(ctx context.Context, id string, at time.Time) error {
	return r.conditionalUpdate(ctx, id,
		`UPDATE reservations SET alert_sent = 1, updated_at = ? WHERE id = ? AND status = 'active' AND alert_sent = 0`,
		formatTime(at), id,
	)
}

// CountActiveReservations counts the active reservations on a resource
func (r *ReservationRepository) CountActiveReservations(ctx context.Context, resourceID string) (int, error) {
	var count int
	err := r.helper.QueryRow(ctx,
		`SELECT COUNT(*) FROM reservations WHERE resource_id = ? AND status = 'active'`,
		resourceID,
	).Scan(&count)
	if err != nil {
		return 0, r.mapper.MapError(err)
	}
	return count, nil
}

// conditionalUpdate runs an UPDATE guarded by a WHERE precondition. When no row
// changes, it distinguishes a missing reservation from a stale precondition in
// the same transaction.
func (r *ReservationRepository) conditionalUpdate(ctx context.Context, id, query string, args ...any) error {
	return r.retry.WithRetry(ctx, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			result, err := r.helper.ExecTx(ctx, tx, query, args...)
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
			err = r.helper.QueryRowTx(ctx, tx, `SELECT 1 FROM reservations WHERE id = ?`, id).Scan(&exists)
			if err != nil {
				return err
			}
			return persistence.ErrStaleState
		})
	})
}

func reservationConditions(filter persistence.ReservationFilter) ([]string, []any) {
	var (
		conditions []string
		args       []any
	)

	if filter.ResourceID != "" {
		conditions = append(conditions, "resource_id = ?")
		args = append(args, filter.ResourceID)
	}
	if filter.ActorID != "" {
		conditions = append(conditions, "actor_id = ?")
		args = append(args, filter.ActorID)
	}
	if filter.Kind != "" {
		conditions = append(conditions, "kind = ?")
		args = append(args, filter.Kind)
	}
	if len(filter.Statuses) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(filter.Statuses)), ", ")
		conditions = append(conditions, "status IN ("+placeholders+")")
		for _, status := range filter.Statuses {
			args = append(args, status)
		}
	}
	if filter.EndsAfter != nil {
		conditions = append(conditions, "end_time > ?")
		args = append(args, formatTime(*filter.EndsAfter))
	}
	if filter.EndsAtOrBefore != nil {
		conditions = append(conditions, "end_time <= ?")
		args = append(args, formatTime(*filter.EndsAtOrBefore))
	}
	if filter.AlertSent != nil {
		conditions = append(conditions, "alert_sent = ?")
		args = append(args, boolToInt(*filter.AlertSent))
	}

	return conditions, args
}

func scanReservation(row rowScanner) (persistence.Reservation, error) {
	var reservation persistence.Reservation
	var alertSent int
	var startStr, endStr, createdAtStr, updatedAtStr string

	if err := row.Scan(
		&reservation.ID,
		&reservation.ResourceID,
		&reservation.ActorID,
		&reservation.Kind,
		&startStr,
		&endStr,
		&reservation.Status,
		&alertSent,
		&createdAtStr,
		&updatedAtStr,
	); err != nil {
		return persistence.Reservation{}, err
	}

	reservation.AlertSent = alertSent == 1

	var err error
	if reservation.Start, err = parseTime(startStr); err != nil {
		return persistence.Reservation{}, fmt.Errorf("start_time: %w", err)
	}
	if reservation.End, err = parseTime(endStr); err != nil {
		return persistence.Reservation{}, fmt.Errorf("end_time: %w", err)
	}
	if reservation.CreatedAt, err = parseTime(createdAtStr); err != nil {
		return persistence.Reservation{}, fmt.Errorf("created_at: %w", err)
	}
	if reservation.UpdatedAt, err = parseTime(updatedAtStr); err != nil {
		return persistence.Reservation{}, fmt.Errorf("updated_at: %w", err)
	}

	return reservation, nil
}
