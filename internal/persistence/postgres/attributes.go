package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/example/campus-reservations/internal/persistence"
)

// SetAttributes upserts values for the owner; empty values delete the key
func (s *Store) SetAttributes(ctx context.Context, owner persistence.OwnerRef, values map[string]string, at time.Time) error {
	if owner.ID == "" {
		return persistence.ErrConstraintViolation
	}
	if len(values) == 0 {
		return nil
	}
	if at.IsZero() {
		at = time.Now()
	}

	const upsert = `
		INSERT INTO attributes (owner_kind, owner_id, key, value, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (owner_kind, owner_id, key)
		DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`
	const remove = `DELETE FROM attributes WHERE owner_kind = $1 AND owner_id = $2 AND key = $3`

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for key, value := range values {
			var err error
			if value == "" {
				_, err = tx.ExecContext(ctx, remove, owner.Kind, owner.ID, key)
			} else {
				_, err = tx.ExecContext(ctx, upsert, owner.Kind, owner.ID, key, value, utc(at))
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
	return mapError(err)
}

// GetAttributes returns all attributes of the owner
func (s *Store) GetAttributes(ctx context.Context, owner persistence.OwnerRef) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value FROM attributes WHERE owner_kind = $1 AND owner_id = $2`,
		owner.Kind, owner.ID,
	)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, mapError(err)
		}
		values[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return values, nil
}
