package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/example/campus-reservations/internal/persistence"
)

// AttributeRepository implements persistence.AttributeRepository using SQLite
type AttributeRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
	retry  *RetryHelper
}

// NewAttributeRepository creates a new SQLite attribute repository
func NewAttributeRepository(pool *ConnectionPool) *AttributeRepository {
	return &AttributeRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
		retry:  NewRetryHelper(DefaultRetryConfig()),
	}
}

// SetAttributes upserts values for the owner; empty values delete the key
func (r *AttributeRepository) SetAttributes(ctx context.Context, owner persistence.OwnerRef, values map[string]string, at time.Time) error {
	if owner.ID == "" {
		return persistence.ErrConstraintViolation
	}
	if len(values) == 0 {
		return nil
	}

	upsert := `
		INSERT INTO attributes (owner_kind, owner_id, key, value, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (owner_kind, owner_id, key)
		DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	remove := `DELETE FROM attributes WHERE owner_kind = ? AND owner_id = ? AND key = ?`

	return r.retry.WithRetry(ctx, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			for key, value := range values {
				var err error
				if value == "" {
					_, err = r.helper.ExecTx(ctx, tx, remove, owner.Kind, owner.ID, key)
				} else {
					_, err = r.helper.ExecTx(ctx, tx, upsert, owner.Kind, owner.ID, key, value, formatTime(at))
				}
				if err != nil {
					return err
				}
			}
			return nil
		})
	})
}

// GetAttributes returns all attributes of the owner
func (r *AttributeRepository) GetAttributes(ctx context.Context, owner persistence.OwnerRef) (map[string]string, error) {
	rows, err := r.helper.Query(ctx,
		`SELECT key, value FROM attributes WHERE owner_kind = ? AND owner_id = ?`,
		owner.Kind, owner.ID,
	)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, r.mapper.MapError(err)
		}
		values[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return values, nil
}
