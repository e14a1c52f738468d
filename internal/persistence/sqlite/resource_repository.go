package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/example/campus-reservations/internal/persistence"
)

const resourceColumns = `id, kind, label, location, capacity, status, is_active, created_at, updated_at`

// ResourceRepository implements persistence.ResourceRepository using SQLite
type ResourceRepository struct {
	helper *QueryHelper
	mapper *ErrorMapper
	retry  *RetryHelper
}

// NewResourceRepository creates a new SQLite resource repository
func NewResourceRepository(pool *ConnectionPool) *ResourceRepository {
	return &ResourceRepository{
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
		retry:  NewRetryHelper(DefaultRetryConfig()),
	}
}

// CreateResource inserts a new resource
func (r *ResourceRepository) CreateResource(ctx context.Context, resource persistence.Resource) error {
	if resource.ID == "" {
		return persistence.ErrConstraintViolation
	}
	if resource.Status == "" {
		resource.Status = persistence.ResourceAvailable
	}
	stampTimes(&resource.CreatedAt, &resource.UpdatedAt)

	query := `
		INSERT INTO resources (` + resourceColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	return r.retry.WithRetry(ctx, func() error {
		_, err := r.helper.Exec(ctx, query,
			resource.ID,
			resource.Kind,
			resource.Label,
			resource.Location,
			resource.Capacity,
			resource.Status,
			boolToInt(resource.IsActive),
			formatTime(resource.CreatedAt),
			formatTime(resource.UpdatedAt),
		)
		return err
	})
}

// UpdateResource updates the mutable fields of a resource. Kind and status are
// not changed here.
func (r *ResourceRepository) UpdateResource(ctx context.Context, resource persistence.Resource) error {
	if resource.ID == "" {
		return persistence.ErrNotFound
	}
	if resource.UpdatedAt.IsZero() {
		resource.UpdatedAt = time.Now().UTC()
	}

	query := `
		UPDATE resources
		SET label = ?, location = ?, capacity = ?, is_active = ?, updated_at = ?
		WHERE id = ?
	`

	var result sql.Result
	err := r.retry.WithRetry(ctx, func() (err error) {
		result, err = r.helper.Exec(ctx, query,
			resource.Label,
			resource.Location,
			resource.Capacity,
			boolToInt(resource.IsActive),
			formatTime(resource.UpdatedAt),
			resource.ID,
		)
		return err
	})
	if err != nil {
		return err
	}

	return requireRow(result)
}

// GetResource retrieves a resource by ID
func (r *ResourceRepository) GetResource(ctx context.Context, id string) (persistence.Resource, error) {
	if id == "" {
		return persistence.Resource{}, persistence.ErrNotFound
	}

	query := `SELECT ` + resourceColumns + ` FROM resources WHERE id = ?`

	resource, err := scanResource(r.helper.QueryRow(ctx, query, id))
	if err != nil {
		return persistence.Resource{}, r.mapper.MapError(err)
	}
	return resource, nil
}

// ListResources returns resources ordered by label then ID
func (r *ResourceRepository) ListResources(ctx context.Context, filter persistence.ResourceFilter) ([]persistence.Resource, error) {
	var (
		conditions []string
		args       []any
	)
	if filter.Kind != "" {
		conditions = append(conditions, "kind = ?")
		args = append(args, filter.Kind)
	}
	if filter.ActiveOnly {
		conditions = append(conditions, "is_active = 1")
	}

	query := `SELECT ` + resourceColumns + ` FROM resources`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY label ASC, id ASC"

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	resources := make([]persistence.Resource, 0)
	for rows.Next() {
		resource, err := scanResource(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		resources = append(resources, resource)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return resources, nil
}

// SetResourceStatus records the projected status of a resource
func (r *ResourceRepository) SetResourceStatus(ctx context.Context, id, status string, at time.Time) error {
	query := `UPDATE resources SET status = ?, updated_at = ? WHERE id = ?`

	var result sql.Result
	err := r.retry.WithRetry(ctx, func() (err error) {
		result, err = r.helper.Exec(ctx, query, status, formatTime(at), id)
		return err
	})
	if err != nil {
		return err
	}

	return requireRow(result)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResource(row rowScanner) (persistence.Resource, error) {
	var resource persistence.Resource
	var isActive int
	var createdAtStr, updatedAtStr string

	if err := row.Scan(
		&resource.ID,
		&resource.Kind,
		&resource.Label,
		&resource.Location,
		&resource.Capacity,
		&resource.Status,
		&isActive,
		&createdAtStr,
		&updatedAtStr,
	); err != nil {
		return persistence.Resource{}, err
	}

	resource.IsActive = isActive == 1

	var err error
	if resource.CreatedAt, err = parseTime(createdAtStr); err != nil {
		return persistence.Resource{}, fmt.Errorf("created_at: %w", err)
	}
	if resource.UpdatedAt, err = parseTime(updatedAtStr); err != nil {
		return persistence.Resource{}, fmt.Errorf("updated_at: %w", err)
	}

	return resource, nil
}

func requireRow(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}
