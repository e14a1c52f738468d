package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/example/campus-reservations/internal/persistence"
)

const resourceColumns = `id, kind, label, location, capacity, status, is_active, created_at, updated_at`

// CreateResource inserts a new resource
func (s *Store) CreateResource(ctx context.Context, resource persistence.Resource) error {
	if resource.ID == "" {
		return persistence.ErrConstraintViolation
	}
	if resource.Status == "" {
		resource.Status = persistence.ResourceAvailable
	}
	stampTimes(&resource.CreatedAt, &resource.UpdatedAt)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO resources (`+resourceColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		resource.ID,
		resource.Kind,
		resource.Label,
		resource.Location,
		resource.Capacity,
		resource.Status,
		resource.IsActive,
		utc(resource.CreatedAt),
		utc(resource.UpdatedAt),
	)
	return mapError(err)
}

// UpdateResource updates label, location, capacity and the active flag
func (s *Store) UpdateResource(ctx context.Context, resource persistence.Resource) error {
	if resource.ID == "" {
		return persistence.ErrNotFound
	}
	if resource.UpdatedAt.IsZero() {
		resource.UpdatedAt = time.Now().UTC()
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE resources
		SET label = $1, location = $2, capacity = $3, is_active = $4, updated_at = $5
		WHERE id = $6`,
		resource.Label,
		resource.Location,
		resource.Capacity,
		resource.IsActive,
		utc(resource.UpdatedAt),
		resource.ID,
	)
	if err != nil {
		return mapError(err)
	}
	return requireRow(result)
}

// GetResource retrieves a resource by ID
func (s *Store) GetResource(ctx context.Context, id string) (persistence.Resource, error) {
	if id == "" {
		return persistence.Resource{}, persistence.ErrNotFound
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+resourceColumns+` FROM resources WHERE id = $1`, id)
	resource, err := scanResource(row)
	if err != nil {
		return persistence.Resource{}, mapError(err)
	}
	return resource, nil
}

// ListResources returns resources ordered by label then ID. Labels compare
// bytewise so the order matches the other backends.
func (s *Store) ListResources(ctx context.Context, filter persistence.ResourceFilter) ([]persistence.Resource, error) {
	var (
		conditions []string
		args       []any
	)
	if filter.Kind != "" {
		args = append(args, filter.Kind)
		conditions = append(conditions, fmt.Sprintf("kind = $%d", len(args)))
	}
	if filter.ActiveOnly {
		conditions = append(conditions, "is_active")
	}

	query := `SELECT ` + resourceColumns + ` FROM resources`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY label COLLATE "C" ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	resources := make([]persistence.Resource, 0)
	for rows.Next() {
		resource, err := scanResource(rows)
		if err != nil {
			return nil, mapError(err)
		}
		resources = append(resources, resource)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return resources, nil
}

// SetResourceStatus records the projected status of a resource
func (s *Store) SetResourceStatus(ctx context.Context, id, status string, at time.Time) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE resources SET status = $1, updated_at = $2 WHERE id = $3`,
		status, utc(at), id,
	)
	if err != nil {
		return mapError(err)
	}
	return requireRow(result)
}

func scanResource(row rowScanner) (persistence.Resource, error) {
	var resource persistence.Resource
	if err := row.Scan(
		&resource.ID,
		&resource.Kind,
		&resource.Label,
		&resource.Location,
		&resource.Capacity,
		&resource.Status,
		&resource.IsActive,
		&resource.CreatedAt,
		&resource.UpdatedAt,
	); err != nil {
		return persistence.Resource{}, err
	}
	resource.CreatedAt = utc(resource.CreatedAt)
	resource.UpdatedAt = utc(resource.UpdatedAt)
	return resource, nil
}
