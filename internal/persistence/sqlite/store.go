package sqlite

import (
	"context"
	"embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/campus-reservations/internal/persistence/migration"
)

//go:embed schema/*.sql
var schemaFS embed.FS

const schemaDir = "schema"

// overlapMessage is raised by the reservations_no_overlap triggers.
const overlapMessage = "reservation overlap"

// timeLayout is fixed width so that stored timestamps compare as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store bundles the SQLite repositories over one connection pool.
type Store struct {
	*ResourceRepository
	*ReservationRepository
	*AttributeRepository

	pool   *ConnectionPool
	logger *slog.Logger
}

// Open connects to the database described by config. Call Migrate before use.
func Open(config SQLiteConfig, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	pool, err := NewConnectionPool(config)
	if err != nil {
		return nil, err
	}

	return &Store{
		ResourceRepository:    NewResourceRepository(pool),
		ReservationRepository: NewReservationRepository(pool),
		AttributeRepository:   NewAttributeRepository(pool),
		pool:                  pool,
		logger:                logger.With("component", "sqlite"),
	}, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.pool.Close()
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrate applies the embedded schema migrations.
func (s *Store) Migrate(ctx context.Context) error {
	manager := migration.NewMigrationManager(
		migration.NewFileScanner(schemaFS),
		migration.NewExecutor(s.pool.DB(), migration.DialectSQLite),
		schemaDir,
		s.logger,
	)
	if err := manager.RunMigrations(ctx); err != nil {
		return fmt.Errorf("sqlite: migrate: %w", err)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) (time.Time, error) {
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp %q: %w", value, err)
	}
	return t, nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func stampTimes(createdAt, updatedAt *time.Time) {
	if createdAt.IsZero() {
		*createdAt = time.Now().UTC()
	}
	if updatedAt.IsZero() {
		*updatedAt = *createdAt
	}
}
