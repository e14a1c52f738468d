// Package postgres implements the persistence repositories on PostgreSQL
// through the pgx database/sql driver. Overlapping active reservations are
// rejected by an exclusion constraint and duplicate station claims by a
// partial unique index.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"github.com/example/campus-reservations/internal/persistence"
	"github.com/example/campus-reservations/internal/persistence/migration"
)

//go:embed schema/*.sql
var schemaFS embed.FS

const (
	driverName = "pgx"
	schemaDir  = "schema"

	singleClaimIndex = "reservations_single_active_station"
)

// Store implements the resource, reservation and attribute repositories.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open connects to Postgres and verifies the connection. Call Migrate before use.
func Open(ctx context.Context, config Config, logger *slog.Logger) (*Store, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open(driverName, config.DSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if config.MaxOpenConns > 0 {
		db.SetMaxOpenConns(config.MaxOpenConns)
	}
	if config.MaxIdleConns > 0 {
		db.SetMaxIdleConns(config.MaxIdleConns)
	}
	if config.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(config.ConnMaxLifetime)
	}

	pingCtx := ctx
	if config.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, config.ConnectTimeout)
		defer cancel()
	}
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &Store{db: db, logger: logger.With("component", "postgres")}, nil
}

// DB exposes the underlying pool for integration test hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Migrate applies the embedded schema migrations.
func (s *Store) Migrate(ctx context.Context) error {
	manager := migration.NewMigrationManager(
		migration.NewFileScanner(schemaFS),
		migration.NewExecutor(s.db, migration.DialectPostgres),
		schemaDir,
		s.logger,
	)
	if err := manager.RunMigrations(ctx); err != nil {
		return fmt.Errorf("postgres: migrate: %w", err)
	}
	return nil
}

// withTx runs fn in a transaction, rolling back on error.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				err = fmt.Errorf("%w (rollback error: %v)", err, rbErr)
			}
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// mapError translates pgx errors into persistence sentinels, keeping the
// driver error in the chain.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return persistence.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch {
	case pgErr.Code == "23P01":
		return fmt.Errorf("%w: %v", persistence.ErrOverlap, err)
	case pgErr.Code == "23505" && pgErr.ConstraintName == singleClaimIndex:
		return fmt.Errorf("%w: %v", persistence.ErrActiveClaimExists, err)
	case pgErr.Code == "23505":
		return fmt.Errorf("%w: %v", persistence.ErrDuplicate, err)
	case pgErr.Code == "23503":
		return fmt.Errorf("%w: %v", persistence.ErrForeignKeyViolation, err)
	case pgErr.Code == "23514", pgErr.Code == "23502", strings.HasPrefix(pgErr.Code, "22"):
		return fmt.Errorf("%w: %v", persistence.ErrConstraintViolation, err)
	}
	return err
}

func utc(t time.Time) time.Time {
	return t.UTC()
}

func stampTimes(createdAt, updatedAt *time.Time) {
	if createdAt.IsZero() {
		*createdAt = time.Now().UTC()
	}
	if updatedAt.IsZero() {
		*updatedAt = *createdAt
	}
}

type rowScanner interface {
	Scan(dest ...any) error
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
