package testfixtures

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/example/campus-reservations/internal/persistence"
	"github.com/example/campus-reservations/internal/persistence/memory"
	"github.com/example/campus-reservations/internal/persistence/postgres"
	"github.com/example/campus-reservations/internal/persistence/sqlite"
)

// PostgresDSNEnv names the variable holding a disposable Postgres database for
// integration tests. Postgres harnesses skip when it is unset.
const PostgresDSNEnv = "RESERVATIONS_TEST_POSTGRES_DSN"

// StoreHarness exposes the repositories of one storage backend for
// integration-style persistence tests.
type StoreHarness struct {
	Name         string
	Resources    persistence.ResourceRepository
	Reservations persistence.ReservationRepository
	Attributes   persistence.AttributeRepository

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *StoreHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness constructs a harness over a migrated SQLite file in a
// temporary directory. Close is registered with tb.Cleanup.
func NewSQLiteHarness(tb testing.TB) *StoreHarness {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "reservations.db")

	store, err := sqlite.Open(sqlite.TempFileTestSQLiteConfig(path), nil)
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		_ = store.Close()
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	harness := &StoreHarness{
		Name:         "sqlite",
		Resources:    store,
		Reservations: store,
		Attributes:   store,
		cleanup: func() {
			_ = store.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}

// NewMemoryHarness constructs a harness over the in-memory store.
func NewMemoryHarness(tb testing.TB) *StoreHarness {
	tb.Helper()

	store := memory.Open()
	harness := &StoreHarness{
		Name:         "memory",
		Resources:    store,
		Reservations: store,
		Attributes:   store,
		cleanup: func() {
			_ = store.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}

// NewPostgresHarness constructs a harness over the database named by
// PostgresDSNEnv, migrated and emptied. The test is skipped when the variable
// is unset.
func NewPostgresHarness(tb testing.TB) *StoreHarness {
	tb.Helper()

	dsn := os.Getenv(PostgresDSNEnv)
	if dsn == "" {
		tb.Skipf("%s not set", PostgresDSNEnv)
	}

	ctx := context.Background()
	store, err := postgres.Open(ctx, postgres.DefaultConfig(dsn), nil)
	if err != nil {
		tb.Fatalf("failed to open postgres: %v", err)
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		tb.Fatalf("failed to migrate postgres: %v", err)
	}
	if _, err := store.DB().ExecContext(ctx, "TRUNCATE attributes, reservations, resources"); err != nil {
		_ = store.Close()
		tb.Fatalf("failed to truncate postgres tables: %v", err)
	}

	harness := &StoreHarness{
		Name:         "postgres",
		Resources:    store,
		Reservations: store,
		Attributes:   store,
		cleanup: func() {
			_ = store.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}
