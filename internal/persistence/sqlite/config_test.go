package sqlite

import (
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultSQLiteConfig(t *testing.T) {
	config := DefaultSQLiteConfig("/var/lib/reservations/reservations.db")

	if config.BusyTimeout != 30*time.Second {
		t.Errorf("Expected BusyTimeout 30s, got %v", config.BusyTimeout)
	}
	if !config.EnableForeignKeys {
		t.Error("Expected EnableForeignKeys to be true")
	}
	if config.JournalMode != "WAL" || config.Synchronous != "NORMAL" {
		t.Errorf("Expected WAL/NORMAL, got %s/%s", config.JournalMode, config.Synchronous)
	}
	if config.MaxOpenConns != 25 || config.MaxIdleConns != 5 {
		t.Errorf("Expected 25/5 connections, got %d/%d", config.MaxOpenConns, config.MaxIdleConns)
	}
}

func TestBuildDSN(t *testing.T) {
	parse := func(t *testing.T, dsn string) (string, url.Values) {
		t.Helper()
		base, rawQuery, ok := strings.Cut(dsn, "?")
		if !ok {
			t.Fatalf("expected query string in %q", dsn)
		}
		query, err := url.ParseQuery(rawQuery)
		if err != nil {
			t.Fatalf("invalid query in %q: %v", dsn, err)
		}
		return base, query
	}

	t.Run("adds pragmas and immediate transactions", func(t *testing.T) {
		dsn, err := NewConnectionManager(DefaultSQLiteConfig("/data/reservations.db")).BuildDSN()
		if err != nil {
			t.Fatalf("BuildDSN failed: %v", err)
		}

		base, query := parse(t, dsn)
		if base != "file:/data/reservations.db" {
			t.Errorf("unexpected base %q", base)
		}
		want := []string{"busy_timeout(30000)", "foreign_keys(1)", "journal_mode(WAL)", "synchronous(NORMAL)"}
		got := query["_pragma"]
		if strings.Join(got, ",") != strings.Join(want, ",") {
			t.Errorf("expected pragmas %v, got %v", want, got)
		}
		if query.Get("_txlock") != "immediate" {
			t.Errorf("expected _txlock=immediate, got %q", query.Get("_txlock"))
		}
	})

	t.Run("keeps caller supplied settings", func(t *testing.T) {
		config := DefaultSQLiteConfig("file:/data/r.db?_pragma=journal_mode(DELETE)&_txlock=deferred")
		dsn, err := NewConnectionManager(config).BuildDSN()
		if err != nil {
			t.Fatalf("BuildDSN failed: %v", err)
		}

		_, query := parse(t, dsn)
		pragmas := strings.Join(query["_pragma"], ",")
		if strings.Contains(pragmas, "journal_mode(WAL)") || !strings.Contains(pragmas, "journal_mode(DELETE)") {
			t.Errorf("caller journal mode must win, got %v", query["_pragma"])
		}
		if query.Get("_txlock") != "deferred" {
			t.Errorf("expected caller _txlock, got %q", query.Get("_txlock"))
		}
	})

	t.Run("foreign keys can be left off", func(t *testing.T) {
		config := DefaultSQLiteConfig("r.db")
		config.EnableForeignKeys = false
		dsn, err := NewConnectionManager(config).BuildDSN()
		if err != nil {
			t.Fatalf("BuildDSN failed: %v", err)
		}
		if strings.Contains(dsn, "foreign_keys") {
			t.Errorf("unexpected foreign_keys pragma in %q", dsn)
		}
	})
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*SQLiteConfig)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*SQLiteConfig) {}},
		{name: "empty DSN", mutate: func(c *SQLiteConfig) { c.DSN = "" }, wantErr: true},
		{name: "negative busy timeout", mutate: func(c *SQLiteConfig) { c.BusyTimeout = -time.Second }, wantErr: true},
		{name: "unknown journal mode", mutate: func(c *SQLiteConfig) { c.JournalMode = "FAST" }, wantErr: true},
		{name: "unknown synchronous mode", mutate: func(c *SQLiteConfig) { c.Synchronous = "SOMETIMES" }, wantErr: true},
		{name: "negative pool size", mutate: func(c *SQLiteConfig) { c.MaxOpenConns = -1 }, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			config := DefaultSQLiteConfig("r.db")
			tc.mutate(&config)
			err := NewConnectionManager(config).ValidateConfig()
			if (err != nil) != tc.wantErr {
				t.Fatalf("ValidateConfig() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestDatabasePath(t *testing.T) {
	nested := filepath.Join("data", "nested", "r.db")
	tests := map[string]string{
		"file::memory:?cache=shared": "",
		":memory:":                   "",
		"file:r.db?mode=memory":      "",
		nested:                       nested,
		"file:" + nested + "?x=1":    nested,
	}
	for dsn, want := range tests {
		if got := databasePath(dsn); got != want {
			t.Errorf("databasePath(%q) = %q, want %q", dsn, got, want)
		}
	}
}
