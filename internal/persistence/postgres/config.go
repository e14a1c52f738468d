package postgres

import (
	"fmt"
	"time"
)

// Config holds Postgres connection pool settings.
type Config struct {
	// DSN is a postgres:// URL or keyword/value connection string understood
	// by pgx.
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	// ConnectTimeout bounds the initial ping.
	ConnectTimeout time.Duration
}

// DefaultConfig returns pool settings suitable for a single service instance.
func DefaultConfig(dsn string) Config {
	return Config{
		DSN:             dsn,
		MaxOpenConns:    20,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
		ConnectTimeout:  10 * time.Second,
	}
}

// Validate rejects unusable settings.
func (c Config) Validate() error {
	if c.DSN == "" {
		return fmt.Errorf("postgres DSN cannot be empty")
	}
	if c.MaxOpenConns < 0 || c.MaxIdleConns < 0 {
		return fmt.Errorf("postgres pool sizes cannot be negative")
	}
	if c.ConnMaxLifetime < 0 || c.ConnectTimeout < 0 {
		return fmt.Errorf("postgres durations cannot be negative")
	}
	return nil
}
