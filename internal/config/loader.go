package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config captures environment driven configuration values for the reservation service.
type Config struct {
	HTTPPort           int
	LogLevel           string
	StorageDriver      string
	SQLiteDSN          string
	PostgresDSN        string
	JWTSecret          string
	AdminRoles         []string
	MaxStationDuration time.Duration
	ExpiringSoonWindow time.Duration
	// SweepInterval enables the periodic sweeper when positive.
	SweepInterval time.Duration
	LockTTL       time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	AMQPURL       string
	EventsQueue   string
	CatalogSeed   string
}

// IsAdminRole reports whether role grants administrator rights.
func (c Config) IsAdminRole(role string) bool {
	for _, admin := range c.AdminRoles {
		if strings.EqualFold(admin, role) {
			return true
		}
	}
	return false
}

// LoadWithDotenv applies the given .env files, then calls Load. Variables
// already present in the environment take precedence. Missing files are
// skipped.
func LoadWithDotenv(paths ...string) (Config, error) {
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return Config{}, fmt.Errorf("load %s: %w", path, err)
		}
	}
	return Load()
}

// Load parses configuration values from the current process environment.
//
// The loader applies defaults for optional fields, validates required values
// and reports every missing or invalid key in a single error.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:           8080,
		LogLevel:           "info",
		StorageDriver:      DriverSQLite,
		SQLiteDSN:          "file:reservations.db?_pragma=foreign_keys(1)&_txlock=immediate",
		AdminRoles:         []string{"admin", "staff"},
		MaxStationDuration: 4 * time.Hour,
		ExpiringSoonWindow: 15 * time.Minute,
		LockTTL:            10 * time.Second,
		EventsQueue:        "reservations.events",
	}

	missing := make([]string, 0, 2)
	invalid := make([]string, 0, 4)

	if portValue := env("RESERVATIONS_HTTP_PORT"); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 || port > 65535 {
			invalid = append(invalid, "RESERVATIONS_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if level := strings.ToLower(env("RESERVATIONS_LOG_LEVEL")); level != "" {
		switch level {
		case "debug", "info", "warn", "error":
			cfg.LogLevel = level
		default:
			invalid = append(invalid, "RESERVATIONS_LOG_LEVEL")
		}
	}

	if driver := strings.ToLower(env("RESERVATIONS_STORAGE_DRIVER")); driver != "" {
		switch driver {
		case DriverSQLite, DriverPostgres, DriverMemory:
			cfg.StorageDriver = driver
		default:
			invalid = append(invalid, "RESERVATIONS_STORAGE_DRIVER")
		}
	}

	if dsn := env("RESERVATIONS_SQLITE_DSN"); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	cfg.PostgresDSN = env("RESERVATIONS_POSTGRES_DSN")
	if cfg.StorageDriver == DriverPostgres && cfg.PostgresDSN == "" {
		missing = append(missing, "RESERVATIONS_POSTGRES_DSN")
	}

	if secret := env("RESERVATIONS_JWT_SECRET"); secret == "" {
		missing = append(missing, "RESERVATIONS_JWT_SECRET")
	} else {
		cfg.JWTSecret = secret
	}

	if rolesValue := env("RESERVATIONS_ADMIN_ROLES"); rolesValue != "" {
		roles := splitList(rolesValue)
		if len(roles) == 0 {
			invalid = append(invalid, "RESERVATIONS_ADMIN_ROLES")
		} else {
			cfg.AdminRoles = roles
		}
	}

	if hoursValue := env("RESERVATIONS_MAX_RESERVATION_DURATION_HOURS"); hoursValue != "" {
		hours, err := strconv.Atoi(hoursValue)
		if err != nil || hours <= 0 {
			invalid = append(invalid, "RESERVATIONS_MAX_RESERVATION_DURATION_HOURS")
		} else {
			cfg.MaxStationDuration = time.Duration(hours) * time.Hour
		}
	}

	parseDuration := func(key string, target *time.Duration, allowZero bool) {
		value := env(key)
		if value == "" {
			return
		}
		d, err := time.ParseDuration(value)
		if err != nil || d < 0 || (d == 0 && !allowZero) {
			invalid = append(invalid, key)
			return
		}
		*target = d
	}
	parseDuration("RESERVATIONS_EXPIRING_SOON_WINDOW", &cfg.ExpiringSoonWindow, false)
	parseDuration("RESERVATIONS_SWEEP_INTERVAL", &cfg.SweepInterval, true)
	parseDuration("RESERVATIONS_LOCK_TTL", &cfg.LockTTL, false)

	cfg.RedisAddr = env("RESERVATIONS_REDIS_ADDR")
	cfg.RedisPassword = env("RESERVATIONS_REDIS_PASSWORD")
	if dbValue := env("RESERVATIONS_REDIS_DB"); dbValue != "" {
		db, err := strconv.Atoi(dbValue)
		if err != nil || db < 0 {
			invalid = append(invalid, "RESERVATIONS_REDIS_DB")
		} else {
			cfg.RedisDB = db
		}
	}

	cfg.AMQPURL = env("RESERVATIONS_AMQP_URL")
	if queue := env("RESERVATIONS_EVENTS_QUEUE"); queue != "" {
		cfg.EventsQueue = queue
	}
	cfg.CatalogSeed = env("RESERVATIONS_CATALOG_SEED")

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables are not set: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variable values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
