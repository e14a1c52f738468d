package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/example/campus-reservations/internal/application"
	"github.com/example/campus-reservations/internal/catalog"
	"github.com/example/campus-reservations/internal/config"
	"github.com/example/campus-reservations/internal/events"
	httptransport "github.com/example/campus-reservations/internal/http"
	"github.com/example/campus-reservations/internal/lock"
	"github.com/example/campus-reservations/internal/logging"
	"github.com/example/campus-reservations/internal/metrics"
	"github.com/example/campus-reservations/internal/persistence"
	"github.com/example/campus-reservations/internal/persistence/memory"
	"github.com/example/campus-reservations/internal/persistence/postgres"
	"github.com/example/campus-reservations/internal/persistence/sqlite"
)

func main() {
	cfg, err := config.LoadWithDotenv(".env")
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stderr, nil)).Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.New(os.Stdout, cfg.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("reservation service stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	store, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := store.close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	locker, closeLocker, err := newLocker(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeLocker()

	publisher, closePublisher, err := newPublisher(cfg, logger)
	if err != nil {
		return err
	}
	defer closePublisher()

	svc := newServices(cfg, store, locker, publisher, uuid.NewString, time.Now, logger)

	if cfg.CatalogSeed != "" {
		seed, err := catalog.LoadFile(cfg.CatalogSeed)
		if err != nil {
			return fmt.Errorf("load catalog seed: %w", err)
		}
		if _, err := catalog.Apply(ctx, seed, svc.resources, logger); err != nil {
			return fmt.Errorf("apply catalog seed: %w", err)
		}
	}

	if changed, err := svc.projector.ReconcileAll(ctx); err != nil {
		logger.Warn("failed to reconcile resource statuses", "error", err)
	} else if changed > 0 {
		logger.Info("resource statuses reconciled", "changed", changed)
	}

	if cfg.SweepInterval > 0 {
		go svc.sweeper.Run(ctx, cfg.SweepInterval)
		logger.Info("background sweeper started", "interval", cfg.SweepInterval)
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           newHandler(cfg, svc, logger),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("reservation API listening", "addr", server.Addr, "storage", cfg.StorageDriver)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve http: %w", err)
	}
	return nil
}

// storage groups the repositories of one backend.
type storage struct {
	resources    persistence.ResourceRepository
	reservations persistence.ReservationRepository
	attributes   persistence.AttributeRepository
	close        func() error
}

func openStorage(ctx context.Context, cfg config.Config, logger *slog.Logger) (storage, error) {
	switch cfg.StorageDriver {
	case config.DriverMemory:
		store := memory.Open()
		return storage{resources: store, reservations: store, attributes: store, close: store.Close}, nil

	case config.DriverPostgres:
		store, err := postgres.Open(ctx, postgres.DefaultConfig(cfg.PostgresDSN), logger)
		if err != nil {
			return storage{}, fmt.Errorf("open postgres: %w", err)
		}
		if err := store.Migrate(ctx); err != nil {
			_ = store.Close()
			return storage{}, fmt.Errorf("migrate postgres: %w", err)
		}
		return storage{resources: store, reservations: store, attributes: store, close: store.Close}, nil

	case config.DriverSQLite, "":
		store, err := sqlite.Open(sqlite.DefaultSQLiteConfig(cfg.SQLiteDSN), logger)
		if err != nil {
			return storage{}, fmt.Errorf("open sqlite: %w", err)
		}
		if err := store.Migrate(ctx); err != nil {
			_ = store.Close()
			return storage{}, fmt.Errorf("migrate sqlite: %w", err)
		}
		return storage{resources: store, reservations: store, attributes: store, close: store.Close}, nil
	}
	return storage{}, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
}

// newLocker returns a Redis locker when an address is configured and an
// in-process locker otherwise.
func newLocker(ctx context.Context, cfg config.Config, logger *slog.Logger) (application.Locker, func(), error) {
	if cfg.RedisAddr == "" {
		return lock.NewLocal(), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}

	lockConfig := lock.DefaultRedisConfig()
	lockConfig.TTL = cfg.LockTTL
	closer := func() {
		if err := client.Close(); err != nil {
			logger.Error("failed to close redis client", "error", err)
		}
	}
	return lock.NewRedis(client, lockConfig, logger), closer, nil
}

// newPublisher returns nil when no broker is configured; the services then
// drop lifecycle events.
func newPublisher(cfg config.Config, logger *slog.Logger) (application.EventPublisher, func(), error) {
	if cfg.AMQPURL == "" {
		return nil, func() {}, nil
	}
	publisher, err := events.DialAMQP(cfg.AMQPURL, cfg.EventsQueue, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("connect amqp: %w", err)
	}
	closer := func() {
		if err := publisher.Close(); err != nil {
			logger.Error("failed to close amqp publisher", "error", err)
		}
	}
	return publisher, closer, nil
}

type services struct {
	resources    *application.ResourceService
	reservations *application.ReservationService
	projector    *application.StatusProjector
	sweeper      *application.Sweeper
	recorder     *metrics.Recorder
}

func newServices(cfg config.Config, store storage, locker application.Locker, publisher application.EventPublisher, idGenerator func() string, now func() time.Time, logger *slog.Logger) services {
	resourceRepo := newResourceRepositoryAdapter(store.resources)
	reservationRepo := newReservationRepositoryAdapter(store.reservations)
	attributeStore := newAttributeStoreAdapter(store.attributes)
	recorder := metrics.NewRecorder()

	projector := application.NewStatusProjector(resourceRepo, reservationRepo, now, logger)
	sweeper := application.NewSweeper(reservationRepo, projector, publisher, recorder, now, logger)

	return services{
		resources: application.NewResourceServiceWithLogger(resourceRepo, sweeper, projector, idGenerator, now, logger),
		reservations: application.NewReservationService(application.ReservationServiceDeps{
			Resources:          resourceRepo,
			Reservations:       reservationRepo,
			Attributes:         attributeStore,
			Sweeper:            sweeper,
			Projector:          projector,
			Locker:             locker,
			Events:             publisher,
			Metrics:            recorder,
			IDGenerator:        idGenerator,
			Now:                now,
			Logger:             logger,
			MaxStationDuration: cfg.MaxStationDuration,
			ExpiringSoonWindow: cfg.ExpiringSoonWindow,
		}),
		projector: projector,
		sweeper:   sweeper,
		recorder:  recorder,
	}
}

func newHandler(cfg config.Config, svc services, logger *slog.Logger) http.Handler {
	verifier := httptransport.NewJWTVerifier(cfg.JWTSecret, cfg.AdminRoles)
	return httptransport.NewRouter(httptransport.RouterConfig{
		Resources:    httptransport.NewResourceHandler(svc.resources, logger),
		Reservations: httptransport.NewReservationHandler(svc.reservations, logger),
		Metrics:      svc.recorder.Handler(),
		Auth:         httptransport.RequireBearer(verifier, logger),
		Middleware:   []func(http.Handler) http.Handler{httptransport.RequestLogger(logger)},
	})
}
