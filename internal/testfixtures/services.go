package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/campus-reservations/internal/application"
)

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("id"),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// ResourceServiceDeps captures dependencies for constructing a resource
// service. Reservations is optional; without it reads skip the sweep and
// activity changes are not re-projected.
type ResourceServiceDeps struct {
	Resources    application.ResourceRepository
	Reservations application.ReservationRepository
	IDGenerator  func() string
	Now          func() time.Time
	Logger       *slog.Logger
}

// NewResourceService builds a resource service using the supplied dependencies
// combined with the factory defaults.
func (f *ServiceFactory) NewResourceService(deps ResourceServiceDeps) *application.ResourceService {
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = f.IDGenerator.NextFunc()
	}
	now := deps.Now
	if now == nil {
		now = f.Clock.NowFunc()
	}

	var (
		projector *application.StatusProjector
		sweeper   *application.Sweeper
	)
	if deps.Reservations != nil {
		projector = application.NewStatusProjector(deps.Resources, deps.Reservations, now, deps.Logger)
		sweeper = application.NewSweeper(deps.Reservations, projector, nil, nil, now, deps.Logger)
	}

	return application.NewResourceServiceWithLogger(
		deps.Resources,
		sweeper,
		projector,
		idGen,
		now,
		deps.Logger,
	)
}

// NewReservationService builds a reservation service, filling the identifier
// generator and clock from the factory when deps leaves them unset.
func (f *ServiceFactory) NewReservationService(deps application.ReservationServiceDeps) *application.ReservationService {
	if deps.IDGenerator == nil {
		deps.IDGenerator = f.IDGenerator.NextFunc()
	}
	if deps.Now == nil {
		deps.Now = f.Clock.NowFunc()
	}
	return application.NewReservationService(deps)
}
