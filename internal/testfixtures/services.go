package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/yescount/internal/application"
	"github.com/example/yescount/internal/cache"
)

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers, clocks and an in-memory derived cache.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
	Cache       cache.DerivedCache
	Sessions    application.SessionSettings
	Events      application.EventSettings
	Ranking     application.RecommendationSettings
	Logger      *slog.Logger
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("session"),
		Sessions:    application.DefaultSessionSettings(),
		Events:      application.EventSettings{Location: time.UTC},
		Ranking:     application.DefaultRecommendationSettings(),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("session")
	}
	if factory.Cache == nil {
		factory.Cache = cache.NewMemory(time.Minute, 256, factory.Clock.NowFunc())
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

// WithCache overrides the derived value cache.
func WithCache(derived cache.DerivedCache) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Cache = derived
	}
}

// WithSessionSettings overrides the session lifecycle settings.
func WithSessionSettings(settings application.SessionSettings) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Sessions = settings
	}
}

// WithLogger sets the logger handed to every service.
func WithLogger(logger *slog.Logger) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Logger = logger
	}
}

// Services bundles the application services sharing one store and cache.
type Services struct {
	Sessions        *application.SessionService
	Votes           *application.VoteService
	Availability    *application.AvailabilityService
	Recommendations *application.RecommendationService
	Events          *application.EventService
}

// NewServices builds every application service over repos.
func (f *ServiceFactory) NewServices(repos application.Repositories) Services {
	now := f.Clock.NowFunc()
	return Services{
		Sessions:        application.NewSessionServiceWithLogger(repos, f.Cache, f.Sessions, f.IDGenerator.NextFunc(), now, f.Logger),
		Votes:           application.NewVoteServiceWithLogger(repos, f.Cache, now, f.Logger),
		Availability:    application.NewAvailabilityServiceWithLogger(repos, f.Cache, now, f.Logger),
		Recommendations: application.NewRecommendationServiceWithLogger(repos, f.Cache, f.Ranking, f.Logger),
		Events:          application.NewEventServiceWithLogger(repos.Events, f.Events, now, f.Logger),
	}
}
