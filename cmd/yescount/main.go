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

	"github.com/example/yescount/internal/application"
	"github.com/example/yescount/internal/cache"
	"github.com/example/yescount/internal/config"
	"github.com/example/yescount/internal/engine"
	httptransport "github.com/example/yescount/internal/http"
	"github.com/example/yescount/internal/janitor"
	"github.com/example/yescount/internal/logging"
	"github.com/example/yescount/internal/persistence/sqlstore"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stderr, nil)).Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	level, _ := logging.ParseLevel(cfg.LogLevel)
	logger := logging.New(os.Stdout, level)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("yescount exited with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	derived, closeCache, err := openCache(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeCache()

	purge, err := janitor.New(store.Sessions, janitor.Options{
		Schedule:  cfg.PurgeSchedule,
		Retention: cfg.PurgeRetention,
		Logger:    logger,
	})
	if err != nil {
		return err
	}
	purge.Start()
	defer func() { <-purge.Stop().Done() }()

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           newHandler(store, derived, cfg, logger, time.Now, uuid.NewString),
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

	logger.Info("yescount API listening", "addr", server.Addr, "postgres", cfg.UsesPostgres(), "redis", cfg.RedisURL != "")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server encountered error: %w", err)
	}
	return nil
}

// openStore connects to Postgres when a database URL is configured and to
// the SQLite file otherwise.
func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (*sqlstore.Store, error) {
	dbConfig := sqlstore.SQLiteConfig(cfg.SQLitePath)
	if cfg.UsesPostgres() {
		dbConfig = sqlstore.PostgresConfig(cfg.DatabaseURL)
	}
	store, err := sqlstore.Open(ctx, dbConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	return store, nil
}

// openCache selects Redis when configured so several API instances share
// derived values, and the in-process cache otherwise.
func openCache(ctx context.Context, cfg config.Config, logger *slog.Logger) (cache.DerivedCache, func(), error) {
	if cfg.RedisURL == "" {
		return cache.NewMemory(cfg.CacheTTL, cfg.CacheMaxEntries, time.Now), func() {}, nil
	}
	redisCache, err := cache.DialRedis(ctx, cfg.RedisURL, cfg.CacheTTL, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return redisCache, func() {
		if err := redisCache.Close(); err != nil {
			logger.Error("failed to close redis client", "error", err)
		}
	}, nil
}

func newHandler(store *sqlstore.Store, derived cache.DerivedCache, cfg config.Config, logger *slog.Logger, now func() time.Time, idGenerator func() string) http.Handler {
	repos := application.Repositories{
		Events:       store.Events,
		Sessions:     store.Sessions,
		Participants: store.Participants,
		Votes:        store.Votes,
		Availability: store.Availability,
	}
	loc := cfg.Location()

	sessionService := application.NewSessionServiceWithLogger(repos, derived, application.SessionSettings{
		TTL:             cfg.SessionTTL,
		MaxParticipants: cfg.MaxParticipants,
		BaseURL:         cfg.BaseURL,
	}, idGenerator, now, logger)
	voteService := application.NewVoteServiceWithLogger(repos, derived, now, logger)
	availabilityService := application.NewAvailabilityServiceWithLogger(repos, derived, now, logger)
	recommendationService := application.NewRecommendationServiceWithLogger(repos, derived, application.RecommendationSettings{
		Weights:     engine.Weights{Interest: cfg.WeightInterest, Overlap: cfg.WeightOverlap, Admin: cfg.WeightAdmin},
		DefaultTopN: cfg.DefaultTopN,
		Location:    loc,
	}, logger)
	eventService := application.NewEventServiceWithLogger(store.Events, application.EventSettings{
		BallotSource: cfg.BallotSource,
		BallotSize:   cfg.BallotSize,
		Location:     loc,
	}, now, logger)

	return httptransport.NewRouter(httptransport.RouterConfig{
		Sessions:        httptransport.NewSessionHandler(sessionService, logger),
		Votes:           httptransport.NewVoteHandler(voteService, logger),
		Availability:    httptransport.NewAvailabilityHandler(availabilityService, logger),
		Recommendations: httptransport.NewRecommendationHandler(recommendationService, logger),
		Events:          httptransport.NewEventHandler(eventService, now, logger),
		Health:          httptransport.NewHealthHandler(store, logger),
		Middleware: []func(http.Handler) http.Handler{
			httptransport.CorrelationID(),
			httptransport.RequestLogger(logger),
		},
	})
}
