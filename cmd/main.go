package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Dosada05/movie-tournament/catalog"
	"github.com/Dosada05/movie-tournament/config"
	"github.com/Dosada05/movie-tournament/db"
	"github.com/Dosada05/movie-tournament/events"
	"github.com/Dosada05/movie-tournament/handlers"
	"github.com/Dosada05/movie-tournament/live"
	"github.com/Dosada05/movie-tournament/middleware"
	"github.com/Dosada05/movie-tournament/repositories"
	"github.com/Dosada05/movie-tournament/routes"
	"github.com/Dosada05/movie-tournament/scheduler"
	"github.com/Dosada05/movie-tournament/services"
	"github.com/Dosada05/movie-tournament/storage"
	"github.com/Dosada05/movie-tournament/supervisor"
)

// @title        Movie Tournament API
// @version      1.0
// @description  Weekly head-to-head movie matches with member voting.
// @BasePath     /api/v1
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("application failed", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("application exited")
}

func run(logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.Info("configuration loaded",
		slog.Int("port", cfg.ServerPort),
		slog.String("storage_driver", cfg.StorageDriver),
		slog.String("scheduler_backend", cfg.Tournament.SchedulerBackend))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	matchRepo, voteRepo, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	bus := events.NewBus(logger)
	defer func() {
		if err := bus.Close(); err != nil {
			logger.Error("failed to close event bus", slog.Any("error", err))
		}
	}()

	picker, err := catalog.NewFromConfig(cfg.Catalog, logger)
	if err != nil {
		return fmt.Errorf("failed to configure movie catalog: %w", err)
	}

	archiver, err := storage.NewArchiverFromConfig(ctx, cfg.Archive, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize result archive: %w", err)
	}

	lifecycleService := services.NewLifecycleService(matchRepo, logger)
	voteService := services.NewVoteService(matchRepo, voteRepo, bus, logger)
	queryService := services.NewQueryService(matchRepo)
	logger.Info("services initialized")

	cycle := scheduler.NewCycle(lifecycleService, picker, bus, archiver, logger, scheduler.CycleConfig{
		StepTimeout:        cfg.Tournament.StepTimeout,
		ContendersPerMatch: cfg.Tournament.ContendersPerMatch,
	})
	schedule, err := scheduler.WeeklyFromConfig(cfg.Tournament)
	if err != nil {
		return err
	}
	logger.Info("tournament schedule configured", slog.String("schedule", schedule.String()))

	root := supervisor.NewRoot("movie-tournament", logger, supervisor.TreeConfig{})

	var trigger scheduler.Trigger
	switch cfg.Tournament.SchedulerBackend {
	case config.SchedulerBackendRiver:
		queue, err := scheduler.NewQueue(ctx, cfg.DatabaseURL, cycle, schedule, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize River queue: %w", err)
		}
		defer queue.Close()
		if cfg.Tournament.RunOnStart {
			cycle.Bootstrap(ctx)
		}
		root.Add(queue)
		trigger = queue
	default:
		runner := scheduler.NewRunner(cycle, schedule, logger, scheduler.RunnerConfig{RunOnStart: cfg.Tournament.RunOnStart})
		root.Add(runner)
		trigger = runner
	}

	hub := live.NewHub(logger)
	root.Add(hub)
	root.Add(live.NewForwarder(bus, hub, logger))

	router := chi.NewRouter()
	routes.SetupRoutes(router, routes.Handlers{
		Match:     handlers.NewMatchHandler(queryService, voteService),
		Vote:      handlers.NewVoteHandler(voteService),
		Admin:     handlers.NewAdminHandler(trigger),
		WebSocket: handlers.NewWebSocketHandler(hub, queryService, cfg.CORSAllowedOrigins),
	}, routes.Options{
		Auth:               middleware.NewAuthenticator(cfg.JWTSecretKey, logger),
		Logger:             logger,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		VoteRateLimit:      cfg.VoteRateLimit,
	})
	logger.Info("routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}
	root.Add(supervisor.NewHTTPServerService(server, 15*time.Second, logger))

	logger.Info("starting server", slog.String("address", server.Addr))
	if err := root.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("supervisor stopped: %w", err)
	}
	return nil
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (repositories.MatchRepository, repositories.VoteRepository, func(), error) {
	if cfg.StorageDriver == config.StorageDriverMemory {
		logger.Warn("using in-memory storage, state is lost on restart")
		store := repositories.NewMemoryStore()
		return store, store, func() {}, nil
	}

	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second, db.DefaultPoolConfig())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	logger.Info("database connection established")

	if err := db.Migrate(ctx, dbConn); err != nil {
		closeDB(dbConn, logger)
		return nil, nil, nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return repositories.NewPostgresMatchRepository(dbConn),
		repositories.NewPostgresVoteRepository(dbConn),
		func() { closeDB(dbConn, logger) },
		nil
}

func closeDB(dbConn *sql.DB, logger *slog.Logger) {
	if err := dbConn.Close(); err != nil {
		logger.Error("failed to close database connection", slog.Any("error", err))
		return
	}
	logger.Info("database connection closed")
}
