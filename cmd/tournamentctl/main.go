package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/Dosada05/movie-tournament/catalog"
	"github.com/Dosada05/movie-tournament/config"
	"github.com/Dosada05/movie-tournament/db"
	"github.com/Dosada05/movie-tournament/middleware"
	"github.com/Dosada05/movie-tournament/repositories"
	"github.com/Dosada05/movie-tournament/scheduler"
	"github.com/Dosada05/movie-tournament/services"
	"github.com/Dosada05/movie-tournament/storage"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	app := &cli.App{
		Name:  "tournamentctl",
		Usage: "operate the movie tournament database",
		Commands: []*cli.Command{
			migrateCommand(logger),
			cycleCommand(logger),
			historyCommand(),
			tokenCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func connect() (*config.Config, *sql.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if cfg.StorageDriver != config.StorageDriverPostgres {
		return nil, nil, fmt.Errorf("tournamentctl requires STORAGE_DRIVER=%s", config.StorageDriverPostgres)
	}
	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second, db.DefaultPoolConfig())
	if err != nil {
		return nil, nil, err
	}
	return cfg, dbConn, nil
}

func migrateCommand(logger *slog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "apply the tournament schema",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "river", Usage: "also apply River's job queue schema"},
		},
		Action: func(c *cli.Context) error {
			cfg, dbConn, err := connect()
			if err != nil {
				return err
			}
			defer dbConn.Close()

			if err := db.Migrate(c.Context, dbConn); err != nil {
				return err
			}
			fmt.Println("tournament schema is up to date")

			if !c.Bool("river") {
				return nil
			}
			pool, err := pgxpool.New(c.Context, cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("failed to create pgx pool: %w", err)
			}
			defer pool.Close()
			if err := scheduler.MigrateRiver(c.Context, pool); err != nil {
				return err
			}
			logger.Info("River schema migrated")
			fmt.Println("River schema is up to date")
			return nil
		},
	}
}

func cycleCommand(logger *slog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "cycle",
		Usage: "run one close-then-open cycle now",
		Action: func(c *cli.Context) error {
			cfg, dbConn, err := connect()
			if err != nil {
				return err
			}
			defer dbConn.Close()

			picker, err := catalog.NewFromConfig(cfg.Catalog, logger)
			if err != nil {
				return err
			}
			archiver, err := storage.NewArchiverFromConfig(c.Context, cfg.Archive, logger)
			if err != nil {
				return err
			}

			lifecycle := services.NewLifecycleService(repositories.NewPostgresMatchRepository(dbConn), logger)
			cycle := scheduler.NewCycle(lifecycle, picker, nil, archiver, logger, scheduler.CycleConfig{
				StepTimeout:        cfg.Tournament.StepTimeout,
				ContendersPerMatch: cfg.Tournament.ContendersPerMatch,
			})

			report := cycle.Run(c.Context, scheduler.TriggerManual)
			if report.CloseErr != nil {
				fmt.Printf("close step failed: %v\n", report.CloseErr)
			} else if report.Closed != nil {
				fmt.Printf("closed round %d (undecided: %t)\n", report.Closed.RoundNumber, report.Closed.IsUndecided())
			}
			if report.OpenErr != nil {
				return fmt.Errorf("open step failed: %w", report.OpenErr)
			}
			fmt.Printf("opened round %d (match %d)\n", report.Opened.RoundNumber, report.Opened.ID)
			return nil
		},
	}
}

func historyCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "print the winner history as JSON",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Value: 20},
			&cli.IntFlag{Name: "offset", Value: 0},
		},
		Action: func(c *cli.Context) error {
			_, dbConn, err := connect()
			if err != nil {
				return err
			}
			defer dbConn.Close()

			query := services.NewQueryService(repositories.NewPostgresMatchRepository(dbConn))
			history, err := query.WinnerHistory(c.Context, c.Int("limit"), c.Int("offset"))
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(history)
		},
	}
}

func tokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "issue a member token for local testing",
		Flags: []cli.Flag{
			&cli.Int64Flag{Name: "member-id", Required: true},
			&cli.StringFlag{Name: "role", Value: middleware.RoleMember},
			&cli.DurationFlag{Name: "ttl", Value: 24 * time.Hour},
		},
		Action: func(c *cli.Context) error {
			_ = godotenv.Load()
			secret := os.Getenv("JWT_SECRET_KEY")
			if secret == "" {
				return fmt.Errorf("JWT_SECRET_KEY environment variable is not set")
			}
			token, err := middleware.NewToken(secret, c.Int64("member-id"), c.String("role"), c.Duration("ttl"))
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
}
