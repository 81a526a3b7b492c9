package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
)

const (
	CycleJobKind = "tournament_cycle"
	queueName    = "tournament"
)

// CycleArgs is the River job for one tournament cycle.
type CycleArgs struct {
	Trigger string `json:"trigger"`
}

func (CycleArgs) Kind() string { return CycleJobKind }

// InsertOpts disables retries. A failed open step waits for the next firing.
func (CycleArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{MaxAttempts: 1, Queue: queueName}
}

type CycleWorker struct {
	river.WorkerDefaults[CycleArgs]
	cycle *Cycle
}

func NewCycleWorker(cycle *Cycle) *CycleWorker {
	return &CycleWorker{cycle: cycle}
}

func (w *CycleWorker) Work(ctx context.Context, job *river.Job[CycleArgs]) error {
	report := w.cycle.Run(ctx, job.Args.Trigger)
	if report.OpenErr != nil {
		return fmt.Errorf("open step failed: %w", report.OpenErr)
	}
	return nil
}

// Timeout covers both steps plus the archive and publish work after close.
func (w *CycleWorker) Timeout(*river.Job[CycleArgs]) time.Duration {
	return 3*w.cycle.StepTimeout() + 10*time.Second
}

// Queue is the River backend: a periodic job on the weekly schedule and
// manual triggers inserted as jobs. It implements suture.Service.
type Queue struct {
	client *river.Client[pgx.Tx]
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewQueue(ctx context.Context, dsn string, cycle *Cycle, schedule Schedule, logger *slog.Logger) (*Queue, error) {
	logger = logger.With(slog.String("component", "river_queue"))

	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN for River: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database for River: %w", err)
	}

	if err := MigrateRiver(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, NewCycleWorker(cycle))

	periodic := river.NewPeriodicJob(
		schedule,
		func() (river.JobArgs, *river.InsertOpts) {
			return CycleArgs{Trigger: TriggerSchedule}, nil
		},
		&river.PeriodicJobOpts{},
	)

	client, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			queueName: {MaxWorkers: 1},
		},
		Workers:      workers,
		PeriodicJobs: []*river.PeriodicJob{periodic},
		Logger:       logger,
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create River client: %w", err)
	}

	return &Queue{client: client, pool: pool, logger: logger}, nil
}

// MigrateRiver applies River's own schema.
func MigrateRiver(ctx context.Context, pool *pgxpool.Pool) error {
	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		return fmt.Errorf("failed to create River migrator: %w", err)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		return fmt.Errorf("failed to migrate River schema: %w", err)
	}
	return nil
}

func (q *Queue) Serve(ctx context.Context) error {
	if err := q.client.Start(ctx); err != nil {
		return fmt.Errorf("failed to start River client: %w", err)
	}
	q.logger.InfoContext(ctx, "River queue started")

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := q.client.Stop(stopCtx); err != nil {
		q.logger.Error("failed to stop River client", slog.Any("error", err))
	}
	q.logger.Info("River queue stopped")
	return ctx.Err()
}

// TriggerNow inserts a manual cycle job. Repeat requests within a minute are
// deduplicated by River.
func (q *Queue) TriggerNow(ctx context.Context) error {
	_, err := q.client.Insert(ctx, CycleArgs{Trigger: TriggerManual}, &river.InsertOpts{
		MaxAttempts: 1,
		Queue:       queueName,
		UniqueOpts:  river.UniqueOpts{ByPeriod: time.Minute},
	})
	if err != nil {
		return fmt.Errorf("failed to insert manual cycle job: %w", err)
	}
	q.logger.InfoContext(ctx, "manual tournament cycle job inserted")
	return nil
}

func (q *Queue) Close() {
	q.pool.Close()
}

func (q *Queue) String() string {
	return "tournament-river-queue"
}
