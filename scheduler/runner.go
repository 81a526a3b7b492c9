package scheduler

import (
	"context"
	"log/slog"
	"time"
)

// Trigger requests an out-of-band cycle.
type Trigger interface {
	TriggerNow(ctx context.Context) error
}

type RunnerConfig struct {
	RunOnStart bool
}

// Runner is the in-process timer backend. It implements suture.Service.
type Runner struct {
	cycle    *Cycle
	schedule Schedule
	logger   *slog.Logger
	cfg      RunnerConfig
	trigger  chan string
	now      func() time.Time
}

func NewRunner(cycle *Cycle, schedule Schedule, logger *slog.Logger, cfg RunnerConfig) *Runner {
	return &Runner{
		cycle:    cycle,
		schedule: schedule,
		logger:   logger.With(slog.String("component", "tournament_runner")),
		cfg:      cfg,
		trigger:  make(chan string, 1),
		now:      time.Now,
	}
}

func (r *Runner) Serve(ctx context.Context) error {
	r.logger.InfoContext(ctx, "tournament scheduler started", slog.Bool("run_on_start", r.cfg.RunOnStart))

	if r.cfg.RunOnStart {
		if _, ran := r.cycle.Bootstrap(ctx); ran {
			r.logger.InfoContext(ctx, "bootstrap cycle completed")
		}
	}

	for {
		next := r.schedule.Next(r.now())
		r.logger.InfoContext(ctx, "next tournament cycle scheduled", slog.Time("at", next))
		timer := time.NewTimer(next.Sub(r.now()))

		select {
		case <-ctx.Done():
			timer.Stop()
			r.logger.Info("tournament scheduler stopped")
			return ctx.Err()
		case <-timer.C:
			r.cycle.Run(ctx, TriggerSchedule)
		case trigger := <-r.trigger:
			timer.Stop()
			r.cycle.Run(ctx, trigger)
		}
	}
}

// TriggerNow queues a manual cycle. Requests made while one is already
// pending are coalesced into it.
func (r *Runner) TriggerNow(ctx context.Context) error {
	select {
	case r.trigger <- TriggerManual:
		r.logger.InfoContext(ctx, "manual tournament cycle queued")
	default:
		r.logger.InfoContext(ctx, "manual tournament cycle already pending")
	}
	return nil
}

func (r *Runner) String() string {
	return "tournament-runner"
}
