package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Dosada05/movie-tournament/catalog"
	"github.com/Dosada05/movie-tournament/events"
	"github.com/Dosada05/movie-tournament/metrics"
	"github.com/Dosada05/movie-tournament/models"
	"github.com/Dosada05/movie-tournament/services"
	"github.com/Dosada05/movie-tournament/storage"
)

const (
	TriggerSchedule = "schedule"
	TriggerManual   = "manual"
	TriggerStartup  = "startup"

	stepClose = "close"
	stepOpen  = "open"

	defaultStepTimeout        = 30 * time.Second
	defaultContendersPerMatch = 2
)

// Report describes one cycle. CloseErr never prevents the open step.
type Report struct {
	Trigger   string
	Skipped   bool
	StartedAt time.Time
	Duration  time.Duration
	Closed    *models.Match
	CloseErr  error
	Opened    *models.Match
	OpenErr   error
}

type CycleConfig struct {
	StepTimeout        time.Duration
	ContendersPerMatch int
}

// Cycle runs close-then-open. Only one run is in flight at a time.
type Cycle struct {
	lifecycle services.LifecycleService
	picker    catalog.Picker
	publisher events.Publisher
	archiver  storage.ResultArchiver
	logger    *slog.Logger
	cfg       CycleConfig
	now       func() time.Time

	mu sync.Mutex
}

func NewCycle(
	lifecycle services.LifecycleService,
	picker catalog.Picker,
	publisher events.Publisher,
	archiver storage.ResultArchiver,
	logger *slog.Logger,
	cfg CycleConfig,
) *Cycle {
	if cfg.StepTimeout <= 0 {
		cfg.StepTimeout = defaultStepTimeout
	}
	if cfg.ContendersPerMatch < 2 {
		cfg.ContendersPerMatch = defaultContendersPerMatch
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if archiver == nil {
		archiver = storage.NopArchiver{}
	}
	return &Cycle{
		lifecycle: lifecycle,
		picker:    picker,
		publisher: publisher,
		archiver:  archiver,
		logger:    logger.With(slog.String("component", "tournament_cycle")),
		cfg:       cfg,
		now:       time.Now,
	}
}

// StepTimeout is the bound applied to each of the two steps.
func (c *Cycle) StepTimeout() time.Duration {
	return c.cfg.StepTimeout
}

func (c *Cycle) Run(ctx context.Context, trigger string) Report {
	if !c.mu.TryLock() {
		c.logger.WarnContext(ctx, "tournament cycle already running, skipping", slog.String("trigger", trigger))
		return Report{Trigger: trigger, Skipped: true, StartedAt: c.now()}
	}
	defer c.mu.Unlock()

	report := Report{Trigger: trigger, StartedAt: c.now()}
	metrics.RecordCycleRun(trigger)
	c.logger.InfoContext(ctx, "tournament cycle started", slog.String("trigger", trigger))

	report.Closed, report.CloseErr = c.runStep(ctx, stepClose, c.closeStep)
	if report.CloseErr != nil {
		// The open step runs regardless so one bad close cannot stall the tournament.
		c.logger.ErrorContext(ctx, "close step failed, continuing with open step",
			slog.String("trigger", trigger),
			slog.Any("error", report.CloseErr))
	} else if report.Closed != nil {
		c.afterClose(ctx, report.Closed)
	}

	report.Opened, report.OpenErr = c.runStep(ctx, stepOpen, c.openStep)
	if report.OpenErr != nil {
		c.logger.ErrorContext(ctx, "open step failed, no match opened until next trigger",
			slog.String("trigger", trigger),
			slog.Any("error", report.OpenErr))
		if report.CloseErr == nil && report.Closed != nil {
			metrics.SetOpenMatchRound(0)
		}
	} else {
		c.afterOpen(ctx, report.Opened)
	}

	report.Duration = c.now().Sub(report.StartedAt)
	c.logger.InfoContext(ctx, "tournament cycle finished",
		slog.String("trigger", trigger),
		slog.Bool("close_failed", report.CloseErr != nil),
		slog.Bool("open_failed", report.OpenErr != nil),
		slog.Duration("duration", report.Duration))
	return report
}

// Bootstrap runs a startup cycle only when no match is open.
func (c *Cycle) Bootstrap(ctx context.Context) (Report, bool) {
	open, err := c.lifecycle.OpenMatch(ctx)
	switch {
	case err == nil:
		metrics.SetOpenMatchRound(open.RoundNumber)
		return Report{}, false
	case errors.Is(err, services.ErrNoOpenMatch):
		return c.Run(ctx, TriggerStartup), true
	default:
		c.logger.ErrorContext(ctx, "failed to check open match on startup", slog.Any("error", err))
		return Report{}, false
	}
}

func (c *Cycle) runStep(ctx context.Context, step string, fn func(context.Context) (*models.Match, error)) (*models.Match, error) {
	stepCtx, cancel := context.WithTimeout(ctx, c.cfg.StepTimeout)
	defer cancel()

	start := time.Now()
	m, err := fn(stepCtx)
	metrics.RecordCycleStep(step, time.Since(start), err)
	return m, err
}

// closeStep returns a nil match when there is nothing to close.
func (c *Cycle) closeStep(ctx context.Context) (*models.Match, error) {
	open, err := c.lifecycle.OpenMatch(ctx)
	if err != nil {
		if errors.Is(err, services.ErrNoOpenMatch) {
			c.logger.InfoContext(ctx, "no open match, skipping close step")
			return nil, nil
		}
		return nil, err
	}
	closed, err := c.lifecycle.SettleMatch(ctx, open.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to settle match %d: %w", open.ID, err)
	}
	return closed, nil
}

func (c *Cycle) openStep(ctx context.Context) (*models.Match, error) {
	movieIDs, err := c.picker.PickContenders(ctx, c.cfg.ContendersPerMatch)
	if err != nil {
		return nil, fmt.Errorf("failed to pick contenders: %w", err)
	}
	return c.lifecycle.OpenNewMatch(ctx, movieIDs, c.now())
}

func (c *Cycle) afterClose(ctx context.Context, closed *models.Match) {
	sideCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.StepTimeout)
	defer cancel()

	result := models.NewMatchResult(closed)
	if uploaded, err := c.archiver.Archive(sideCtx, result); err != nil {
		c.logger.WarnContext(ctx, "failed to archive match result",
			slog.Int64("match_id", closed.ID),
			slog.Any("error", err))
	} else if uploaded != nil {
		c.logger.InfoContext(ctx, "match result archived",
			slog.Int64("match_id", closed.ID),
			slog.String("key", uploaded.Key))
	}
	if err := c.publisher.PublishMatchClosed(sideCtx, events.MatchClosed{Result: result}); err != nil {
		c.logger.WarnContext(ctx, "failed to publish match closed event", slog.Int64("match_id", closed.ID), slog.Any("error", err))
	}
}

func (c *Cycle) afterOpen(ctx context.Context, opened *models.Match) {
	metrics.SetOpenMatchRound(opened.RoundNumber)
	if err := c.publisher.PublishMatchOpened(context.WithoutCancel(ctx), events.NewMatchOpened(opened)); err != nil {
		c.logger.WarnContext(ctx, "failed to publish match opened event", slog.Int64("match_id", opened.ID), slog.Any("error", err))
	}
}
