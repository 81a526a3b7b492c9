package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/riverqueue/river"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/movie-tournament/models"
)

type farSchedule struct{}

func (farSchedule) Next(current time.Time) time.Time { return current.Add(24 * time.Hour) }

func startRunner(t *testing.T, f *cycleFixture, cfg RunnerConfig) (*Runner, <-chan error) {
	t.Helper()
	runner := NewRunner(f.cycle, farSchedule{}, discardLogger(), cfg)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runner.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Error("runner did not stop")
		}
	})
	return runner, done
}

func openMatch(f *cycleFixture) *models.Match {
	m, err := f.lifecycle.OpenMatch(context.Background())
	if err != nil {
		return nil
	}
	return m
}

func TestRunner_TriggerNowRunsCycle(t *testing.T) {
	f := newCycleFixture(t)
	runner, _ := startRunner(t, f, RunnerConfig{})

	require.Nil(t, openMatch(f))
	require.NoError(t, runner.TriggerNow(context.Background()))

	assert.Eventually(t, func() bool {
		m := openMatch(f)
		return m != nil && m.RoundNumber == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, runner.TriggerNow(context.Background()))
	assert.Eventually(t, func() bool {
		m := openMatch(f)
		return m != nil && m.RoundNumber == 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRunner_RunOnStartBootstraps(t *testing.T) {
	f := newCycleFixture(t)
	startRunner(t, f, RunnerConfig{RunOnStart: true})

	assert.Eventually(t, func() bool { return openMatch(f) != nil }, 2*time.Second, 10*time.Millisecond)
}

func TestRunner_TriggerNowCoalesces(t *testing.T) {
	f := newCycleFixture(t)
	runner := NewRunner(f.cycle, farSchedule{}, discardLogger(), RunnerConfig{})

	require.NoError(t, runner.TriggerNow(context.Background()))
	require.NoError(t, runner.TriggerNow(context.Background()))
	assert.Len(t, runner.trigger, 1)
}

func TestRunner_StopsOnCancel(t *testing.T) {
	f := newCycleFixture(t)
	runner := NewRunner(f.cycle, farSchedule{}, discardLogger(), RunnerConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, runner.Serve(ctx), context.Canceled)
	assert.Equal(t, "tournament-runner", runner.String())
}

func TestCycleArgs(t *testing.T) {
	args := CycleArgs{Trigger: TriggerManual}
	assert.Equal(t, "tournament_cycle", args.Kind())

	opts := args.InsertOpts()
	assert.Equal(t, 1, opts.MaxAttempts)
	assert.Equal(t, "tournament", opts.Queue)
}

func TestCycleWorker_Timeout(t *testing.T) {
	f := newCycleFixture(t)
	w := NewCycleWorker(f.cycle)
	assert.Equal(t, 13*time.Second, w.Timeout(&river.Job[CycleArgs]{}))
}

func TestCycleWorker_WorkReportsOpenFailure(t *testing.T) {
	f := newCycleFixture(t)
	w := NewCycleWorker(f.cycle)
	job := &river.Job[CycleArgs]{Args: CycleArgs{Trigger: TriggerManual}}

	require.NoError(t, w.Work(context.Background(), job))

	f.lifecycle.failSettleMatch = true
	assert.Error(t, w.Work(context.Background(), job))
}
