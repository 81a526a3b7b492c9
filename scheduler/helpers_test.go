package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Dosada05/movie-tournament/catalog"
	"github.com/Dosada05/movie-tournament/events"
	"github.com/Dosada05/movie-tournament/models"
	"github.com/Dosada05/movie-tournament/repositories"
	"github.com/Dosada05/movie-tournament/services"
	"github.com/Dosada05/movie-tournament/storage"
)

var errStoreDown = errors.New("store unavailable")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// flakyLifecycle fails selected calls and delegates the rest.
type flakyLifecycle struct {
	services.LifecycleService
	failOpenMatch   bool
	failSettleMatch bool
}

func (l *flakyLifecycle) OpenMatch(ctx context.Context) (*models.Match, error) {
	if l.failOpenMatch {
		return nil, errStoreDown
	}
	return l.LifecycleService.OpenMatch(ctx)
}

func (l *flakyLifecycle) SettleMatch(ctx context.Context, matchID int64) (*models.Match, error) {
	if l.failSettleMatch {
		return nil, errStoreDown
	}
	return l.LifecycleService.SettleMatch(ctx, matchID)
}

type recordingPublisher struct {
	mu     sync.Mutex
	opened []events.MatchOpened
	closed []events.MatchClosed
}

func (p *recordingPublisher) PublishVoteCast(context.Context, events.VoteCast) error { return nil }

func (p *recordingPublisher) PublishMatchOpened(_ context.Context, e events.MatchOpened) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.opened = append(p.opened, e)
	return nil
}

func (p *recordingPublisher) PublishMatchClosed(_ context.Context, e events.MatchClosed) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = append(p.closed, e)
	return nil
}

type recordingArchiver struct {
	mu      sync.Mutex
	results []models.MatchResult
}

func (a *recordingArchiver) Archive(_ context.Context, result models.MatchResult) (*storage.UploadResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.results = append(a.results, result)
	return &storage.UploadResult{Key: storage.ResultKey("results", result.RoundNumber)}, nil
}

type cycleFixture struct {
	store     *repositories.MemoryStore
	lifecycle *flakyLifecycle
	votes     services.VoteService
	publisher *recordingPublisher
	archiver  *recordingArchiver
	cycle     *Cycle
}

func newCycleFixture(t *testing.T) *cycleFixture {
	t.Helper()
	store := repositories.NewMemoryStore()
	lifecycle := &flakyLifecycle{LifecycleService: services.NewLifecycleService(store, discardLogger())}
	pub := &recordingPublisher{}
	arch := &recordingArchiver{}
	cycle := NewCycle(
		lifecycle,
		catalog.NewStaticPicker([]int64{11, 12, 13, 14, 15}),
		pub,
		arch,
		discardLogger(),
		CycleConfig{StepTimeout: time.Second, ContendersPerMatch: 2},
	)
	return &cycleFixture{
		store:     store,
		lifecycle: lifecycle,
		votes:     services.NewVoteService(store, store, nil, discardLogger()),
		publisher: pub,
		archiver:  arch,
		cycle:     cycle,
	}
}

func (f *cycleFixture) vote(t *testing.T, memberID, movieID int64) {
	t.Helper()
	_, err := f.votes.CastVote(context.Background(), services.CastVoteInput{MemberID: memberID, MovieID: movieID})
	require.NoError(t, err)
}
