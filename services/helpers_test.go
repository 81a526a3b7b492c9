package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Dosada05/movie-tournament/events"
	"github.com/Dosada05/movie-tournament/models"
	"github.com/Dosada05/movie-tournament/repositories"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordingPublisher struct {
	mu       sync.Mutex
	voteCast []events.VoteCast
}

func (p *recordingPublisher) PublishVoteCast(_ context.Context, e events.VoteCast) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.voteCast = append(p.voteCast, e)
	return nil
}

func (p *recordingPublisher) PublishMatchOpened(context.Context, events.MatchOpened) error {
	return nil
}

func (p *recordingPublisher) PublishMatchClosed(context.Context, events.MatchClosed) error {
	return nil
}

func (p *recordingPublisher) voteCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.voteCast)
}

type fixture struct {
	store     *repositories.MemoryStore
	lifecycle LifecycleService
	votes     VoteService
	query     QueryService
	publisher *recordingPublisher
}

func newFixture() *fixture {
	store := repositories.NewMemoryStore()
	pub := &recordingPublisher{}
	return &fixture{
		store:     store,
		lifecycle: NewLifecycleService(store, discardLogger()),
		votes:     NewVoteService(store, store, pub, discardLogger()),
		query:     NewQueryService(store),
		publisher: pub,
	}
}

func (f *fixture) open(t *testing.T, movieIDs ...int64) *models.Match {
	t.Helper()
	m, err := f.lifecycle.OpenNewMatch(context.Background(), movieIDs, time.Now())
	require.NoError(t, err)
	return m
}

func ptr[T any](v T) *T {
	return &v
}
