package repositories

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/movie-tournament/models"
)

func winnerOfFirst(tallies []models.Tally) *int64 {
	id := tallies[0].MovieID
	return &id
}

func TestMemoryStore_RoundNumbersAreSequential(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	for round := 1; round <= 10; round++ {
		m, err := store.OpenNewMatch(ctx, []int64{1, 2}, time.Now())
		require.NoError(t, err)
		assert.Equal(t, round, m.RoundNumber)
		_, err = store.ResolveAndClose(ctx, m.ID, winnerOfFirst)
		require.NoError(t, err)
	}

	closed, err := store.ListClosed(ctx, 100, 0)
	require.NoError(t, err)
	require.Len(t, closed, 10)
	for i, m := range closed {
		assert.Equal(t, 10-i, m.RoundNumber)
	}
}

func TestMemoryStore_OpenWhileOpen(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.OpenNewMatch(ctx, []int64{1, 2}, time.Now())
	require.NoError(t, err)
	_, err = store.OpenNewMatch(ctx, []int64{3, 4}, time.Now())
	assert.ErrorIs(t, err, ErrMatchAlreadyOpen)
}

func TestMemoryStore_GetOpenMatchNeverSeesTwo(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			m, err := store.OpenNewMatch(ctx, []int64{1, 2}, time.Now())
			if err != nil {
				continue
			}
			_, _ = store.ResolveAndClose(ctx, m.ID, winnerOfFirst)
		}
		close(stop)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			store.mu.RLock()
			open := 0
			for _, m := range store.matches {
				if m.IsOpen() {
					open++
				}
			}
			store.mu.RUnlock()
			assert.LessOrEqual(t, open, 1)
		}
	}()
	wg.Wait()
}

func TestMemoryStore_ResultsAreCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	m, err := store.OpenNewMatch(ctx, []int64{1, 2}, time.Now())
	require.NoError(t, err)
	m.Contenders[0].Votes = 99
	m.Status = models.MatchStatusClosed

	stored, err := store.GetOpenMatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.Contenders[0].Votes)
	assert.True(t, stored.IsOpen())
}

func TestMemoryStore_RecordVote(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	m, err := store.OpenNewMatch(ctx, []int64{1, 2}, time.Now())
	require.NoError(t, err)

	tally, err := store.RecordVote(ctx, models.NewVote(1, m.ID, 2, time.Now()))
	require.NoError(t, err)
	assert.Equal(t, 1, tally)

	_, err = store.RecordVote(ctx, models.NewVote(1, m.ID, 1, time.Now()))
	assert.ErrorIs(t, err, ErrDuplicateVote)

	_, err = store.RecordVote(ctx, models.NewVote(2, m.ID, 3, time.Now()))
	assert.ErrorIs(t, err, ErrContenderNotInMatch)

	_, err = store.RecordVote(ctx, models.NewVote(2, m.ID+1, 1, time.Now()))
	assert.ErrorIs(t, err, ErrMatchNotFound)

	_, err = store.CloseMatch(ctx, m.ID, nil)
	require.NoError(t, err)
	_, err = store.RecordVote(ctx, models.NewVote(3, m.ID, 1, time.Now()))
	assert.ErrorIs(t, err, ErrMatchNotOpen)

	counts, err := store.TallyOf(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, map[int64]int{1: 0, 2: 1}, counts, fmt.Sprintf("tallies frozen after close: %v", counts))
}
