package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurrentMatch(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.query.CurrentMatch(ctx)
	assert.ErrorIs(t, err, ErrNoOpenMatch)

	first := f.open(t, 1, 2)
	_, err = f.lifecycle.CloseMatch(ctx, first.ID, ptr(int64(2)))
	require.NoError(t, err)

	m := f.open(t, 3, 4)
	for member := int64(1); member <= 3; member++ {
		_, err := f.votes.CastVote(ctx, CastVoteInput{MemberID: member, MovieID: 4})
		require.NoError(t, err)
	}

	view, err := f.query.CurrentMatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, m.ID, view.Match.ID)
	assert.Equal(t, 3, view.TotalVotes)
	assert.ElementsMatch(t, []int{0, 3}, []int{view.Tallies[0].Votes, view.Tallies[1].Votes})

	require.NotNil(t, view.PreviousMatch)
	assert.Equal(t, 1, view.PreviousMatch.RoundNumber)
	require.NotNil(t, view.PreviousMatch.WinnerMovieID)
	assert.Equal(t, int64(2), *view.PreviousMatch.WinnerMovieID)

	contenders, err := f.query.CurrentContenders(ctx)
	require.NoError(t, err)
	assert.Len(t, contenders, 2)
}

func TestWinnerHistory(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		m := f.open(t, 1, 2)
		if i%2 == 0 {
			_, err := f.lifecycle.SettleMatch(ctx, m.ID)
			require.NoError(t, err)
			continue
		}
		_, err := f.lifecycle.CloseMatch(ctx, m.ID, ptr(int64(1)))
		require.NoError(t, err)
	}
	f.open(t, 1, 2)

	history, err := f.query.WinnerHistory(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, history, 5)
	for i, entry := range history {
		assert.Equal(t, 5-i, entry.RoundNumber, "newest first")
	}
	assert.True(t, history[0].Undecided)
	assert.False(t, history[1].Undecided)

	page, err := f.query.WinnerHistory(ctx, 2, 3)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, 2, page[0].RoundNumber)
	assert.Equal(t, 1, page[1].RoundNumber)
}
