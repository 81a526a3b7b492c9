package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Dosada05/movie-tournament/models"
	"github.com/Dosada05/movie-tournament/repositories"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// CurrentMatchView is the open match with its live tallies.
type CurrentMatchView struct {
	Match         *models.Match  `json:"match"`
	Tallies       []models.Tally `json:"tallies"`
	TotalVotes    int            `json:"total_votes"`
	PreviousMatch *WinnerEntry   `json:"previous_match,omitempty"`
}

// WinnerEntry is one closed round in the winner history.
type WinnerEntry struct {
	MatchID       int64          `json:"match_id"`
	RoundNumber   int            `json:"round_number"`
	RoundDate     time.Time      `json:"round_date"`
	WinnerMovieID *int64         `json:"winner_movie_id"`
	Undecided     bool           `json:"undecided"`
	Tallies       []models.Tally `json:"tallies"`
	ClosedAt      *time.Time     `json:"closed_at,omitempty"`
}

// QueryService holds the read-only projections. It never locks rows.
type QueryService interface {
	CurrentMatch(ctx context.Context) (*CurrentMatchView, error)
	CurrentContenders(ctx context.Context) ([]models.Contender, error)
	WinnerHistory(ctx context.Context, limit, offset int) ([]WinnerEntry, error)
}

type queryService struct {
	matchRepo repositories.MatchRepository
}

func NewQueryService(matchRepo repositories.MatchRepository) QueryService {
	return &queryService{matchRepo: matchRepo}
}

func (s *queryService) CurrentMatch(ctx context.Context) (*CurrentMatchView, error) {
	var open, previous *models.Match

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		m, err := s.matchRepo.GetOpenMatch(gCtx)
		if err != nil {
			if errors.Is(err, repositories.ErrMatchNotFound) {
				return ErrNoOpenMatch
			}
			return fmt.Errorf("failed to get open match: %w", err)
		}
		open = m
		return nil
	})
	g.Go(func() error {
		m, err := s.matchRepo.GetLatestClosedMatch(gCtx)
		if err != nil {
			if errors.Is(err, repositories.ErrMatchNotFound) {
				return nil
			}
			return fmt.Errorf("failed to get latest closed match: %w", err)
		}
		previous = m
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	view := &CurrentMatchView{Match: open, Tallies: open.Tallies()}
	for _, t := range view.Tallies {
		view.TotalVotes += t.Votes
	}
	if previous != nil {
		entry := toWinnerEntry(previous)
		view.PreviousMatch = &entry
	}
	return view, nil
}

func (s *queryService) CurrentContenders(ctx context.Context) ([]models.Contender, error) {
	m, err := s.matchRepo.GetOpenMatch(ctx)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrNoOpenMatch
		}
		return nil, fmt.Errorf("failed to get open match: %w", err)
	}
	return m.Contenders, nil
}

func (s *queryService) WinnerHistory(ctx context.Context, limit, offset int) ([]WinnerEntry, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}

	matches, err := s.matchRepo.ListClosed(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list closed matches: %w", err)
	}
	history := make([]WinnerEntry, 0, len(matches))
	for _, m := range matches {
		history = append(history, toWinnerEntry(m))
	}
	return history, nil
}

func toWinnerEntry(m *models.Match) WinnerEntry {
	return WinnerEntry{
		MatchID:       m.ID,
		RoundNumber:   m.RoundNumber,
		RoundDate:     m.RoundDate,
		WinnerMovieID: m.WinnerMovieID,
		Undecided:     m.IsUndecided(),
		Tallies:       m.Tallies(),
		ClosedAt:      m.ClosedAt,
	}
}
