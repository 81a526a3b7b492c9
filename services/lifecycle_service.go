package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/movie-tournament/models"
	"github.com/Dosada05/movie-tournament/repositories"
)

// LifecycleService is the guarded entry point for opening and closing matches.
type LifecycleService interface {
	OpenMatch(ctx context.Context) (*models.Match, error)
	LatestClosedMatch(ctx context.Context) (*models.Match, error)
	OpenNewMatch(ctx context.Context, movieIDs []int64, roundDate time.Time) (*models.Match, error)
	CloseMatch(ctx context.Context, matchID int64, winnerMovieID *int64) (*models.Match, error)
	// SettleMatch closes an open match with the winner resolved from its final tallies.
	SettleMatch(ctx context.Context, matchID int64) (*models.Match, error)
}

type lifecycleService struct {
	matchRepo repositories.MatchRepository
	logger    *slog.Logger
}

func NewLifecycleService(matchRepo repositories.MatchRepository, logger *slog.Logger) LifecycleService {
	return &lifecycleService{matchRepo: matchRepo, logger: logger}
}

func (s *lifecycleService) OpenMatch(ctx context.Context) (*models.Match, error) {
	m, err := s.matchRepo.GetOpenMatch(ctx)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrNoOpenMatch
		}
		return nil, fmt.Errorf("failed to get open match: %w", err)
	}
	return m, nil
}

func (s *lifecycleService) LatestClosedMatch(ctx context.Context) (*models.Match, error) {
	m, err := s.matchRepo.GetLatestClosedMatch(ctx)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to get latest closed match: %w", err)
	}
	return m, nil
}

func (s *lifecycleService) OpenNewMatch(ctx context.Context, movieIDs []int64, roundDate time.Time) (*models.Match, error) {
	m, err := s.matchRepo.OpenNewMatch(ctx, movieIDs, roundDate)
	if err != nil {
		return nil, wrapUnknown(translateRepoError(err), "failed to open match")
	}
	s.logger.InfoContext(ctx, "match opened",
		slog.Int64("match_id", m.ID),
		slog.Int("round_number", m.RoundNumber),
		slog.Any("movie_ids", movieIDs))
	return m, nil
}

func (s *lifecycleService) CloseMatch(ctx context.Context, matchID int64, winnerMovieID *int64) (*models.Match, error) {
	m, err := s.matchRepo.CloseMatch(ctx, matchID, winnerMovieID)
	if err != nil {
		return nil, wrapUnknown(translateRepoError(err), "failed to close match")
	}
	s.logClosed(ctx, m)
	return m, nil
}

func (s *lifecycleService) SettleMatch(ctx context.Context, matchID int64) (*models.Match, error) {
	m, err := s.matchRepo.ResolveAndClose(ctx, matchID, WinnerOf)
	if err != nil {
		return nil, wrapUnknown(translateRepoError(err), "failed to settle match")
	}
	s.logClosed(ctx, m)
	return m, nil
}

func (s *lifecycleService) logClosed(ctx context.Context, m *models.Match) {
	attrs := []any{
		slog.Int64("match_id", m.ID),
		slog.Int("round_number", m.RoundNumber),
		slog.Bool("undecided", m.IsUndecided()),
	}
	if m.WinnerMovieID != nil {
		attrs = append(attrs, slog.Int64("winner_movie_id", *m.WinnerMovieID))
	}
	s.logger.InfoContext(ctx, "match closed", attrs...)
}

func wrapUnknown(err error, msg string) error {
	if Kind(err) == "internal" {
		return fmt.Errorf("%s: %w", msg, err)
	}
	return err
}
