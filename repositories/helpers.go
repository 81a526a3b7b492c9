package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/Dosada05/movie-tournament/models"
)

// SQLExecutor is satisfied by both *sql.DB and *sql.Tx.
type SQLExecutor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// ResolveFunc picks the winner from frozen tallies; nil means undecided.
type ResolveFunc func(tallies []models.Tally) *int64

func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// pqConstraint returns the violated constraint name, if err is a pq error.
func pqConstraint(err error) (string, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Constraint, true
	}
	return "", false
}

func validateContenderMovies(movieIDs []int64) error {
	if len(movieIDs) < 2 {
		return fmt.Errorf("%w: need at least 2 movies, got %d", ErrInvalidContenders, len(movieIDs))
	}
	seen := make(map[int64]struct{}, len(movieIDs))
	for _, id := range movieIDs {
		if id <= 0 {
			return fmt.Errorf("%w: invalid movie id %d", ErrInvalidContenders, id)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: movie %d listed twice", ErrInvalidContenders, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// closeDecision applies the close rules to a locked match.
// noop is true when the match is already closed with the same winner.
func closeDecision(m *models.Match, winnerMovieID *int64) (noop bool, err error) {
	if m.Status == models.MatchStatusClosed {
		if sameWinner(m.WinnerMovieID, winnerMovieID) {
			return true, nil
		}
		return false, ErrWinnerMismatch
	}
	if winnerMovieID != nil && !m.HasContender(*winnerMovieID) {
		return false, fmt.Errorf("%w: movie %d", ErrContenderNotInMatch, *winnerMovieID)
	}
	return false, nil
}

func sameWinner(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
