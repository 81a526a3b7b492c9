package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/Dosada05/movie-tournament/db"
	"github.com/Dosada05/movie-tournament/models"
)

var (
	ErrMatchNotFound       = errors.New("match not found")
	ErrMatchAlreadyOpen    = errors.New("a match is already open")
	ErrMatchNotOpen        = errors.New("match is not open")
	ErrWinnerMismatch      = errors.New("match already closed with a different winner")
	ErrContenderNotInMatch = errors.New("movie is not a contender in this match")
	ErrInvalidContenders   = errors.New("invalid contender movies")
)

// MatchRepository is the durable lifecycle store of tournament rounds.
// Only OpenNewMatch, CloseMatch and ResolveAndClose mutate matches.
type MatchRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Match, error)
	GetOpenMatch(ctx context.Context) (*models.Match, error)
	GetLatestClosedMatch(ctx context.Context) (*models.Match, error)
	ListClosed(ctx context.Context, limit, offset int) ([]*models.Match, error)
	OpenNewMatch(ctx context.Context, movieIDs []int64, roundDate time.Time) (*models.Match, error)
	CloseMatch(ctx context.Context, matchID int64, winnerMovieID *int64) (*models.Match, error)
	ResolveAndClose(ctx context.Context, matchID int64, resolve ResolveFunc) (*models.Match, error)
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

const matchColumns = `id, round_number, round_date, status, winner_movie_id, closed_at, created_at`

func scanMatch(row interface{ Scan(dest ...any) error }) (*models.Match, error) {
	m := &models.Match{}
	var winner sql.NullInt64
	var closedAt sql.NullTime
	if err := row.Scan(&m.ID, &m.RoundNumber, &m.RoundDate, &m.Status, &winner, &closedAt, &m.CreatedAt); err != nil {
		return nil, err
	}
	if winner.Valid {
		w := winner.Int64
		m.WinnerMovieID = &w
	}
	if closedAt.Valid {
		t := closedAt.Time
		m.ClosedAt = &t
	}
	return m, nil
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, id int64) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1`
	return r.getOne(ctx, r.db, query, id)
}

func (r *postgresMatchRepository) GetOpenMatch(ctx context.Context) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE status = 'open'`
	return r.getOne(ctx, r.db, query)
}

func (r *postgresMatchRepository) GetLatestClosedMatch(ctx context.Context) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE status = 'closed' ORDER BY round_number DESC LIMIT 1`
	return r.getOne(ctx, r.db, query)
}

func (r *postgresMatchRepository) getOne(ctx context.Context, exec SQLExecutor, query string, args ...interface{}) (*models.Match, error) {
	m, err := scanMatch(exec.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to scan match: %w", err)
	}
	if m.Contenders, err = listContenders(ctx, exec, m.ID); err != nil {
		return nil, err
	}
	return m, nil
}

func (r *postgresMatchRepository) ListClosed(ctx context.Context, limit, offset int) ([]*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE status = 'closed'
		ORDER BY round_number DESC LIMIT $1 OFFSET $2`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query closed matches: %w", err)
	}
	defer rows.Close()

	matches := make([]*models.Match, 0, limit)
	byID := make(map[int64]*models.Match)
	ids := make([]int64, 0, limit)
	for rows.Next() {
		m, scanErr := scanMatch(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", scanErr)
		}
		matches = append(matches, m)
		byID[m.ID] = m
		ids = append(ids, m.ID)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during match rows iteration: %w", err)
	}
	if len(ids) == 0 {
		return matches, nil
	}

	cRows, err := r.db.QueryContext(ctx,
		`SELECT id, match_id, movie_id, votes FROM contenders WHERE match_id = ANY($1) ORDER BY match_id, id`,
		pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to query contenders for closed matches: %w", err)
	}
	defer cRows.Close()
	for cRows.Next() {
		var c models.Contender
		if err := cRows.Scan(&c.ID, &c.MatchID, &c.MovieID, &c.Votes); err != nil {
			return nil, fmt.Errorf("failed to scan contender row: %w", err)
		}
		if m, ok := byID[c.MatchID]; ok {
			m.Contenders = append(m.Contenders, c)
		}
	}
	if err = cRows.Err(); err != nil {
		return nil, fmt.Errorf("error during contender rows iteration: %w", err)
	}
	return matches, nil
}

func (r *postgresMatchRepository) OpenNewMatch(ctx context.Context, movieIDs []int64, roundDate time.Time) (*models.Match, error) {
	if err := validateContenderMovies(movieIDs); err != nil {
		return nil, err
	}

	var match *models.Match
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		var openID int64
		err := tx.QueryRowContext(ctx, `SELECT id FROM matches WHERE status = 'open' LIMIT 1`).Scan(&openID)
		switch {
		case err == nil:
			return fmt.Errorf("%w: match %d", ErrMatchAlreadyOpen, openID)
		case !errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("failed to check for open match: %w", err)
		}

		// Round number is derived in the same statement; the unique constraint
		// rejects a concurrent opener that computed the same value.
		m, err := scanMatch(tx.QueryRowContext(ctx, `
			INSERT INTO matches (round_number, round_date, status)
			SELECT COALESCE(MAX(round_number), 0) + 1, $1, 'open' FROM matches
			RETURNING `+matchColumns, roundDate.UTC()))
		if err != nil {
			return r.handleMatchError(err)
		}

		m.Contenders = make([]models.Contender, 0, len(movieIDs))
		for _, movieID := range movieIDs {
			c := models.Contender{MatchID: m.ID, MovieID: movieID}
			err := tx.QueryRowContext(ctx,
				`INSERT INTO contenders (match_id, movie_id) VALUES ($1, $2) RETURNING id, votes`,
				m.ID, movieID,
			).Scan(&c.ID, &c.Votes)
			if err != nil {
				return r.handleMatchError(err)
			}
			m.Contenders = append(m.Contenders, c)
		}
		match = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return match, nil
}

func (r *postgresMatchRepository) CloseMatch(ctx context.Context, matchID int64, winnerMovieID *int64) (*models.Match, error) {
	var match *models.Match
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		m, err := r.lockMatch(ctx, tx, matchID)
		if err != nil {
			return err
		}
		match, err = r.applyClose(ctx, tx, m, winnerMovieID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return match, nil
}

func (r *postgresMatchRepository) ResolveAndClose(ctx context.Context, matchID int64, resolve ResolveFunc) (*models.Match, error) {
	var match *models.Match
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		m, err := r.lockMatch(ctx, tx, matchID)
		if err != nil {
			return err
		}
		if !m.IsOpen() {
			return fmt.Errorf("%w: match %d", ErrMatchNotOpen, matchID)
		}
		// Vote transactions hold FOR SHARE on the match row, so the tallies
		// read below are final.
		match, err = r.applyClose(ctx, tx, m, resolve(m.Tallies()))
		return err
	})
	if err != nil {
		return nil, err
	}
	return match, nil
}

func (r *postgresMatchRepository) lockMatch(ctx context.Context, tx *sql.Tx, matchID int64) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1 FOR UPDATE`
	return r.getOne(ctx, tx, query, matchID)
}

func (r *postgresMatchRepository) applyClose(ctx context.Context, tx *sql.Tx, m *models.Match, winnerMovieID *int64) (*models.Match, error) {
	noop, err := closeDecision(m, winnerMovieID)
	if err != nil || noop {
		return m, err
	}

	var closedAt time.Time
	err = tx.QueryRowContext(ctx, `
		UPDATE matches SET status = 'closed', winner_movie_id = $1, closed_at = NOW()
		WHERE id = $2 AND status = 'open'
		RETURNING closed_at`, winnerMovieID, m.ID,
	).Scan(&closedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to close match %d: %w", m.ID, err)
	}
	m.Status = models.MatchStatusClosed
	m.WinnerMovieID = winnerMovieID
	m.ClosedAt = &closedAt
	return m, nil
}

func listContenders(ctx context.Context, exec SQLExecutor, matchID int64) ([]models.Contender, error) {
	rows, err := exec.QueryContext(ctx,
		`SELECT id, match_id, movie_id, votes FROM contenders WHERE match_id = $1 ORDER BY id`, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query contenders for match %d: %w", matchID, err)
	}
	defer rows.Close()

	contenders := make([]models.Contender, 0, 2)
	for rows.Next() {
		var c models.Contender
		if err := rows.Scan(&c.ID, &c.MatchID, &c.MovieID, &c.Votes); err != nil {
			return nil, fmt.Errorf("failed to scan contender row: %w", err)
		}
		contenders = append(contenders, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during contender rows iteration: %w", err)
	}
	return contenders, nil
}

func (r *postgresMatchRepository) handleMatchError(err error) error {
	if err == nil {
		return nil
	}
	if constraint, ok := pqConstraint(err); ok {
		switch constraint {
		case db.ConstraintSingleOpenMatch, db.ConstraintRoundNumberUnique:
			return fmt.Errorf("%w: %v", ErrMatchAlreadyOpen, err)
		case db.ConstraintContenderUnique:
			return fmt.Errorf("%w: %v", ErrInvalidContenders, err)
		}
	}
	return err
}
