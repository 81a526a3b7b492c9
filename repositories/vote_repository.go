package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/movie-tournament/db"
	"github.com/Dosada05/movie-tournament/models"
)

var (
	ErrDuplicateVote = errors.New("member has already voted in this match")
	ErrVoteNotFound  = errors.New("vote not found")
)

// VoteRepository is the vote ledger. RecordVote is the only writer of tallies.
type VoteRepository interface {
	// RecordVote inserts the vote and increments the contender tally atomically.
	// It returns the contender's tally after the increment.
	RecordVote(ctx context.Context, vote *models.Vote) (int, error)
	TallyOf(ctx context.Context, matchID int64) (map[int64]int, error)
	GetMemberVote(ctx context.Context, memberID, matchID int64) (*models.Vote, error)
}

type postgresVoteRepository struct {
	db *sql.DB
}

func NewPostgresVoteRepository(db *sql.DB) VoteRepository {
	return &postgresVoteRepository{db: db}
}

func (r *postgresVoteRepository) RecordVote(ctx context.Context, vote *models.Vote) (int, error) {
	var tally int
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		// FOR SHARE lets votes run in parallel while blocking a concurrent close.
		var status models.MatchStatus
		err := tx.QueryRowContext(ctx, `SELECT status FROM matches WHERE id = $1 FOR SHARE`, vote.MatchID).Scan(&status)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrMatchNotFound
			}
			return fmt.Errorf("failed to lock match %d: %w", vote.MatchID, err)
		}
		if status != models.MatchStatusOpen {
			return fmt.Errorf("%w: match %d", ErrMatchNotOpen, vote.MatchID)
		}

		err = tx.QueryRowContext(ctx,
			`SELECT id FROM contenders WHERE match_id = $1 AND movie_id = $2`,
			vote.MatchID, vote.MovieID,
		).Scan(&vote.ContenderID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%w: movie %d", ErrContenderNotInMatch, vote.MovieID)
			}
			return fmt.Errorf("failed to resolve contender: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO votes (id, member_id, match_id, contender_id, movie_id, cast_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			vote.ID, vote.MemberID, vote.MatchID, vote.ContenderID, vote.MovieID, vote.CastAt,
		)
		if err != nil {
			return r.handleVoteError(err)
		}

		err = tx.QueryRowContext(ctx,
			`UPDATE contenders SET votes = votes + 1 WHERE id = $1 RETURNING votes`,
			vote.ContenderID,
		).Scan(&tally)
		if err != nil {
			return fmt.Errorf("failed to increment tally for contender %d: %w", vote.ContenderID, err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return tally, nil
}

func (r *postgresVoteRepository) TallyOf(ctx context.Context, matchID int64) (map[int64]int, error) {
	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM matches WHERE id = $1)`, matchID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check match %d: %w", matchID, err)
	}
	if !exists {
		return nil, ErrMatchNotFound
	}

	contenders, err := listContenders(ctx, r.db, matchID)
	if err != nil {
		return nil, err
	}
	tally := make(map[int64]int, len(contenders))
	for _, c := range contenders {
		tally[c.MovieID] = c.Votes
	}
	return tally, nil
}

func (r *postgresVoteRepository) GetMemberVote(ctx context.Context, memberID, matchID int64) (*models.Vote, error) {
	v := &models.Vote{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, member_id, match_id, contender_id, movie_id, cast_at
		FROM votes WHERE member_id = $1 AND match_id = $2`, memberID, matchID,
	).Scan(&v.ID, &v.MemberID, &v.MatchID, &v.ContenderID, &v.MovieID, &v.CastAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVoteNotFound
		}
		return nil, fmt.Errorf("failed to scan vote: %w", err)
	}
	return v, nil
}

func (r *postgresVoteRepository) handleVoteError(err error) error {
	if err == nil {
		return nil
	}
	if constraint, ok := pqConstraint(err); ok {
		switch constraint {
		case db.ConstraintMemberMatchUnique:
			return ErrDuplicateVote
		case "votes_match_id_fkey":
			return ErrMatchNotFound
		case "votes_contender_id_fkey":
			return ErrContenderNotInMatch
		}
	}
	return fmt.Errorf("failed to insert vote: %w", err)
}
