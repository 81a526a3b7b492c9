package db

import (
	"context"
	"database/sql"
	"fmt"
)

// Migrate creates the tournament tables. Safe to call on every start.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// Constraint names referenced by the repositories when mapping pq errors.
const (
	ConstraintSingleOpenMatch   = "matches_single_open_idx"
	ConstraintRoundNumberUnique = "matches_round_number_key"
	ConstraintMemberMatchUnique = "votes_member_match_key"
	ConstraintContenderUnique   = "contenders_match_movie_key"
)

const schema = `
CREATE TABLE IF NOT EXISTS matches (
    id BIGSERIAL PRIMARY KEY,
    round_number INT NOT NULL CHECK (round_number > 0),
    round_date TIMESTAMPTZ NOT NULL,
    status TEXT NOT NULL DEFAULT 'open' CHECK (status IN ('open', 'closed')),
    winner_movie_id BIGINT,
    closed_at TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CONSTRAINT matches_round_number_key UNIQUE (round_number),
    CONSTRAINT matches_winner_only_when_closed CHECK (winner_movie_id IS NULL OR status = 'closed')
);

-- At most one open match, enforced by the engine itself.
CREATE UNIQUE INDEX IF NOT EXISTS matches_single_open_idx ON matches ((status)) WHERE status = 'open';

CREATE TABLE IF NOT EXISTS contenders (
    id BIGSERIAL PRIMARY KEY,
    match_id BIGINT NOT NULL REFERENCES matches(id) ON DELETE CASCADE,
    movie_id BIGINT NOT NULL,
    votes INT NOT NULL DEFAULT 0 CHECK (votes >= 0),
    CONSTRAINT contenders_match_movie_key UNIQUE (match_id, movie_id)
);

CREATE INDEX IF NOT EXISTS idx_contenders_match_id ON contenders(match_id);

CREATE TABLE IF NOT EXISTS votes (
    id UUID PRIMARY KEY,
    member_id BIGINT NOT NULL,
    match_id BIGINT NOT NULL REFERENCES matches(id) ON DELETE RESTRICT,
    contender_id BIGINT NOT NULL REFERENCES contenders(id) ON DELETE RESTRICT,
    movie_id BIGINT NOT NULL,
    cast_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CONSTRAINT votes_member_match_key UNIQUE (member_id, match_id)
);

CREATE INDEX IF NOT EXISTS idx_votes_match_id ON votes(match_id);
`
