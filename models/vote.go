package models

import (
	"time"

	"github.com/google/uuid"
)

// Vote is one member's choice in one match. (MemberID, MatchID) is unique.
type Vote struct {
	ID          uuid.UUID `json:"id" db:"id"`
	MemberID    int64     `json:"member_id" db:"member_id"`
	MatchID     int64     `json:"match_id" db:"match_id"`
	ContenderID int64     `json:"contender_id" db:"contender_id"`
	MovieID     int64     `json:"movie_id" db:"movie_id"`
	CastAt      time.Time `json:"cast_at" db:"cast_at"`
}

// NewVote builds a vote with a fresh identifier. ContenderID is resolved by the ledger.
func NewVote(memberID, matchID, movieID int64, at time.Time) *Vote {
	return &Vote{
		ID:       uuid.New(),
		MemberID: memberID,
		MatchID:  matchID,
		MovieID:  movieID,
		CastAt:   at.UTC(),
	}
}
