package models

import "time"

// MatchResult is the archived summary of a closed match.
type MatchResult struct {
	MatchID       int64     `json:"match_id"`
	RoundNumber   int       `json:"round_number"`
	RoundDate     time.Time `json:"round_date"`
	WinnerMovieID *int64    `json:"winner_movie_id"`
	Undecided     bool      `json:"undecided"`
	Tallies       []Tally   `json:"tallies"`
	ClosedAt      time.Time `json:"closed_at"`
}

func NewMatchResult(m *Match) MatchResult {
	res := MatchResult{
		MatchID:       m.ID,
		RoundNumber:   m.RoundNumber,
		RoundDate:     m.RoundDate,
		WinnerMovieID: m.WinnerMovieID,
		Undecided:     m.WinnerMovieID == nil,
		Tallies:       m.Tallies(),
	}
	if m.ClosedAt != nil {
		res.ClosedAt = *m.ClosedAt
	}
	return res
}
