package models

import "time"

// MatchStatus mirrors the CHECK constraint on matches.status.
type MatchStatus string

const (
	MatchStatusOpen   MatchStatus = "open"
	MatchStatusClosed MatchStatus = "closed"
)

// Match is one weekly round of the tournament.
// A closed match with a nil WinnerMovieID is undecided (tie).
type Match struct {
	ID            int64       `json:"id" db:"id"`
	RoundNumber   int         `json:"round_number" db:"round_number"`
	RoundDate     time.Time   `json:"round_date" db:"round_date"`
	Status        MatchStatus `json:"status" db:"status"`
	WinnerMovieID *int64      `json:"winner_movie_id,omitempty" db:"winner_movie_id"`
	ClosedAt      *time.Time  `json:"closed_at,omitempty" db:"closed_at"`
	CreatedAt     time.Time   `json:"created_at" db:"created_at"`

	Contenders []Contender `json:"contenders,omitempty" db:"-"`
}

func (m *Match) IsOpen() bool {
	return m != nil && m.Status == MatchStatusOpen
}

// IsUndecided reports whether the match closed without a winner.
func (m *Match) IsUndecided() bool {
	return m != nil && m.Status == MatchStatusClosed && m.WinnerMovieID == nil
}

// HasContender reports whether movieID is entered in the match.
func (m *Match) HasContender(movieID int64) bool {
	for _, c := range m.Contenders {
		if c.MovieID == movieID {
			return true
		}
	}
	return false
}

// Contender is a movie entered into a specific match.
type Contender struct {
	ID      int64 `json:"id" db:"id"`
	MatchID int64 `json:"match_id" db:"match_id"`
	MovieID int64 `json:"movie_id" db:"movie_id"`
	Votes   int   `json:"votes" db:"votes"`
}

// Tally is the vote count of one contender movie.
type Tally struct {
	MovieID int64 `json:"movie_id"`
	Votes   int   `json:"votes"`
}

// Tallies projects the match contenders to their current counts.
func (m *Match) Tallies() []Tally {
	out := make([]Tally, 0, len(m.Contenders))
	for _, c := range m.Contenders {
		out = append(out, Tally{MovieID: c.MovieID, Votes: c.Votes})
	}
	return out
}
