package services

import "github.com/Dosada05/movie-tournament/models"

// Resolution is the outcome of a closed match.
type Resolution struct {
	WinnerMovieID *int64
	Undecided     bool
}

// ResolveWinner returns the contender with the strictly highest tally.
// A shared maximum (including all zero, or no contenders) is undecided.
// The result does not depend on the order of tallies.
func ResolveWinner(tallies []models.Tally) Resolution {
	var best *models.Tally
	shared := false
	for i := range tallies {
		t := &tallies[i]
		switch {
		case best == nil || t.Votes > best.Votes:
			best = t
			shared = false
		case t.Votes == best.Votes:
			shared = true
		}
	}
	if best == nil || shared {
		return Resolution{Undecided: true}
	}
	winner := best.MovieID
	return Resolution{WinnerMovieID: &winner}
}

// WinnerOf adapts ResolveWinner to repositories.ResolveFunc.
func WinnerOf(tallies []models.Tally) *int64 {
	return ResolveWinner(tallies).WinnerMovieID
}
