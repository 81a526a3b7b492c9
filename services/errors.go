package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Dosada05/movie-tournament/repositories"
)

// Error kinds. Every error returned by this package wraps exactly one of them.
var (
	ErrNotFound     = errors.New("requested resource not found")
	ErrInvalidState = errors.New("operation not allowed in the current match state")
	ErrConflict     = errors.New("conflicting request")
	ErrBadRequest   = errors.New("bad request")
)

var (
	ErrMatchNotFound = fmt.Errorf("%w: match not found", ErrNotFound)
	ErrNoOpenMatch   = fmt.Errorf("%w: no match is currently open", ErrNotFound)
	ErrVoteNotFound  = fmt.Errorf("%w: vote not found", ErrNotFound)

	ErrMatchNotOpen     = fmt.Errorf("%w: match is no longer open for voting", ErrInvalidState)
	ErrMatchAlreadyOpen = fmt.Errorf("%w: a match is already open", ErrInvalidState)

	ErrAlreadyVoted   = fmt.Errorf("%w: member has already voted in this match", ErrConflict)
	ErrWinnerMismatch = fmt.Errorf("%w: match already closed with a different winner", ErrConflict)

	ErrContenderNotInMatch = fmt.Errorf("%w: movie is not a contender in this match", ErrBadRequest)
	ErrInvalidContenders   = fmt.Errorf("%w: invalid contender movies", ErrBadRequest)
	ErrValidationFailed    = fmt.Errorf("%w: validation failed", ErrBadRequest)
)

// translateRepoError maps repository sentinels to service errors.
// Unknown errors are returned unchanged.
func translateRepoError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrMatchNotFound):
		return ErrMatchNotFound
	case errors.Is(err, repositories.ErrVoteNotFound):
		return ErrVoteNotFound
	case errors.Is(err, repositories.ErrMatchNotOpen):
		return ErrMatchNotOpen
	case errors.Is(err, repositories.ErrMatchAlreadyOpen):
		return ErrMatchAlreadyOpen
	case errors.Is(err, repositories.ErrDuplicateVote):
		return ErrAlreadyVoted
	case errors.Is(err, repositories.ErrWinnerMismatch):
		return ErrWinnerMismatch
	case errors.Is(err, repositories.ErrContenderNotInMatch):
		return ErrContenderNotInMatch
	case errors.Is(err, repositories.ErrInvalidContenders):
		detail := strings.TrimPrefix(err.Error(), repositories.ErrInvalidContenders.Error())
		return fmt.Errorf("%w%s", ErrInvalidContenders, detail)
	default:
		return err
	}
}

// Kind returns a short label for the error kind, "internal" for anything else.
func Kind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrBadRequest):
		return "bad_request"
	default:
		return "internal"
	}
}
