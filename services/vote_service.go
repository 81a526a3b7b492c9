package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Dosada05/movie-tournament/events"
	"github.com/Dosada05/movie-tournament/metrics"
	"github.com/Dosada05/movie-tournament/models"
	"github.com/Dosada05/movie-tournament/repositories"
)

// CastVoteInput is a vote submission. A nil MatchID targets the current match.
type CastVoteInput struct {
	MemberID int64  `validate:"required,gt=0"`
	MatchID  *int64 `validate:"omitempty,gt=0"`
	MovieID  int64  `validate:"required,gt=0"`
}

type CastVoteResult struct {
	Vote  *models.Vote `json:"vote"`
	Tally int          `json:"tally"`
}

type VoteService interface {
	CastVote(ctx context.Context, input CastVoteInput) (*CastVoteResult, error)
	TallyOf(ctx context.Context, matchID int64) (map[int64]int, error)
	// MemberVote returns the member's vote in matchID, or in the current match when nil.
	MemberVote(ctx context.Context, memberID int64, matchID *int64) (*models.Vote, error)
}

type voteService struct {
	matchRepo repositories.MatchRepository
	voteRepo  repositories.VoteRepository
	publisher events.Publisher
	validate  *validator.Validate
	logger    *slog.Logger
	now       func() time.Time
}

func NewVoteService(
	matchRepo repositories.MatchRepository,
	voteRepo repositories.VoteRepository,
	publisher events.Publisher,
	logger *slog.Logger,
) VoteService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &voteService{
		matchRepo: matchRepo,
		voteRepo:  voteRepo,
		publisher: publisher,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		logger:    logger,
		now:       time.Now,
	}
}

func (s *voteService) CastVote(ctx context.Context, input CastVoteInput) (*CastVoteResult, error) {
	result, err := s.castVote(ctx, input)
	metrics.RecordVote(voteOutcome(err))
	return result, err
}

func (s *voteService) castVote(ctx context.Context, input CastVoteInput) (*CastVoteResult, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	matchID, err := s.resolveMatchID(ctx, input.MatchID)
	if err != nil {
		return nil, err
	}

	vote := models.NewVote(input.MemberID, matchID, input.MovieID, s.now())
	tally, err := s.voteRepo.RecordVote(ctx, vote)
	if err != nil {
		translated := translateRepoError(err)
		if Kind(translated) == "internal" {
			s.logger.ErrorContext(ctx, "failed to record vote",
				slog.Int64("match_id", matchID),
				slog.Int64("member_id", input.MemberID),
				slog.Any("error", err))
			return nil, fmt.Errorf("failed to record vote: %w", err)
		}
		return nil, translated
	}

	s.logger.InfoContext(ctx, "vote recorded",
		slog.Int64("match_id", matchID),
		slog.Int64("member_id", input.MemberID),
		slog.Int64("movie_id", input.MovieID),
		slog.Int("tally", tally))

	if err := s.publisher.PublishVoteCast(ctx, events.VoteCast{
		MatchID: matchID,
		MovieID: input.MovieID,
		Tally:   tally,
		CastAt:  vote.CastAt,
	}); err != nil {
		s.logger.WarnContext(ctx, "failed to publish vote event", slog.Int64("match_id", matchID), slog.Any("error", err))
	}

	return &CastVoteResult{Vote: vote, Tally: tally}, nil
}

// resolveMatchID turns "current" into the open match ID. Voting without an
// open match is a state error, not a missing resource.
func (s *voteService) resolveMatchID(ctx context.Context, matchID *int64) (int64, error) {
	if matchID != nil {
		return *matchID, nil
	}
	open, err := s.matchRepo.GetOpenMatch(ctx)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return 0, ErrMatchNotOpen
		}
		return 0, fmt.Errorf("failed to resolve current match: %w", err)
	}
	return open.ID, nil
}

func (s *voteService) TallyOf(ctx context.Context, matchID int64) (map[int64]int, error) {
	tally, err := s.voteRepo.TallyOf(ctx, matchID)
	if err != nil {
		return nil, translateRepoError(err)
	}
	return tally, nil
}

func (s *voteService) MemberVote(ctx context.Context, memberID int64, matchID *int64) (*models.Vote, error) {
	id := int64(0)
	if matchID != nil {
		id = *matchID
	} else {
		open, err := s.matchRepo.GetOpenMatch(ctx)
		if err != nil {
			if errors.Is(err, repositories.ErrMatchNotFound) {
				return nil, ErrNoOpenMatch
			}
			return nil, fmt.Errorf("failed to resolve current match: %w", err)
		}
		id = open.ID
	}
	vote, err := s.voteRepo.GetMemberVote(ctx, memberID, id)
	if err != nil {
		return nil, translateRepoError(err)
	}
	return vote, nil
}

func voteOutcome(err error) string {
	switch {
	case err == nil:
		return "accepted"
	case errors.Is(err, ErrAlreadyVoted):
		return "duplicate"
	case errors.Is(err, ErrMatchNotOpen):
		return "match_not_open"
	default:
		return Kind(err)
	}
}
