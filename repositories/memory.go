package repositories

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Dosada05/movie-tournament/models"
)

type voteKey struct {
	memberID int64
	matchID  int64
}

// MemoryStore is a process-local MatchRepository and VoteRepository.
// A single mutex gives it the same atomicity the Postgres schema provides:
// one open match, unique (member, match) votes, increments without lost updates.
type MemoryStore struct {
	mu sync.RWMutex

	matches         map[int64]*models.Match
	votes           map[voteKey]*models.Vote
	nextMatchID     int64
	nextContenderID int64
	now             func() time.Time
}

var (
	_ MatchRepository = (*MemoryStore)(nil)
	_ VoteRepository  = (*MemoryStore)(nil)
)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		matches: make(map[int64]*models.Match),
		votes:   make(map[voteKey]*models.Vote),
		now:     time.Now,
	}
}

func cloneMatch(m *models.Match) *models.Match {
	cp := *m
	cp.Contenders = append([]models.Contender(nil), m.Contenders...)
	if m.WinnerMovieID != nil {
		w := *m.WinnerMovieID
		cp.WinnerMovieID = &w
	}
	if m.ClosedAt != nil {
		t := *m.ClosedAt
		cp.ClosedAt = &t
	}
	return &cp
}

func (s *MemoryStore) GetByID(_ context.Context, id int64) (*models.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.matches[id]
	if !ok {
		return nil, ErrMatchNotFound
	}
	return cloneMatch(m), nil
}

func (s *MemoryStore) GetOpenMatch(ctx context.Context) (*models.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if m := s.openLocked(); m != nil {
		return cloneMatch(m), nil
	}
	return nil, ErrMatchNotFound
}

func (s *MemoryStore) openLocked() *models.Match {
	for _, m := range s.matches {
		if m.IsOpen() {
			return m
		}
	}
	return nil
}

func (s *MemoryStore) closedLocked() []*models.Match {
	closed := make([]*models.Match, 0, len(s.matches))
	for _, m := range s.matches {
		if m.Status == models.MatchStatusClosed {
			closed = append(closed, m)
		}
	}
	sort.Slice(closed, func(i, j int) bool { return closed[i].RoundNumber > closed[j].RoundNumber })
	return closed
}

func (s *MemoryStore) GetLatestClosedMatch(_ context.Context) (*models.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	closed := s.closedLocked()
	if len(closed) == 0 {
		return nil, ErrMatchNotFound
	}
	return cloneMatch(closed[0]), nil
}

func (s *MemoryStore) ListClosed(_ context.Context, limit, offset int) ([]*models.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	closed := s.closedLocked()
	out := make([]*models.Match, 0, limit)
	for i := offset; i < len(closed) && len(out) < limit; i++ {
		out = append(out, cloneMatch(closed[i]))
	}
	return out, nil
}

func (s *MemoryStore) OpenNewMatch(_ context.Context, movieIDs []int64, roundDate time.Time) (*models.Match, error) {
	if err := validateContenderMovies(movieIDs); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if open := s.openLocked(); open != nil {
		return nil, fmt.Errorf("%w: match %d", ErrMatchAlreadyOpen, open.ID)
	}

	round := 0
	for _, m := range s.matches {
		if m.RoundNumber > round {
			round = m.RoundNumber
		}
	}

	s.nextMatchID++
	m := &models.Match{
		ID:          s.nextMatchID,
		RoundNumber: round + 1,
		RoundDate:   roundDate.UTC(),
		Status:      models.MatchStatusOpen,
		CreatedAt:   s.now().UTC(),
		Contenders:  make([]models.Contender, 0, len(movieIDs)),
	}
	for _, movieID := range movieIDs {
		s.nextContenderID++
		m.Contenders = append(m.Contenders, models.Contender{
			ID:      s.nextContenderID,
			MatchID: m.ID,
			MovieID: movieID,
		})
	}
	s.matches[m.ID] = m
	return cloneMatch(m), nil
}

func (s *MemoryStore) CloseMatch(_ context.Context, matchID int64, winnerMovieID *int64) (*models.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.matches[matchID]
	if !ok {
		return nil, ErrMatchNotFound
	}
	return s.applyCloseLocked(m, winnerMovieID)
}

func (s *MemoryStore) ResolveAndClose(_ context.Context, matchID int64, resolve ResolveFunc) (*models.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.matches[matchID]
	if !ok {
		return nil, ErrMatchNotFound
	}
	if !m.IsOpen() {
		return nil, fmt.Errorf("%w: match %d", ErrMatchNotOpen, matchID)
	}
	return s.applyCloseLocked(m, resolve(m.Tallies()))
}

func (s *MemoryStore) applyCloseLocked(m *models.Match, winnerMovieID *int64) (*models.Match, error) {
	noop, err := closeDecision(m, winnerMovieID)
	if err != nil {
		return nil, err
	}
	if !noop {
		closedAt := s.now().UTC()
		m.Status = models.MatchStatusClosed
		if winnerMovieID != nil {
			w := *winnerMovieID
			m.WinnerMovieID = &w
		}
		m.ClosedAt = &closedAt
	}
	return cloneMatch(m), nil
}

func (s *MemoryStore) RecordVote(_ context.Context, vote *models.Vote) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.matches[vote.MatchID]
	if !ok {
		return 0, ErrMatchNotFound
	}
	if !m.IsOpen() {
		return 0, fmt.Errorf("%w: match %d", ErrMatchNotOpen, vote.MatchID)
	}

	idx := -1
	for i, c := range m.Contenders {
		if c.MovieID == vote.MovieID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return 0, fmt.Errorf("%w: movie %d", ErrContenderNotInMatch, vote.MovieID)
	}

	key := voteKey{memberID: vote.MemberID, matchID: vote.MatchID}
	if _, dup := s.votes[key]; dup {
		return 0, ErrDuplicateVote
	}

	vote.ContenderID = m.Contenders[idx].ID
	stored := *vote
	s.votes[key] = &stored
	m.Contenders[idx].Votes++
	return m.Contenders[idx].Votes, nil
}

func (s *MemoryStore) TallyOf(_ context.Context, matchID int64) (map[int64]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.matches[matchID]
	if !ok {
		return nil, ErrMatchNotFound
	}
	tally := make(map[int64]int, len(m.Contenders))
	for _, c := range m.Contenders {
		tally[c.MovieID] = c.Votes
	}
	return tally, nil
}

func (s *MemoryStore) GetMemberVote(_ context.Context, memberID, matchID int64) (*models.Vote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.votes[voteKey{memberID: memberID, matchID: matchID}]
	if !ok {
		return nil, ErrVoteNotFound
	}
	cp := *v
	return &cp, nil
}

// VoteCount returns the number of stored votes for a match.
func (s *MemoryStore) VoteCount(matchID int64) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for k := range s.votes {
		if k.matchID == matchID {
			n++
		}
	}
	return n
}
