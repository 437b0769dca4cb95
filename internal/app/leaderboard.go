package app

import (
	"context"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"quizboard-service/internal/domain"
)

const (
	// DefaultBoardLimit is the board size when the caller does not ask for one.
	DefaultBoardLimit = 50
	// rankWindow bounds rank lookups; users sorted beyond it report rank 0.
	rankWindow = 1000
	// recentWindow is the trailing period counted as "recent".
	recentWindow = 7 * 24 * time.Hour
)

// LeaderboardService folds all attempts across all users into a ranked board.
// The aggregated (pre-truncation) board is memoized with a TTL so repeated
// reads do not re-scan the collections; recording an attempt or deleting a
// user drops the snapshot.
type LeaderboardService struct {
	gw    Gateway
	ttl   time.Duration
	now   func() time.Time
	sf    singleflight.Group
	rnd   *rand.Rand
	rndMu sync.Mutex

	mu          sync.RWMutex
	cached      []domain.LeaderboardEntry
	expiresAt   time.Time
	subscribers map[chan domain.Leaderboard]struct{}
}

func NewLeaderboardService(gw Gateway, ttl time.Duration) *LeaderboardService {
	return &LeaderboardService{
		gw:          gw,
		ttl:         ttl,
		now:         time.Now,
		rnd:         rand.New(rand.NewSource(time.Now().UnixNano())),
		subscribers: make(map[chan domain.Leaderboard]struct{}),
	}
}

// NewLeaderboardServiceWithClock is test-only for deterministic timestamps.
func NewLeaderboardServiceWithClock(gw Gateway, ttl time.Duration, now func() time.Time) *LeaderboardService {
	s := NewLeaderboardService(gw, ttl)
	s.now = now
	return s
}

// Leaderboard returns the top entries, ranked 1..min(limit, users with
// attempts). Ranks are assigned after truncation, so a user outside the limit
// has no rank at all.
func (s *LeaderboardService) Leaderboard(ctx context.Context, limit int) (domain.Leaderboard, error) {
	if limit <= 0 {
		limit = DefaultBoardLimit
	}
	sorted, err := s.sortedEntries(ctx)
	if err != nil {
		return domain.Leaderboard{}, err
	}
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	entries := make([]domain.LeaderboardEntry, len(sorted))
	copy(entries, sorted)
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return domain.Leaderboard{Entries: entries, UpdatedAt: s.now()}, nil
}

// UserRank looks a user up within the rank window. Returns 0 when the user
// has no attempts or sits beyond the window.
func (s *LeaderboardService) UserRank(ctx context.Context, userID string) (int, error) {
	board, err := s.Leaderboard(ctx, rankWindow)
	if err != nil {
		return 0, err
	}
	for _, entry := range board.Entries {
		if entry.UserID == userID {
			return entry.Rank, nil
		}
	}
	return 0, nil
}

// RecentActivity lists attempts completed within the trailing seven days,
// newest first, joined to user and quiz labels. Dangling references get
// placeholder labels instead of failing the read.
func (s *LeaderboardService) RecentActivity(ctx context.Context, limit int) ([]domain.ActivityItem, error) {
	if limit <= 0 {
		limit = 10
	}
	attempts, err := loadAttempts(ctx, s.gw)
	if err != nil {
		return nil, err
	}
	users, err := loadUsers(ctx, s.gw)
	if err != nil {
		return nil, err
	}
	quizzes, err := loadQuizzes(ctx, s.gw)
	if err != nil {
		return nil, err
	}

	names := make(map[string]string, len(users))
	for _, user := range users {
		names[user.ID] = user.Name
	}
	titles := make(map[string]string, len(quizzes))
	for _, quiz := range quizzes {
		titles[quiz.ID] = quiz.Title
	}

	cutoff := s.now().Add(-recentWindow)
	items := make([]domain.ActivityItem, 0)
	for _, attempt := range attempts {
		if attempt.CompletedAt.Before(cutoff) {
			continue
		}
		name, ok := names[attempt.UserID]
		if !ok {
			name = "Unknown User"
		}
		title, ok := titles[attempt.QuizID]
		if !ok {
			title = "Unknown Quiz"
		}
		items = append(items, domain.ActivityItem{
			AttemptID:   attempt.ID,
			UserID:      attempt.UserID,
			UserName:    name,
			QuizID:      attempt.QuizID,
			QuizTitle:   title,
			Score:       attempt.Score,
			CompletedAt: attempt.CompletedAt,
		})
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CompletedAt.After(items[j].CompletedAt)
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// Invalidate drops the cached board and pushes a fresh one to subscribers.
// It implements BoardListener.
func (s *LeaderboardService) Invalidate(ctx context.Context) {
	s.mu.Lock()
	s.cached = nil
	s.expiresAt = time.Time{}
	s.mu.Unlock()

	board, err := s.Leaderboard(ctx, DefaultBoardLimit)
	if err != nil {
		return
	}
	s.broadcast(board)
}

// Subscribe returns a channel receiving board updates, primed with the
// current snapshot. The caller must invoke cancel to avoid leaks.
func (s *LeaderboardService) Subscribe(ctx context.Context) (<-chan domain.Leaderboard, func(), error) {
	board, err := s.Leaderboard(ctx, DefaultBoardLimit)
	if err != nil {
		return nil, nil, err
	}

	ch := make(chan domain.Leaderboard, 8)
	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	ch <- board

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel, nil
}

func (s *LeaderboardService) broadcast(board domain.Leaderboard) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subscribers {
		select {
		case ch <- board:
		default:
			// Drop the stale update so a slow reader never blocks the rest.
			select {
			case <-ch:
			default:
			}
			ch <- board
		}
	}
}

// sortedEntries returns the full aggregated board, sorted but unranked and
// untruncated, serving it from the snapshot while fresh.
func (s *LeaderboardService) sortedEntries(ctx context.Context) ([]domain.LeaderboardEntry, error) {
	now := s.now()

	s.mu.RLock()
	if s.cached != nil && s.expiresAt.After(now) {
		entries := s.cached
		s.mu.RUnlock()
		return entries, nil
	}
	s.mu.RUnlock()

	result, err, _ := s.sf.Do("board", func() (interface{}, error) {
		s.mu.RLock()
		if s.cached != nil && s.expiresAt.After(s.now()) {
			entries := s.cached
			s.mu.RUnlock()
			return entries, nil
		}
		s.mu.RUnlock()

		users, err := loadUsers(ctx, s.gw)
		if err != nil {
			return nil, err
		}
		attempts, err := loadAttempts(ctx, s.gw)
		if err != nil {
			return nil, err
		}
		entries := AggregateBoard(users, attempts)

		if s.ttl > 0 {
			s.mu.Lock()
			s.cached = entries
			s.expiresAt = now.Add(s.ttlWithJitter())
			s.mu.Unlock()
		}
		return entries, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.LeaderboardEntry), nil
}

func (s *LeaderboardService) ttlWithJitter() time.Duration {
	if s.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(s.ttl) / 10
	s.rndMu.Lock()
	defer s.rndMu.Unlock()
	return s.ttl + time.Duration(s.rnd.Int63n(jitterMax+1))
}

// AggregateBoard folds attempts into per-user summaries and sorts them by
// average score descending, then by quizzes taken descending. The sort is
// stable, so full ties keep encounter order. Attempts referencing an unknown
// user are dropped.
func AggregateBoard(users []domain.User, attempts []domain.Attempt) []domain.LeaderboardEntry {
	names := make(map[string]string, len(users))
	for _, user := range users {
		names[user.ID] = user.Name
	}

	entries := make([]domain.LeaderboardEntry, 0, len(users))
	index := make(map[string]int)
	for _, attempt := range attempts {
		name, known := names[attempt.UserID]
		if !known {
			continue
		}
		i, ok := index[attempt.UserID]
		if !ok {
			i = len(entries)
			index[attempt.UserID] = i
			entries = append(entries, domain.LeaderboardEntry{
				UserID:      attempt.UserID,
				DisplayName: name,
			})
		}
		entry := &entries[i]
		entry.TotalQuizzes++
		entry.TotalScore += attempt.Score
		if attempt.Score > entry.BestScore {
			entry.BestScore = attempt.Score
		}
		entry.TotalTimeSeconds += attempt.TimeSpentSeconds
		if attempt.CompletedAt.After(entry.LastActivity) {
			entry.LastActivity = attempt.CompletedAt
		}
	}

	for i := range entries {
		entries[i].AverageScore = round2(entries[i].TotalScore / float64(entries[i].TotalQuizzes))
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].AverageScore != entries[j].AverageScore {
			return entries[i].AverageScore > entries[j].AverageScore
		}
		return entries[i].TotalQuizzes > entries[j].TotalQuizzes
	})
	return entries
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
