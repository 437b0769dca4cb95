package app

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"quizboard-service/internal/domain"
)

const (
	newestUserCount    = 5
	latestAttemptCount = 10
)

// AdminService owns user lifecycle and the dashboard counters.
type AdminService struct {
	gw       Gateway
	listener BoardListener
	now      func() time.Time
}

func NewAdminService(gw Gateway, listener BoardListener) *AdminService {
	return &AdminService{gw: gw, listener: listener, now: time.Now}
}

// NewAdminServiceWithClock is test-only for deterministic timestamps.
func NewAdminServiceWithClock(gw Gateway, listener BoardListener, now func() time.Time) *AdminService {
	return &AdminService{gw: gw, listener: listener, now: now}
}

// CreateUserParams carries the fields an admin supplies for a new account.
type CreateUserParams struct {
	Email string
	Name  string
	Role  domain.Role
}

// CreateUser persists a new account. Role defaults to student. Emails are
// unique across the system; a duplicate fails with ErrEmailTaken.
func (s *AdminService) CreateUser(ctx context.Context, p CreateUserParams) (domain.User, error) {
	existing, err := loadUsers(ctx, s.gw)
	if err != nil {
		return domain.User{}, err
	}
	for _, u := range existing {
		if u.Email == p.Email {
			return domain.User{}, domain.ErrEmailTaken
		}
	}

	user := domain.User{
		Email:     p.Email,
		Name:      p.Name,
		Role:      p.Role,
		CreatedAt: s.now(),
	}
	if user.Role == "" {
		user.Role = domain.RoleStudent
	}
	data, err := marshalUser(user)
	if err != nil {
		return domain.User{}, err
	}
	id, err := s.gw.Create(ctx, domain.CollectionUsers, data)
	if err != nil {
		return domain.User{}, err
	}
	user.ID = id
	user.Version = 1
	return user, nil
}

// GetUser fetches and decodes a single user.
func (s *AdminService) GetUser(ctx context.Context, id string) (domain.User, error) {
	rec, err := s.gw.ReadOne(ctx, domain.CollectionUsers, id)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return domain.User{}, domain.ErrUserNotFound
		}
		return domain.User{}, err
	}
	return domain.DecodeUser(rec.ID, rec.Version, rec.Data)
}

// ListUsers returns all users, newest first.
func (s *AdminService) ListUsers(ctx context.Context) ([]domain.User, error) {
	users, err := loadUsers(ctx, s.gw)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(users, func(i, j int) bool {
		return users[i].CreatedAt.After(users[j].CreatedAt)
	})
	return users, nil
}

// DeleteUser removes the user and every attempt they recorded in one batch,
// so a crash cannot leave attempts pointing at a half-deleted user.
func (s *AdminService) DeleteUser(ctx context.Context, id string) error {
	if _, err := s.gw.ReadOne(ctx, domain.CollectionUsers, id); err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return domain.ErrUserNotFound
		}
		return err
	}
	attempts, err := loadAttempts(ctx, s.gw)
	if err != nil {
		return err
	}

	keys := []Key{{Collection: domain.CollectionUsers, ID: id}}
	for _, attempt := range attempts {
		if attempt.UserID == id {
			keys = append(keys, Key{Collection: domain.CollectionAttempts, ID: attempt.ID})
		}
	}
	if err := s.gw.DeleteBatch(ctx, keys); err != nil {
		return err
	}
	if s.listener != nil {
		s.listener.Invalidate(ctx)
	}
	return nil
}

// Overview computes the dashboard counters in one pass per collection.
func (s *AdminService) Overview(ctx context.Context) (domain.Overview, error) {
	users, err := loadUsers(ctx, s.gw)
	if err != nil {
		return domain.Overview{}, err
	}
	quizzes, err := loadQuizzes(ctx, s.gw)
	if err != nil {
		return domain.Overview{}, err
	}
	attempts, err := loadAttempts(ctx, s.gw)
	if err != nil {
		return domain.Overview{}, err
	}

	cutoff := s.now().Add(-recentWindow)
	overview := domain.Overview{
		TotalUsers:    len(users),
		TotalQuizzes:  len(quizzes),
		TotalAttempts: len(attempts),
	}

	for _, quiz := range quizzes {
		if quiz.IsActive {
			overview.ActiveQuizzes++
		}
	}

	var scoreSum float64
	for _, attempt := range attempts {
		scoreSum += attempt.Score
		if !attempt.CompletedAt.Before(cutoff) {
			overview.RecentAttempts++
		}
	}
	if len(attempts) > 0 {
		overview.AverageScore = round2(scoreSum / float64(len(attempts)))
	}

	for _, user := range users {
		if !user.CreatedAt.Before(cutoff) {
			overview.RecentUsers++
		}
	}

	sort.SliceStable(users, func(i, j int) bool {
		return users[i].CreatedAt.After(users[j].CreatedAt)
	})
	if len(users) > newestUserCount {
		users = users[:newestUserCount]
	}
	overview.NewestUsers = users

	sort.SliceStable(attempts, func(i, j int) bool {
		return attempts[i].CompletedAt.After(attempts[j].CompletedAt)
	})
	if len(attempts) > latestAttemptCount {
		attempts = attempts[:latestAttemptCount]
	}
	overview.LatestAttempts = attempts

	return overview, nil
}

func marshalUser(user domain.User) ([]byte, error) {
	user.ID = ""
	return json.Marshal(user)
}
