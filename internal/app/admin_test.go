package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"quizboard-service/internal/app"
	"quizboard-service/internal/domain"
	"quizboard-service/internal/infra/memory"
)

func TestCreateUserDefaultsToStudent(t *testing.T) {
	ctx := context.Background()
	created := time.Date(2026, 5, 2, 8, 0, 0, 0, time.UTC)
	svc := app.NewAdminServiceWithClock(memory.NewGateway(), nil, fixedClock(created))

	user, err := svc.CreateUser(ctx, app.CreateUserParams{Email: "new@example.com", Name: "New"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if user.Role != domain.RoleStudent {
		t.Fatalf("expected student role by default, got %q", user.Role)
	}
	if !user.CreatedAt.Equal(created) {
		t.Fatalf("expected clock timestamp, got %v", user.CreatedAt)
	}

	fetched, err := svc.GetUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if fetched.Email != "new@example.com" {
		t.Fatalf("stored user mismatch: %+v", fetched)
	}
}

func TestDeleteUserCascadesToAttempts(t *testing.T) {
	ctx := context.Background()
	gw := memory.NewGateway()
	now := time.Date(2026, 5, 2, 8, 0, 0, 0, time.UTC)

	doomed := seedUser(t, gw, "doomed", now)
	other := seedUser(t, gw, "other", now)
	seedAttempt(t, gw, doomed, "quiz-1", 50, now, 10)
	seedAttempt(t, gw, doomed, "quiz-2", 70, now, 10)
	seedAttempt(t, gw, other, "quiz-1", 90, now, 10)

	listener := &fakeListener{}
	svc := app.NewAdminServiceWithClock(gw, listener, fixedClock(now))
	if err := svc.DeleteUser(ctx, doomed); err != nil {
		t.Fatalf("delete user: %v", err)
	}
	if listener.calls != 1 {
		t.Fatalf("expected board invalidation after cascade, got %d", listener.calls)
	}

	recs, err := gw.ReadAll(ctx, domain.CollectionAttempts)
	if err != nil {
		t.Fatalf("read attempts: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected only the other user's attempt to survive, got %d", len(recs))
	}

	board := app.NewLeaderboardServiceWithClock(gw, 0, fixedClock(now))
	lb, err := board.Leaderboard(ctx, 10)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	for _, entry := range lb.Entries {
		if entry.UserID == doomed {
			t.Fatalf("deleted user must not appear on the board: %+v", entry)
		}
	}
}

func TestDeleteUserNotFound(t *testing.T) {
	svc := app.NewAdminService(memory.NewGateway(), nil)
	if err := svc.DeleteUser(context.Background(), "ghost"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected user not found, got %v", err)
	}
}

func TestOverviewCounts(t *testing.T) {
	ctx := context.Background()
	gw := memory.NewGateway()
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

	fresh := seedUser(t, gw, "fresh", now.Add(-24*time.Hour))
	stale := seedUser(t, gw, "stale", now.Add(-30*24*time.Hour))

	authoring := app.NewAuthoringService(gw)
	active, err := authoring.CreateQuiz(ctx, app.CreateQuizParams{Title: "Active", Questions: completeQuestions()})
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	if _, err := authoring.CreateQuiz(ctx, app.CreateQuizParams{Title: "Dormant", Questions: completeQuestions(), IsActive: boolPtr(false)}); err != nil {
		t.Fatalf("create quiz: %v", err)
	}

	seedAttempt(t, gw, fresh, active.ID, 80, now.Add(-2*time.Hour), 10)
	seedAttempt(t, gw, stale, active.ID, 60, now.Add(-10*24*time.Hour), 10)

	svc := app.NewAdminServiceWithClock(gw, nil, fixedClock(now))
	overview, err := svc.Overview(ctx)
	if err != nil {
		t.Fatalf("overview: %v", err)
	}

	if overview.TotalUsers != 2 || overview.TotalQuizzes != 2 || overview.TotalAttempts != 2 {
		t.Fatalf("totals wrong: %+v", overview)
	}
	if overview.ActiveQuizzes != 1 {
		t.Fatalf("expected 1 active quiz, got %d", overview.ActiveQuizzes)
	}
	if overview.AverageScore != 70 {
		t.Fatalf("expected mean 70, got %v", overview.AverageScore)
	}
	if overview.RecentAttempts != 1 || overview.RecentUsers != 1 {
		t.Fatalf("7-day window counts wrong: %+v", overview)
	}
	if len(overview.NewestUsers) != 2 || overview.NewestUsers[0].ID != fresh {
		t.Fatalf("expected newest user first, got %+v", overview.NewestUsers)
	}
	if len(overview.LatestAttempts) != 2 || overview.LatestAttempts[0].Score != 80 {
		t.Fatalf("expected latest attempt first, got %+v", overview.LatestAttempts)
	}
}

func TestOverviewEmptySystem(t *testing.T) {
	svc := app.NewAdminService(memory.NewGateway(), nil)
	overview, err := svc.Overview(context.Background())
	if err != nil {
		t.Fatalf("overview: %v", err)
	}
	if overview.AverageScore != 0 {
		t.Fatalf("no attempts means average 0, got %v", overview.AverageScore)
	}
	if overview.TotalUsers != 0 || overview.TotalAttempts != 0 {
		t.Fatalf("expected empty counters, got %+v", overview)
	}
}

func TestOverviewDisplayListsTruncated(t *testing.T) {
	ctx := context.Background()
	gw := memory.NewGateway()
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

	var latest string
	for i := 0; i < 7; i++ {
		latest = seedUser(t, gw, "user"+string(rune('0'+i)), now.Add(time.Duration(i)*time.Minute))
	}
	for i := 0; i < 12; i++ {
		seedAttempt(t, gw, latest, "quiz-1", float64(i), now.Add(time.Duration(i)*time.Minute), 10)
	}

	svc := app.NewAdminServiceWithClock(gw, nil, fixedClock(now.Add(time.Hour)))
	overview, err := svc.Overview(ctx)
	if err != nil {
		t.Fatalf("overview: %v", err)
	}
	if len(overview.NewestUsers) != 5 {
		t.Fatalf("expected 5 newest users, got %d", len(overview.NewestUsers))
	}
	if len(overview.LatestAttempts) != 10 {
		t.Fatalf("expected 10 latest attempts, got %d", len(overview.LatestAttempts))
	}
	if overview.LatestAttempts[0].Score != 11 {
		t.Fatalf("expected most recent attempt first, got %+v", overview.LatestAttempts[0])
	}
}

func TestCreateUserDuplicateEmailRejected(t *testing.T) {
	ctx := context.Background()
	svc := app.NewAdminService(memory.NewGateway(), nil)

	if _, err := svc.CreateUser(ctx, app.CreateUserParams{Email: "taken@example.com", Name: "First"}); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := svc.CreateUser(ctx, app.CreateUserParams{Email: "taken@example.com", Name: "Second"}); !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected email taken, got %v", err)
	}

	users, err := svc.ListUsers(ctx)
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	if len(users) != 1 {
		t.Fatalf("duplicate must not be persisted, got %d users", len(users))
	}
}
