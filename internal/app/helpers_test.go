package app_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"quizboard-service/internal/app"
	"quizboard-service/internal/domain"
)

// seedUser writes a user record straight through the gateway and returns its id.
func seedUser(t *testing.T, gw app.Gateway, name string, createdAt time.Time) string {
	t.Helper()
	data, err := json.Marshal(domain.User{
		Email:     name + "@example.com",
		Name:      name,
		Role:      domain.RoleStudent,
		CreatedAt: createdAt,
	})
	if err != nil {
		t.Fatalf("marshal user: %v", err)
	}
	id, err := gw.Create(context.Background(), domain.CollectionUsers, data)
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return id
}

// seedAttempt writes an attempt record with a fixed score, bypassing the scorer.
func seedAttempt(t *testing.T, gw app.Gateway, userID, quizID string, score float64, completedAt time.Time, timeSpent int) string {
	t.Helper()
	data, err := json.Marshal(domain.Attempt{
		UserID:           userID,
		QuizID:           quizID,
		Answers:          []int{0},
		Score:            score,
		CorrectAnswers:   1,
		TotalQuestions:   1,
		CompletedAt:      completedAt,
		TimeSpentSeconds: timeSpent,
	})
	if err != nil {
		t.Fatalf("marshal attempt: %v", err)
	}
	id, err := gw.Create(context.Background(), domain.CollectionAttempts, data)
	if err != nil {
		t.Fatalf("seed attempt: %v", err)
	}
	return id
}

// countingGateway counts ReadAll calls to assert the board snapshot is reused.
type countingGateway struct {
	app.Gateway
	readAlls int
}

func (g *countingGateway) ReadAll(ctx context.Context, collection string) ([]app.Record, error) {
	g.readAlls++
	return g.Gateway.ReadAll(ctx, collection)
}
