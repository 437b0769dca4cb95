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

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func boolPtr(b bool) *bool { return &b }

func completeQuestions() []domain.Question {
	return []domain.Question{
		{ID: "q1", Prompt: "2+2?", Options: []string{"3", "4"}, CorrectAnswer: 1},
		{ID: "q2", Prompt: "3+3?", Options: []string{"6", "7"}, CorrectAnswer: 0},
	}
}

func incompleteQuestions() []domain.Question {
	return []domain.Question{
		{ID: "q1", Prompt: "2+2?", Options: []string{"3", "4"}, CorrectAnswer: 1},
		{ID: "q2", Prompt: "3+3?", Options: []string{"6", "7"}, CorrectAnswer: 0},
		{ID: "q3", Prompt: "unfinished", Options: []string{"a", "b"}, CorrectAnswer: domain.UnsetAnswer},
	}
}

func TestCreateQuizIncompleteCoercedToDraft(t *testing.T) {
	ctx := context.Background()
	svc := app.NewAuthoringService(memory.NewGateway())

	quiz, err := svc.CreateQuiz(ctx, app.CreateQuizParams{
		Title:     "Drafty",
		Questions: incompleteQuestions(),
		CreatedBy: "admin-1",
		IsActive:  boolPtr(true),
	})
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	if !quiz.HasIncompleteQuestions {
		t.Fatalf("expected incomplete flag set")
	}
	if !quiz.IsDraft || quiz.IsActive {
		t.Fatalf("expected draft+inactive despite caller asking active, got draft=%v active=%v", quiz.IsDraft, quiz.IsActive)
	}
}

func TestCreateQuizPreservesCallerActive(t *testing.T) {
	ctx := context.Background()
	svc := app.NewAuthoringService(memory.NewGateway())

	quiz, err := svc.CreateQuiz(ctx, app.CreateQuizParams{
		Title:     "Complete",
		Questions: completeQuestions(),
		IsActive:  boolPtr(false),
	})
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	if quiz.IsActive {
		t.Fatalf("expected caller's inactive to survive")
	}
	if quiz.IsDraft || quiz.HasIncompleteQuestions {
		t.Fatalf("complete quiz must not be draft, got %+v", quiz)
	}

	quiz, err = svc.CreateQuiz(ctx, app.CreateQuizParams{
		Title:     "Default active",
		Questions: completeQuestions(),
	})
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	if !quiz.IsActive {
		t.Fatalf("expected active by default")
	}
}

func TestCreateQuizDefaultQuestionCount(t *testing.T) {
	ctx := context.Background()
	svc := app.NewAuthoringService(memory.NewGateway())

	quiz, err := svc.CreateQuiz(ctx, app.CreateQuizParams{Title: "Defaults", Questions: completeQuestions()})
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	if quiz.QuestionCount != domain.DefaultQuestionCount {
		t.Fatalf("expected default question count %d, got %d", domain.DefaultQuestionCount, quiz.QuestionCount)
	}
}

func TestUpdateQuizPreservesProvenance(t *testing.T) {
	ctx := context.Background()
	gw := memory.NewGateway()
	created := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	svc := app.NewAuthoringServiceWithClock(gw, fixedClock(created))

	quiz, err := svc.CreateQuiz(ctx, app.CreateQuizParams{
		Title:     "Original",
		Questions: completeQuestions(),
		CreatedBy: "admin-1",
	})
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}

	later := app.NewAuthoringServiceWithClock(gw, fixedClock(created.Add(48*time.Hour)))
	title := "Renamed"
	updated, err := later.UpdateQuiz(ctx, quiz.ID, app.QuizPatch{Title: &title})
	if err != nil {
		t.Fatalf("update quiz: %v", err)
	}
	if updated.Title != "Renamed" {
		t.Fatalf("expected title applied, got %q", updated.Title)
	}
	if updated.ID != quiz.ID || updated.CreatedBy != "admin-1" || !updated.CreatedAt.Equal(created) {
		t.Fatalf("provenance fields must survive updates, got %+v", updated)
	}
}

func TestUpdateQuizActivationCoerced(t *testing.T) {
	ctx := context.Background()
	svc := app.NewAuthoringService(memory.NewGateway())

	quiz, err := svc.CreateQuiz(ctx, app.CreateQuizParams{Title: "Drafty", Questions: incompleteQuestions()})
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}

	updated, err := svc.UpdateQuiz(ctx, quiz.ID, app.QuizPatch{IsActive: boolPtr(true)})
	if err != nil {
		t.Fatalf("update quiz: %v", err)
	}
	if updated.IsActive || !updated.IsDraft {
		t.Fatalf("activation of an incomplete quiz must coerce to draft+inactive, got %+v", updated)
	}
}

func TestUpdateQuizCompletingQuestionsAllowsActivation(t *testing.T) {
	ctx := context.Background()
	svc := app.NewAuthoringService(memory.NewGateway())

	quiz, err := svc.CreateQuiz(ctx, app.CreateQuizParams{Title: "Drafty", Questions: incompleteQuestions()})
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}

	fixed := completeQuestions()
	updated, err := svc.UpdateQuiz(ctx, quiz.ID, app.QuizPatch{Questions: &fixed, IsActive: boolPtr(true)})
	if err != nil {
		t.Fatalf("update quiz: %v", err)
	}
	if !updated.IsActive || updated.IsDraft || updated.HasIncompleteQuestions {
		t.Fatalf("expected active quiz after completing questions, got %+v", updated)
	}
}

func TestUpdateQuizNotFound(t *testing.T) {
	svc := app.NewAuthoringService(memory.NewGateway())
	title := "nope"
	if _, err := svc.UpdateQuiz(context.Background(), "missing", app.QuizPatch{Title: &title}); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected quiz not found, got %v", err)
	}
}

func TestDeleteQuizLeavesAttempts(t *testing.T) {
	ctx := context.Background()
	gw := memory.NewGateway()
	svc := app.NewAuthoringService(gw)

	quiz, err := svc.CreateQuiz(ctx, app.CreateQuizParams{Title: "Doomed", Questions: completeQuestions()})
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	seedAttempt(t, gw, "u1", quiz.ID, 50, time.Now(), 60)

	if err := svc.DeleteQuiz(ctx, quiz.ID); err != nil {
		t.Fatalf("delete quiz: %v", err)
	}
	if _, err := svc.GetQuiz(ctx, quiz.ID); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected quiz gone, got %v", err)
	}

	recs, err := gw.ReadAll(ctx, domain.CollectionAttempts)
	if err != nil {
		t.Fatalf("read attempts: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("attempts referencing a deleted quiz stay put, got %d records", len(recs))
	}
}

func TestCreateQuizCoercesAnswerOutOfRange(t *testing.T) {
	ctx := context.Background()
	svc := app.NewAuthoringService(memory.NewGateway())

	quiz, err := svc.CreateQuiz(ctx, app.CreateQuizParams{
		Title: "Bad index",
		Questions: []domain.Question{
			{ID: "q1", Prompt: "2+2?", Options: []string{"3", "4"}, CorrectAnswer: 5},
		},
		IsActive: boolPtr(true),
	})
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}

	got, err := svc.GetQuiz(ctx, quiz.ID)
	if err != nil {
		t.Fatalf("get quiz after create: %v", err)
	}
	if got.Questions[0].CorrectAnswer != domain.UnsetAnswer {
		t.Fatalf("expected out-of-range answer coerced to %d, got %d", domain.UnsetAnswer, got.Questions[0].CorrectAnswer)
	}
	if !got.IsDraft || got.IsActive || !got.HasIncompleteQuestions {
		t.Fatalf("coerced question must leave the quiz draft+inactive, got %+v", got)
	}

	if _, err := svc.ListQuizzes(ctx, false); err != nil {
		t.Fatalf("list quizzes: %v", err)
	}
}

func TestUpdateQuizCoercesAnswerOutOfRange(t *testing.T) {
	ctx := context.Background()
	svc := app.NewAuthoringService(memory.NewGateway())

	quiz, err := svc.CreateQuiz(ctx, app.CreateQuizParams{Title: "Starts fine", Questions: completeQuestions()})
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}

	broken := []domain.Question{
		{ID: "q1", Prompt: "2+2?", Options: []string{"3", "4"}, CorrectAnswer: -3},
	}
	updated, err := svc.UpdateQuiz(ctx, quiz.ID, app.QuizPatch{Questions: &broken})
	if err != nil {
		t.Fatalf("update quiz: %v", err)
	}
	if updated.Questions[0].CorrectAnswer != domain.UnsetAnswer {
		t.Fatalf("expected coerced answer, got %d", updated.Questions[0].CorrectAnswer)
	}
	if _, err := svc.GetQuiz(ctx, quiz.ID); err != nil {
		t.Fatalf("get quiz after update: %v", err)
	}
}

func TestUpdateQuizStaleVersionConflict(t *testing.T) {
	ctx := context.Background()
	svc := app.NewAuthoringService(memory.NewGateway())

	quiz, err := svc.CreateQuiz(ctx, app.CreateQuizParams{Title: "Contended", Questions: completeQuestions()})
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}

	first := "first writer"
	if _, err := svc.UpdateQuiz(ctx, quiz.ID, app.QuizPatch{Title: &first}); err != nil {
		t.Fatalf("first update: %v", err)
	}

	stale := quiz.Version
	second := "second writer"
	_, err = svc.UpdateQuiz(ctx, quiz.ID, app.QuizPatch{Title: &second, Version: &stale})
	if !errors.Is(err, domain.ErrVersionConflict) {
		t.Fatalf("expected version conflict for stale caller, got %v", err)
	}

	current, err := svc.GetQuiz(ctx, quiz.ID)
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if _, err := svc.UpdateQuiz(ctx, quiz.ID, app.QuizPatch{Title: &second, Version: &current.Version}); err != nil {
		t.Fatalf("update with fresh version: %v", err)
	}
}
