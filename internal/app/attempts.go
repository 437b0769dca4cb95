package app

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"sort"
	"time"

	"quizboard-service/internal/domain"
)

// BoardListener is notified whenever the attempt set changes, so derived
// views (the leaderboard) can drop their snapshot and re-broadcast.
type BoardListener interface {
	Invalidate(ctx context.Context)
}

// AttemptService scores submissions against the current quiz state and
// records the resulting attempt. Attempts are write-once.
type AttemptService struct {
	gw       Gateway
	listener BoardListener
	now      func() time.Time
}

func NewAttemptService(gw Gateway, listener BoardListener) *AttemptService {
	return &AttemptService{gw: gw, listener: listener, now: time.Now}
}

// NewAttemptServiceWithClock is test-only for deterministic timestamps.
func NewAttemptServiceWithClock(gw Gateway, listener BoardListener, now func() time.Time) *AttemptService {
	return &AttemptService{gw: gw, listener: listener, now: now}
}

// SubmitAttemptParams is one completed quiz run.
type SubmitAttemptParams struct {
	UserID           string
	QuizID           string
	Answers          []int
	TimeSpentSeconds int
}

// ScoreAnswers grades submitted answer indices against the quiz's current
// question order. Position i is correct when answers[i] equals the question's
// correct option index; positions beyond the submitted slice are unanswered.
// The computation is pure: re-scoring the same pair always yields the same
// result. An empty quiz scores zero percent (the denominator defaults to 1).
func ScoreAnswers(quiz domain.Quiz, answers []int) domain.AttemptResult {
	correct := 0
	for i, question := range quiz.Questions {
		if i < len(answers) && answers[i] == question.CorrectAnswer {
			correct++
		}
	}
	total := len(quiz.Questions)
	if total == 0 {
		total = 1
	}
	return domain.AttemptResult{
		CorrectAnswers: correct,
		TotalQuestions: total,
		Percentage:     math.Round(float64(correct) / float64(total) * 100),
	}
}

// SubmitAttempt scores the submission, persists it, and nudges the listener.
// The recorded score is the percentage, so later quiz edits never re-grade
// history.
func (s *AttemptService) SubmitAttempt(ctx context.Context, p SubmitAttemptParams) (domain.Attempt, error) {
	if _, err := s.gw.ReadOne(ctx, domain.CollectionUsers, p.UserID); err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return domain.Attempt{}, domain.ErrUserNotFound
		}
		return domain.Attempt{}, err
	}
	rec, err := s.gw.ReadOne(ctx, domain.CollectionQuizzes, p.QuizID)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return domain.Attempt{}, domain.ErrQuizNotFound
		}
		return domain.Attempt{}, err
	}
	quiz, err := domain.DecodeQuiz(rec.ID, rec.Version, rec.Data)
	if err != nil {
		return domain.Attempt{}, err
	}

	result := ScoreAnswers(quiz, p.Answers)
	attempt := domain.Attempt{
		UserID:           p.UserID,
		QuizID:           p.QuizID,
		Answers:          p.Answers,
		Score:            result.Percentage,
		CorrectAnswers:   result.CorrectAnswers,
		TotalQuestions:   result.TotalQuestions,
		CompletedAt:      s.now(),
		TimeSpentSeconds: p.TimeSpentSeconds,
	}

	data, err := marshalAttempt(attempt)
	if err != nil {
		return domain.Attempt{}, err
	}
	id, err := s.gw.Create(ctx, domain.CollectionAttempts, data)
	if err != nil {
		return domain.Attempt{}, err
	}
	attempt.ID = id
	attempt.Version = 1

	if s.listener != nil {
		s.listener.Invalidate(ctx)
	}
	return attempt, nil
}

// GetAttempt fetches and decodes a single attempt.
func (s *AttemptService) GetAttempt(ctx context.Context, id string) (domain.Attempt, error) {
	rec, err := s.gw.ReadOne(ctx, domain.CollectionAttempts, id)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return domain.Attempt{}, domain.ErrAttemptNotFound
		}
		return domain.Attempt{}, err
	}
	return domain.DecodeAttempt(rec.ID, rec.Version, rec.Data)
}

// ListAttemptsByUser returns a user's attempts, most recent first.
func (s *AttemptService) ListAttemptsByUser(ctx context.Context, userID string) ([]domain.Attempt, error) {
	recs, err := s.gw.ReadAll(ctx, domain.CollectionAttempts)
	if err != nil {
		return nil, err
	}
	attempts := make([]domain.Attempt, 0)
	for _, rec := range recs {
		attempt, err := domain.DecodeAttempt(rec.ID, rec.Version, rec.Data)
		if err != nil {
			return nil, err
		}
		if attempt.UserID == userID {
			attempts = append(attempts, attempt)
		}
	}
	sort.SliceStable(attempts, func(i, j int) bool {
		return attempts[i].CompletedAt.After(attempts[j].CompletedAt)
	})
	return attempts, nil
}

func marshalAttempt(attempt domain.Attempt) ([]byte, error) {
	attempt.ID = ""
	return json.Marshal(attempt)
}
