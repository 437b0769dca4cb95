package app

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"quizboard-service/internal/domain"
)

// AuthoringService maintains the quiz activation invariant across create and
// update: a quiz with any question lacking a correct answer is always stored
// as draft+inactive, regardless of what the caller asked for.
type AuthoringService struct {
	gw  Gateway
	now func() time.Time
}

func NewAuthoringService(gw Gateway) *AuthoringService {
	return &AuthoringService{gw: gw, now: time.Now}
}

// NewAuthoringServiceWithClock is test-only for deterministic timestamps.
func NewAuthoringServiceWithClock(gw Gateway, now func() time.Time) *AuthoringService {
	return &AuthoringService{gw: gw, now: now}
}

// CreateQuizParams carries the author's input. IsActive nil means "active if
// complete", matching the default-true behavior of the authoring flow.
type CreateQuizParams struct {
	Title            string
	Description      string
	Questions        []domain.Question
	TimeLimitMinutes int
	QuestionCount    int
	CreatedBy        string
	IsActive         *bool
}

// QuizPatch is a partial update. Nil fields are left untouched. Id, creator
// and creation time are never patchable. Version, when set, is the record
// version the caller last saw; the write fails with ErrVersionConflict if the
// quiz has moved on since.
type QuizPatch struct {
	Title            *string
	Description      *string
	Questions        *[]domain.Question
	TimeLimitMinutes *int
	QuestionCount    *int
	IsActive         *bool
	Version          *int64
}

// CreateQuiz persists a new quiz, deriving the draft and incomplete flags.
func (s *AuthoringService) CreateQuiz(ctx context.Context, p CreateQuizParams) (domain.Quiz, error) {
	quiz := domain.Quiz{
		Title:            p.Title,
		Description:      p.Description,
		Questions:        normalizeQuestions(p.Questions),
		TimeLimitMinutes: p.TimeLimitMinutes,
		QuestionCount:    p.QuestionCount,
		CreatedBy:        p.CreatedBy,
		CreatedAt:        s.now(),
		IsActive:         p.IsActive == nil || *p.IsActive,
	}
	if quiz.QuestionCount <= 0 {
		quiz.QuestionCount = domain.DefaultQuestionCount
	}
	quiz.HasIncompleteQuestions = quiz.HasIncomplete()
	quiz.IsDraft = quiz.HasIncompleteQuestions
	if quiz.HasIncompleteQuestions {
		quiz.IsActive = false
	}

	data, err := marshalQuiz(quiz)
	if err != nil {
		return domain.Quiz{}, err
	}
	id, err := s.gw.Create(ctx, domain.CollectionQuizzes, data)
	if err != nil {
		return domain.Quiz{}, err
	}
	quiz.ID = id
	quiz.Version = 1
	return quiz, nil
}

// GetQuiz fetches and decodes a single quiz.
func (s *AuthoringService) GetQuiz(ctx context.Context, id string) (domain.Quiz, error) {
	rec, err := s.gw.ReadOne(ctx, domain.CollectionQuizzes, id)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return domain.Quiz{}, domain.ErrQuizNotFound
		}
		return domain.Quiz{}, err
	}
	return domain.DecodeQuiz(rec.ID, rec.Version, rec.Data)
}

// ListQuizzes returns all quizzes, newest first. With activeOnly it returns
// only quizzes students may take.
func (s *AuthoringService) ListQuizzes(ctx context.Context, activeOnly bool) ([]domain.Quiz, error) {
	recs, err := s.gw.ReadAll(ctx, domain.CollectionQuizzes)
	if err != nil {
		return nil, err
	}
	quizzes := make([]domain.Quiz, 0, len(recs))
	for _, rec := range recs {
		quiz, err := domain.DecodeQuiz(rec.ID, rec.Version, rec.Data)
		if err != nil {
			return nil, err
		}
		if activeOnly && !quiz.IsActive {
			continue
		}
		quizzes = append(quizzes, quiz)
	}
	sort.SliceStable(quizzes, func(i, j int) bool {
		return quizzes[i].CreatedAt.After(quizzes[j].CreatedAt)
	})
	return quizzes, nil
}

// UpdateQuiz merges the patch onto the stored quiz and writes it back with a
// compare-and-swap on the record version. Attempting to activate a quiz that
// still has incomplete questions is coerced to draft+inactive, not rejected.
func (s *AuthoringService) UpdateQuiz(ctx context.Context, id string, patch QuizPatch) (domain.Quiz, error) {
	quiz, err := s.GetQuiz(ctx, id)
	if err != nil {
		return domain.Quiz{}, err
	}

	if patch.Title != nil {
		quiz.Title = *patch.Title
	}
	if patch.Description != nil {
		quiz.Description = *patch.Description
	}
	if patch.Questions != nil {
		quiz.Questions = normalizeQuestions(*patch.Questions)
	}
	if patch.TimeLimitMinutes != nil {
		quiz.TimeLimitMinutes = *patch.TimeLimitMinutes
	}
	if patch.QuestionCount != nil {
		quiz.QuestionCount = *patch.QuestionCount
	}
	if patch.IsActive != nil {
		quiz.IsActive = *patch.IsActive
	}

	quiz.HasIncompleteQuestions = quiz.HasIncomplete()
	if quiz.HasIncompleteQuestions {
		quiz.IsDraft = true
		quiz.IsActive = false
	} else if patch.Questions != nil {
		quiz.IsDraft = false
	}

	data, err := marshalQuiz(quiz)
	if err != nil {
		return domain.Quiz{}, err
	}
	version := quiz.Version
	if patch.Version != nil {
		version = *patch.Version
	}
	if err := s.gw.Update(ctx, domain.CollectionQuizzes, id, version, data); err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return domain.Quiz{}, domain.ErrQuizNotFound
		}
		return domain.Quiz{}, err
	}
	quiz.Version = version + 1
	return quiz, nil
}

// DeleteQuiz removes the quiz. Attempts referencing it are left in place;
// readers substitute a placeholder title for the dangling reference.
func (s *AuthoringService) DeleteQuiz(ctx context.Context, id string) error {
	if err := s.gw.Delete(ctx, domain.CollectionQuizzes, id); err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return domain.ErrQuizNotFound
		}
		return err
	}
	return nil
}

// normalizeQuestions coerces answer indices that point outside the option
// list to the unset sentinel. A bad index then reads as an incomplete
// question instead of a record the decoder refuses to load.
func normalizeQuestions(questions []domain.Question) []domain.Question {
	out := make([]domain.Question, len(questions))
	copy(out, questions)
	for i := range out {
		if out[i].CorrectAnswer < domain.UnsetAnswer || out[i].CorrectAnswer >= len(out[i].Options) {
			out[i].CorrectAnswer = domain.UnsetAnswer
		}
	}
	return out
}

// marshalQuiz strips the fields that live outside the record body (the id is
// the collection key, the version is gateway metadata).
func marshalQuiz(quiz domain.Quiz) ([]byte, error) {
	quiz.ID = ""
	quiz.Version = 0
	return json.Marshal(quiz)
}
