package app

import (
	"context"

	"quizboard-service/internal/domain"
)

// Shared full-collection reads with decoding. A malformed record fails the
// whole read with a *domain.DecodeError rather than leaking into aggregation.

func loadUsers(ctx context.Context, gw Gateway) ([]domain.User, error) {
	recs, err := gw.ReadAll(ctx, domain.CollectionUsers)
	if err != nil {
		return nil, err
	}
	users := make([]domain.User, 0, len(recs))
	for _, rec := range recs {
		user, err := domain.DecodeUser(rec.ID, rec.Version, rec.Data)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

func loadQuizzes(ctx context.Context, gw Gateway) ([]domain.Quiz, error) {
	recs, err := gw.ReadAll(ctx, domain.CollectionQuizzes)
	if err != nil {
		return nil, err
	}
	quizzes := make([]domain.Quiz, 0, len(recs))
	for _, rec := range recs {
		quiz, err := domain.DecodeQuiz(rec.ID, rec.Version, rec.Data)
		if err != nil {
			return nil, err
		}
		quizzes = append(quizzes, quiz)
	}
	return quizzes, nil
}

func loadAttempts(ctx context.Context, gw Gateway) ([]domain.Attempt, error) {
	recs, err := gw.ReadAll(ctx, domain.CollectionAttempts)
	if err != nil {
		return nil, err
	}
	attempts := make([]domain.Attempt, 0, len(recs))
	for _, rec := range recs {
		attempt, err := domain.DecodeAttempt(rec.ID, rec.Version, rec.Data)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, attempt)
	}
	return attempts, nil
}
