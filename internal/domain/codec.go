package domain

import (
	"encoding/json"
	"fmt"
)

// Collection names understood by the data store gateway.
const (
	CollectionUsers    = "users"
	CollectionQuizzes  = "quizzes"
	CollectionAttempts = "attempts"
)

// The decode functions below are the read boundary: raw gateway bytes either
// become a fully validated struct or a *DecodeError, never a half-populated
// record. The record id lives in the collection key, not in the stored body,
// so it is attached here.

// DecodeUser validates and decodes a stored user record.
func DecodeUser(id string, version int64, data []byte) (User, error) {
	var u User
	if err := json.Unmarshal(data, &u); err != nil {
		return User{}, &DecodeError{Collection: CollectionUsers, ID: id, Err: err}
	}
	if u.Email == "" {
		return User{}, &DecodeError{Collection: CollectionUsers, ID: id, Err: fmt.Errorf("missing email")}
	}
	if u.Role != RoleAdmin && u.Role != RoleStudent {
		return User{}, &DecodeError{Collection: CollectionUsers, ID: id, Err: fmt.Errorf("unknown role %q", u.Role)}
	}
	u.ID = id
	u.Version = version
	return u, nil
}

// DecodeQuiz validates and decodes a stored quiz record.
func DecodeQuiz(id string, version int64, data []byte) (Quiz, error) {
	var q Quiz
	if err := json.Unmarshal(data, &q); err != nil {
		return Quiz{}, &DecodeError{Collection: CollectionQuizzes, ID: id, Err: err}
	}
	if q.Title == "" {
		return Quiz{}, &DecodeError{Collection: CollectionQuizzes, ID: id, Err: fmt.Errorf("missing title")}
	}
	for i, question := range q.Questions {
		if question.CorrectAnswer < UnsetAnswer || question.CorrectAnswer >= len(question.Options) {
			return Quiz{}, &DecodeError{
				Collection: CollectionQuizzes,
				ID:         id,
				Err:        fmt.Errorf("question %d: correct answer %d out of range", i, question.CorrectAnswer),
			}
		}
	}
	q.ID = id
	q.Version = version
	return q, nil
}

// DecodeAttempt validates and decodes a stored attempt record.
func DecodeAttempt(id string, version int64, data []byte) (Attempt, error) {
	var a Attempt
	if err := json.Unmarshal(data, &a); err != nil {
		return Attempt{}, &DecodeError{Collection: CollectionAttempts, ID: id, Err: err}
	}
	if a.UserID == "" || a.QuizID == "" {
		return Attempt{}, &DecodeError{Collection: CollectionAttempts, ID: id, Err: fmt.Errorf("missing user or quiz reference")}
	}
	if a.Score < 0 {
		return Attempt{}, &DecodeError{Collection: CollectionAttempts, ID: id, Err: fmt.Errorf("negative score %v", a.Score)}
	}
	a.ID = id
	a.Version = version
	return a, nil
}
