package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrUserNotFound is returned when a user id resolves to nothing.
	ErrUserNotFound = errors.New("user not found")
	// ErrQuizNotFound indicates the quiz does not exist (or was deleted).
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrAttemptNotFound indicates an attempt id resolves to nothing.
	ErrAttemptNotFound = errors.New("attempt not found")
	// ErrRecordNotFound is the gateway-level miss; services translate it to
	// the entity-specific sentinel above.
	ErrRecordNotFound = errors.New("record not found")
	// ErrVersionConflict is returned by compare-and-swap updates when the
	// caller's version is stale. Callers re-read and retry or surface it.
	ErrVersionConflict = errors.New("record version conflict")
	// ErrEmailTaken is returned when creating a user with an email that is
	// already registered.
	ErrEmailTaken = errors.New("email already registered")
)

// DecodeError reports a stored record that failed schema validation at the
// read boundary. Malformed records fail closed instead of leaking partially
// populated structs into aggregation logic.
type DecodeError struct {
	Collection string
	ID         string
	Err        error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s/%s: %v", e.Collection, e.ID, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
