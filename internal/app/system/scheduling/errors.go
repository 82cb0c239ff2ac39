package scheduling

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Kind classifies an orchestration failure.
type Kind string

const (
	KindValidation  Kind = "validation"
	KindDuplicate   Kind = "duplicate"
	KindNotFound    Kind = "not_found"
	KindConflict    Kind = "conflict"
	KindCanceled    Kind = "canceled"
	KindTimeout     Kind = "timeout"
	KindPersistence Kind = "persistence"
)

var (
	ErrFolderNotFound  = errors.New("folder not found")
	ErrSessionNotFound = errors.New("session not found")
	ErrNotIncomplete   = errors.New("folder is not marked incomplete")
)

// Error is returned by Service operations.
//
// For session write failures Written, Failed and Skipped count the session
// writes that succeeded, failed and were never attempted. Compensated is true
// when the written sessions and the folder were removed again; when it is
// false the folder was left with status incomplete for Repair.
type Error struct {
	Kind     Kind
	Message  string
	Err      error
	FolderID primitive.ObjectID

	Written     int
	Failed      int
	Skipped     int
	Compensated bool
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// contextKind tells a caller cancellation apart from an expired deadline.
func contextKind(err error) Kind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindCanceled
}

func validationErr(msg string, err error) *Error {
	return &Error{Kind: KindValidation, Message: msg, Err: err}
}
