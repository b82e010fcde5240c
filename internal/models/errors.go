package models

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrNotMatched        = errors.New("not matched")
	ErrParse             = errors.New("parse error")
	ErrGenerationTimeout = errors.New("generation timeout")
	ErrGenerationFailure = errors.New("generation failure")
	ErrPersistence       = errors.New("persistence failure")
)

// EditError carries the user-facing message for an expected edit failure.
// Kind is one of the sentinels above so callers can use errors.Is.
type EditError struct {
	Kind    error
	Message string
	Err     error
}

func (e *EditError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *EditError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

func NewEditError(kind error, message string, err error) *EditError {
	return &EditError{Kind: kind, Message: message, Err: err}
}

func NotFoundf(format string, args ...any) *EditError {
	return NewEditError(ErrNotFound, fmt.Sprintf(format, args...), nil)
}

func NotMatchedf(format string, args ...any) *EditError {
	return NewEditError(ErrNotMatched, fmt.Sprintf(format, args...), nil)
}

func ParseErrorf(format string, args ...any) *EditError {
	return NewEditError(ErrParse, fmt.Sprintf(format, args...), nil)
}

// UserMessage returns the message meant for the end user, falling back to
// the raw error text for unexpected errors.
func UserMessage(err error) string {
	var editErr *EditError
	if errors.As(err, &editErr) {
		return editErr.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
