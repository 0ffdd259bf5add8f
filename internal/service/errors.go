package service

import (
	"errors"
	"fmt"

	"daily-schedule/internal/repository"
)

// ErrorCode classifies service errors for the transport layers.
type ErrorCode string

const (
	CodeInvalid  ErrorCode = "INVALID"
	CodeNotFound ErrorCode = "NOT_FOUND"
	CodeInternal ErrorCode = "INTERNAL"
)

// Error is a classified service error.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

func WrapError(code ErrorCode, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

var (
	ErrEmptyText        = NewError(CodeInvalid, "task text is empty")
	ErrListFull         = NewError(CodeInvalid, fmt.Sprintf("the list already has %d tasks", maxItems))
	ErrTaskNotFound     = NewError(CodeNotFound, "task not found")
	ErrTemplateNotFound = NewError(CodeNotFound, "recurring task not found")
	ErrDiaryNotFound    = NewError(CodeNotFound, "diary entry not found")
	ErrEmptyDiary       = NewError(CodeInvalid, "diary entry is empty")
	ErrDiaryTooLong     = NewError(CodeInvalid, fmt.Sprintf("diary entry is longer than %d characters", maxDiaryLength))
)

// IsCode reports whether err carries the given classification.
func IsCode(err error, code ErrorCode) bool {
	var sErr *Error
	if errors.As(err, &sErr) {
		return sErr.Code == code
	}
	return false
}

// classify maps repository errors onto service errors.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrTemplateNotFound):
		return ErrTemplateNotFound
	case errors.Is(err, repository.ErrDiaryNotFound):
		return ErrDiaryNotFound
	case errors.Is(err, repository.ErrInvalidTemplate):
		return WrapError(CodeInvalid, "invalid recurring task", err)
	default:
		return err
	}
}
