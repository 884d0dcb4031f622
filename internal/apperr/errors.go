package apperr

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
)

// Error is the domain error type.
type Error struct {
	Code    Code
	Message string // user-facing detail; falls back to the code's table message
	Cause   error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Code.Message()
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches by code so callers can write errors.Is(err, apperr.ErrNotFound).
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// UserMessage is the text returned to clients.
func (e *Error) UserMessage() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Code.Message()
}

var (
	ErrInternal   = &Error{Code: CodeInternal}
	ErrNotFound   = &Error{Code: CodeNotFound}
	ErrBadRequest = &Error{Code: CodeBadRequest}
	ErrConflict   = &Error{Code: CodeConflict}
)

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// From classifies an arbitrary error. Driver errors that have an obvious
// client-facing meaning are translated; everything else is internal.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Wrap(CodeNotFound, "", err)
	}
	if mongo.IsDuplicateKeyError(err) {
		return Wrap(CodeConflict, "", err)
	}
	return Wrap(CodeInternal, "", err)
}

// NotFoundOr maps mongo.ErrNoDocuments to the supplied code.
func NotFoundOr(err error, code Code) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Wrap(code, "", err)
	}
	return err
}
