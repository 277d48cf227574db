package domain

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindNotFound            ErrorKind = "NOT_FOUND"
	KindInvalidState        ErrorKind = "INVALID_STATE"
	KindAlreadyExists       ErrorKind = "ALREADY_EXISTS"
	KindInsufficientBalance ErrorKind = "INSUFFICIENT_BALANCE"
	KindValidation          ErrorKind = "VALIDATION_ERROR"
)

// Error is the typed failure returned by services. Two errors are equal
// under errors.Is when their kinds match, so callers compare against the
// sentinels below.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return e.Message
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrNotFound            = &Error{Kind: KindNotFound, Message: "not found"}
	ErrInvalidState        = &Error{Kind: KindInvalidState, Message: "invalid state"}
	ErrAlreadyExists       = &Error{Kind: KindAlreadyExists, Message: "already exists"}
	ErrInsufficientBalance = &Error{Kind: KindInsufficientBalance, Message: "insufficient balance"}
	ErrValidation          = &Error{Kind: KindValidation, Message: "validation error"}

	// ErrStaleBid means another writer moved the auction between read and write.
	ErrStaleBid = &Error{Kind: KindInvalidState, Message: "auction changed while bidding"}
)

func newError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...interface{}) error {
	return newError(KindNotFound, format, args...)
}

func InvalidState(format string, args ...interface{}) error {
	return newError(KindInvalidState, format, args...)
}

func AlreadyExists(format string, args ...interface{}) error {
	return newError(KindAlreadyExists, format, args...)
}

func InsufficientBalance(format string, args ...interface{}) error {
	return newError(KindInsufficientBalance, format, args...)
}

func Validation(format string, args ...interface{}) error {
	return newError(KindValidation, format, args...)
}

// KindOf returns the kind of the first *Error in err's chain, or "" when
// err carries none.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}
