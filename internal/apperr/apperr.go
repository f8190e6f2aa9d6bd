package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error so the transport layer can map it to a status
// code without inspecting message text.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindNotFound
	KindDuplicateName
	KindInvalidTransfer
	KindBusinessRule
	KindPersistence
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindDuplicateName:
		return "duplicate_name"
	case KindInvalidTransfer:
		return "invalid_transfer"
	case KindBusinessRule:
		return "business_rule"
	case KindPersistence:
		return "persistence"
	default:
		return "unknown"
	}
}

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is match two apperr errors by kind, so callers can test
// against a bare kind sentinel without comparing messages.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Validation(format string, args ...any) *Error {
	return Newf(KindValidation, format, args...)
}

func NotFound(format string, args ...any) *Error {
	return Newf(KindNotFound, format, args...)
}

func DuplicateName(format string, args ...any) *Error {
	return Newf(KindDuplicateName, format, args...)
}

func InvalidTransfer(format string, args ...any) *Error {
	return Newf(KindInvalidTransfer, format, args...)
}

func BusinessRule(format string, args ...any) *Error {
	return Newf(KindBusinessRule, format, args...)
}

func Persistence(message string, err error) *Error {
	return Wrap(KindPersistence, message, err)
}

// KindOf extracts the kind of err, or KindPersistence when err is not an
// apperr error (unknown failures are treated as store failures upstream).
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindPersistence
}

func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
