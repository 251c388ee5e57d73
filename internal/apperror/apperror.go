package apperror

import (
	"errors"
	"strings"
)

// Kind is the closed set of failure classes surfaced by the engine.
type Kind string

const (
	KindNotFound          Kind = "not_found"
	KindInvalidInput      Kind = "invalid_input"
	KindInvalidTransition Kind = "invalid_transition"
	KindAlreadyTerminal   Kind = "already_terminal"
	KindInsufficientStock Kind = "insufficient_stock"
	KindOverPayment       Kind = "over_payment"
	KindConflict          Kind = "conflict"
)

// Error is a classified domain failure. Entity names the record that caused it
// (an article reference, an order number) so callers can surface it to users.
type Error struct {
	Kind    Kind
	Code    string
	Entity  string
	Message string

	cause error
}

var (
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrInvalidInput      = &Error{Kind: KindInvalidInput}
	ErrInvalidTransition = &Error{Kind: KindInvalidTransition}
	ErrAlreadyTerminal   = &Error{Kind: KindAlreadyTerminal}
	ErrInsufficientStock = &Error{Kind: KindInsufficientStock}
	ErrOverPayment       = &Error{Kind: KindOverPayment}
	ErrConflict          = &Error{Kind: KindConflict}
)

func New(kind Kind, code string) *Error {
	return &Error{Kind: kind, Code: code}
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Code != "" {
		b.WriteString(e.Code)
	} else {
		b.WriteString(string(e.Kind))
	}
	if e.Entity != "" {
		b.WriteString(": ")
		b.WriteString(e.Entity)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.cause != nil {
		b.WriteString(": ")
		b.WriteString(e.cause.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches on kind for the bare kind sentinels and on kind+code otherwise.
// Entity and message never take part in matching.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t == nil {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Code == "" || t.Code == e.Code
}

// WithEntity returns a copy of e naming the failing record.
func (e *Error) WithEntity(entity string) *Error {
	cp := *e
	cp.Entity = strings.TrimSpace(entity)
	return &cp
}

// WithMessage returns a copy of e with a human readable detail.
func (e *Error) WithMessage(message string) *Error {
	cp := *e
	cp.Message = message
	return &cp
}

// Wrap returns a copy of e carrying cause.
func (e *Error) Wrap(cause error) *Error {
	cp := *e
	cp.cause = cause
	return &cp
}

func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) && appErr != nil {
		return appErr, true
	}
	return nil, false
}

func KindOf(err error) (Kind, bool) {
	appErr, ok := As(err)
	if !ok {
		return "", false
	}
	return appErr.Kind, true
}

// IsRetryable reports whether the caller may retry the operation with backoff.
// Only lock contention qualifies.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflict)
}
