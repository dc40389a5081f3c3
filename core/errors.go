package core

import "errors"

var (
	ErrTokenExpired     = errors.New("token has expired")
	ErrInvalidToken     = errors.New("invalid token")
	ErrTokenConsumed    = errors.New("token has already been used")
	ErrNotFound         = errors.New("record not found")
	ErrDuplicateEmail   = errors.New("email already registered")
	ErrUnknownRole      = errors.New("unknown role")
	ErrPasswordMismatch = errors.New("password does not match")
	ErrEmptyPassword    = errors.New("password must not be empty")
)

// ErrorKind is the client-facing error taxonomy
type ErrorKind string

const (
	KindValidation         ErrorKind = "VALIDATION_ERROR"
	KindInvalidCredentials ErrorKind = "INVALID_CREDENTIALS"
	KindConflict           ErrorKind = "CONFLICT"
	KindUnauthenticated    ErrorKind = "UNAUTHENTICATED"
	KindInvalidToken       ErrorKind = "INVALID_TOKEN"
	KindNotFound           ErrorKind = "NOT_FOUND"
	KindInternal           ErrorKind = "INTERNAL"
)

// Error is a classified failure. Message is safe to show to clients,
// Err keeps the internal cause for logging.
type Error struct {
	Kind    ErrorKind
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return string(e.Kind) + ": " + e.Message + ": " + e.Err.Error()
	}
	return string(e.Kind) + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds a classified error wrapping cause
func NewError(kind ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

// KindOf returns the kind of err, or KindInternal when err is unclassified
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
