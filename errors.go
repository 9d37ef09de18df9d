package uthread

import (
	"errors"
	"fmt"
)

// ErrorKind distinguishes the two error kinds this library produces:
// recoverable misuse of the API versus a fatal failure of a host
// primitive (sigaction/setitimer equivalents).
type ErrorKind uint8

const (
	KindMisuse ErrorKind = iota
	KindSystem
)

// Error is the structured error type returned by every API operation
// that can fail. Its Error() string is exactly the diagnostic format
// this library's callers expect on standard error.
type Error struct {
	Op    string
	Kind  ErrorKind
	Msg   string
	Inner error
}

func (e *Error) Error() string {
	if e.Kind == KindSystem {
		return fmt.Sprintf("system error: %s", e.Msg)
	}
	return fmt.Sprintf("thread library error: %s", e.Msg)
}

func (e *Error) Unwrap() error { return e.Inner }

func newMisuseError(op, msg string) *Error {
	return &Error{Op: op, Kind: KindMisuse, Msg: msg}
}

func newSystemError(op string, inner error) *Error {
	return &Error{Op: op, Kind: KindSystem, Msg: inner.Error(), Inner: inner}
}

// IsMisuse reports whether err is a library-misuse Error, as opposed
// to a system Error or some other error entirely.
func IsMisuse(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == KindMisuse
	}
	return false
}

// IsSystem reports whether err is a host-failure Error.
func IsSystem(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == KindSystem
	}
	return false
}
