// Package svcerr provides typed error handling for the daemon.
//
// Errors are classified into one of three severities (Protocol,
// Transient, Fatal). The request pipeline maps Protocol-kind errors
// straight onto a wire error reply using the Code carried on the
// error; Transient errors are logged and the offending message or
// reload is dropped; Fatal errors bring the event loop down.
package svcerr

import (
	"errors"
	"fmt"
)

// Kind classifies the severity of an Error.
type Kind int

const (
	// KindProtocol indicates a malformed or unauthorized request.
	// The caller replies to the client and continues.
	KindProtocol Kind = iota
	// KindTransient indicates a recoverable I/O or allocation failure.
	// The caller logs and drops the message or reload attempt.
	KindTransient
	// KindFatal indicates the event loop cannot continue safely.
	KindFatal
)

// String returns a human-readable name for the severity.
func (k Kind) String() string {
	switch k {
	case KindProtocol:
		return "protocol"
	case KindTransient:
		return "transient"
	case KindFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Error is a classified, optionally wire-coded error.
type Error struct {
	// Op is the operation that failed (e.g. "validate", "authorize", "fork").
	Op string
	// Code is the wire error code to send back (e.g. "BADAUTH"), empty
	// when this error never reaches the wire.
	Code string
	// Detail is a human-readable description; becomes the wire reply's
	// description field for Protocol-kind errors.
	Detail string
	// Err is the underlying error, if any.
	Err error
	// Kind is the error classification.
	Kind Kind
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := fmt.Sprintf("%s: ", e.Kind)
	if e.Op != "" {
		msg += fmt.Sprintf("%s: ", e.Op)
	}
	if e.Detail != "" {
		msg += e.Detail
	} else if e.Code != "" {
		msg += e.Code
	} else {
		msg += "error"
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is reports whether target matches this error by Kind and Code.
func (e *Error) Is(target error) bool {
	if e == nil {
		return target == nil
	}
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && (t.Code == "" || e.Code == t.Code)
}

// Protocol builds a Protocol-kind error carrying a wire code.
func Protocol(op, code, detail string) *Error {
	return &Error{Op: op, Code: code, Detail: detail, Kind: KindProtocol}
}

// WrapProtocol wraps err as a Protocol-kind error carrying a wire code.
func WrapProtocol(err error, op, code, detail string) *Error {
	return &Error{Op: op, Code: code, Detail: detail, Err: err, Kind: KindProtocol}
}

// Transient wraps err as a Transient-kind error.
func Transient(err error, op, detail string) *Error {
	return &Error{Op: op, Detail: detail, Err: err, Kind: KindTransient}
}

// Fatal wraps err as a Fatal-kind error.
func Fatal(err error, op, detail string) *Error {
	return &Error{Op: op, Detail: detail, Err: err, Kind: KindFatal}
}

// KindOf returns the Kind of err if it is (or wraps) an *Error, and
// whether one was found.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// CodeOf returns the wire code of err if it is (or wraps) an *Error
// carrying one.
func CodeOf(err error) (string, bool) {
	var e *Error
	if errors.As(err, &e) && e.Code != "" {
		return e.Code, true
	}
	return "", false
}

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
)
