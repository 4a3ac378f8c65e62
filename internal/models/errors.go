package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies pipeline failures so callers can show actionable guidance.
type ErrorKind string

const (
	// KindConfiguration is invalid or missing configuration, detected before pipeline work.
	KindConfiguration ErrorKind = "configuration"
	// KindEmptyInput means there was nothing to build: no extractable text or zero chunks.
	KindEmptyInput ErrorKind = "empty_input"
	// KindProvider is an embedding or generation failure (network, auth, quota, malformed response).
	KindProvider ErrorKind = "provider"
	// KindIndexQuery is a query against an empty index or with a mismatched vector dimension.
	KindIndexQuery ErrorKind = "index_query"
	// KindNotReady is a question asked before any knowledge base was built.
	KindNotReady ErrorKind = "not_ready"
	// KindNotFound is an unknown session.
	KindNotFound ErrorKind = "not_found"
)

// Error is the typed error returned across package boundaries.
type Error struct {
	Kind    ErrorKind
	Op      string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Op != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Kind, e.Op, msg)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, msg)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is a sentinel of the same kind. Sentinels carry no Op and no cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Err == nil
}

// Sentinels for errors.Is.
var (
	ErrConfiguration = &Error{Kind: KindConfiguration, Message: "invalid configuration"}
	ErrEmptyInput    = &Error{Kind: KindEmptyInput, Message: "no extractable text"}
	ErrProvider      = &Error{Kind: KindProvider, Message: "provider call failed"}
	ErrIndexQuery    = &Error{Kind: KindIndexQuery, Message: "index query failed"}
	ErrNotReady      = &Error{Kind: KindNotReady, Message: "no knowledge base has been built"}
	ErrNotFound      = &Error{Kind: KindNotFound, Message: "not found"}
)

// NewConfigurationError returns a configuration error with a formatted message.
func NewConfigurationError(format string, args ...any) *Error {
	return &Error{Kind: KindConfiguration, Message: fmt.Sprintf(format, args...)}
}

// NewEmptyInputError returns an empty-input error for op.
func NewEmptyInputError(op, message string) *Error {
	return &Error{Kind: KindEmptyInput, Op: op, Message: message}
}

// NewProviderError wraps a provider failure. The message is the provider's own message.
func NewProviderError(op string, err error) *Error {
	msg := "unknown provider error"
	if err != nil {
		msg = err.Error()
	}
	return &Error{Kind: KindProvider, Op: op, Message: msg, Err: err}
}

// NewIndexQueryError returns an index query error for op.
func NewIndexQueryError(op, message string) *Error {
	return &Error{Kind: KindIndexQuery, Op: op, Message: message}
}

// NewNotReadyError returns a not-ready error for op.
func NewNotReadyError(op string) *Error {
	return &Error{Kind: KindNotReady, Op: op, Message: "no knowledge base has been built"}
}

// NewNotFoundError returns a not-found error for op.
func NewNotFoundError(op, message string) *Error {
	return &Error{Kind: KindNotFound, Op: op, Message: message}
}

// KindOf returns the kind of the first *Error in err's chain, or "" when there is none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
