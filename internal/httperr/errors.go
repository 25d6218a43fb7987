// Package httperr classifies the errors a connection can end with.
package httperr

import (
	"errors"
	"fmt"
)

// Kind identifies why a connection or the server stopped.
type Kind int

const (
	// IncompleteRequestLine means no "\r\n" was found in the request buffer.
	IncompleteRequestLine Kind = iota
	// MissingTarget means the request line had fewer than two tokens.
	MissingTarget
	// ConnectionClosed means the peer closed before the header terminator arrived.
	ConnectionClosed
	ReadFailure
	WriteFailure
	// ListenFailure covers socket creation, bind and listen at startup.
	ListenFailure
)

func (k Kind) String() string {
	switch k {
	case IncompleteRequestLine:
		return "incomplete request line"
	case MissingTarget:
		return "missing request target"
	case ConnectionClosed:
		return "connection closed"
	case ReadFailure:
		return "read failed"
	case WriteFailure:
		return "write failed"
	case ListenFailure:
		return "listen failed"
	default:
		return fmt.Sprintf("unknown error kind %d", int(k))
	}
}

// Error implements error so a bare Kind can be used as an errors.Is target.
func (k Kind) Error() string {
	return k.String()
}

// Error is a classified error with an optional underlying cause.
type Error struct {
	Kind Kind
	err  error
}

// New returns an *Error of the given kind wrapping err, which may be nil.
func New(kind Kind, err error) *Error {
	return &Error{Kind: kind, err: err}
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.err)
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error {
	return e.err
}

// Is matches a target Kind, so errors.Is(err, httperr.MissingTarget) works.
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

// IsParseFailure reports whether err means the request could not be parsed.
// Such connections are closed without a response.
func IsParseFailure(err error) bool {
	return errors.Is(err, IncompleteRequestLine) || errors.Is(err, MissingTarget)
}
