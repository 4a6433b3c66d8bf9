// Package rpckit defines the failure type surfaced by every ledger-facing
// operation. Callers switch on Kind instead of parsing messages.
package rpckit

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindSessionMissing
	KindSigning
	KindTransport
	KindRejected
	KindInvalidInput
	KindThrottled
	KindStore
)

func (k Kind) String() string {
	switch k {
	case KindSessionMissing:
		return "session_missing"
	case KindSigning:
		return "signing_failure"
	case KindTransport:
		return "transport_failure"
	case KindRejected:
		return "ledger_rejection"
	case KindInvalidInput:
		return "invalid_input"
	case KindThrottled:
		return "throttled"
	case KindStore:
		return "store_failure"
	default:
		return "unknown"
	}
}

// Error carries the failure kind plus, for ledger rejections, the ledger's own
// error code and name.
type Error struct {
	Kind    Kind
	Code    int
	Name    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Name != "" {
		return fmt.Sprintf("%s: %s (%d): %s", e.Kind, e.Name, e.Code, msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches a sentinel of the same kind. A sentinel without a name matches
// every error of its kind, so errors.Is(err, ErrSessionMissing) holds for each
// session-missing failure; a named sentinel also needs the same name, and the
// same code when it sets one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Kind != e.Kind || t.Err != nil {
		return false
	}
	if t.Name != "" {
		return t.Name == e.Name && (t.Code == 0 || t.Code == e.Code)
	}
	return t.Code == 0
}

var ErrSessionMissing = &Error{Kind: KindSessionMissing, Message: KindSessionMissing.String()}

func SessionMissing() *Error {
	return &Error{Kind: KindSessionMissing, Message: "no session is stored"}
}

func Signing(err error) *Error {
	return &Error{Kind: KindSigning, Err: err}
}

func Transport(err error) *Error {
	return &Error{Kind: KindTransport, Err: err}
}

func Rejected(code int, name, message string) *Error {
	return &Error{Kind: KindRejected, Code: code, Name: name, Message: message}
}

func InvalidInput(message string) *Error {
	return &Error{Kind: KindInvalidInput, Message: message}
}

func Throttled(message string) *Error {
	return &Error{Kind: KindThrottled, Message: message}
}

func Store(err error) *Error {
	return &Error{Kind: KindStore, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var rpcErr *Error
	if errors.As(err, &rpcErr) {
		return rpcErr.Kind
	}
	return KindUnknown
}

// Sentinel returns a comparable value for errors.Is checks against a kind.
func Sentinel(kind Kind) *Error {
	return &Error{Kind: kind, Message: kind.String()}
}
