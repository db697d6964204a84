package apperrors

import (
	"errors"
	"fmt"
)

// Kind classifies an error so the HTTP layer can map it to a status code
// and callers can decide whether a retry makes sense.
type Kind int

const (
	KindInternal Kind = iota
	// KindContention means the per-resource lock was held by someone else.
	// Retryable immediately.
	KindContention
	// KindNotFound means the ticket, listing or payment does not exist.
	KindNotFound
	// KindValidation means a business rule rejected the request.
	KindValidation
	// KindGateway means the payment gateway call failed.
	KindGateway
	// KindUnavailable means the lock backend is unreachable or its circuit
	// breaker is open. Retryable after the breaker's sleep window.
	KindUnavailable
	// KindSignature means a webhook carried a missing or invalid signature.
	KindSignature
)

func (k Kind) String() string {
	switch k {
	case KindContention:
		return "contention"
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindGateway:
		return "gateway"
	case KindUnavailable:
		return "unavailable"
	case KindSignature:
		return "signature"
	default:
		return "internal"
	}
}

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying error.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the kind from err, defaulting to KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
