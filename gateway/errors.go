package gateway

import (
	"errors"
	"fmt"
)

// ErrorKind classifies every expected failure mode of the auth API so callers
// can handle each case exhaustively instead of inspecting response bodies.
type ErrorKind uint8

const (
	// KindUnexpected covers malformed responses and other unrecoverable
	// conditions. Everything else is recoverable in place.
	KindUnexpected ErrorKind = iota
	// KindValidation is a client-detected input problem; no network call was made.
	KindValidation
	// KindAuth means the server rejected the presented credentials or code.
	KindAuth
	// KindConflict means the account already exists.
	KindConflict
	// KindBiometric is a low-confidence or timed-out biometric match.
	KindBiometric
	// KindNetwork is a transport failure or timeout.
	KindNetwork
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuth:
		return "auth"
	case KindConflict:
		return "conflict"
	case KindBiometric:
		return "biometric"
	case KindNetwork:
		return "network"
	default:
		return "unexpected"
	}
}

// Error is the typed failure returned by every gateway operation.
type Error struct {
	Kind    ErrorKind
	Message string
	err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("gateway: %s: %s", e.Kind, e.Message)
	}
	return "gateway: " + e.Kind.String()
}

func (e *Error) Unwrap() error { return e.err }

// Is makes sentinel comparisons work through errors.Is.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	return ok && other.Kind == e.Kind && (other.Message == "" || other.Message == e.Message)
}

// KindOf extracts the error kind, or KindUnexpected for foreign errors.
func KindOf(err error) ErrorKind {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return KindUnexpected
}

func newError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func wrapError(kind ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, err: err}
}

// Client-side validation failures. Returned before any network I/O.
var (
	ErrPasswordTooShort = newError(KindValidation, "password must be at least 8 characters")
	ErrPasswordMismatch = newError(KindValidation, "passwords do not match")
	ErrEmailRequired    = newError(KindValidation, "email is required")
	ErrOTPMalformed     = newError(KindValidation, "code must be exactly 6 digits")
)

// Server-reported failures, normalized from response status and body.
var (
	ErrInvalidCredentials = newError(KindAuth, "invalid credentials")
	ErrOTPRejected        = newError(KindAuth, "invalid or expired code")
	ErrAccountExists      = newError(KindConflict, "account already exists")
	ErrBiometricNoMatch   = newError(KindBiometric, "biometric match failed")
)
