package identikit

import (
	"errors"

	"github.com/identikit/identikit/gateway"
)

// ErrorKind and KindOf are re-exported so callers handling journey errors do
// not need a second import for classification.
type ErrorKind = gateway.ErrorKind

const (
	KindUnexpected = gateway.KindUnexpected
	KindValidation = gateway.KindValidation
	KindAuth       = gateway.KindAuth
	KindConflict   = gateway.KindConflict
	KindBiometric  = gateway.KindBiometric
	KindNetwork    = gateway.KindNetwork
)

// KindOf classifies any error returned by a Flow or gateway operation.
func KindOf(err error) ErrorKind {
	return gateway.KindOf(err)
}

var (
	// ErrInvalidTransition is returned when an action is invoked from a
	// journey state that does not allow it.
	ErrInvalidTransition = errors.New("action not allowed in current journey state")
	// ErrStaleResponse marks a gateway response that resolved after the
	// journey had already moved on; its result was discarded.
	ErrStaleResponse = errors.New("response arrived after journey moved on")
	// ErrOTPIncomplete is returned by SubmitOTP before all six digits are filled.
	ErrOTPIncomplete = errors.New("all six digits are required")
	// ErrOTPExpired is returned when submitting against an expired code.
	ErrOTPExpired = errors.New("code expired, request a new one")
	// ErrOTPNotExpired is returned when resend is requested while the
	// current code is still counting down.
	ErrOTPNotExpired = errors.New("resend available only after the code expires")
	// ErrEnrollmentIncomplete is returned by FinishEnrollment before the
	// wizard has reached its confirmation step.
	ErrEnrollmentIncomplete = errors.New("enrollment wizard has not reached confirmation")
	// ErrFlowClosed is returned for any action after Close.
	ErrFlowClosed = errors.New("flow closed")
)
