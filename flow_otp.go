package identikit

import (
	"context"
	"errors"
)

// EnterOTPDigit records one cell of the code. Only meaningful while
// AwaitingOTP with a Pending challenge.
func (f *Flow) EnterOTPDigit(index int, value string) bool {
	f.mu.Lock()
	challenge := f.otp
	ok := f.state == JourneyAwaitingOTP && challenge != nil
	f.mu.Unlock()

	if !ok {
		return false
	}
	return challenge.EnterDigit(index, value)
}

// SubmitOTP verifies the entered code. The challenge's Verifying state is
// the in-flight guard: a second submit while one is outstanding is a silent
// no-op, so the gateway sees exactly one verify per submit. A rejection
// returns the challenge to Pending with its countdown untouched.
func (f *Flow) SubmitOTP(ctx context.Context) error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return ErrFlowClosed
	}
	if f.state != JourneyAwaitingOTP || f.otp == nil {
		f.mu.Unlock()
		return ErrInvalidTransition
	}
	challenge := f.otp
	gen := f.gen
	f.mu.Unlock()

	code, started, err := challenge.beginVerify()
	if err != nil {
		return err
	}
	if !started {
		return nil
	}

	result, callErr := f.api.VerifyOTP(ctx, code)

	f.mu.Lock()
	defer f.mu.Unlock()

	if gen != f.gen {
		// challenge was torn down by a transition while verifying
		f.metricInc(MetricStaleResponseDropped)
		if callErr == nil && f.state != JourneyAuthenticated {
			// the gateway already persisted the tokens; undo them
			_ = f.sessions.Set(ctx, nil)
		}
		return ErrStaleResponse
	}

	if callErr != nil {
		challenge.failVerify(errMessage(callErr))
		f.metricInc(MetricOTPFailure)
		f.emitAudit(ctx, auditEventOTPVerify, false, "", callErr)
		return callErr
	}

	challenge.succeed()
	var userID string
	if result.User != nil {
		userID = result.User.ID
	}
	f.metricInc(MetricOTPSuccess)
	f.emitAudit(ctx, auditEventOTPVerify, true, userID, nil)
	f.transitionLocked(JourneyAuthenticated)
	return nil
}

// ResendOTP requests a fresh code once the countdown has run out. Issuance
// is server-authoritative: the saved credential pair is replayed with the
// second factor flag, and only then is the challenge reset to a full
// countdown. A still-ticking challenge rejects the resend. Resend claims the
// state's single in-flight slot, so a concurrent resend is a silent no-op.
func (f *Flow) ResendOTP(ctx context.Context) error {
	gen, err := f.beginCall(JourneyAwaitingOTP)
	if errors.Is(err, errCallInFlight) {
		return nil
	}
	if err != nil {
		return err
	}

	f.mu.Lock()
	challenge := f.otp
	var creds pendingLogin
	if f.pending != nil {
		creds = *f.pending
	}
	f.mu.Unlock()

	if challenge == nil || challenge.Status() != OTPExpired {
		f.mu.Lock()
		f.endCallLocked(gen)
		f.mu.Unlock()
		return ErrOTPNotExpired
	}

	result, callErr := f.api.Login(ctx, creds.email, creds.password, true)

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.endCallLocked(gen) {
		f.metricInc(MetricStaleResponseDropped)
		if callErr == nil && f.state != JourneyAuthenticated {
			_ = f.sessions.Set(ctx, nil)
		}
		return ErrStaleResponse
	}

	if callErr != nil {
		f.emitAudit(ctx, auditEventOTPResend, false, "", callErr)
		return callErr
	}

	f.metricInc(MetricOTPResend)
	f.emitAudit(ctx, auditEventOTPResend, true, "", nil)

	if !result.OTPRequired {
		// server decided no second factor this time and returned tokens
		f.metricInc(MetricLoginSuccess)
		f.transitionLocked(JourneyAuthenticated)
		return nil
	}
	return challenge.resend()
}
