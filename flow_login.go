package identikit

import (
	"context"
	"errors"
)

// Login submits credentials. Three outcomes: tokens in the response move the
// journey to Authenticated; otp_required opens a one-time-code challenge and
// moves to AwaitingOTP; a rejection keeps the journey in LoggingIn with the
// error surfaced.
func (f *Flow) Login(ctx context.Context, email, password string, use2FA bool) error {
	gen, err := f.beginCall(JourneyLoggingIn)
	if errors.Is(err, errCallInFlight) {
		return nil
	}
	if err != nil {
		return err
	}

	result, callErr := f.api.Login(ctx, email, password, use2FA)

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.endCallLocked(gen) {
		f.metricInc(MetricStaleResponseDropped)
		if callErr == nil && f.state != JourneyAuthenticated {
			// the gateway already persisted the tokens; undo them so the
			// discarded response leaves no session behind
			_ = f.sessions.Set(ctx, nil)
		}
		return ErrStaleResponse
	}

	if callErr != nil {
		f.metricInc(MetricLoginFailure)
		f.emitAudit(ctx, auditEventLogin, false, "", callErr)
		return callErr
	}

	if result.OTPRequired {
		f.metricInc(MetricOTPRequired)
		f.emitAudit(ctx, auditEventLogin, true, "", nil)
		f.transitionLocked(JourneyAwaitingOTP)
		f.pending = &pendingLogin{email: email, password: password}
		f.otp = newOTPChallenge(f.config.OTP, func() {
			f.metricInc(MetricOTPExpired)
		})
		return nil
	}

	var userID string
	if result.User != nil {
		userID = result.User.ID
	}
	f.metricInc(MetricLoginSuccess)
	f.emitAudit(ctx, auditEventLogin, true, userID, nil)
	f.transitionLocked(JourneyAuthenticated)
	return nil
}
