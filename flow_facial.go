package identikit

import (
	"context"
	"errors"
)

// FacialLogin runs the server-side biometric match. Success moves the
// journey to Authenticated; a failed or timed-out match falls back to
// LoggingIn. A success that resolves after the user has already navigated
// away is discarded, and the session it established is rolled back so a
// stale match can never resurrect an authenticated state.
func (f *Flow) FacialLogin(ctx context.Context) error {
	gen, err := f.beginCall(JourneyAwaitingFacial)
	if errors.Is(err, errCallInFlight) {
		return nil
	}
	if err != nil {
		return err
	}

	result, callErr := f.api.FacialLogin(ctx)

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.endCallLocked(gen) {
		f.metricInc(MetricStaleResponseDropped)
		if callErr == nil && f.state != JourneyAuthenticated {
			// the gateway stored tokens before we could see the journey
			// had moved on; undo them
			_ = f.sessions.Set(ctx, nil)
		}
		return ErrStaleResponse
	}

	if callErr != nil {
		f.metricInc(MetricFacialFailure)
		f.emitAudit(ctx, auditEventFacial, false, "", callErr)
		f.transitionLocked(JourneyLoggingIn)
		return callErr
	}

	var userID string
	if result.User != nil {
		userID = result.User.ID
	}
	f.metricInc(MetricFacialSuccess)
	f.emitAudit(ctx, auditEventFacial, true, userID, nil)
	f.transitionLocked(JourneyAuthenticated)
	return nil
}
