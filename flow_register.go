package identikit

import (
	"context"
	"errors"

	"github.com/identikit/identikit/gateway"
)

// Register submits the account creation form. On success the journey moves
// to biometric enrollment when the user opted in, else straight to
// Authenticated. Any failure keeps the journey in Registering with the error
// surfaced for inline correction.
func (f *Flow) Register(ctx context.Context, email, password, confirm string, enableBiometric bool) error {
	gen, err := f.beginCall(JourneyRegistering)
	if errors.Is(err, errCallInFlight) {
		return nil
	}
	if err != nil {
		return err
	}

	result, callErr := f.api.Register(ctx, email, password, confirm, enableBiometric)

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.endCallLocked(gen) {
		f.metricInc(MetricStaleResponseDropped)
		if callErr == nil && f.state != JourneyAuthenticated {
			// the gateway may have persisted tokens on auto-login; undo them
			_ = f.sessions.Set(ctx, nil)
		}
		return ErrStaleResponse
	}

	if callErr != nil {
		if gateway.KindOf(callErr) == gateway.KindConflict {
			f.metricInc(MetricRegisterConflict)
		} else {
			f.metricInc(MetricRegisterFailure)
		}
		f.emitAudit(ctx, auditEventRegister, false, "", callErr)
		return callErr
	}

	var userID string
	if result.User != nil {
		userID = result.User.ID
	}
	f.metricInc(MetricRegisterSuccess)
	f.emitAudit(ctx, auditEventRegister, true, userID, nil)

	if enableBiometric {
		f.transitionLocked(JourneyEnrollingBiometric)
		f.wizard = newEnrollmentWizard(f.config.Enrollment)
	} else {
		f.transitionLocked(JourneyAuthenticated)
	}
	return nil
}
