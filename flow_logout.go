package identikit

import "context"

// Logout ends the session and returns the journey to Landing from any state.
// Server-side revocation is best-effort; the local session is always cleared
// and every sub-state machine is reset, so calling Logout twice leaves the
// same cleared state as calling it once.
func (f *Flow) Logout(ctx context.Context) error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return ErrFlowClosed
	}
	f.mu.Unlock()

	// gateway.Logout clears the session unconditionally, even when the
	// revocation call fails
	err := f.api.Logout(ctx)

	f.mu.Lock()
	defer f.mu.Unlock()

	f.metricInc(MetricLogout)
	f.emitAudit(ctx, auditEventLogout, err == nil, "", err)
	if f.state != JourneyLanding {
		f.transitionLocked(JourneyLanding)
	}
	return err
}
