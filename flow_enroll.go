package identikit

import "context"

// AdvanceEnrollment moves the wizard one step forward, honoring the capture
// and liveness gates. Returns false when no wizard is live or the gate holds.
func (f *Flow) AdvanceEnrollment() bool {
	if w := f.enrollmentWizard(); w != nil {
		return w.Advance()
	}
	return false
}

// BackEnrollment moves the wizard one step backward.
func (f *Flow) BackEnrollment() bool {
	if w := f.enrollmentWizard(); w != nil {
		return w.Back()
	}
	return false
}

// CaptureBiometric triggers the capture action on the capture step.
func (f *Flow) CaptureBiometric() bool {
	if w := f.enrollmentWizard(); w != nil {
		return w.Capture()
	}
	return false
}

// ConfirmLiveness marks the liveness check as passed.
func (f *Flow) ConfirmLiveness() bool {
	if w := f.enrollmentWizard(); w != nil {
		return w.ConfirmLiveness()
	}
	return false
}

// FinishEnrollment completes the wizard from its confirmation step and moves
// the journey to Authenticated. The captured template is uploaded exactly
// once here. The upload is best-effort: a failure is logged and audited, and
// enrollment still counts.
func (f *Flow) FinishEnrollment(ctx context.Context) error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return ErrFlowClosed
	}
	if f.state != JourneyEnrollingBiometric || f.wizard == nil {
		f.mu.Unlock()
		return ErrInvalidTransition
	}
	wizard := f.wizard
	gen := f.gen
	f.mu.Unlock()

	if err := wizard.Finish(); err != nil {
		return err
	}

	uploadErr := f.api.SaveBiometricData(ctx, wizard.Template())

	f.mu.Lock()
	defer f.mu.Unlock()

	if gen != f.gen {
		f.metricInc(MetricStaleResponseDropped)
		return ErrStaleResponse
	}

	if uploadErr != nil {
		f.log.Warn().Err(uploadErr).Msg("biometric template upload failed")
	}
	f.metricInc(MetricEnrollmentCompleted)
	f.emitAudit(ctx, auditEventEnrollment, uploadErr == nil, "", uploadErr)
	f.transitionLocked(JourneyAuthenticated)
	return nil
}

func (f *Flow) enrollmentWizard() *EnrollmentWizard {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != JourneyEnrollingBiometric {
		return nil
	}
	return f.wizard
}
