package identikit

import (
	"encoding/base64"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EnrollmentStep is one position in the fixed biometric enrollment sequence.
type EnrollmentStep uint8

const (
	// StepIntro explains facial recognition.
	StepIntro EnrollmentStep = iota
	// StepCameraCheck verifies capture conditions.
	StepCameraCheck
	// StepCapture records the facial template.
	StepCapture
	// StepLiveness runs the anti-spoofing check.
	StepLiveness
	// StepConfirm shows the enrollment summary.
	StepConfirm
	// StepDone is terminal; the flow proceeds to authenticated from here.
	StepDone
)

func (s EnrollmentStep) String() string {
	switch s {
	case StepIntro:
		return "intro"
	case StepCameraCheck:
		return "camera_check"
	case StepCapture:
		return "capture"
	case StepLiveness:
		return "liveness"
	case StepConfirm:
		return "confirm"
	case StepDone:
		return "done"
	default:
		return "unknown"
	}
}

// EnrollmentWizard sequences biometric enrollment. It does no biometric
// computation and no network I/O; its job is step gating. The single upload
// of the captured template happens once, when the flow observes Done.
type EnrollmentWizard struct {
	mu                sync.Mutex
	step              EnrollmentStep
	captured          bool
	capturing         bool
	livenessConfirmed bool
	template          string
	processing        time.Duration
}

func newEnrollmentWizard(cfg EnrollmentConfig) *EnrollmentWizard {
	return &EnrollmentWizard{processing: cfg.CaptureProcessing}
}

// Step reports the current position.
func (w *EnrollmentWizard) Step() EnrollmentStep {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

// Captured reports whether the capture step has completed.
func (w *EnrollmentWizard) Captured() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.captured
}

// LivenessConfirmed reports whether the liveness check has passed.
func (w *EnrollmentWizard) LivenessConfirmed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.livenessConfirmed
}

// Advance moves one step forward. From Capture it is gated on a completed
// capture and from Liveness on a confirmed check; an early Advance is a
// no-op, not an error. Advance never leaves Confirm; that is Finish's job.
func (w *EnrollmentWizard) Advance() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch w.step {
	case StepCapture:
		if !w.captured {
			return false
		}
	case StepLiveness:
		if !w.livenessConfirmed {
			return false
		}
	case StepConfirm, StepDone:
		return false
	}

	w.step++
	return true
}

// Back moves one step backward; unavailable from Intro and after Done.
func (w *EnrollmentWizard) Back() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.step == StepIntro || w.step == StepDone {
		return false
	}
	w.step--
	return true
}

// Capture triggers the capture action. The captured flag is set after a
// brief processing window; advancing before it completes is a no-op. A
// repeat trigger while processing or after completion does nothing.
func (w *EnrollmentWizard) Capture() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.step != StepCapture || w.captured || w.capturing {
		return false
	}
	w.capturing = true

	finish := func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		if !w.capturing {
			return
		}
		w.capturing = false
		w.captured = true
		w.template = newTemplate()
	}

	if w.processing <= 0 {
		w.capturing = false
		w.captured = true
		w.template = newTemplate()
		return true
	}
	time.AfterFunc(w.processing, finish)
	return true
}

// ConfirmLiveness marks the anti-spoofing check as passed. Only meaningful
// on the liveness step.
func (w *EnrollmentWizard) ConfirmLiveness() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.step != StepLiveness {
		return false
	}
	w.livenessConfirmed = true
	return true
}

// Finish moves Confirm to Done. Any other step is rejected.
func (w *EnrollmentWizard) Finish() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.step != StepConfirm {
		return ErrEnrollmentIncomplete
	}
	w.step = StepDone
	return nil
}

// Template is the opaque captured payload, empty until capture completes.
func (w *EnrollmentWizard) Template() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.template
}

// newTemplate stands in for a real encrypted biometric blob; the server only
// sees an opaque string either way.
func newTemplate() string {
	return base64.StdEncoding.EncodeToString([]byte(uuid.NewString()))
}
