package identikit

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/identikit/identikit/device"
	"github.com/identikit/identikit/gateway"
	"github.com/identikit/identikit/session"
	"github.com/identikit/identikit/storage"
)

// errCallInFlight signals that another gateway call owns the current state;
// public methods translate it into a silent no-op.
var errCallInFlight = errors.New("call already in flight")

// pendingLogin keeps the credential pair alive for the duration of an OTP
// challenge so resend can re-trigger code issuance. It is dropped on every
// transition out of AwaitingOTP.
type pendingLogin struct {
	email    string
	password string
}

// Flow is the top-level journey state machine. All methods are safe for
// concurrent use; at most one gateway call is in flight per state, and a
// response that lands after the journey moved on is discarded.
type Flow struct {
	config      Config
	api         AuthAPI
	gateway     *gateway.Client
	sessions    *session.Store
	device      *device.Identity
	ownedSQLite *storage.SQLiteBackend
	metrics     *Metrics
	audit       *auditDispatcher
	log         zerolog.Logger

	mu       sync.Mutex
	closed   bool
	state    JourneyState
	gen      uint64
	inFlight bool
	otp      *OTPChallenge
	wizard   *EnrollmentWizard
	pending  *pendingLogin
}

// State reports the active journey state.
func (f *Flow) State() JourneyState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Sessions exposes the session store for read access (IsAuthenticated,
// Claims). Writes stay inside the gateway and flow.
func (f *Flow) Sessions() *session.Store { return f.sessions }

// Gateway returns the HTTP gateway, or nil when a custom AuthAPI was
// injected. Callers use it for operations outside the journey itself
// (Me, Refresh).
func (f *Flow) Gateway() *gateway.Client { return f.gateway }

// OTP returns the live challenge while AwaitingOTP, else nil.
func (f *Flow) OTP() *OTPChallenge {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.otp
}

// Enrollment returns the live wizard while EnrollingBiometric, else nil.
func (f *Flow) Enrollment() *EnrollmentWizard {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.wizard
}

// IsAuthenticated reports whether a session token is present.
func (f *Flow) IsAuthenticated(ctx context.Context) bool {
	return f.sessions.IsAuthenticated(ctx)
}

// MetricsSnapshot copies the flow counters.
func (f *Flow) MetricsSnapshot() MetricsSnapshot {
	if f == nil || f.metrics == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}
	return f.metrics.Snapshot()
}

// AuditDropped reports events lost to a full audit buffer.
func (f *Flow) AuditDropped() uint64 {
	if f == nil {
		return 0
	}
	return f.audit.Dropped()
}

// Close tears down the countdown timer, the audit dispatcher, and any
// builder-owned storage. The flow rejects all actions afterwards.
func (f *Flow) Close() {
	if f == nil {
		return
	}
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	if f.otp != nil {
		f.otp.Stop()
		f.otp = nil
	}
	f.wizard = nil
	f.pending = nil
	f.mu.Unlock()

	f.audit.Close()
	if f.ownedSQLite != nil {
		_ = f.ownedSQLite.Close()
	}
}

// StartRegister moves Landing to Registering.
func (f *Flow) StartRegister() error {
	return f.navigate(JourneyLanding, JourneyRegistering)
}

// StartLogin moves Landing to LoggingIn.
func (f *Flow) StartLogin() error {
	return f.navigate(JourneyLanding, JourneyLoggingIn)
}

// ChooseFacial moves LoggingIn to AwaitingFacial.
func (f *Flow) ChooseFacial() error {
	return f.navigate(JourneyLoggingIn, JourneyAwaitingFacial)
}

// Abandon returns any pre-authenticated state to Landing, tearing down the
// countdown and wizard. In-flight responses for the abandoned state will be
// discarded when they resolve. Abandoning Landing is a no-op; Authenticated
// must leave through Logout.
func (f *Flow) Abandon() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrFlowClosed
	}
	switch f.state {
	case JourneyLanding:
		return nil
	case JourneyAuthenticated:
		return ErrInvalidTransition
	}
	f.transitionLocked(JourneyLanding)
	return nil
}

func (f *Flow) navigate(from, to JourneyState) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrFlowClosed
	}
	if f.state != from {
		return ErrInvalidTransition
	}
	f.transitionLocked(to)
	return nil
}

// transitionLocked is the single place journey state changes. It cancels the
// previous state's resources and bumps the generation so stale responses are
// recognizable. Callers hold f.mu.
func (f *Flow) transitionLocked(next JourneyState) {
	if f.otp != nil {
		f.otp.Stop()
		f.otp = nil
	}
	f.wizard = nil
	f.pending = nil
	f.gen++
	f.log.Debug().Stringer("from", f.state).Stringer("to", next).Msg("journey transition")
	f.state = next
}

// beginCall claims the single in-flight slot for the given state. The
// returned generation must be passed to endCall. errCallInFlight means a
// submit is already outstanding and this one should be a silent no-op.
func (f *Flow) beginCall(allowed JourneyState) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return 0, ErrFlowClosed
	}
	if f.state != allowed {
		return 0, ErrInvalidTransition
	}
	if f.inFlight {
		return 0, errCallInFlight
	}
	f.inFlight = true
	return f.gen, nil
}

// endCall releases the in-flight slot and reports whether the journey moved
// on while the call was outstanding. Callers hold f.mu.
func (f *Flow) endCallLocked(gen uint64) (stale bool) {
	f.inFlight = false
	return gen != f.gen
}

func (f *Flow) metricInc(id MetricID) {
	f.metrics.Inc(id)
}

// emitAudit assembles and queues one journey event. Holding f.mu is fine:
// the dispatcher hands off to a channel and never blocks when DropIfFull.
func (f *Flow) emitAudit(ctx context.Context, eventType string, success bool, userID string, callErr error) {
	if f.audit == nil {
		return
	}
	event := newAuditEvent(eventType, f.state, success)
	event.UserID = userID
	if rec, err := f.device.GetOrCreate(ctx); err == nil {
		event.DeviceID = rec.DeviceID
	}
	if callErr != nil {
		event.Error = callErr.Error()
	}
	f.audit.Emit(ctx, event)
}

// errMessage extracts the user-facing message for inline display.
func errMessage(err error) string {
	var ge *gateway.Error
	if errors.As(err, &ge) && ge.Message != "" {
		return ge.Message
	}
	return err.Error()
}
