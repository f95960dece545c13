package identikit

import (
	"context"
	"testing"

	"github.com/identikit/identikit/gateway"
	"github.com/identikit/identikit/session"
)

func (a *fakeAPI) setGate(ch chan struct{}) {
	a.mu.Lock()
	a.gate = ch
	a.mu.Unlock()
}

// loginToOTP walks a fresh flow into the one-time-code challenge.
func loginToOTP(t *testing.T, flow *Flow, api *fakeAPI) {
	t.Helper()
	api.loginFn = func(email, password string, use2FA bool) (*gateway.LoginResult, error) {
		return &gateway.LoginResult{OTPRequired: true}, nil
	}
	if err := flow.StartLogin(); err != nil {
		t.Fatalf("StartLogin failed: %v", err)
	}
	if err := flow.Login(context.Background(), "a@b.com", "password1", true); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if flow.State() != JourneyAwaitingOTP {
		t.Fatalf("expected awaiting_otp, got %s", flow.State())
	}
	if flow.OTP() == nil {
		t.Fatal("no challenge after otp_required")
	}
}

func TestLoginSuccessAuthenticates(t *testing.T) {
	api := newFakeAPI()
	flow := newTestFlow(t, api)

	if err := flow.StartLogin(); err != nil {
		t.Fatalf("StartLogin failed: %v", err)
	}
	if err := flow.Login(context.Background(), "a@b.com", "password1", false); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if flow.State() != JourneyAuthenticated {
		t.Fatalf("expected authenticated, got %s", flow.State())
	}
	if got := flow.MetricsSnapshot().Counters[MetricLoginSuccess]; got != 1 {
		t.Fatalf("expected login success counter 1, got %d", got)
	}
}

func TestLoginOTPRequiredDefersAuthentication(t *testing.T) {
	api := newFakeAPI()
	flow := newTestFlow(t, api)
	loginToOTP(t, flow, api)

	if got := flow.OTP().Remaining(); got != 60 {
		t.Fatalf("expected fresh countdown, got %d", got)
	}
	if got := flow.MetricsSnapshot().Counters[MetricOTPRequired]; got != 1 {
		t.Fatalf("expected otp_required counter 1, got %d", got)
	}
	if got := flow.MetricsSnapshot().Counters[MetricLoginSuccess]; got != 0 {
		t.Fatalf("login counted as success before verification: %d", got)
	}
}

func TestLoginRejectionStaysInLoggingIn(t *testing.T) {
	api := newFakeAPI()
	api.loginFn = func(string, string, bool) (*gateway.LoginResult, error) {
		return nil, gateway.ErrInvalidCredentials
	}
	flow := newTestFlow(t, api)

	if err := flow.StartLogin(); err != nil {
		t.Fatalf("StartLogin failed: %v", err)
	}
	err := flow.Login(context.Background(), "a@b.com", "wrong", false)
	if gateway.KindOf(err) != gateway.KindAuth {
		t.Fatalf("expected auth error, got %v", err)
	}
	if flow.State() != JourneyLoggingIn {
		t.Fatalf("expected logging_in after rejection, got %s", flow.State())
	}
	if got := flow.MetricsSnapshot().Counters[MetricLoginFailure]; got != 1 {
		t.Fatalf("expected login failure counter 1, got %d", got)
	}
}

func TestDoubleLoginSubmitIsNoOp(t *testing.T) {
	api := newFakeAPI()
	flow := newTestFlow(t, api)

	if err := flow.StartLogin(); err != nil {
		t.Fatalf("StartLogin failed: %v", err)
	}

	gate := make(chan struct{})
	api.setGate(gate)

	errCh := make(chan error, 1)
	go func() {
		errCh <- flow.Login(context.Background(), "a@b.com", "password1", false)
	}()
	waitFor(t, func() bool { return api.count("login") == 1 })

	// second submit while the first is outstanding: silent no-op, no call
	if err := flow.Login(context.Background(), "a@b.com", "password1", false); err != nil {
		t.Fatalf("double submit returned error: %v", err)
	}

	close(gate)
	if err := <-errCh; err != nil {
		t.Fatalf("gated login failed: %v", err)
	}
	if got := api.count("login"); got != 1 {
		t.Fatalf("expected exactly one login call, got %d", got)
	}
	if flow.State() != JourneyAuthenticated {
		t.Fatalf("expected authenticated, got %s", flow.State())
	}
}

func TestSubmitOTPExactlyOneVerifyPerSubmit(t *testing.T) {
	api := newFakeAPI()
	flow := newTestFlow(t, api)
	loginToOTP(t, flow, api)

	for i := 0; i < 6; i++ {
		flow.EnterOTPDigit(i, "7")
	}

	gate := make(chan struct{})
	api.setGate(gate)

	errCh := make(chan error, 1)
	go func() {
		errCh <- flow.SubmitOTP(context.Background())
	}()
	waitFor(t, func() bool { return api.count("verify") == 1 })

	if err := flow.SubmitOTP(context.Background()); err != nil {
		t.Fatalf("second submit returned error: %v", err)
	}

	close(gate)
	if err := <-errCh; err != nil {
		t.Fatalf("gated submit failed: %v", err)
	}
	if got := api.count("verify"); got != 1 {
		t.Fatalf("expected exactly one verify call, got %d", got)
	}
	if flow.State() != JourneyAuthenticated {
		t.Fatalf("expected authenticated, got %s", flow.State())
	}
}

func TestSubmitOTPRejectionKeepsCountdown(t *testing.T) {
	api := newFakeAPI()
	api.verifyFn = func(string) (*gateway.LoginResult, error) {
		return nil, gateway.ErrOTPRejected
	}
	flow := newTestFlow(t, api)
	loginToOTP(t, flow, api)

	challenge := flow.OTP()
	for i := 0; i < 15; i++ {
		challenge.tick()
	}
	for i := 0; i < 6; i++ {
		flow.EnterOTPDigit(i, "1")
	}

	err := flow.SubmitOTP(context.Background())
	if gateway.KindOf(err) != gateway.KindAuth {
		t.Fatalf("expected auth error, got %v", err)
	}
	if flow.State() != JourneyAwaitingOTP {
		t.Fatalf("expected awaiting_otp after rejection, got %s", flow.State())
	}
	if challenge.Status() != OTPPending {
		t.Fatalf("expected pending after rejection, got %s", challenge.Status())
	}
	if got := challenge.Remaining(); got != 45 {
		t.Fatalf("rejection changed countdown: expected 45, got %d", got)
	}
	if challenge.LastError() == "" {
		t.Fatal("expected inline error after rejection")
	}
	if got := flow.MetricsSnapshot().Counters[MetricOTPFailure]; got != 1 {
		t.Fatalf("expected otp failure counter 1, got %d", got)
	}
}

func TestSubmitOTPIncompleteMakesNoCall(t *testing.T) {
	api := newFakeAPI()
	flow := newTestFlow(t, api)
	loginToOTP(t, flow, api)

	for i := 0; i < 5; i++ {
		flow.EnterOTPDigit(i, "1")
	}
	if err := flow.SubmitOTP(context.Background()); err != ErrOTPIncomplete {
		t.Fatalf("expected ErrOTPIncomplete, got %v", err)
	}
	if got := api.count("verify"); got != 0 {
		t.Fatalf("incomplete code reached the gateway: %d calls", got)
	}
}

func TestResendOTPReplaysCredentials(t *testing.T) {
	api := newFakeAPI()
	flow := newTestFlow(t, api)
	loginToOTP(t, flow, api)

	if err := flow.ResendOTP(context.Background()); err != ErrOTPNotExpired {
		t.Fatalf("expected ErrOTPNotExpired before expiry, got %v", err)
	}

	challenge := flow.OTP()
	for i := 0; i < 60; i++ {
		challenge.tick()
	}
	if challenge.Status() != OTPExpired {
		t.Fatalf("expected expired, got %s", challenge.Status())
	}
	if flow.EnterOTPDigit(0, "1") {
		t.Fatal("digit entry accepted after expiry")
	}

	if err := flow.ResendOTP(context.Background()); err != nil {
		t.Fatalf("resend failed: %v", err)
	}
	if got := api.count("login"); got != 2 {
		t.Fatalf("expected credential replay, got %d login calls", got)
	}
	if challenge.Status() != OTPPending {
		t.Fatalf("expected pending after resend, got %s", challenge.Status())
	}
	if got := challenge.Remaining(); got != 60 {
		t.Fatalf("expected full countdown after resend, got %d", got)
	}
	if got := flow.MetricsSnapshot().Counters[MetricOTPResend]; got != 1 {
		t.Fatalf("expected resend counter 1, got %d", got)
	}
	if got := flow.MetricsSnapshot().Counters[MetricOTPExpired]; got != 1 {
		t.Fatalf("expected expiry counter 1, got %d", got)
	}
}

func TestResendOTPServerMaySkipSecondFactor(t *testing.T) {
	api := newFakeAPI()
	flow := newTestFlow(t, api)
	loginToOTP(t, flow, api)

	challenge := flow.OTP()
	for i := 0; i < 60; i++ {
		challenge.tick()
	}

	api.loginFn = func(string, string, bool) (*gateway.LoginResult, error) {
		return &gateway.LoginResult{User: &gateway.User{ID: "u1"}}, nil
	}
	if err := flow.ResendOTP(context.Background()); err != nil {
		t.Fatalf("resend failed: %v", err)
	}
	if flow.State() != JourneyAuthenticated {
		t.Fatalf("expected authenticated when server returned tokens, got %s", flow.State())
	}
}

func TestAbandonOTPTearsDownChallenge(t *testing.T) {
	api := newFakeAPI()
	flow := newTestFlow(t, api)
	loginToOTP(t, flow, api)

	if err := flow.Abandon(); err != nil {
		t.Fatalf("Abandon failed: %v", err)
	}
	if flow.State() != JourneyLanding {
		t.Fatalf("expected landing, got %s", flow.State())
	}
	if flow.OTP() != nil {
		t.Fatal("challenge survived abandonment")
	}
	if err := flow.SubmitOTP(context.Background()); err != ErrInvalidTransition {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestFacialLoginSuccess(t *testing.T) {
	api := newFakeAPI()
	flow := newTestFlow(t, api)

	if err := flow.StartLogin(); err != nil {
		t.Fatalf("StartLogin failed: %v", err)
	}
	if err := flow.ChooseFacial(); err != nil {
		t.Fatalf("ChooseFacial failed: %v", err)
	}
	if err := flow.FacialLogin(context.Background()); err != nil {
		t.Fatalf("FacialLogin failed: %v", err)
	}
	if flow.State() != JourneyAuthenticated {
		t.Fatalf("expected authenticated, got %s", flow.State())
	}
	if got := flow.MetricsSnapshot().Counters[MetricFacialSuccess]; got != 1 {
		t.Fatalf("expected facial success counter 1, got %d", got)
	}
}

func TestFacialLoginNoMatchFallsBack(t *testing.T) {
	api := newFakeAPI()
	api.facialFn = func() (*gateway.LoginResult, error) {
		return nil, gateway.ErrBiometricNoMatch
	}
	flow := newTestFlow(t, api)

	if err := flow.StartLogin(); err != nil {
		t.Fatalf("StartLogin failed: %v", err)
	}
	if err := flow.ChooseFacial(); err != nil {
		t.Fatalf("ChooseFacial failed: %v", err)
	}
	err := flow.FacialLogin(context.Background())
	if gateway.KindOf(err) != gateway.KindBiometric {
		t.Fatalf("expected biometric error, got %v", err)
	}
	if flow.State() != JourneyLoggingIn {
		t.Fatalf("expected fallback to logging_in, got %s", flow.State())
	}
	if got := flow.MetricsSnapshot().Counters[MetricFacialFailure]; got != 1 {
		t.Fatalf("expected facial failure counter 1, got %d", got)
	}
}

func TestStaleFacialSuccessIsDiscarded(t *testing.T) {
	api := newFakeAPI()
	flow := newTestFlow(t, api)

	if err := flow.StartLogin(); err != nil {
		t.Fatalf("StartLogin failed: %v", err)
	}
	if err := flow.ChooseFacial(); err != nil {
		t.Fatalf("ChooseFacial failed: %v", err)
	}

	gate := make(chan struct{})
	api.setGate(gate)

	errCh := make(chan error, 1)
	go func() {
		errCh <- flow.FacialLogin(context.Background())
	}()
	waitFor(t, func() bool { return api.count("facial") == 1 })

	// user walks away while the match is outstanding
	if err := flow.Abandon(); err != nil {
		t.Fatalf("Abandon failed: %v", err)
	}

	close(gate)
	if err := <-errCh; err != ErrStaleResponse {
		t.Fatalf("expected ErrStaleResponse, got %v", err)
	}
	if flow.State() != JourneyLanding {
		t.Fatalf("late success resurrected state: %s", flow.State())
	}
	if got := flow.MetricsSnapshot().Counters[MetricStaleResponseDropped]; got != 1 {
		t.Fatalf("expected stale counter 1, got %d", got)
	}
}

func TestStaleLoginSuccessIsDiscarded(t *testing.T) {
	api := newFakeAPI()
	flow := newTestFlow(t, api)

	// the real gateway persists tokens inside Login before returning
	api.loginFn = func(email, password string, use2FA bool) (*gateway.LoginResult, error) {
		_ = flow.Sessions().Set(context.Background(), &session.Tokens{Access: "a", Refresh: "r"})
		return &gateway.LoginResult{User: &gateway.User{ID: "u1"}}, nil
	}

	if err := flow.StartLogin(); err != nil {
		t.Fatalf("StartLogin failed: %v", err)
	}

	gate := make(chan struct{})
	api.setGate(gate)

	errCh := make(chan error, 1)
	go func() {
		errCh <- flow.Login(context.Background(), "a@b.com", "password1", false)
	}()
	waitFor(t, func() bool { return api.count("login") == 1 })

	if err := flow.Abandon(); err != nil {
		t.Fatalf("Abandon failed: %v", err)
	}

	close(gate)
	if err := <-errCh; err != ErrStaleResponse {
		t.Fatalf("expected ErrStaleResponse, got %v", err)
	}
	if flow.State() != JourneyLanding {
		t.Fatalf("late success resurrected state: %s", flow.State())
	}
	if flow.IsAuthenticated(context.Background()) {
		t.Fatal("stale login success left a persisted session")
	}
}

func TestStaleOTPVerifySuccessIsDiscarded(t *testing.T) {
	api := newFakeAPI()
	flow := newTestFlow(t, api)
	loginToOTP(t, flow, api)

	api.verifyFn = func(code string) (*gateway.LoginResult, error) {
		_ = flow.Sessions().Set(context.Background(), &session.Tokens{Access: "a", Refresh: "r"})
		return &gateway.LoginResult{User: &gateway.User{ID: "u1"}}, nil
	}
	for i := 0; i < 6; i++ {
		flow.EnterOTPDigit(i, "7")
	}

	gate := make(chan struct{})
	api.setGate(gate)

	errCh := make(chan error, 1)
	go func() {
		errCh <- flow.SubmitOTP(context.Background())
	}()
	waitFor(t, func() bool { return api.count("verify") == 1 })

	if err := flow.Abandon(); err != nil {
		t.Fatalf("Abandon failed: %v", err)
	}

	close(gate)
	if err := <-errCh; err != ErrStaleResponse {
		t.Fatalf("expected ErrStaleResponse, got %v", err)
	}
	if flow.IsAuthenticated(context.Background()) {
		t.Fatal("stale verify success left a persisted session")
	}
}

func TestStaleRegisterSuccessIsDiscarded(t *testing.T) {
	api := newFakeAPI()
	flow := newTestFlow(t, api)

	api.registerFn = func(email, password, confirm string, enableBiometric bool) (*gateway.RegisterResult, error) {
		_ = flow.Sessions().Set(context.Background(), &session.Tokens{Access: "a", Refresh: "r"})
		return &gateway.RegisterResult{User: &gateway.User{ID: "u1", Email: email}}, nil
	}

	if err := flow.StartRegister(); err != nil {
		t.Fatalf("StartRegister failed: %v", err)
	}

	gate := make(chan struct{})
	api.setGate(gate)

	errCh := make(chan error, 1)
	go func() {
		errCh <- flow.Register(context.Background(), "a@b.com", "password1", "password1", false)
	}()
	waitFor(t, func() bool { return api.count("register") == 1 })

	if err := flow.Abandon(); err != nil {
		t.Fatalf("Abandon failed: %v", err)
	}

	close(gate)
	if err := <-errCh; err != ErrStaleResponse {
		t.Fatalf("expected ErrStaleResponse, got %v", err)
	}
	if flow.IsAuthenticated(context.Background()) {
		t.Fatal("stale register success left a persisted session")
	}
}

func TestConcurrentResendIsSingleRequest(t *testing.T) {
	api := newFakeAPI()
	flow := newTestFlow(t, api)
	loginToOTP(t, flow, api)

	challenge := flow.OTP()
	for i := 0; i < 60; i++ {
		challenge.tick()
	}

	gate := make(chan struct{})
	api.setGate(gate)

	errCh := make(chan error, 1)
	go func() {
		errCh <- flow.ResendOTP(context.Background())
	}()
	waitFor(t, func() bool { return api.count("login") == 2 })

	// second resend while the first is outstanding: silent no-op, no call
	if err := flow.ResendOTP(context.Background()); err != nil {
		t.Fatalf("concurrent resend returned error: %v", err)
	}

	close(gate)
	if err := <-errCh; err != nil {
		t.Fatalf("gated resend failed: %v", err)
	}
	if got := api.count("login"); got != 2 {
		t.Fatalf("expected exactly one resend request, got %d login calls", got)
	}
	if challenge.Status() != OTPPending {
		t.Fatalf("expected pending after resend, got %s", challenge.Status())
	}
}

func TestRegisterWithoutBiometricAuthenticates(t *testing.T) {
	api := newFakeAPI()
	flow := newTestFlow(t, api)

	if err := flow.StartRegister(); err != nil {
		t.Fatalf("StartRegister failed: %v", err)
	}
	if err := flow.Register(context.Background(), "a@b.com", "password1", "password1", false); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if flow.State() != JourneyAuthenticated {
		t.Fatalf("expected authenticated, got %s", flow.State())
	}
	if flow.Enrollment() != nil {
		t.Fatal("wizard created without biometric opt-in")
	}
}

func TestRegisterConflictStaysForCorrection(t *testing.T) {
	api := newFakeAPI()
	api.registerFn = func(string, string, string, bool) (*gateway.RegisterResult, error) {
		return nil, gateway.ErrAccountExists
	}
	flow := newTestFlow(t, api)

	if err := flow.StartRegister(); err != nil {
		t.Fatalf("StartRegister failed: %v", err)
	}
	err := flow.Register(context.Background(), "a@b.com", "password1", "password1", false)
	if gateway.KindOf(err) != gateway.KindConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
	if flow.State() != JourneyRegistering {
		t.Fatalf("expected registering after conflict, got %s", flow.State())
	}
	if got := flow.MetricsSnapshot().Counters[MetricRegisterConflict]; got != 1 {
		t.Fatalf("expected conflict counter 1, got %d", got)
	}
}

func TestRegisterWithBiometricRunsEnrollment(t *testing.T) {
	api := newFakeAPI()
	flow := newTestFlow(t, api)

	if err := flow.StartRegister(); err != nil {
		t.Fatalf("StartRegister failed: %v", err)
	}
	if err := flow.Register(context.Background(), "a@b.com", "password1", "password1", true); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if flow.State() != JourneyEnrollingBiometric {
		t.Fatalf("expected enrolling_biometric, got %s", flow.State())
	}

	// finishing before the wizard reaches confirmation is rejected
	if err := flow.FinishEnrollment(context.Background()); err != ErrEnrollmentIncomplete {
		t.Fatalf("expected ErrEnrollmentIncomplete, got %v", err)
	}

	flow.AdvanceEnrollment()
	flow.AdvanceEnrollment()
	if !flow.CaptureBiometric() {
		t.Fatal("capture rejected")
	}
	flow.AdvanceEnrollment()
	if !flow.ConfirmLiveness() {
		t.Fatal("liveness confirmation rejected")
	}
	flow.AdvanceEnrollment()

	if err := flow.FinishEnrollment(context.Background()); err != nil {
		t.Fatalf("FinishEnrollment failed: %v", err)
	}
	if flow.State() != JourneyAuthenticated {
		t.Fatalf("expected authenticated, got %s", flow.State())
	}
	if got := api.count("save_biometric"); got != 1 {
		t.Fatalf("expected exactly one template upload, got %d", got)
	}
	if got := flow.MetricsSnapshot().Counters[MetricEnrollmentCompleted]; got != 1 {
		t.Fatalf("expected enrollment counter 1, got %d", got)
	}
}

func TestEnrollmentUploadFailureStillCompletes(t *testing.T) {
	api := newFakeAPI()
	api.saveErr = gateway.ErrBiometricNoMatch
	flow := newTestFlow(t, api)

	if err := flow.StartRegister(); err != nil {
		t.Fatalf("StartRegister failed: %v", err)
	}
	if err := flow.Register(context.Background(), "a@b.com", "password1", "password1", true); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	flow.AdvanceEnrollment()
	flow.AdvanceEnrollment()
	flow.CaptureBiometric()
	flow.AdvanceEnrollment()
	flow.ConfirmLiveness()
	flow.AdvanceEnrollment()

	if err := flow.FinishEnrollment(context.Background()); err != nil {
		t.Fatalf("upload failure must not block enrollment: %v", err)
	}
	if flow.State() != JourneyAuthenticated {
		t.Fatalf("expected authenticated, got %s", flow.State())
	}
}

func TestLogoutReturnsToLandingAndIsIdempotent(t *testing.T) {
	api := newFakeAPI()
	flow := newTestFlow(t, api)

	if err := flow.StartLogin(); err != nil {
		t.Fatalf("StartLogin failed: %v", err)
	}
	if err := flow.Login(context.Background(), "a@b.com", "password1", false); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if err := flow.Logout(context.Background()); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if flow.State() != JourneyLanding {
		t.Fatalf("expected landing, got %s", flow.State())
	}

	if err := flow.Logout(context.Background()); err != nil {
		t.Fatalf("second Logout failed: %v", err)
	}
	if flow.State() != JourneyLanding {
		t.Fatalf("expected landing after double logout, got %s", flow.State())
	}
	if got := flow.MetricsSnapshot().Counters[MetricLogout]; got != 2 {
		t.Fatalf("expected logout counter 2, got %d", got)
	}
}
