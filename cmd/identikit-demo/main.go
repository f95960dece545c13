// Command identikit-demo drives a complete authentication journey against an
// in-process stub of the auth API: registration with biometric enrollment,
// logout, and a second-factor login with the one-time-code challenge. It
// needs no external services; state lives in an embedded redis.
//
// Run:
//
//	go run ./cmd/identikit-demo
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/common-nighthawk/go-figure"
	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/identikit/identikit"
)

const demoOTPCode = "123456"

func main() {
	figure.NewFigure("identikit", "cybermedium", true).Print()
	fmt.Println()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		With().Timestamp().Logger()

	if err := run(log); err != nil {
		log.Fatal().Err(err).Msg("demo failed")
	}
	log.Info().Msg("demo complete")
}

func run(log zerolog.Logger) error {
	mr, err := miniredis.Run()
	if err != nil {
		return err
	}
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	baseURL, stop, err := startStubAPI(log)
	if err != nil {
		return err
	}
	defer stop()

	cfg := identikit.DefaultConfig()
	cfg.API.BaseURL = baseURL
	cfg.OTP.TickInterval = 100 * time.Millisecond
	cfg.Enrollment.CaptureProcessing = 200 * time.Millisecond
	cfg.Audit.Enabled = true
	cfg.Metrics.Enabled = true

	flow, err := identikit.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithLogger(log).
		WithAuditSink(identikit.NewJSONWriterSink(os.Stdout)).
		Build()
	if err != nil {
		return err
	}
	defer flow.Close()

	ctx := context.Background()

	// register with biometric opt-in, then walk the enrollment wizard
	log.Info().Msg("registering account")
	if err := flow.StartRegister(); err != nil {
		return err
	}
	if err := flow.Register(ctx, "alice@example.com", "correct-horse-9", "correct-horse-9", true); err != nil {
		return err
	}

	log.Info().Stringer("step", flow.Enrollment().Step()).Msg("enrollment started")
	flow.AdvanceEnrollment()
	flow.AdvanceEnrollment()
	flow.CaptureBiometric()
	for !flow.Enrollment().Captured() {
		time.Sleep(20 * time.Millisecond)
	}
	flow.AdvanceEnrollment()
	flow.ConfirmLiveness()
	flow.AdvanceEnrollment()
	if err := flow.FinishEnrollment(ctx); err != nil {
		return err
	}
	log.Info().Bool("authenticated", flow.IsAuthenticated(ctx)).Msg("enrolled")

	// drop the session and come back with the second factor
	if err := flow.Logout(ctx); err != nil {
		return err
	}
	log.Info().Msg("logging in with 2fa")
	if err := flow.StartLogin(); err != nil {
		return err
	}
	if err := flow.Login(ctx, "alice@example.com", "correct-horse-9", true); err != nil {
		return err
	}

	challenge := flow.OTP()
	log.Info().Int("seconds", challenge.Remaining()).Msg("code sent, countdown running")
	for i, r := range demoOTPCode {
		flow.EnterOTPDigit(i, string(r))
	}
	if err := flow.SubmitOTP(ctx); err != nil {
		return err
	}
	log.Info().
		Stringer("state", flow.State()).
		Bool("authenticated", flow.IsAuthenticated(ctx)).
		Msg("second factor accepted")

	snap := flow.MetricsSnapshot()
	log.Info().
		Uint64("logins", snap.Counters[identikit.MetricLoginSuccess]).
		Uint64("otp_verified", snap.Counters[identikit.MetricOTPSuccess]).
		Uint64("enrollments", snap.Counters[identikit.MetricEnrollmentCompleted]).
		Msg("session counters")

	return flow.Logout(ctx)
}

// startStubAPI serves just enough of the auth contract for the demo journey.
func startStubAPI(log zerolog.Logger) (string, func(), error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", nil, err
	}

	writeJSON := func(w http.ResponseWriter, status int, body any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
	tokens := map[string]string{"access": "demo-access", "refresh": "demo-refresh"}
	user := map[string]string{"id": "user-1", "email": "alice@example.com"}

	r := mux.NewRouter()
	r.HandleFunc("/auth/register", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusCreated, map[string]any{"user": user, "tokens": tokens})
	}).Methods(http.MethodPost)
	r.HandleFunc("/auth/login", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Use2FA bool `json:"use_2fa"`
		}
		_ = json.NewDecoder(req.Body).Decode(&body)
		if body.Use2FA {
			writeJSON(w, http.StatusOK, map[string]any{"otp_required": true})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"user": user, "tokens": tokens})
	}).Methods(http.MethodPost)
	r.HandleFunc("/auth/verify-otp", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Code string `json:"code"`
		}
		_ = json.NewDecoder(req.Body).Decode(&body)
		if body.Code != demoOTPCode {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "invalid or expired code"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"user": user, "tokens": tokens})
	}).Methods(http.MethodPost)
	r.HandleFunc("/auth/biometric", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "stored"})
	}).Methods(http.MethodPost)
	r.HandleFunc("/auth/logout", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}).Methods(http.MethodPost)

	srv := &http.Server{Handler: r}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("stub api stopped")
		}
	}()

	stop := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
	return "http://" + ln.Addr().String(), stop, nil
}
