// Package identikit is a client-side authentication and session orchestration
// SDK for a banking identity service. It drives the full journey from landing
// to authenticated: registration, biometric enrollment, credential login,
// one-time-code second factor, and facial verification, against a remote auth
// API.
//
// The public surface is [Flow], built through [Builder], plus the value types
// it exposes (JourneyState, OTPChallenge, EnrollmentWizard, MetricsSnapshot,
// AuditEvent). Persistence, device identity, session tokens, and the HTTP
// gateway live in the storage, device, session, and gateway subpackages.
//
// # Journey model
//
// Flow is an explicit state machine over the journey states. Exactly one
// state is active at a time; every transition tears down the timers and
// sub-state owned by the previous state, and responses that arrive after the
// journey has moved on are discarded rather than applied. Step-local failures
// are recoverable in place: the journey stays put, the caller corrects input
// and resubmits.
//
// # What this package must NOT do
//
//   - Touch token or device storage directly; only session.Store and
//     device.Identity write those keys.
//   - Generate or inspect one-time codes; issuance and verification are
//     strictly server-authoritative.
//   - Block other work while a gateway call is outstanding; a second submit
//     during an in-flight call is a no-op, never a queued duplicate.
package identikit
