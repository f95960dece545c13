package identikit

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
)

// AuditEvent records one observable step of an authentication journey. Events
// feed the access-log surface of the product; they never contain passwords,
// codes, or tokens.
type AuditEvent struct {
	EventID   string            `json:"event_id"`
	Timestamp time.Time         `json:"timestamp"`
	EventType string            `json:"event_type"`
	Journey   string            `json:"journey"`
	DeviceID  string            `json:"device_id,omitempty"`
	UserID    string            `json:"user_id,omitempty"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// AuditSink receives events from the dispatcher. Implementations must not
// block indefinitely; slow sinks cause drops when DropIfFull is set.
type AuditSink interface {
	Emit(ctx context.Context, event AuditEvent)
}

// NoOpSink discards every event.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, AuditEvent) {}

// ChannelSink forwards events to a buffered channel, for callers that consume
// them in their own loop.
type ChannelSink struct {
	events chan AuditEvent
}

// NewChannelSink builds a sink with the given buffer.
func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{events: make(chan AuditEvent, buffer)}
}

func (s *ChannelSink) Emit(ctx context.Context, event AuditEvent) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

// Events exposes the receive side of the sink.
func (s *ChannelSink) Events() <-chan AuditEvent {
	return s.events
}

// JSONWriterSink writes one JSON object per line to the writer.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

// NewJSONWriterSink wraps w; writes are serialized.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{writer: w}
}

func (s *JSONWriterSink) Emit(_ context.Context, event AuditEvent) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = s.writer.Write(append(data, '\n'))
}

const (
	auditEventRegister   = "register"
	auditEventLogin      = "login"
	auditEventOTPVerify  = "otp_verify"
	auditEventOTPResend  = "otp_resend"
	auditEventFacial     = "facial_login"
	auditEventEnrollment = "biometric_enrollment"
	auditEventLogout     = "logout"
)

func newAuditEvent(eventType string, journey JourneyState, success bool) AuditEvent {
	return AuditEvent{
		EventID:   uuid.NewString(),
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Journey:   journey.String(),
		Success:   success,
	}
}
