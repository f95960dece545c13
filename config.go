package identikit

import (
	"errors"
	"time"
)

// Config groups all tunables of the SDK. Zero values are filled from
// defaultConfig by the Builder; instances are treated as immutable after
// Build.
type Config struct {
	API        APIConfig
	OTP        OTPConfig
	Enrollment EnrollmentConfig
	Device     DeviceConfig
	Storage    StorageConfig
	Audit      AuditConfig
	Metrics    MetricsConfig
}

/*
====================================
API CONFIG
====================================
*/

// APIConfig locates the remote auth service.
type APIConfig struct {
	BaseURL string
	Timeout time.Duration
}

/*
====================================
OTP CONFIG
====================================
*/

// OTPConfig shapes the one-time-code challenge. Digits is fixed at 6 by the
// wire contract; TickInterval exists so tests can run the countdown fast.
type OTPConfig struct {
	Digits        int
	ExpirySeconds int
	TickInterval  time.Duration
}

/*
====================================
ENROLLMENT CONFIG
====================================
*/

// EnrollmentConfig shapes the biometric wizard. CaptureProcessing is the
// simulated processing window between triggering a capture and the captured
// flag being set.
type EnrollmentConfig struct {
	CaptureProcessing time.Duration
}

/*
====================================
DEVICE / STORAGE CONFIG
====================================
*/

// DeviceConfig overrides the generated device label when Label is non-empty.
type DeviceConfig struct {
	Label string
}

// StorageConfig selects the durable client store when no explicit backend is
// provided to the Builder. SQLitePath wins over RedisPrefix-only settings.
type StorageConfig struct {
	SQLitePath  string
	RedisPrefix string
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig controls the asynchronous audit event dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig toggles the in-process counters.
type MetricsConfig struct {
	Enabled bool
}

func defaultConfig() Config {
	return Config{
		API: APIConfig{
			Timeout: 15 * time.Second,
		},
		OTP: OTPConfig{
			Digits:        6,
			ExpirySeconds: 60,
			TickInterval:  time.Second,
		},
		Enrollment: EnrollmentConfig{
			CaptureProcessing: 2 * time.Second,
		},
		Storage: StorageConfig{
			RedisPrefix: "ik",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	// all fields are value types today; the explicit clone point guards
	// against future reference-typed additions
	return cfg
}

// Validate rejects configurations the flow cannot run with.
func (c *Config) Validate() error {
	if c.OTP.Digits != 6 {
		return errors.New("OTP.Digits must be 6, the wire format is fixed")
	}
	if c.OTP.ExpirySeconds <= 0 {
		return errors.New("OTP.ExpirySeconds must be positive")
	}
	if c.OTP.TickInterval <= 0 {
		return errors.New("OTP.TickInterval must be positive")
	}
	if c.Enrollment.CaptureProcessing < 0 {
		return errors.New("Enrollment.CaptureProcessing must not be negative")
	}
	if c.API.Timeout <= 0 {
		return errors.New("API.Timeout must be positive")
	}
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit.BufferSize must be positive when audit is enabled")
	}
	return nil
}
