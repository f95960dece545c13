package identikit

import (
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{
			name:      "defaults valid",
			mutate:    func(c *Config) {},
			wantValid: true,
		},
		{
			name: "otp digits fixed at six",
			mutate: func(c *Config) {
				c.OTP.Digits = 4
			},
			wantValid: false,
		},
		{
			name: "otp expiry must be positive",
			mutate: func(c *Config) {
				c.OTP.ExpirySeconds = 0
			},
			wantValid: false,
		},
		{
			name: "otp tick interval must be positive",
			mutate: func(c *Config) {
				c.OTP.TickInterval = 0
			},
			wantValid: false,
		},
		{
			name: "capture processing may be zero",
			mutate: func(c *Config) {
				c.Enrollment.CaptureProcessing = 0
			},
			wantValid: true,
		},
		{
			name: "capture processing negative invalid",
			mutate: func(c *Config) {
				c.Enrollment.CaptureProcessing = -time.Second
			},
			wantValid: false,
		},
		{
			name: "api timeout must be positive",
			mutate: func(c *Config) {
				c.API.Timeout = 0
			},
			wantValid: false,
		},
		{
			name: "audit buffer must be positive when enabled",
			mutate: func(c *Config) {
				c.Audit.Enabled = true
				c.Audit.BufferSize = 0
			},
			wantValid: false,
		},
		{
			name: "audit buffer ignored when disabled",
			mutate: func(c *Config) {
				c.Audit.Enabled = false
				c.Audit.BufferSize = 0
			},
			wantValid: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantValid && err != nil {
				t.Fatalf("expected valid, got %v", err)
			}
			if !tt.wantValid && err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestDefaultConfigValues(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.OTP.Digits != 6 {
		t.Fatalf("expected 6 digits, got %d", cfg.OTP.Digits)
	}
	if cfg.OTP.ExpirySeconds != 60 {
		t.Fatalf("expected 60s expiry, got %d", cfg.OTP.ExpirySeconds)
	}
	if cfg.OTP.TickInterval != time.Second {
		t.Fatalf("expected 1s tick, got %v", cfg.OTP.TickInterval)
	}
	if cfg.API.Timeout != 15*time.Second {
		t.Fatalf("expected 15s timeout, got %v", cfg.API.Timeout)
	}
	if cfg.Storage.RedisPrefix == "" {
		t.Fatal("expected a default redis prefix")
	}
}
