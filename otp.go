package identikit

import (
	"strings"
	"sync"
	"time"
	"unicode"
)

// OTPStatus is the lifecycle position of a one-time-code challenge.
type OTPStatus uint8

const (
	// OTPPending means the code is being entered and the countdown is live.
	OTPPending OTPStatus = iota
	// OTPVerifying means a submit is in flight; further submits are no-ops.
	OTPVerifying
	// OTPVerified is the terminal success state.
	OTPVerified
	// OTPExpired means the countdown reached zero; input is disabled and
	// only resend remains. Expiry is not an error, it is a first-class state.
	OTPExpired
)

func (s OTPStatus) String() string {
	switch s {
	case OTPPending:
		return "pending"
	case OTPVerifying:
		return "verifying"
	case OTPVerified:
		return "verified"
	case OTPExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// OTPChallenge holds the per-digit input state and the countdown of one
// second-factor attempt. The countdown goroutine is the only recurring
// background task in the SDK; it is torn down on verification, expiry,
// abandonment, and Flow.Close.
type OTPChallenge struct {
	mu        sync.Mutex
	digits    []string
	focus     int
	remaining int
	expiry    int
	status    OTPStatus
	lastError string

	interval time.Duration
	stop     chan struct{}
	stopped  bool
	onExpire func()
}

func newOTPChallenge(cfg OTPConfig, onExpire func()) *OTPChallenge {
	c := &OTPChallenge{
		digits:    make([]string, cfg.Digits),
		remaining: cfg.ExpirySeconds,
		expiry:    cfg.ExpirySeconds,
		status:    OTPPending,
		interval:  cfg.TickInterval,
		onExpire:  onExpire,
	}
	c.mu.Lock()
	c.startCountdownLocked()
	c.mu.Unlock()
	return c
}

// EnterDigit records one cell of the code. Multi-character input keeps only
// its last rune; non-digits are rejected; an empty value clears the cell.
// Entry is allowed only while Pending and always clears the displayed error.
// Filling a cell advances the focus to the next one.
func (c *OTPChallenge) EnterDigit(index int, value string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status != OTPPending || index < 0 || index >= len(c.digits) {
		return false
	}

	if value == "" {
		c.digits[index] = ""
		c.lastError = ""
		return true
	}

	runes := []rune(value)
	last := runes[len(runes)-1]
	if !unicode.IsDigit(last) {
		return false
	}

	c.digits[index] = string(last)
	c.lastError = ""
	if index < len(c.digits)-1 {
		c.focus = index + 1
	}
	return true
}

// Digits returns a copy of the entered cells.
func (c *OTPChallenge) Digits() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.digits))
	copy(out, c.digits)
	return out
}

// Focus is the index of the cell that should receive the next keystroke.
func (c *OTPChallenge) Focus() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.focus
}

// Remaining reports the seconds left before expiry.
func (c *OTPChallenge) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

// Status reports the current lifecycle position.
func (c *OTPChallenge) Status() OTPStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// LastError is the inline error from the most recent failed submit, cleared
// by the next digit entry.
func (c *OTPChallenge) LastError() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastError
}

// code joins the cells; ok is false until all are filled.
func (c *OTPChallenge) code() (string, bool) {
	for _, d := range c.digits {
		if d == "" {
			return "", false
		}
	}
	return strings.Join(c.digits, ""), true
}

// beginVerify moves Pending to Verifying. started=false with a nil error
// means a submit is already in flight and this one is a no-op.
func (c *OTPChallenge) beginVerify() (code string, started bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.status {
	case OTPVerifying:
		return "", false, nil
	case OTPExpired:
		return "", false, ErrOTPExpired
	case OTPVerified:
		return "", false, ErrInvalidTransition
	}

	code, ok := c.code()
	if !ok {
		return "", false, ErrOTPIncomplete
	}
	c.status = OTPVerifying
	return code, true, nil
}

// failVerify returns to Pending keeping the countdown where it was; a failed
// attempt never resets the clock.
func (c *OTPChallenge) failVerify(message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status != OTPVerifying {
		return
	}
	c.status = OTPPending
	c.lastError = message
}

// succeed marks the challenge verified and tears down the countdown.
func (c *OTPChallenge) succeed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status != OTPVerifying {
		return
	}
	c.status = OTPVerified
	c.stopCountdownLocked()
}

// resend resets an expired challenge to a fresh Pending(expiry) with cleared
// cells and a new countdown. The old countdown goroutine has already exited
// at expiry, so exactly one ticker is ever live.
func (c *OTPChallenge) resend() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status != OTPExpired {
		return ErrOTPNotExpired
	}
	for i := range c.digits {
		c.digits[i] = ""
	}
	c.focus = 0
	c.remaining = c.expiry
	c.lastError = ""
	c.status = OTPPending
	c.startCountdownLocked()
	return nil
}

// Stop cancels the countdown. Safe to call repeatedly and after expiry.
func (c *OTPChallenge) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopCountdownLocked()
}

func (c *OTPChallenge) startCountdownLocked() {
	stop := make(chan struct{})
	c.stop = stop
	c.stopped = false

	go func() {
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if c.tick() {
					return
				}
			}
		}
	}()
}

func (c *OTPChallenge) stopCountdownLocked() {
	if c.stopped {
		return
	}
	c.stopped = true
	close(c.stop)
}

// tick advances the countdown one second. It reports true when the goroutine
// should exit: either the challenge left the countdown states or the clock
// hit zero. Verifying pauses the decrement without stopping the ticker, so a
// failed submit resumes from the pre-submit value.
func (c *OTPChallenge) tick() bool {
	c.mu.Lock()

	switch c.status {
	case OTPVerifying:
		c.mu.Unlock()
		return false
	case OTPPending:
	default:
		c.mu.Unlock()
		return true
	}

	if c.remaining > 0 {
		c.remaining--
	}
	if c.remaining > 0 {
		c.mu.Unlock()
		return false
	}

	c.status = OTPExpired
	c.stopped = true // goroutine exits; channel close not needed
	onExpire := c.onExpire
	c.mu.Unlock()

	if onExpire != nil {
		onExpire()
	}
	return true
}
