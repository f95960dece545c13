package identikit

import "sync/atomic"

// MetricID identifies one flow counter.
type MetricID uint16

const (
	// MetricLoginSuccess counts credential logins that established a session.
	MetricLoginSuccess MetricID = iota
	// MetricLoginFailure counts rejected credential logins.
	MetricLoginFailure
	// MetricOTPRequired counts logins deferred to the one-time-code factor.
	MetricOTPRequired
	// MetricOTPSuccess counts verified one-time codes.
	MetricOTPSuccess
	// MetricOTPFailure counts rejected one-time codes.
	MetricOTPFailure
	// MetricOTPExpired counts challenges that ran the countdown to zero.
	MetricOTPExpired
	// MetricOTPResend counts resend requests.
	MetricOTPResend
	// MetricFacialSuccess counts facial logins that established a session.
	MetricFacialSuccess
	// MetricFacialFailure counts failed or timed-out facial matches.
	MetricFacialFailure
	// MetricRegisterSuccess counts created accounts.
	MetricRegisterSuccess
	// MetricRegisterConflict counts duplicate-account rejections.
	MetricRegisterConflict
	// MetricRegisterFailure counts all other registration failures.
	MetricRegisterFailure
	// MetricEnrollmentCompleted counts enrollment wizards that reached Done.
	MetricEnrollmentCompleted
	// MetricLogout counts logouts.
	MetricLogout
	// MetricStaleResponseDropped counts gateway responses discarded because
	// the journey had already moved on.
	MetricStaleResponseDropped
	metricIDCount
)

const cacheLineSize = 64

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics is the set of in-process flow counters. All methods are safe for
// concurrent use; a nil or disabled Metrics silently drops increments.
type Metrics struct {
	enabled  bool
	counters [metricIDCount]paddedCounter
}

// MetricsSnapshot is a point-in-time copy of every counter.
type MetricsSnapshot struct {
	Counters map[MetricID]uint64
}

// NewMetrics builds the counter set; disabled metrics never allocate on Inc.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{enabled: cfg.Enabled}
}

// Enabled reports whether increments are recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// Inc adds one to the counter.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Value reads one counter.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies all counters at once.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{Counters: make(map[MetricID]uint64, metricIDCount)}
	if m == nil {
		return snap
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		snap.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}
	return snap
}
