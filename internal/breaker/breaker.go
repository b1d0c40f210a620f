// Package breaker implements a per-hook circuit breaker: a fault-tolerance
// state machine that suspends dispatch after a sustained failure rate.
package breaker

import (
	"sync"
	"time"

	"github.com/hookflow/hookflow/internal/logging"
)

// State is the circuit breaker state.
type State string

const (
	// StateClosed allows all dispatches through.
	StateClosed State = "closed"
	// StateOpen rejects all dispatches until the reset timeout elapses.
	StateOpen State = "open"
	// StateHalfOpen allows a probe dispatch: the next success closes the
	// circuit, the next failure reopens it.
	StateHalfOpen State = "half-open"
)

// Trend describes the direction of the failure rate across the window.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendDegrading Trend = "degrading"
	TrendStable    Trend = "stable"
)

// Default breaker configuration.
const (
	DefaultWindowSize   = 100
	DefaultThreshold    = 0.5
	DefaultResetTimeout = 30 * time.Second
)

// outcome is one recorded dispatch result in the sliding window.
type outcome struct {
	success bool
	latency time.Duration
	at      time.Time
}

// Config parameterizes a Breaker.
type Config struct {
	// WindowSize is the number of recent outcomes considered for the
	// failure rate.
	WindowSize int `mapstructure:"window_size"`
	// Threshold is the failure fraction (0-1) that trips the circuit.
	Threshold float64 `mapstructure:"threshold"`
	// ResetTimeout is how long an open circuit waits before allowing a
	// half-open probe.
	ResetTimeout time.Duration `mapstructure:"reset_timeout"`
}

// withDefaults fills zero values.
func (c Config) withDefaults() Config {
	if c.WindowSize <= 0 {
		c.WindowSize = DefaultWindowSize
	}
	if c.Threshold <= 0 || c.Threshold > 1 {
		c.Threshold = DefaultThreshold
	}
	if c.ResetTimeout <= 0 {
		c.ResetTimeout = DefaultResetTimeout
	}
	return c
}

// StateChangeFunc observes a state transition. Callbacks run on their own
// goroutine, fire-and-forget: they can never block a recording caller.
type StateChangeFunc func(from, to State, at time.Time)

// Metrics is a snapshot of lifetime breaker counters.
type Metrics struct {
	State               State         `json:"state"`
	TotalCalls          uint64        `json:"total_calls"`
	TotalSuccesses      uint64        `json:"total_successes"`
	TotalFailures       uint64        `json:"total_failures"`
	SuccessRate         float64       `json:"success_rate"`
	AverageLatency      time.Duration `json:"average_latency"`
	ConsecutiveFailures int           `json:"consecutive_failures"`
	WindowFailureRate   float64       `json:"window_failure_rate"`
	NextRetry           time.Time     `json:"next_retry,omitempty"`
}

// Health reports whether the circuit is healthy and which way the failure
// rate is trending across the window.
type Health struct {
	Healthy bool  `json:"healthy"`
	Trend   Trend `json:"trend"`
}

// Breaker is a circuit breaker protecting one dispatch path. All state
// transitions are atomic with respect to concurrent success/failure
// reporting: a single mutex guards the window and the state machine.
//
// The state machine: closed -> open when the failure rate inside the full
// sliding window meets the threshold; open -> half-open lazily once the
// reset timeout has elapsed (checked on State/Allow); half-open -> closed
// on the next success, half-open -> open on the next failure.
type Breaker struct {
	mu sync.Mutex

	name string
	cfg  Config

	state               State
	window              []outcome // ring of the last WindowSize outcomes
	next                int
	filled              bool
	consecutiveFailures int
	lastFailure         time.Time
	nextRetry           time.Time

	totalSuccesses uint64
	totalFailures  uint64
	totalLatency   time.Duration

	onChange []StateChangeFunc
	logger   *logging.Logger
	now      func() time.Time // test seam
}

// New creates a closed Breaker for the named dispatch path.
func New(name string, cfg Config, logger *logging.Logger) *Breaker {
	if logger == nil {
		logger = logging.NopLogger()
	}
	cfg = cfg.withDefaults()
	return &Breaker{
		name:   name,
		cfg:    cfg,
		state:  StateClosed,
		window: make([]outcome, cfg.WindowSize),
		logger: logger.WithComponent("breaker").With("path", name),
		now:    time.Now,
	}
}

// Name returns the protected path name.
func (b *Breaker) Name() string { return b.name }

// OnStateChange registers a transition callback. Callbacks are invoked on a
// separate goroutine and must never be relied on for ordering.
func (b *Breaker) OnStateChange(fn StateChangeFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onChange = append(b.onChange, fn)
}

// Allow reports whether a dispatch may proceed right now. An open circuit
// whose reset timeout has elapsed transitions to half-open and allows one
// probe.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.maybeHalfOpenLocked()
	return b.state != StateOpen
}

// State returns the current state, performing the lazy open -> half-open
// check first.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.maybeHalfOpenLocked()
	return b.state
}

// IsOpen reports whether the circuit is open.
func (b *Breaker) IsOpen() bool { return b.State() == StateOpen }

// IsClosed reports whether the circuit is closed.
func (b *Breaker) IsClosed() bool { return b.State() == StateClosed }

// IsHalfOpen reports whether the circuit is half-open.
func (b *Breaker) IsHalfOpen() bool { return b.State() == StateHalfOpen }

// NextRetry returns when an open circuit will next allow a probe.
// The zero time means the circuit is not open.
func (b *Breaker) NextRetry() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != StateOpen {
		return time.Time{}
	}
	return b.nextRetry
}

// RecordSuccess records a successful dispatch. While closed it resets the
// consecutive-failure counter; while half-open it closes the circuit and
// clears the window so a stale failure rate cannot instantly re-trip it.
func (b *Breaker) RecordSuccess(latency time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.maybeHalfOpenLocked()
	b.push(outcome{success: true, latency: latency, at: b.now()})
	b.totalSuccesses++
	b.totalLatency += latency
	b.consecutiveFailures = 0

	if b.state == StateHalfOpen {
		b.clearWindowLocked()
		b.transitionLocked(StateClosed)
	}
}

// RecordFailure records a failed dispatch. It may trip a closed circuit to
// open once the window is full and the failure rate meets the threshold; a
// half-open circuit reopens immediately with a fresh reset deadline.
func (b *Breaker) RecordFailure(latency time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.maybeHalfOpenLocked()
	now := b.now()
	b.push(outcome{success: false, latency: latency, at: now})
	b.totalFailures++
	b.totalLatency += latency
	b.consecutiveFailures++
	b.lastFailure = now

	switch b.state {
	case StateHalfOpen:
		b.openLocked(now)
	case StateClosed:
		if b.filled && b.windowFailureRateLocked() >= b.cfg.Threshold {
			b.openLocked(now)
		}
	}
}

// Reset manually forces the circuit closed and clears the window.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.clearWindowLocked()
	b.consecutiveFailures = 0
	b.nextRetry = time.Time{}
	if b.state != StateClosed {
		b.transitionLocked(StateClosed)
	}
}

// Metrics returns lifetime totals alongside the current window failure rate.
func (b *Breaker) Metrics() Metrics {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.maybeHalfOpenLocked()
	total := b.totalSuccesses + b.totalFailures
	m := Metrics{
		State:               b.state,
		TotalCalls:          total,
		TotalSuccesses:      b.totalSuccesses,
		TotalFailures:       b.totalFailures,
		ConsecutiveFailures: b.consecutiveFailures,
		WindowFailureRate:   b.windowFailureRateLocked(),
	}
	if total > 0 {
		m.SuccessRate = float64(b.totalSuccesses) / float64(total)
		m.AverageLatency = b.totalLatency / time.Duration(total)
	}
	if b.state == StateOpen {
		m.NextRetry = b.nextRetry
	}
	return m
}

// HealthCheck reports whether the circuit is healthy (not open) and
// compares the failure rate of the older half of the window against the
// newer half to classify the trend.
func (b *Breaker) HealthCheck() Health {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.maybeHalfOpenLocked()
	h := Health{Healthy: b.state != StateOpen, Trend: TrendStable}

	outcomes := b.chronologicalLocked()
	if len(outcomes) < 4 {
		return h
	}

	mid := len(outcomes) / 2
	older := failureRate(outcomes[:mid])
	newer := failureRate(outcomes[mid:])

	const margin = 0.05
	switch {
	case newer < older-margin:
		h.Trend = TrendImproving
	case newer > older+margin:
		h.Trend = TrendDegrading
	}
	return h
}

// maybeHalfOpenLocked performs the lazy open -> half-open transition once
// the reset timeout has elapsed.
func (b *Breaker) maybeHalfOpenLocked() {
	if b.state == StateOpen && !b.now().Before(b.nextRetry) {
		b.transitionLocked(StateHalfOpen)
	}
}

// openLocked trips the circuit, always setting a next-retry time in the
// future.
func (b *Breaker) openLocked(now time.Time) {
	b.nextRetry = now.Add(b.cfg.ResetTimeout)
	b.transitionLocked(StateOpen)
}

// transitionLocked changes state and notifies observers without blocking.
func (b *Breaker) transitionLocked(to State) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	at := b.now()

	b.logger.Info("circuit state changed", "from", string(from), "to", string(to))

	for _, fn := range b.onChange {
		go fn(from, to, at)
	}
}

func (b *Breaker) push(o outcome) {
	b.window[b.next] = o
	b.next = (b.next + 1) % len(b.window)
	if b.next == 0 {
		b.filled = true
	}
}

func (b *Breaker) clearWindowLocked() {
	for i := range b.window {
		b.window[i] = outcome{}
	}
	b.next = 0
	b.filled = false
}

// chronologicalLocked returns recorded outcomes oldest-first.
func (b *Breaker) chronologicalLocked() []outcome {
	n := b.next
	if b.filled {
		n = len(b.window)
	}
	out := make([]outcome, 0, n)
	start := 0
	if b.filled {
		start = b.next
	}
	for i := 0; i < n; i++ {
		out = append(out, b.window[(start+i)%len(b.window)])
	}
	return out
}

func (b *Breaker) windowFailureRateLocked() float64 {
	return failureRate(b.chronologicalLocked())
}

func failureRate(outcomes []outcome) float64 {
	if len(outcomes) == 0 {
		return 0
	}
	failures := 0
	for _, o := range outcomes {
		if !o.success {
			failures++
		}
	}
	return float64(failures) / float64(len(outcomes))
}
