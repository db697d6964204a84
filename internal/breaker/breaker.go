package breaker

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrOpen is returned without invoking the operation while the breaker is
// open. Callers must treat it as "backend state unknown", never as success.
var ErrOpen = errors.New("circuit breaker is open")

// ErrTimeout is the failure recorded when an operation outlives the
// per-call timeout.
var ErrTimeout = errors.New("circuit breaker: operation timed out")

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

// Options tune a breaker. Zero values fall back to the defaults below.
type Options struct {
	// Timeout races every operation; exceeding it counts as a failure.
	Timeout time.Duration
	// ErrorThresholdPercentage is the failure rate (0-100) above which the
	// breaker trips, once RequestVolumeThreshold requests have been seen.
	ErrorThresholdPercentage float64
	// RequestVolumeThreshold is the minimum request count in the current
	// window before the failure rate is considered at all.
	RequestVolumeThreshold int
	// SleepWindow is how long an open breaker fails fast before letting a
	// single trial call through.
	SleepWindow time.Duration
	// Interval restarts the rolling count window while closed.
	Interval time.Duration
}

// CircuitBreaker wraps calls to one backend connection with timeout,
// failure counting and trip/half-open/reset state. It holds no persistence
// and is scoped to that connection for its whole lifetime.
type CircuitBreaker struct {
	name string
	opts Options

	// onStateChange, when set, observes transitions (metrics hook).
	onStateChange func(name string, from, to State)

	mu            sync.Mutex
	state         State
	requests      int
	failures      int
	windowStart   time.Time
	openedAt      time.Time
	trialInFlight bool
}

func New(name string, opts Options) *CircuitBreaker {
	if opts.Timeout <= 0 {
		opts.Timeout = 3 * time.Second
	}
	if opts.ErrorThresholdPercentage <= 0 {
		opts.ErrorThresholdPercentage = 50
	}
	if opts.RequestVolumeThreshold <= 0 {
		opts.RequestVolumeThreshold = 5
	}
	if opts.SleepWindow <= 0 {
		opts.SleepWindow = 5 * time.Second
	}
	if opts.Interval <= 0 {
		opts.Interval = time.Minute
	}
	return &CircuitBreaker{
		name:        name,
		opts:        opts,
		state:       StateClosed,
		windowStart: time.Now(),
	}
}

// OnStateChange registers a callback invoked on every state transition.
func (cb *CircuitBreaker) OnStateChange(fn func(name string, from, to State)) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.onStateChange = fn
}

// State returns the current state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Execute runs op under the breaker, racing it against the configured
// timeout. While open it fails fast with ErrOpen; after the sleep window
// it lets exactly one trial through.
func (cb *CircuitBreaker) Execute(ctx context.Context, op func(ctx context.Context) error) error {
	trial, err := cb.beforeRequest()
	if err != nil {
		return err
	}

	opCtx, cancel := context.WithTimeout(ctx, cb.opts.Timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- op(opCtx) }()

	var opErr error
	select {
	case opErr = <-done:
	case <-opCtx.Done():
		// Caller cancellation says nothing about backend health; only a
		// breaker timeout counts against it.
		if err := ctx.Err(); err != nil {
			cb.abortRequest(trial)
			return err
		}
		opErr = ErrTimeout
	}

	cb.afterRequest(trial, opErr == nil)
	return opErr
}

// abortRequest undoes the admission bookkeeping for a call that produced
// no verdict on the backend.
func (cb *CircuitBreaker) abortRequest(trial bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if trial {
		cb.trialInFlight = false
		return
	}
	if cb.state == StateClosed && cb.requests > 0 {
		cb.requests--
	}
}

// beforeRequest admits or rejects the call. The bool reports whether the
// call is the half-open trial.
func (cb *CircuitBreaker) beforeRequest() (bool, error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	now := time.Now()
	switch cb.state {
	case StateOpen:
		if now.Sub(cb.openedAt) < cb.opts.SleepWindow {
			return false, ErrOpen
		}
		cb.setState(StateHalfOpen)
		cb.trialInFlight = true
		return true, nil

	case StateHalfOpen:
		// One trial at a time.
		if cb.trialInFlight {
			return false, ErrOpen
		}
		cb.trialInFlight = true
		return true, nil

	default:
		if now.Sub(cb.windowStart) >= cb.opts.Interval {
			cb.requests = 0
			cb.failures = 0
			cb.windowStart = now
		}
		cb.requests++
		return false, nil
	}
}

func (cb *CircuitBreaker) afterRequest(trial, success bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if trial {
		cb.trialInFlight = false
		if success {
			cb.reset()
		} else {
			cb.trip()
		}
		return
	}

	if cb.state != StateClosed {
		// A pre-trip in-flight call finishing late; the verdict belongs to
		// the window that already closed.
		return
	}

	if !success {
		cb.failures++
		if cb.readyToTrip() {
			cb.trip()
		}
	}
}

func (cb *CircuitBreaker) readyToTrip() bool {
	if cb.requests < cb.opts.RequestVolumeThreshold {
		return false
	}
	rate := float64(cb.failures) / float64(cb.requests) * 100
	return rate > cb.opts.ErrorThresholdPercentage
}

func (cb *CircuitBreaker) trip() {
	cb.setState(StateOpen)
	cb.openedAt = time.Now()
	cb.requests = 0
	cb.failures = 0
}

func (cb *CircuitBreaker) reset() {
	cb.setState(StateClosed)
	cb.requests = 0
	cb.failures = 0
	cb.windowStart = time.Now()
}

func (cb *CircuitBreaker) setState(to State) {
	from := cb.state
	if from == to {
		return
	}
	cb.state = to
	if cb.onStateChange != nil {
		cb.onStateChange(cb.name, from, to)
	}
}
