package resilience

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// ErrOpenCircuit is returned when the circuit breaker refuses a request.
var ErrOpenCircuit = errors.New("resilience: circuit breaker open")

// State represents the current breaker state.
type State int

const (
	// Closed accepts all requests and tracks outcomes.
	Closed State = iota
	// Open rejects requests until the cool-off period expires.
	Open
	// HalfOpen lets a single probe through to test recovery.
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// gauge is the value exported on upstream_breaker_state.
func (s State) gauge() float64 {
	switch s {
	case Closed, Open, HalfOpen:
		return float64(s)
	default:
		return -1
	}
}

// Breaker guards one upstream (exchange rates, geolocation). It keeps the
// outcomes of the last 2*minRequests calls and opens once at least
// minRequests of them are recorded and the failure share reaches the ratio.
type Breaker struct {
	mu           sync.Mutex
	state        State
	window       []bool
	next         int
	filled       int
	minRequests  int
	failureRatio float64
	openFor      time.Duration
	openedAt     time.Time
	probing      bool
	target       string
	logger       zerolog.Logger
	now          func() time.Time
}

// NewBreaker constructs a closed breaker. Out-of-range arguments fall back
// to 1 request, a 0.5 ratio and a 30s cool-off.
func NewBreaker(minRequests int, failureRatio float64, openFor time.Duration) *Breaker {
	if minRequests <= 0 {
		minRequests = 1
	}
	if failureRatio <= 0 {
		failureRatio = 0.5
	}
	if failureRatio > 1 {
		failureRatio = 1
	}
	if openFor <= 0 {
		openFor = 30 * time.Second
	}
	return &Breaker{
		window:       make([]bool, 2*minRequests),
		minRequests:  minRequests,
		failureRatio: failureRatio,
		openFor:      openFor,
		logger:       zerolog.Nop(),
		now:          time.Now,
	}
}

// WithTarget sets the upstream name used in logs and metric labels.
func (b *Breaker) WithTarget(target string) *Breaker {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.target = strings.TrimSpace(target)
	b.publishLocked()
	return b
}

// WithLogger sets the fallback logger for transition events. A logger on the
// request context takes precedence.
func (b *Breaker) WithLogger(logger zerolog.Logger) *Breaker {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logger = logger
	return b
}

// WithClock replaces time.Now.
func (b *Breaker) WithClock(now func() time.Time) *Breaker {
	b.mu.Lock()
	defer b.mu.Unlock()
	if now != nil {
		b.now = now
	}
	return b
}

// Allow reports whether a call may proceed. Once the cool-off has elapsed an
// open breaker admits exactly one probe and moves to half-open; further
// calls are refused until that probe is reported.
func (b *Breaker) Allow(ctx context.Context) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Closed:
		return true
	case Open:
		if b.now().Sub(b.openedAt) < b.openFor {
			return false
		}
		b.transitionLocked(ctx, HalfOpen)
		b.probing = true
		return true
	default:
		if b.probing {
			return false
		}
		b.probing = true
		return true
	}
}

// Report records the outcome of an admitted call.
func (b *Breaker) Report(ctx context.Context, success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Open:
		return
	case HalfOpen:
		b.probing = false
		if success {
			b.transitionLocked(ctx, Closed)
		} else {
			b.transitionLocked(ctx, Open)
		}
		return
	}

	b.window[b.next] = !success
	b.next = (b.next + 1) % len(b.window)
	if b.filled < len(b.window) {
		b.filled++
	}
	if b.filled < b.minRequests {
		return
	}
	failures := 0
	for i := 0; i < b.filled; i++ {
		if b.window[i] {
			failures++
		}
	}
	if float64(failures)/float64(b.filled) >= b.failureRatio {
		b.transitionLocked(ctx, Open)
	}
}

// State returns the current state without side effects.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// StateName returns the current state as a label.
func (b *Breaker) StateName() string {
	return b.State().String()
}

// Target returns the upstream label.
func (b *Breaker) Target() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.label()
}

// RetryAt is when an open breaker will admit its next probe. Zero unless open.
func (b *Breaker) RetryAt() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != Open {
		return time.Time{}
	}
	return b.openedAt.Add(b.openFor)
}

func (b *Breaker) transitionLocked(ctx context.Context, to State) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	switch to {
	case Open:
		b.openedAt = b.now()
	case Closed:
		b.openedAt = time.Time{}
	}
	b.next, b.filled = 0, 0
	b.publishLocked()

	label := b.label()
	if BreakerTransitions != nil {
		BreakerTransitions.WithLabelValues(label, from.String(), to.String()).Inc()
	}
	if to == Open && BreakerOpenedTotal != nil {
		BreakerOpenedTotal.WithLabelValues(label).Inc()
	}

	logger := &b.logger
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		logger = l
	}
	evt := logger.Info().Str("target", label).Str("from_state", from.String()).Str("to_state", to.String())
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		evt = evt.Str("trace_id", sc.TraceID().String())
	}
	evt.Msg("upstream_breaker_transition")
}

func (b *Breaker) publishLocked() {
	if BreakerState != nil {
		BreakerState.WithLabelValues(b.label()).Set(b.state.gauge())
	}
}

func (b *Breaker) label() string {
	if b.target == "" {
		return "default"
	}
	return b.target
}
