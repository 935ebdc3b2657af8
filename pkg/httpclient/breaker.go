package httpclient

import (
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-kratos/kratos/v2/log"
)

// State represents the circuit breaker state.
type State int32

// Circuit breaker states.
const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

// String returns the lowercase state name used in logs.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Breaker is a per-destination circuit breaker. All calls to the same
// backend host share one Breaker, so a failing destination is cut off
// without affecting calls to healthy destinations.
//
// State rules:
//   - CLOSED: calls pass through. Reaching failureThreshold consecutive
//     failures opens the circuit.
//   - OPEN: calls are rejected immediately. After openTimeout has elapsed
//     since the last failure, the next call is admitted as a trial and the
//     breaker moves to HALF_OPEN (failure count resets for the trial).
//   - HALF_OPEN: exactly one trial is in flight; concurrent calls are
//     rejected. Trial success closes the circuit, trial failure re-opens it.
type Breaker struct {
	mu sync.Mutex

	destination      string
	failureThreshold int
	openTimeout      time.Duration

	state           State
	failureCount    int
	lastFailureTime time.Time
	trialInFlight   bool

	now    func() time.Time
	logger *log.Helper
}

func newBreaker(destination string, failureThreshold int, openTimeout time.Duration, logger *log.Helper) *Breaker {
	return &Breaker{
		destination:      destination,
		failureThreshold: failureThreshold,
		openTimeout:      openTimeout,
		state:            StateClosed,
		now:              time.Now,
		logger:           logger,
	}
}

// Allow checks whether a call to the destination may proceed. It returns a
// CircuitOpenError without any network attempt when the circuit is open, or
// nil when the call is admitted (including the single half-open trial).
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return nil

	case StateOpen:
		elapsed := b.now().Sub(b.lastFailureTime)
		if elapsed <= b.openTimeout {
			return &CircuitOpenError{
				Destination: b.destination,
				RetryAfter:  b.openTimeout - elapsed,
			}
		}
		// Open timeout elapsed: admit this call as the trial.
		b.transition(StateHalfOpen)
		b.failureCount = 0
		b.trialInFlight = true
		return nil

	case StateHalfOpen:
		if b.trialInFlight {
			return &CircuitOpenError{
				Destination: b.destination,
				RetryAfter:  b.openTimeout,
			}
		}
		b.trialInFlight = true
		return nil

	default:
		return nil
	}
}

// ReportSuccess records one successful logical call and closes the circuit.
func (b *Breaker) ReportSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failureCount = 0
	b.trialInFlight = false
	if b.state != StateClosed {
		b.transition(StateClosed)
	}
}

// ReportFailure records one failed logical call (retries already exhausted).
func (b *Breaker) ReportFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastFailureTime = b.now()

	if b.state == StateHalfOpen {
		// The trial failed: straight back to open.
		b.trialInFlight = false
		b.transition(StateOpen)
		return
	}

	b.failureCount++
	if b.state == StateClosed && b.failureCount >= b.failureThreshold {
		b.transition(StateOpen)
	}
}

// State returns the current breaker state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// FailureCount returns the current consecutive failure count.
func (b *Breaker) FailureCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failureCount
}

// transition switches state and logs the change. Callers hold b.mu.
func (b *Breaker) transition(to State) {
	from := b.state
	b.state = to
	if b.logger == nil {
		return
	}
	switch to {
	case StateOpen:
		b.logger.Warnw("msg", "circuit breaker opened",
			"destination", b.destination,
			"failure_count", b.failureCount,
			"from", from.String(),
			"type", "circuit")
	default:
		b.logger.Infow("msg", "circuit breaker state changed",
			"destination", b.destination,
			"from", from.String(),
			"to", to.String(),
			"type", "circuit")
	}
}

// breakerRegistry holds one Breaker per destination. It is owned by a
// Client instance, not a package-level global, so breaker state is scoped
// to whoever constructed the client.
type breakerRegistry struct {
	mu       sync.Mutex
	breakers map[string]*Breaker

	failureThreshold int
	openTimeout      time.Duration
	logger           *log.Helper
}

func newBreakerRegistry(failureThreshold int, openTimeout time.Duration, logger *log.Helper) *breakerRegistry {
	return &breakerRegistry{
		breakers:         make(map[string]*Breaker),
		failureThreshold: failureThreshold,
		openTimeout:      openTimeout,
		logger:           logger,
	}
}

// get returns the breaker for a destination key, creating it on first use.
func (r *breakerRegistry) get(destination string) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.breakers[destination]; ok {
		return b
	}
	b := newBreaker(destination, r.failureThreshold, r.openTimeout, r.logger)
	r.breakers[destination] = b
	return b
}

// destinationKey derives the breaker key from a request URL: scheme+host,
// never the full URL, so all calls to the same backend share breaker state.
func destinationKey(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		// No parseable host: fall back to the prefix before the first path
		// segment, mirroring how the key degrades for bare host strings.
		if i := strings.IndexByte(rawURL, '/'); i > 0 && !strings.Contains(rawURL[:i], ":") {
			return rawURL[:i]
		}
		return rawURL
	}
	if u.Scheme == "" {
		return u.Host
	}
	return u.Scheme + "://" + u.Host
}
