package resilience

import (
	"sync"
	"time"
)

// State is the circuit state of a Breaker.
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half_open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Outcome is the result of a call admitted by a Breaker.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeFailure
	// OutcomeIgnored releases the permit without counting the call, e.g.
	// when the caller went away before the dependency answered.
	OutcomeIgnored
)

const windowBuckets = 10

type bucket struct {
	start    int64
	total    int
	failures int
}

// Breaker is an exception-ratio circuit breaker over a trailing window.
//
// Closed: calls flow; once at least MinSamples calls were seen in the window
// and the failure ratio exceeds Threshold the breaker opens.
// Open: calls are refused until the cooldown elapses, then it turns half-open.
// Half-open: up to TrialCalls calls are admitted; the first success closes
// the breaker, the first failure reopens it.
//
// A Breaker is safe for concurrent use.
type Breaker struct {
	resource   string
	threshold  float64
	minSamples int
	cooldown   time.Duration
	trialCalls int
	width      time.Duration
	now        func() time.Time
	onChange   func(resource string, from, to State)

	mu       sync.Mutex
	state    State
	buckets  [windowBuckets]bucket
	openedAt time.Time
	trials   int
}

func newBreaker(rule Rule, now func() time.Time, onChange func(string, State, State)) *Breaker {
	width := rule.window() / windowBuckets
	if width <= 0 {
		width = time.Millisecond
	}
	return &Breaker{
		resource:   rule.Resource,
		threshold:  rule.Threshold,
		minSamples: rule.MinSamples,
		cooldown:   rule.cooldown(),
		trialCalls: rule.trialCalls(),
		width:      width,
		now:        now,
		onChange:   onChange,
	}
}

// Resource returns the name of the guarded resource.
func (b *Breaker) Resource() string { return b.resource }

// State returns the current state, applying a pending open → half-open move.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.maybeHalfOpen(b.now())
	return b.state
}

// Allow reports whether a call may proceed. Every admitted call must be
// followed by exactly one Done.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.maybeHalfOpen(b.now())
	switch b.state {
	case StateClosed:
		return true
	case StateHalfOpen:
		if b.trials < b.trialCalls {
			b.trials++
			return true
		}
		return false
	default:
		return false
	}
}

// Done records the outcome of a call admitted by Allow.
func (b *Breaker) Done(outcome Outcome) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	switch b.state {
	case StateHalfOpen:
		switch outcome {
		case OutcomeSuccess:
			b.reset()
			b.transition(StateClosed, now)
		case OutcomeFailure:
			b.transition(StateOpen, now)
		default:
			if b.trials > 0 {
				b.trials--
			}
		}
	case StateClosed:
		if outcome == OutcomeIgnored {
			return
		}
		bk := b.bucketAt(now)
		bk.total++
		if outcome == OutcomeFailure {
			bk.failures++
		}
		total, failures := b.totals(now)
		if total >= b.minSamples && float64(failures)/float64(total) > b.threshold {
			b.transition(StateOpen, now)
		}
	}
	// Results arriving while open belong to calls admitted before the trip.
}

func (b *Breaker) maybeHalfOpen(now time.Time) {
	if b.state == StateOpen && now.Sub(b.openedAt) >= b.cooldown {
		b.transition(StateHalfOpen, now)
	}
}

func (b *Breaker) transition(to State, now time.Time) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	b.trials = 0
	if to == StateOpen {
		b.openedAt = now
	}
	if b.onChange != nil {
		b.onChange(b.resource, from, to)
	}
}

func (b *Breaker) reset() {
	b.buckets = [windowBuckets]bucket{}
}

func (b *Breaker) bucketAt(now time.Time) *bucket {
	slot := now.UnixNano() / int64(b.width)
	bk := &b.buckets[slot%windowBuckets]
	if bk.start != slot {
		*bk = bucket{start: slot}
	}
	return bk
}

func (b *Breaker) totals(now time.Time) (total, failures int) {
	current := now.UnixNano() / int64(b.width)
	for _, bk := range b.buckets {
		if current-bk.start < windowBuckets {
			total += bk.total
			failures += bk.failures
		}
	}
	return total, failures
}
