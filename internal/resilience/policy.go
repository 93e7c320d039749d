package resilience

import (
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/99minutos/trustgate/internal/pkg/metrics"
)

// Policy holds the breakers and limiters built from a rule table. Its rule
// set is fixed at construction; the mutable breaker and limiter state inside
// is safe for concurrent use.
type Policy struct {
	breakers map[string]*Breaker
	limiters map[string]*rate.Limiter
	now      func() time.Time
	log      zerolog.Logger
}

// PolicyOption customises NewPolicy.
type PolicyOption func(*Policy)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) PolicyOption {
	return func(p *Policy) { p.now = now }
}

// WithLogger sets the logger used for breaker transitions.
func WithLogger(l zerolog.Logger) PolicyOption {
	return func(p *Policy) { p.log = l }
}

// NewPolicy validates rules and builds one breaker per degrade rule and one
// token bucket per flow rule.
func NewPolicy(rules Rules, opts ...PolicyOption) (*Policy, error) {
	if err := rules.Validate(); err != nil {
		return nil, fmt.Errorf("resilience: %w", err)
	}

	p := &Policy{
		breakers: make(map[string]*Breaker, len(rules.Degrade)),
		limiters: make(map[string]*rate.Limiter, len(rules.Flow)),
		now:      time.Now,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}

	for _, r := range rules.Degrade {
		p.breakers[r.Resource] = newBreaker(r, p.now, p.onBreakerChange)
		metrics.BreakerState.WithLabelValues(r.Resource).Set(float64(StateClosed))
	}
	for _, r := range rules.Flow {
		perSecond := r.Threshold / r.window().Seconds()
		burst := int(math.Ceil(r.Threshold))
		if burst < 1 {
			burst = 1
		}
		p.limiters[r.Resource] = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
	return p, nil
}

// Breaker returns the breaker for resource, or nil when no degrade rule names it.
func (p *Policy) Breaker(resource string) *Breaker {
	if p == nil {
		return nil
	}
	return p.breakers[resource]
}

// Allow consumes one token from the flow rule for resource. Resources
// without a flow rule are always allowed.
func (p *Policy) Allow(resource string) bool {
	if p == nil {
		return true
	}
	lim, ok := p.limiters[resource]
	if !ok {
		return true
	}
	if !lim.AllowN(p.now(), 1) {
		metrics.FlowRejectedTotal.WithLabelValues(resource).Inc()
		return false
	}
	return true
}

// State reports the breaker state for resource; closed when unguarded.
func (p *Policy) State(resource string) State {
	if b := p.Breaker(resource); b != nil {
		return b.State()
	}
	return StateClosed
}

func (p *Policy) onBreakerChange(resource string, from, to State) {
	metrics.BreakerState.WithLabelValues(resource).Set(float64(to))
	metrics.BreakerTransitionsTotal.WithLabelValues(resource, to.String()).Inc()

	ev := p.log.Info()
	if to == StateOpen {
		ev = p.log.Warn()
	}
	ev.Str("resource", resource).
		Str("from", from.String()).
		Str("to", to.String()).
		Msg("circuit breaker state changed")
}
