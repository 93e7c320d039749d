package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/99minutos/trustgate/internal/core/domain"
	"github.com/99minutos/trustgate/internal/pkg/metrics"
)

var (
	ErrCircuitOpen = errors.New("circuit open")
	ErrFlowLimited = errors.New("flow limit exceeded")
)

// Degradation reasons.
const (
	ReasonError       = "error"
	ReasonOpen        = "open"
	ReasonRateLimited = "rate_limited"
)

// DegradedError accompanies a fallback value. It matches
// domain.ErrServiceUnavailable and its Cause through errors.Is.
type DegradedError struct {
	Resource string
	Reason   string
	Cause    error
}

func (e *DegradedError) Error() string {
	return fmt.Sprintf("%s degraded (%s): %v", e.Resource, e.Reason, e.Cause)
}

func (e *DegradedError) Unwrap() []error {
	return []error{domain.ErrServiceUnavailable, e.Cause}
}

// Wrapper guards calls to one named resource with the policy's flow rule and
// breaker, bounds each call with a timeout and substitutes a fallback value
// for any failure. Do never returns a raw transport error: a non-nil error
// is always a *DegradedError delivered together with the fallback value.
type Wrapper[T any] struct {
	resource string
	policy   *Policy
	timeout  time.Duration
	fallback func(ctx context.Context, cause error) T
}

// NewWrapper builds a Wrapper. A zero timeout leaves the caller's deadline
// in charge; policy may be nil for an unguarded resource.
func NewWrapper[T any](resource string, policy *Policy, timeout time.Duration, fallback func(ctx context.Context, cause error) T) *Wrapper[T] {
	return &Wrapper[T]{
		resource: resource,
		policy:   policy,
		timeout:  timeout,
		fallback: fallback,
	}
}

// Resource returns the guarded resource name.
func (w *Wrapper[T]) Resource() string { return w.resource }

// Do runs call under the policy. A single attempt is made; there is no retry.
func (w *Wrapper[T]) Do(ctx context.Context, call func(ctx context.Context) (T, error)) (T, error) {
	if !w.policy.Allow(w.resource) {
		return w.degrade(ctx, ReasonRateLimited, ErrFlowLimited)
	}

	br := w.policy.Breaker(w.resource)
	if br != nil && !br.Allow() {
		return w.degrade(ctx, ReasonOpen, ErrCircuitOpen)
	}

	callCtx := ctx
	if w.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	v, err := call(callCtx)
	if br != nil {
		br.Done(outcomeOf(ctx, err))
	}
	if err != nil {
		return w.degrade(ctx, ReasonError, err)
	}
	return v, nil
}

// outcomeOf does not hold a caller's own cancellation against the dependency.
func outcomeOf(parent context.Context, err error) Outcome {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, context.Canceled) && parent.Err() != nil:
		return OutcomeIgnored
	default:
		return OutcomeFailure
	}
}

func (w *Wrapper[T]) degrade(ctx context.Context, reason string, cause error) (T, error) {
	metrics.FallbacksTotal.WithLabelValues(w.resource, reason).Inc()
	return w.fallback(ctx, cause), &DegradedError{Resource: w.resource, Reason: reason, Cause: cause}
}
