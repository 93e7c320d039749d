// Package metrics defines and registers all custom Prometheus metrics for the
// trust-propagation layer. It is the single source of truth for metric names,
// labels, and help strings.
//
// Collectors are registered with the default Prometheus registry through
// promauto at package initialisation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "trustgate"

// ── Token service ─────────────────────────────────────────────────────────────

// LoginsTotal counts login attempts.
// Label:
//   - result: "success" or "failure"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// RegistrationsTotal counts registration attempts.
// Label:
//   - result: "created" or "taken"
var RegistrationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "registrations_total",
		Help:      "Total number of registration attempts, by result.",
	},
	[]string{"result"},
)

// VerificationsTotal counts token verifications answered by the token service.
// Label:
//   - result: "valid", "invalid" or "error"
var VerificationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "verifications_total",
		Help:      "Total number of token verifications, by result.",
	},
	[]string{"result"},
)

// ── Filters ───────────────────────────────────────────────────────────────────

// EdgeDecisionsTotal counts edge filter outcomes.
// Label:
//   - decision: "exempt", "authenticated", "missing_credentials", "rejected", "unavailable"
var EdgeDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "edge_decisions_total",
		Help:      "Total number of edge authentication decisions.",
	},
	[]string{"decision"},
)

// EdgeVerifyDuration measures the remote verification round-trip at the edge.
var EdgeVerifyDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "edge_verify_duration_seconds",
		Help:      "Duration of remote token verification calls made by the edge.",
		Buckets:   prometheus.DefBuckets,
	},
)

// TrustPathTotal counts how the downstream trust filter established identity.
// Label:
//   - path: "fast", "slow", "slow_rejected", "anonymous"
var TrustPathTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "trust_path_total",
		Help:      "Total number of requests by trust path taken.",
	},
	[]string{"path"},
)

// ── Resilience ────────────────────────────────────────────────────────────────

// BreakerState reports the current circuit state per resource
// (0 = closed, 1 = half-open, 2 = open).
var BreakerState = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "breaker_state",
		Help:      "Circuit breaker state per resource (0 closed, 1 half-open, 2 open).",
	},
	[]string{"resource"},
)

// BreakerTransitionsTotal counts circuit state changes.
var BreakerTransitionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "breaker_transitions_total",
		Help:      "Total number of circuit breaker state transitions.",
	},
	[]string{"resource", "to"},
)

// FallbacksTotal counts fallback values served instead of a real result.
// Label:
//   - reason: "error", "open", "rate_limited"
var FallbacksTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "fallbacks_total",
		Help:      "Total number of fallback responses served, by resource and reason.",
	},
	[]string{"resource", "reason"},
)

// FlowRejectedTotal counts requests rejected by a flow rule.
var FlowRejectedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "flow_rejected_total",
		Help:      "Total number of requests rejected by flow rules.",
	},
	[]string{"resource"},
)

// AuditDropsTotal counts audit events dropped because a worker queue was full.
var AuditDropsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_events_dropped_total",
		Help:      "Total number of audit events dropped due to a full queue.",
	},
)
