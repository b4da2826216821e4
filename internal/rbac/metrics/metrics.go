// Package metrics defines the Prometheus metrics for the authorization path.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for role authorization.
type Metrics struct {
	AuthorizationAttempts *prometheus.CounterVec
	CacheHits             prometheus.Counter
	CacheMisses           prometheus.Counter
	CredentialRequests    prometheus.Counter
	CredentialTimeouts    prometheus.Counter
	ProtocolViolations    prometheus.Counter
	VerificationFailures  *prometheus.CounterVec
	AuthorizationLatency  prometheus.Histogram
}

// New creates and registers the authorization metrics.
func New() *Metrics {
	return &Metrics{
		AuthorizationAttempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "warrant_authorization_attempts_total",
			Help: "Total authorization attempts, labeled by outcome",
		}, []string{"outcome"}),
		CacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "warrant_role_cache_hits_total",
			Help: "Total role cache hits",
		}),
		CacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "warrant_role_cache_misses_total",
			Help: "Total role cache misses",
		}),
		CredentialRequests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "warrant_credential_requests_total",
			Help: "Total outbound credential requests",
		}),
		CredentialTimeouts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "warrant_credential_request_timeouts_total",
			Help: "Total credential requests that exceeded their deadline",
		}),
		ProtocolViolations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "warrant_protocol_violations_total",
			Help: "Total responses rejected for nonce mismatch or malformed shape",
		}),
		VerificationFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "warrant_verification_failures_total",
			Help: "Total failed presentation verifications, labeled by role",
		}, []string{"role"}),
		AuthorizationLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "warrant_authorization_latency_seconds",
			Help:    "End-to-end latency of authorization attempts in seconds",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// Outcome labels for AuthorizationAttempts.
const (
	OutcomeGranted = "granted"
	OutcomeDenied  = "denied"
	OutcomeTimeout = "timeout"
	OutcomeError   = "error"
)
