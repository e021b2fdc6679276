package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Auth denial reasons.
const (
	DenialUnauthenticated = "unauthenticated"
	DenialNotAdmin        = "not_admin"
)

// Verify outcomes.
const (
	VerifyValid    = "valid"
	VerifyRevoked  = "revoked"
	VerifyNotFound = "not_found"
)

// Metrics holds the registry's Prometheus collectors.
type Metrics struct {
	CredentialsIssued  prometheus.Counter
	CredentialsRevoked prometheus.Counter
	VerifyOutcomes     *prometheus.CounterVec
	AuthDenials        *prometheus.CounterVec
	OperationLatency   *prometheus.HistogramVec
	NotifyFailures     prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		CredentialsIssued: f.NewCounter(prometheus.CounterOpts{
			Name: "credreg_credentials_issued_total",
			Help: "Total number of credentials issued",
		}),
		CredentialsRevoked: f.NewCounter(prometheus.CounterOpts{
			Name: "credreg_credentials_revoked_total",
			Help: "Total number of revoke calls that committed",
		}),
		VerifyOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "credreg_verify_total",
			Help: "Verify calls labeled by outcome",
		}, []string{"outcome"}),
		AuthDenials: f.NewCounterVec(prometheus.CounterOpts{
			Name: "credreg_auth_denials_total",
			Help: "Rejected mutation attempts labeled by reason",
		}, []string{"reason"}),
		OperationLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "credreg_operation_latency_seconds",
			Help:    "Latency of registry lifecycle operations in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		NotifyFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "credreg_profile_notify_failures_total",
			Help: "Profile notifications that failed after a committed issue",
		}),
	}
}

func (m *Metrics) IncrementIssued() {
	m.CredentialsIssued.Inc()
}

func (m *Metrics) IncrementRevoked() {
	m.CredentialsRevoked.Inc()
}

func (m *Metrics) IncrementVerify(outcome string) {
	m.VerifyOutcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncrementAuthDenial(reason string) {
	m.AuthDenials.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncrementNotifyFailures() {
	m.NotifyFailures.Inc()
}

// ObserveOperationLatency records the latency for a lifecycle operation.
func (m *Metrics) ObserveOperationLatency(operation string, durationSeconds float64) {
	m.OperationLatency.WithLabelValues(operation).Observe(durationSeconds)
}
