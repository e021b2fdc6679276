package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.IncrementIssued()
	m.IncrementIssued()
	m.IncrementRevoked()
	m.IncrementVerify(VerifyRevoked)
	m.IncrementAuthDenial(DenialNotAdmin)
	m.ObserveOperationLatency("issue", 0.01)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CredentialsIssued))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CredentialsRevoked))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.VerifyOutcomes.WithLabelValues(VerifyRevoked)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.VerifyOutcomes.WithLabelValues(VerifyValid)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AuthDenials.WithLabelValues(DenialNotAdmin)))
	assert.Equal(t, 1, testutil.CollectAndCount(m.OperationLatency))
}
