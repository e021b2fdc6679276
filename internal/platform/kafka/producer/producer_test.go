package producer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitBrokers(t *testing.T) {
	assert.Equal(t, []string{"a:9092", "b:9092"}, SplitBrokers(" a:9092, ,b:9092 "))
	assert.Empty(t, SplitBrokers(""))
}

func TestToRecordCopiesHeaders(t *testing.T) {
	rec := toRecord(&Message{
		Topic:   "credreg.profile.credentials",
		Key:     []byte("GRECIPIENT"),
		Value:   []byte(`{}`),
		Headers: map[string]string{"event_type": "credential_added"},
	})
	assert.Equal(t, "credreg.profile.credentials", rec.Topic)
	require.Len(t, rec.Headers, 1)
	assert.Equal(t, "event_type", rec.Headers[0].Key)
	assert.Equal(t, "credential_added", string(rec.Headers[0].Value))
}

func TestNew_RequiresBrokers(t *testing.T) {
	_, err := New(Config{}, nil)
	assert.Error(t, err)
}
