package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"credreg/internal/platform/kafka/producer"
	"credreg/pkg/platform/middleware/requesttime"
	"credreg/pkg/requestcontext"
)

type capturePublisher struct {
	messages []*producer.Message
	err      error
}

func (p *capturePublisher) Produce(_ context.Context, msg *producer.Message) error {
	p.messages = append(p.messages, msg)
	return p.err
}
func (p *capturePublisher) Healthy(context.Context) bool { return true }
func (p *capturePublisher) Close() error                 { return nil }

func TestKafkaNotifier_PublishesKeyedByRecipient(t *testing.T) {
	pub := &capturePublisher{}
	n := NewKafka(pub, "credreg.profile.credentials")

	issuedAt := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx := requesttime.WithTime(context.Background(), issuedAt)
	ctx = requestcontext.WithRequestID(ctx, "req-1")

	require.NoError(t, n.RecordAdded(ctx, "GRECIPIENT", 42))
	require.Len(t, pub.messages, 1)

	msg := pub.messages[0]
	assert.Equal(t, "credreg.profile.credentials", msg.Topic)
	assert.Equal(t, "GRECIPIENT", string(msg.Key))
	assert.Equal(t, "credential_added", msg.Headers["event_type"])
	assert.Equal(t, "req-1", msg.Headers["request_id"])

	var payload CredentialAdded
	require.NoError(t, json.Unmarshal(msg.Value, &payload))
	assert.Equal(t, CredentialAdded{Recipient: "GRECIPIENT", CredentialID: 42, IssuedAt: issuedAt}, payload)
}

func TestKafkaNotifier_PropagatesProduceError(t *testing.T) {
	pub := &capturePublisher{err: errors.New("broker down")}
	err := NewKafka(pub, "t").RecordAdded(context.Background(), "GRECIPIENT", 1)
	assert.Error(t, err)
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := NewLog(slog.New(slog.NewJSONHandler(&buf, nil)))
	require.NoError(t, n.RecordAdded(context.Background(), "GRECIPIENT", 3))
	assert.Contains(t, buf.String(), `"credential_id":"3"`)
	assert.Contains(t, buf.String(), `"recipient":"GRECIPIENT"`)
}
