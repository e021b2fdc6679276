// Package notify tells the user-profile service about newly issued
// credentials. Delivery is best effort and happens after the issuance commits.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"credreg/internal/platform/kafka/producer"
	"credreg/pkg/domain"
	"credreg/pkg/platform/middleware/requesttime"
	"credreg/pkg/requestcontext"
)

const eventCredentialAdded = "credential_added"

// CredentialAdded is the payload published for each issuance.
type CredentialAdded struct {
	Recipient    string    `json:"recipient"`
	CredentialID uint64    `json:"credential_id"`
	IssuedAt     time.Time `json:"issued_at"`
}

// KafkaNotifier publishes CredentialAdded records keyed by recipient, so all
// events for one recipient land on one partition in issuance order.
type KafkaNotifier struct {
	publisher producer.Publisher
	topic     string
}

func NewKafka(publisher producer.Publisher, topic string) *KafkaNotifier {
	return &KafkaNotifier{publisher: publisher, topic: topic}
}

func (n *KafkaNotifier) RecordAdded(ctx context.Context, recipient domain.Identity, id domain.CredentialID) error {
	value, err := json.Marshal(CredentialAdded{
		Recipient:    recipient.String(),
		CredentialID: uint64(id),
		IssuedAt:     requesttime.Now(ctx),
	})
	if err != nil {
		return fmt.Errorf("marshal credential added: %w", err)
	}

	headers := map[string]string{"event_type": eventCredentialAdded}
	if rid := requestcontext.RequestID(ctx); rid != "" {
		headers["request_id"] = rid
	}
	return n.publisher.Produce(ctx, &producer.Message{
		Topic:   n.topic,
		Key:     []byte(recipient.String()),
		Value:   value,
		Headers: headers,
	})
}

// LogNotifier records the notification in the log. Used when no broker is
// configured.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLog(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) RecordAdded(ctx context.Context, recipient domain.Identity, id domain.CredentialID) error {
	n.logger.InfoContext(ctx, "profile notification",
		"event_type", eventCredentialAdded,
		"recipient", recipient.String(),
		"credential_id", id.String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	return nil
}
