// Package kafka publishes audit events to a Kafka topic for tamper-evident
// off-box retention. The local store remains the synchronous system of
// record; Kafka delivery is asynchronous and best-effort from the caller's
// point of view, with errors surfaced through the returned promise.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "attest/pkg/platform/audit"
)

// Publisher implements audit.Store by producing JSON records onto one topic,
// keyed by project so a project's trail stays ordered within a partition.
type Publisher struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// New connects to the brokers and ensures the audit topic exists. Topic
// creation is idempotent; an "already exists" response is not an error.
func New(ctx context.Context, brokers []string, topic string, logger *slog.Logger) (*Publisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
		kgo.ProduceRequestTimeout(10*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	admin := kadm.NewClient(client)
	resp, err := admin.CreateTopic(ctx, -1, -1, nil, topic)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("ensure audit topic: %w", err)
	}
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		client.Close()
		return nil, fmt.Errorf("ensure audit topic %q: %w", topic, resp.Err)
	}

	return &Publisher{client: client, topic: topic, logger: logger}, nil
}

type record struct {
	Category  string    `json:"category"`
	Timestamp time.Time `json:"timestamp"`
	UserID    string    `json:"user_id,omitempty"`
	ProjectID string    `json:"project_id,omitempty"`
	Subject   string    `json:"subject,omitempty"`
	Action    string    `json:"action"`
	Reason    string    `json:"reason,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	ClientIP  string    `json:"client_ip,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
}

// Append produces one event. Delivery errors are logged from the produce
// callback; the call itself does not block on broker acknowledgement.
func (p *Publisher) Append(ctx context.Context, event audit.Event) error {
	payload, err := json.Marshal(record{
		Category:  string(event.Category),
		Timestamp: event.Timestamp,
		UserID:    userIDString(event),
		ProjectID: event.ProjectID,
		Subject:   event.Subject,
		Action:    event.Action,
		Reason:    event.Reason,
		RequestID: event.RequestID,
		ClientIP:  event.ClientIP,
		UserAgent: event.UserAgent,
	})
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	p.client.Produce(ctx, &kgo.Record{
		Topic: p.topic,
		Key:   []byte(event.ProjectID),
		Value: payload,
	}, func(_ *kgo.Record, err error) {
		if err != nil {
			p.logger.Warn("audit kafka produce failed",
				"action", event.Action,
				"project_id", event.ProjectID,
				"error", err,
			)
		}
	})
	return nil
}

func userIDString(event audit.Event) string {
	if event.UserID.IsNil() {
		return ""
	}
	return event.UserID.String()
}

// Close flushes outstanding records and releases the client.
func (p *Publisher) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.client.Flush(ctx); err != nil {
		return err
	}
	p.client.Close()
	return nil
}
