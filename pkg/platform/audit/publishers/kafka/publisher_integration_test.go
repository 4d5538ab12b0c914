//go:build integration

package kafka_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	id "attest/pkg/domain"
	audit "attest/pkg/platform/audit"
	"attest/pkg/platform/audit/publishers/kafka"
	"attest/pkg/testutil/containers"
)

type KafkaPublisherSuite struct {
	suite.Suite
	broker string
	ctx    context.Context
}

func TestKafkaPublisherSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(KafkaPublisherSuite))
}

func (s *KafkaPublisherSuite) SetupSuite() {
	s.broker = containers.GetManager().GetRedpanda(s.T()).Broker
	s.ctx = context.Background()
}

func (s *KafkaPublisherSuite) logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestProduceAndConsume verifies an appended event arrives on the topic as
// JSON keyed by project.
func (s *KafkaPublisherSuite) TestProduceAndConsume() {
	const topic = "audit-events-roundtrip"
	publisher, err := kafka.New(s.ctx, []string{s.broker}, topic, s.logger())
	s.Require().NoError(err)

	event := audit.Event{
		Category:  audit.CategoryCompliance,
		Timestamp: time.Now().UTC(),
		UserID:    id.NewUserID(),
		ProjectID: id.NewProjectID().String(),
		Subject:   "report:v1",
		Action:    "report_generated",
		RequestID: "req-123",
	}
	s.Require().NoError(publisher.Append(s.ctx, event))
	s.Require().NoError(publisher.Close())

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(s.broker),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer consumer.Close()

	ctx, cancel := context.WithTimeout(s.ctx, 30*time.Second)
	defer cancel()
	fetches := consumer.PollFetches(ctx)
	s.Require().Empty(fetches.Errors())
	records := fetches.Records()
	s.Require().Len(records, 1)

	s.Equal(event.ProjectID, string(records[0].Key))
	var got map[string]any
	s.Require().NoError(json.Unmarshal(records[0].Value, &got))
	s.Equal("compliance", got["category"])
	s.Equal("report_generated", got["action"])
	s.Equal(event.UserID.String(), got["user_id"])
	s.Equal("req-123", got["request_id"])
}

// TestTopicCreationIsIdempotent verifies connecting twice with the same
// topic does not fail on the second creation attempt.
func (s *KafkaPublisherSuite) TestTopicCreationIsIdempotent() {
	const topic = "audit-events-idempotent"
	first, err := kafka.New(s.ctx, []string{s.broker}, topic, s.logger())
	s.Require().NoError(err)
	s.Require().NoError(first.Close())

	second, err := kafka.New(s.ctx, []string{s.broker}, topic, s.logger())
	s.Require().NoError(err)
	s.Require().NoError(second.Close())
}
