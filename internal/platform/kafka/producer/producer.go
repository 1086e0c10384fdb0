// Package producer provides the Kafka producer used for routed appointment
// messages and completion events.
package producer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Producer publishes JSON payloads to Kafka. Publishing is synchronous: the
// caller learns about broker failures immediately and owns the compensation
// decision.
type Producer struct {
	client *kgo.Client
	logger *slog.Logger
}

// New creates a producer connected to the given brokers. Records are
// acknowledged by all in-sync replicas before Publish returns.
func New(brokers []string, logger *slog.Logger) (*Producer, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return &Producer{client: client, logger: logger}, nil
}

// Publish marshals payload as JSON and produces it to topic with the given
// key. Returns a delivery identifier of the form topic/partition@offset.
func (p *Producer) Publish(ctx context.Context, topic, key string, payload any) (string, error) {
	value, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload for %s: %w", topic, err)
	}

	record := &kgo.Record{Topic: topic, Key: []byte(key), Value: value}
	res := p.client.ProduceSync(ctx, record)
	produced, err := res.First()
	if err != nil {
		return "", fmt.Errorf("produce to %s: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published message",
		"topic", produced.Topic,
		"partition", produced.Partition,
		"offset", produced.Offset,
		"key", key,
	)
	return fmt.Sprintf("%s/%d@%d", produced.Topic, produced.Partition, produced.Offset), nil
}

// Close flushes buffered records and releases the client.
func (p *Producer) Close() {
	p.client.Close()
}
