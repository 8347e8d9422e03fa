package adapters

import (
	"context"
	"encoding/json"
	"fmt"

	"holdfast/internal/platform/kafka/producer"
)

// KafkaResponder adapts the platform Kafka producer to the webhook
// collaborator: one topic per webhook topic, record payloads JSON-encoded.
type KafkaResponder struct {
	producer    *producer.Producer
	topicPrefix string
}

// NewKafkaResponder wraps a platform Kafka producer. The topic prefix
// namespaces webhook topics on a shared cluster.
func NewKafkaResponder(p *producer.Producer, topicPrefix string) *KafkaResponder {
	return &KafkaResponder{producer: p, topicPrefix: topicPrefix}
}

// Send publishes the payload to the webhook topic. An empty payload is a
// no-op.
func (r *KafkaResponder) Send(ctx context.Context, topic string, payload map[string]any) error {
	if len(payload) == 0 {
		return nil
	}
	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}
	var key []byte
	if id, ok := payload["record_id"].(string); ok {
		key = []byte(id)
	}
	return r.producer.Produce(ctx, &producer.Message{
		Topic: r.topicPrefix + topic,
		Key:   key,
		Value: value,
	})
}
