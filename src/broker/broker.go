// Package broker carries metrics records from collect runs to the sink.
//
// A collect run in distributed mode publishes one message per record on
// contracts.TopicMetrics, keyed by job ID so a job's records share a
// partition and keep their order; the value is a JSON
// contracts.RecordEnvelope. The sink agent consumes the topic in a consumer
// group and writes the envelopes to the store.
package broker

import (
	"context"

	"test-metrics/src/logger"
)

// Broker publishes and consumes record messages.
type Broker interface {
	// Publish sends value on topic. The in-memory broker ignores key.
	Publish(ctx context.Context, topic string, key string, value []byte) error

	// Subscribe streams messages of topic until ctx ends or the broker
	// closes. groupID names the Redpanda consumer group.
	Subscribe(ctx context.Context, topic string, groupID string) (<-chan Message, error)

	Close() error
}

// Message is one consumed record message.
type Message struct {
	Topic     string
	Key       string
	Value     []byte
	Offset    int64
	Partition int32
	Timestamp int64
}

// New returns a RedpandaBroker when broker addresses are configured and an
// InMemoryBroker otherwise.
func New(brokers []string, log logger.Logger) (Broker, error) {
	if len(brokers) == 0 {
		return NewInMemoryBroker(), nil
	}
	return NewRedpandaBroker(brokers, log)
}
