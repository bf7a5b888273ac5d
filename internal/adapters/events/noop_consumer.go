package events

import "context"

// NoopConsumer is used when Kafka ingestion is disabled; HTTP ingestion
// still works.
type NoopConsumer struct{}

func NewNoopConsumer() *NoopConsumer {
	return &NoopConsumer{}
}

func (NoopConsumer) Poll(context.Context, int) ([]Message, error) {
	return nil, nil
}
