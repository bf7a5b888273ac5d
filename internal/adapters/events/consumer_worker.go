package events

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/viralforge/mesh/services/data-ai/M60-feed-ranking-engine/internal/domain"
)

const TopicExperimentEvents = "experiment.events"

type Message struct {
	Topic   string
	Key     []byte
	Payload []byte
}

type Consumer interface {
	Poll(ctx context.Context, max int) ([]Message, error)
}

// ExperimentEventHandler ingests one raw experiment.event_recorded envelope.
type ExperimentEventHandler interface {
	HandleExperimentEventMessage(ctx context.Context, raw []byte) error
}

type ConsumerWorker struct {
	logger    *slog.Logger
	consumer  Consumer
	handler   ExperimentEventHandler
	topic     string
	interval  time.Duration
	batchSize int
}

func NewConsumerWorker(logger *slog.Logger, consumer Consumer, handler ExperimentEventHandler, topic string, interval time.Duration, batchSize int) *ConsumerWorker {
	if topic == "" {
		topic = TopicExperimentEvents
	}
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 50
	}
	return &ConsumerWorker{
		logger: logger, consumer: consumer, handler: handler, topic: topic, interval: interval, batchSize: batchSize,
	}
}

func (w *ConsumerWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if _, err := w.processOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			w.logger.ErrorContext(ctx, "consumer iteration failed",
				"module", "events.consumer_worker",
				"layer", "adapter",
				"operation", "process_once",
				"outcome", "failure",
				"error", err,
			)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// processOnce drains one batch and returns how many messages were recorded.
// Malformed or rejected messages are logged and skipped; the reader has
// already committed them.
func (w *ConsumerWorker) processOnce(ctx context.Context) (int, error) {
	msgs, err := w.consumer.Poll(ctx, w.batchSize)
	recorded := 0
	for _, msg := range msgs {
		if msg.Topic != w.topic {
			continue
		}
		if herr := w.handler.HandleExperimentEventMessage(ctx, msg.Payload); herr != nil {
			level := slog.LevelWarn
			if errors.Is(herr, domain.ErrDependencyUnavailable) {
				level = slog.LevelError
			}
			w.logger.Log(ctx, level, "experiment event rejected",
				"module", "events.consumer_worker",
				"layer", "adapter",
				"operation", "handle_experiment_event",
				"outcome", "skipped",
				"partition_key", string(msg.Key),
				"error", herr,
			)
			continue
		}
		recorded++
	}
	return recorded, err
}
