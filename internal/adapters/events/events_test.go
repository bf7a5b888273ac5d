package events

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/viralforge/mesh/services/data-ai/M60-feed-ranking-engine/internal/domain"
)

type scriptedConsumer struct {
	mu      sync.Mutex
	batches [][]Message
	err     error
	maxSeen int
}

func (c *scriptedConsumer) Poll(_ context.Context, max int) ([]Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.maxSeen = max
	if len(c.batches) == 0 {
		return nil, c.err
	}
	next := c.batches[0]
	c.batches = c.batches[1:]
	return next, c.err
}

type recordingHandler struct {
	mu       sync.Mutex
	payloads []string
	failOn   map[string]error
}

func (h *recordingHandler) HandleExperimentEventMessage(_ context.Context, raw []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err, ok := h.failOn[string(raw)]; ok {
		return err
	}
	h.payloads = append(h.payloads, string(raw))
	return nil
}

func TestConsumerWorkerRoutesExperimentEvents(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	consumer := &scriptedConsumer{batches: [][]Message{{
		{Topic: TopicExperimentEvents, Key: []byte("u1"), Payload: []byte("ok-1")},
		{Topic: "post.created", Payload: []byte("ignored")},
		{Topic: TopicExperimentEvents, Key: []byte("u2"), Payload: []byte("bad")},
		{Topic: TopicExperimentEvents, Key: []byte("u3"), Payload: []byte("ok-2")},
	}}}
	handler := &recordingHandler{failOn: map[string]error{
		"bad": fmt.Errorf("%w: unknown event type", domain.ErrUnsupportedEventType),
	}}
	worker := NewConsumerWorker(logger, consumer, handler, "", time.Second, 10)

	recorded, err := worker.processOnce(context.Background())
	if err != nil {
		t.Fatalf("process once: %v", err)
	}
	if recorded != 2 || len(handler.payloads) != 2 || handler.payloads[0] != "ok-1" || handler.payloads[1] != "ok-2" {
		t.Fatalf("unexpected routing: recorded=%d payloads=%v", recorded, handler.payloads)
	}
	if consumer.maxSeen != 10 {
		t.Fatalf("expected batch size 10, got %d", consumer.maxSeen)
	}
	if !strings.Contains(logs.String(), "experiment event rejected") || !strings.Contains(logs.String(), "partition_key=u2") {
		t.Fatalf("expected rejected message to be logged, got %q", logs.String())
	}
}

func TestConsumerWorkerKeepsPartialBatchOnPollError(t *testing.T) {
	t.Parallel()

	consumer := &scriptedConsumer{
		batches: [][]Message{{{Topic: TopicExperimentEvents, Payload: []byte("ok")}}},
		err:     errors.New("broker gone"),
	}
	handler := &recordingHandler{}
	worker := NewConsumerWorker(slog.Default(), consumer, handler, TopicExperimentEvents, 0, 0)

	recorded, err := worker.processOnce(context.Background())
	if err == nil || recorded != 1 {
		t.Fatalf("expected partial batch plus error, got recorded=%d err=%v", recorded, err)
	}
}

func TestConsumerWorkerStopsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	worker := NewConsumerWorker(slog.Default(), NewNoopConsumer(), &recordingHandler{}, "", 10*time.Millisecond, 1)
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestKafkaPublisherTopicMapping(t *testing.T) {
	t.Parallel()

	if _, err := NewKafkaPublisher(nil, nil); err == nil {
		t.Fatal("expected error without brokers")
	}
	p, err := NewKafkaPublisher([]string{"localhost:9092"}, map[string]string{
		"experiment.status_changed": "feed.experiment.lifecycle",
	})
	if err != nil {
		t.Fatalf("new publisher: %v", err)
	}
	defer p.Close()
	if got := p.topicFor("experiment.status_changed"); got != "feed.experiment.lifecycle" {
		t.Fatalf("unexpected mapped topic %q", got)
	}
	if got := p.topicFor("experiment.event_recorded"); got != "experiment.event_recorded" {
		t.Fatalf("unexpected fallback topic %q", got)
	}
}

func TestKafkaConsumerRequiresConfiguration(t *testing.T) {
	t.Parallel()

	if _, err := NewKafkaConsumer(nil, "g", []string{TopicExperimentEvents}); err == nil {
		t.Fatal("expected broker error")
	}
	if _, err := NewKafkaConsumer([]string{"localhost:9092"}, "", []string{TopicExperimentEvents}); err == nil {
		t.Fatal("expected group error")
	}
	if _, err := NewKafkaConsumer([]string{"localhost:9092"}, "g", nil); err == nil {
		t.Fatal("expected topic error")
	}
}

func TestLoggingPublisherLogsEnvelope(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	p := NewLoggingPublisher(slog.New(slog.NewTextHandler(&logs, nil)))
	if err := p.Publish(context.Background(), "experiment.status_changed", []byte(`{"a":1}`), "exp-1"); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if !strings.Contains(logs.String(), "event_type=experiment.status_changed") || !strings.Contains(logs.String(), "partition_key=exp-1") {
		t.Fatalf("unexpected log output %q", logs.String())
	}
}
