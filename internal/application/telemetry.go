package application

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/data-ai/M60-feed-ranking-engine/internal/contracts"
	"github.com/viralforge/mesh/services/data-ai/M60-feed-ranking-engine/internal/domain"
)

type ExperimentEventInput struct {
	EventID            string
	ExperimentID       string
	UserID             string
	VariantName        string
	EventType          string
	PostID             string
	SessionDurationSec *int64
	OccurredAt         time.Time
}

// RecordExperimentEvent appends one telemetry event. The variant is always
// recomputed with the same assignment used for feed weights; a differing
// client-supplied variant is logged and overwritten.
func (s *Service) RecordExperimentEvent(ctx context.Context, input ExperimentEventInput) (domain.EventAck, error) {
	experimentID := strings.TrimSpace(input.ExperimentID)
	userID := strings.TrimSpace(input.UserID)
	if experimentID == "" || userID == "" {
		return domain.EventAck{}, fmt.Errorf("%w: experiment_id and user_id are required", domain.ErrInvalidInput)
	}
	eventType, ok := domain.NormalizeEventType(input.EventType)
	if !ok {
		return domain.EventAck{}, fmt.Errorf("%w: %q", domain.ErrUnsupportedEventType, input.EventType)
	}
	if input.SessionDurationSec != nil && *input.SessionDurationSec < 0 {
		return domain.EventAck{}, fmt.Errorf("%w: session_duration_s must be >= 0", domain.ErrInvalidInput)
	}

	experiment, err := s.experiments.Get(ctx, experimentID)
	if err != nil {
		return domain.EventAck{}, err
	}
	variant, ok := domain.AssignVariant(userID, experiment)
	if !ok {
		return domain.EventAck{}, fmt.Errorf("%w: experiment %s has no variants", domain.ErrInvalidInput, experimentID)
	}
	if claimed := strings.TrimSpace(input.VariantName); claimed != "" && claimed != variant.Name {
		s.logger.WarnContext(ctx, "client variant differs from assignment, using assignment",
			"module", "application.telemetry",
			"layer", "application",
			"operation", "record_experiment_event",
			"outcome", "overridden",
			"experiment_id", experimentID,
			"claimed_variant", claimed,
			"assigned_variant", variant.Name,
		)
	}

	event := domain.ExperimentEvent{
		EventID:            strings.TrimSpace(input.EventID),
		ExperimentID:       experimentID,
		UserID:             userID,
		VariantName:        variant.Name,
		EventType:          eventType,
		PostID:             strings.TrimSpace(input.PostID),
		SessionDurationSec: input.SessionDurationSec,
		OccurredAt:         input.OccurredAt,
	}
	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = s.nowFn()
	}
	if err := s.events.Append(ctx, event); err != nil {
		return domain.EventAck{}, fmt.Errorf("%w: append experiment event: %w", domain.ErrDependencyUnavailable, err)
	}
	return domain.EventAck{EventID: event.EventID, VariantName: variant.Name, RecordedAt: event.OccurredAt}, nil
}

// HandleExperimentEventMessage ingests one envelope from the telemetry topic.
func (s *Service) HandleExperimentEventMessage(ctx context.Context, raw []byte) error {
	var envelope contracts.EventEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("%w: decode envelope: %v", domain.ErrInvalidInput, err)
	}
	if envelope.EventType != contracts.EventTypeExperimentEventRecorded {
		return fmt.Errorf("%w: %s", domain.ErrUnsupportedEventType, envelope.EventType)
	}
	var data contracts.ExperimentEventPayload
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		return fmt.Errorf("%w: decode event data: %v", domain.ErrInvalidInput, err)
	}
	eventID := data.EventID
	if eventID == "" {
		eventID = envelope.EventID
	}
	occurredAt := data.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = envelope.OccurredAt
	}
	_, err := s.RecordExperimentEvent(ctx, ExperimentEventInput{
		EventID:            eventID,
		ExperimentID:       data.ExperimentID,
		UserID:             data.UserID,
		VariantName:        data.VariantName,
		EventType:          data.EventType,
		PostID:             data.PostID,
		SessionDurationSec: data.SessionDurationSec,
		OccurredAt:         occurredAt,
	})
	return err
}

// GetExperimentResults aggregates events per variant and stores the snapshot
// on the experiment best-effort.
func (s *Service) GetExperimentResults(ctx context.Context, experimentID string) (domain.ExperimentResults, error) {
	experiment, err := s.experiments.Get(ctx, strings.TrimSpace(experimentID))
	if err != nil {
		return domain.ExperimentResults{}, err
	}
	counts, err := s.events.AggregateByVariant(ctx, experiment.ExperimentID)
	if err != nil {
		return domain.ExperimentResults{}, fmt.Errorf("%w: aggregate experiment events: %w", domain.ErrDependencyUnavailable, err)
	}
	names := make([]string, 0, len(experiment.Variants))
	for _, v := range experiment.Variants {
		names = append(names, v.Name)
	}
	results := domain.ComputeResults(experiment.ExperimentID, names, counts, s.nowFn())
	s.bestEffort(ctx, "save_experiment_results", s.cfg.BestEffortTimeout, func(ctx context.Context) error {
		return s.experiments.SaveResults(ctx, experiment.ExperimentID, results)
	})
	return results, nil
}
