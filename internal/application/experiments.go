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

type ExperimentInput struct {
	Name        string
	Description string
	CohortID    string
	CreatedBy   string
	Variants    []domain.VariantSpec
	EndDate     *time.Time
}

type ExperimentUpdate struct {
	Name        *string
	Description *string
	Variants    []domain.VariantSpec
	EndDate     *time.Time
}

func (s *Service) CreateExperiment(ctx context.Context, input ExperimentInput) (domain.Experiment, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return domain.Experiment{}, fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	}
	variants, err := domain.BuildVariants(input.Variants)
	if err != nil {
		return domain.Experiment{}, err
	}
	cohortID := strings.TrimSpace(input.CohortID)
	if cohortID != "" {
		if _, err := s.cohorts.Get(ctx, cohortID); err != nil {
			return domain.Experiment{}, fmt.Errorf("cohort %s: %w", cohortID, err)
		}
	}
	now := s.nowFn()
	experiment := domain.Experiment{
		ExperimentID: uuid.NewString(),
		CohortID:     cohortID,
		Name:         name,
		Description:  strings.TrimSpace(input.Description),
		Status:       domain.ExperimentStatusDraft,
		Variants:     variants,
		EndDate:      input.EndDate,
		CreatedBy:    strings.TrimSpace(input.CreatedBy),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.experiments.Create(ctx, experiment); err != nil {
		return domain.Experiment{}, err
	}
	return experiment, nil
}

// UpdateExperiment only touches DRAFT or PAUSED experiments; a new variant
// list goes through the same validation as creation.
func (s *Service) UpdateExperiment(ctx context.Context, experimentID string, update ExperimentUpdate) (domain.Experiment, error) {
	experiment, err := s.experiments.Get(ctx, strings.TrimSpace(experimentID))
	if err != nil {
		return domain.Experiment{}, err
	}
	if !experiment.Editable() {
		return domain.Experiment{}, fmt.Errorf("%w: status %s", domain.ErrExperimentNotEditable, experiment.Status)
	}
	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return domain.Experiment{}, fmt.Errorf("%w: name must not be empty", domain.ErrInvalidInput)
		}
		experiment.Name = name
	}
	if update.Description != nil {
		experiment.Description = strings.TrimSpace(*update.Description)
	}
	if update.Variants != nil {
		variants, err := domain.BuildVariants(update.Variants)
		if err != nil {
			return domain.Experiment{}, err
		}
		experiment.Variants = variants
	}
	if update.EndDate != nil {
		experiment.EndDate = update.EndDate
	}
	experiment.UpdatedAt = s.nowFn()
	if err := s.experiments.Update(ctx, experiment); err != nil {
		return domain.Experiment{}, err
	}
	return experiment, nil
}

func (s *Service) GetExperiment(ctx context.Context, experimentID string) (domain.Experiment, error) {
	return s.experiments.Get(ctx, strings.TrimSpace(experimentID))
}

func (s *Service) ListExperiments(ctx context.Context) ([]domain.Experiment, error) {
	return s.experiments.List(ctx)
}

// StartExperiment also enforces a single RUNNING experiment per cohort.
func (s *Service) StartExperiment(ctx context.Context, experimentID string) (domain.Experiment, error) {
	return s.transitionExperiment(ctx, experimentID, func(e *domain.Experiment, now time.Time) error {
		if e.CohortID != "" {
			running, err := s.experiments.FetchRunningExperiment(ctx, e.CohortID)
			if err != nil {
				return err
			}
			if running != nil && running.ExperimentID != e.ExperimentID {
				return fmt.Errorf("%w: cohort %s already runs experiment %s", domain.ErrConflict, e.CohortID, running.ExperimentID)
			}
		}
		return e.Start(now)
	})
}

func (s *Service) PauseExperiment(ctx context.Context, experimentID string) (domain.Experiment, error) {
	return s.transitionExperiment(ctx, experimentID, (*domain.Experiment).Pause)
}

func (s *Service) CompleteExperiment(ctx context.Context, experimentID string) (domain.Experiment, error) {
	return s.transitionExperiment(ctx, experimentID, (*domain.Experiment).Complete)
}

func (s *Service) transitionExperiment(ctx context.Context, experimentID string, apply func(*domain.Experiment, time.Time) error) (domain.Experiment, error) {
	experiment, err := s.experiments.Get(ctx, strings.TrimSpace(experimentID))
	if err != nil {
		return domain.Experiment{}, err
	}
	previous := experiment.Status
	if err := apply(&experiment, s.nowFn()); err != nil {
		return domain.Experiment{}, err
	}
	if err := s.experiments.Update(ctx, experiment); err != nil {
		return domain.Experiment{}, err
	}
	s.publishStatusChanged(ctx, experiment, previous)
	return experiment, nil
}

func (s *Service) publishStatusChanged(ctx context.Context, experiment domain.Experiment, previous string) domain.BestEffort {
	return s.bestEffort(ctx, "publish_experiment_status_changed", s.cfg.BestEffortTimeout, func(ctx context.Context) error {
		if s.publisher == nil {
			return nil
		}
		data, err := json.Marshal(contracts.ExperimentStatusChangedPayload{
			ExperimentID:   experiment.ExperimentID,
			CohortID:       experiment.CohortID,
			PreviousStatus: previous,
			Status:         experiment.Status,
		})
		if err != nil {
			return err
		}
		payload, err := json.Marshal(contracts.EventEnvelope{
			EventID:          uuid.NewString(),
			EventType:        contracts.EventTypeExperimentStatusChanged,
			OccurredAt:       s.nowFn(),
			PartitionKeyPath: "data.experiment_id",
			PartitionKey:     experiment.ExperimentID,
			SourceService:    s.cfg.ServiceName,
			SchemaVersion:    "1.0",
			Data:             data,
		})
		if err != nil {
			return err
		}
		return s.publisher.Publish(ctx, contracts.EventTypeExperimentStatusChanged, payload, experiment.ExperimentID)
	})
}
