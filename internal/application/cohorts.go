package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/data-ai/M60-feed-ranking-engine/internal/domain"
)

type CohortInput struct {
	Name        string
	Description string
	Config      domain.WeightConfigSpec
	Priority    int
	Active      *bool
}

type CohortUpdate struct {
	Name        *string
	Description *string
	Config      *domain.WeightConfigSpec
	Priority    *int
	Active      *bool
}

func (s *Service) CreateCohort(ctx context.Context, input CohortInput) (domain.Cohort, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return domain.Cohort{}, fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	}
	cfg, err := input.Config.Build()
	if err != nil {
		return domain.Cohort{}, err
	}
	now := s.nowFn()
	cohort := domain.Cohort{
		CohortID:    uuid.NewString(),
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		Config:      cfg,
		Priority:    input.Priority,
		Active:      input.Active == nil || *input.Active,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.cohorts.Create(ctx, cohort); err != nil {
		return domain.Cohort{}, err
	}
	return cohort, nil
}

func (s *Service) UpdateCohort(ctx context.Context, cohortID string, update CohortUpdate) (domain.Cohort, error) {
	cohort, err := s.cohorts.Get(ctx, strings.TrimSpace(cohortID))
	if err != nil {
		return domain.Cohort{}, err
	}
	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return domain.Cohort{}, fmt.Errorf("%w: name must not be empty", domain.ErrInvalidInput)
		}
		cohort.Name = name
	}
	if update.Description != nil {
		cohort.Description = strings.TrimSpace(*update.Description)
	}
	if update.Config != nil {
		cfg, err := update.Config.Build()
		if err != nil {
			return domain.Cohort{}, err
		}
		cohort.Config = cfg
	}
	if update.Priority != nil {
		cohort.Priority = *update.Priority
	}
	if update.Active != nil {
		cohort.Active = *update.Active
	}
	cohort.UpdatedAt = s.nowFn()
	if err := s.cohorts.Update(ctx, cohort); err != nil {
		return domain.Cohort{}, err
	}
	return cohort, nil
}

func (s *Service) GetCohort(ctx context.Context, cohortID string) (domain.Cohort, error) {
	return s.cohorts.Get(ctx, strings.TrimSpace(cohortID))
}

func (s *Service) ListCohorts(ctx context.Context) ([]domain.Cohort, error) {
	return s.cohorts.List(ctx)
}

func (s *Service) DeleteCohort(ctx context.Context, cohortID string) error {
	return s.cohorts.Delete(ctx, strings.TrimSpace(cohortID))
}
