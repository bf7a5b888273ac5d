package ports

import (
	"context"

	"github.com/viralforge/mesh/services/data-ai/M60-feed-ranking-engine/internal/domain"
)

type CohortRepository interface {
	FetchActiveCohorts(ctx context.Context, cohortIDs []string) ([]domain.Cohort, error)
	Create(ctx context.Context, cohort domain.Cohort) error
	Update(ctx context.Context, cohort domain.Cohort) error
	Get(ctx context.Context, cohortID string) (domain.Cohort, error)
	List(ctx context.Context) ([]domain.Cohort, error)
	Delete(ctx context.Context, cohortID string) error
}

type ExperimentRepository interface {
	FetchRunningExperiment(ctx context.Context, cohortID string) (*domain.Experiment, error)
	Create(ctx context.Context, experiment domain.Experiment) error
	Update(ctx context.Context, experiment domain.Experiment) error
	Get(ctx context.Context, experimentID string) (domain.Experiment, error)
	List(ctx context.Context) ([]domain.Experiment, error)
	SaveResults(ctx context.Context, experimentID string, results domain.ExperimentResults) error
}

type ExperimentEventRepository interface {
	Append(ctx context.Context, event domain.ExperimentEvent) error
	AggregateByVariant(ctx context.Context, experimentID string) ([]domain.VariantCounts, error)
}

type EditorPickRepository interface {
	Add(ctx context.Context, pick domain.EditorPick) error
	Deactivate(ctx context.Context, postID string) error
	ListActive(ctx context.Context) ([]domain.EditorPick, error)
}
