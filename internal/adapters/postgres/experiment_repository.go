package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/viralforge/mesh/services/data-ai/M60-feed-ranking-engine/internal/domain"
	"gorm.io/gorm"
)

type experimentRepository struct {
	db *gorm.DB
}

// FetchRunningExperiment returns nil when the cohort runs nothing. The
// partial unique index on (cohort_id) WHERE status = 'RUNNING' guarantees at
// most one row.
func (r *experimentRepository) FetchRunningExperiment(ctx context.Context, cohortID string) (*domain.Experiment, error) {
	var row experimentModel
	err := r.db.WithContext(ctx).
		Where("cohort_id = ? AND status = ?", cohortID, domain.ExperimentStatusRunning).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	experiment, err := toDomainExperiment(row)
	if err != nil {
		return nil, err
	}
	return &experiment, nil
}

func (r *experimentRepository) Create(ctx context.Context, experiment domain.Experiment) error {
	rec, err := fromDomainExperiment(experiment)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		switch {
		case isUniqueViolation(err):
			return domain.ErrConflict
		case isForeignKeyViolation(err):
			return fmt.Errorf("cohort %s: %w", experiment.CohortID, domain.ErrNotFound)
		}
		return err
	}
	return nil
}

// Update writes everything but the results snapshot, which SaveResults owns.
func (r *experimentRepository) Update(ctx context.Context, experiment domain.Experiment) error {
	rec, err := fromDomainExperiment(experiment)
	if err != nil {
		return err
	}
	res := r.db.WithContext(ctx).Model(&experimentModel{}).Where("experiment_id = ?", rec.ExperimentID).Updates(map[string]any{
		"name":        rec.Name,
		"description": rec.Description,
		"status":      rec.Status,
		"variants":    rec.Variants,
		"start_date":  rec.StartDate,
		"end_date":    rec.EndDate,
		"updated_at":  rec.UpdatedAt,
	})
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return fmt.Errorf("%w: cohort %s already runs an experiment", domain.ErrConflict, experiment.CohortID)
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *experimentRepository) Get(ctx context.Context, experimentID string) (domain.Experiment, error) {
	var row experimentModel
	if err := r.db.WithContext(ctx).Where("experiment_id = ?", experimentID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Experiment{}, domain.ErrNotFound
		}
		return domain.Experiment{}, err
	}
	return toDomainExperiment(row)
}

func (r *experimentRepository) List(ctx context.Context) ([]domain.Experiment, error) {
	var rows []experimentModel
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Experiment, 0, len(rows))
	for _, row := range rows {
		e, err := toDomainExperiment(row)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (r *experimentRepository) SaveResults(ctx context.Context, experimentID string, results domain.ExperimentResults) error {
	raw, err := json.Marshal(results)
	if err != nil {
		return err
	}
	res := r.db.WithContext(ctx).Model(&experimentModel{}).Where("experiment_id = ?", experimentID).Update("results", raw)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
