package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/viralforge/mesh/services/data-ai/M60-feed-ranking-engine/internal/domain"
	"gorm.io/gorm"
)

type cohortRepository struct {
	db *gorm.DB
}

func (r *cohortRepository) FetchActiveCohorts(ctx context.Context, cohortIDs []string) ([]domain.Cohort, error) {
	if len(cohortIDs) == 0 {
		return []domain.Cohort{}, nil
	}
	var rows []cohortModel
	if err := r.db.WithContext(ctx).Where("cohort_id IN ? AND is_active", cohortIDs).Find(&rows).Error; err != nil {
		return nil, err
	}
	return toDomainCohorts(rows)
}

func (r *cohortRepository) Create(ctx context.Context, cohort domain.Cohort) error {
	rec, err := fromDomainCohort(cohort)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return err
	}
	return nil
}

func (r *cohortRepository) Update(ctx context.Context, cohort domain.Cohort) error {
	rec, err := fromDomainCohort(cohort)
	if err != nil {
		return err
	}
	res := r.db.WithContext(ctx).Model(&cohortModel{}).Where("cohort_id = ?", rec.CohortID).Updates(map[string]any{
		"name":             rec.Name,
		"description":      rec.Description,
		"algorithm_config": rec.AlgorithmConfig,
		"priority":         rec.Priority,
		"is_active":        rec.IsActive,
		"updated_at":       rec.UpdatedAt,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *cohortRepository) Get(ctx context.Context, cohortID string) (domain.Cohort, error) {
	var row cohortModel
	if err := r.db.WithContext(ctx).Where("cohort_id = ?", cohortID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Cohort{}, domain.ErrNotFound
		}
		return domain.Cohort{}, err
	}
	return toDomainCohort(row)
}

func (r *cohortRepository) List(ctx context.Context) ([]domain.Cohort, error) {
	var rows []cohortModel
	if err := r.db.WithContext(ctx).Order("priority ASC").Order("cohort_id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return toDomainCohorts(rows)
}

// Delete refuses cohorts that experiments still reference.
func (r *cohortRepository) Delete(ctx context.Context, cohortID string) error {
	res := r.db.WithContext(ctx).Where("cohort_id = ?", cohortID).Delete(&cohortModel{})
	if res.Error != nil {
		if isForeignKeyViolation(res.Error) {
			return fmt.Errorf("%w: cohort %s is referenced by experiments", domain.ErrConflict, cohortID)
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func toDomainCohorts(rows []cohortModel) ([]domain.Cohort, error) {
	out := make([]domain.Cohort, 0, len(rows))
	for _, row := range rows {
		c, err := toDomainCohort(row)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}
