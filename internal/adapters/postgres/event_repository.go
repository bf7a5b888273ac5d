package postgres

import (
	"context"

	"github.com/viralforge/mesh/services/data-ai/M60-feed-ranking-engine/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type experimentEventRepository struct {
	db *gorm.DB
}

// Append is idempotent on event_id so a redelivered message is a no-op.
func (r *experimentEventRepository) Append(ctx context.Context, event domain.ExperimentEvent) error {
	rec := fromDomainExperimentEvent(event)
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rec).Error
}

func (r *experimentEventRepository) AggregateByVariant(ctx context.Context, experimentID string) ([]domain.VariantCounts, error) {
	var rows []variantCountsRow
	err := r.db.WithContext(ctx).
		Model(&experimentEventModel{}).
		Select(`variant_name,
			COUNT(*) FILTER (WHERE event_type = ?) AS impressions,
			COUNT(*) FILTER (WHERE event_type = ?) AS clicks,
			COUNT(*) FILTER (WHERE event_type = ?) AS likes,
			COUNT(*) FILTER (WHERE event_type = ?) AS session_starts,
			AVG(session_duration_s) FILTER (WHERE event_type = ? AND session_duration_s IS NOT NULL) AS avg_session_duration`,
			domain.EventImpression, domain.EventClick, domain.EventLike, domain.EventSessionStart, domain.EventSessionEnd).
		Where("experiment_id = ?", experimentID).
		Group("variant_name").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.VariantCounts, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomainVariantCounts(row))
	}
	return out, nil
}
