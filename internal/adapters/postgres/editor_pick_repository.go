package postgres

import (
	"context"

	"github.com/viralforge/mesh/services/data-ai/M60-feed-ranking-engine/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type editorPickRepository struct {
	db *gorm.DB
}

// Add re-activates a previously removed pick; an already active pick is a
// conflict.
func (r *editorPickRepository) Add(ctx context.Context, pick domain.EditorPick) error {
	rec := editorPickModel{
		PostID:    pick.PostID,
		Priority:  pick.Priority,
		IsActive:  true,
		AddedBy:   pick.AddedBy,
		CreatedAt: pick.CreatedAt,
	}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "post_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"priority", "is_active", "added_by", "created_at"}),
		Where:     clause.Where{Exprs: []clause.Expression{clause.Expr{SQL: "editor_picks.is_active = FALSE"}}},
	}).Create(&rec)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrConflict
	}
	return nil
}

func (r *editorPickRepository) Deactivate(ctx context.Context, postID string) error {
	res := r.db.WithContext(ctx).Model(&editorPickModel{}).
		Where("post_id = ? AND is_active", postID).
		Update("is_active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *editorPickRepository) ListActive(ctx context.Context) ([]domain.EditorPick, error) {
	var rows []editorPickModel
	if err := r.db.WithContext(ctx).Where("is_active").Order("priority ASC").Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.EditorPick, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomainEditorPick(row))
	}
	return out, nil
}
