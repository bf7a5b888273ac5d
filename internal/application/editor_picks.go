package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/viralforge/mesh/services/data-ai/M60-feed-ranking-engine/internal/domain"
)

type EditorPickInput struct {
	PostID   string
	Priority int
	AddedBy  string
}

func (s *Service) AddEditorPick(ctx context.Context, input EditorPickInput) (domain.EditorPick, error) {
	postID := strings.TrimSpace(input.PostID)
	if postID == "" {
		return domain.EditorPick{}, fmt.Errorf("%w: post_id is required", domain.ErrInvalidInput)
	}
	if input.Priority < 0 {
		return domain.EditorPick{}, fmt.Errorf("%w: priority must be >= 0", domain.ErrInvalidInput)
	}
	pick := domain.EditorPick{
		PostID:    postID,
		Priority:  input.Priority,
		Active:    true,
		AddedBy:   strings.TrimSpace(input.AddedBy),
		CreatedAt: s.nowFn(),
	}
	if err := s.editorPicks.Add(ctx, pick); err != nil {
		return domain.EditorPick{}, err
	}
	return pick, nil
}

// RemoveEditorPick deactivates the pick; the row is kept for audit.
func (s *Service) RemoveEditorPick(ctx context.Context, postID string) error {
	postID = strings.TrimSpace(postID)
	if postID == "" {
		return fmt.Errorf("%w: post_id is required", domain.ErrInvalidInput)
	}
	return s.editorPicks.Deactivate(ctx, postID)
}

func (s *Service) ListEditorPicks(ctx context.Context) ([]domain.EditorPick, error) {
	return s.editorPicks.ListActive(ctx)
}
