package board

import (
	"context"

	"github.com/hitoshi/meyasu/internal/model"
	"github.com/hitoshi/meyasu/internal/repository"
)

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

// ListOptions は意見一覧の取得条件。
type ListOptions struct {
	CategoryID      int64
	IncludeFeedback bool // サイトへの要望カテゴリも含める
	Limit           int
	Offset          int
}

// page はLimit/Offsetを有効な範囲に丸める。
func page(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// ListCategories は全カテゴリを返す。
func (s *Service) ListCategories(ctx context.Context) ([]*model.Category, error) {
	categories, err := s.categories.List(ctx)
	if err != nil {
		return nil, storageError("カテゴリ一覧の取得に失敗しました", err)
	}
	return categories, nil
}

// ListOpinions は公開中の意見を新しい順に返す。
// カテゴリ未指定の一覧ではサイトへの要望を除外する。
func (s *Service) ListOpinions(ctx context.Context, opts ListOptions) ([]*model.Opinion, error) {
	limit, offset := page(opts.Limit, opts.Offset)
	opinions, err := s.opinions.List(ctx, repository.OpinionFilter{
		CategoryID:      opts.CategoryID,
		ExcludeFeedback: !opts.IncludeFeedback,
		Limit:           limit,
		Offset:          offset,
	})
	if err != nil {
		return nil, storageError("意見一覧の取得に失敗しました", err)
	}
	return opinions, nil
}

// GetOpinion は公開中の意見を取得する。
func (s *Service) GetOpinion(ctx context.Context, opinionID int64) (*model.Opinion, error) {
	return s.visibleOpinion(ctx, opinionID)
}

// ListSolutions は公開中の意見に紐づく解決策を返す。
func (s *Service) ListSolutions(ctx context.Context, opinionID int64) ([]*model.Solution, error) {
	if _, err := s.visibleOpinion(ctx, opinionID); err != nil {
		return nil, err
	}
	solutions, err := s.solutions.ListByOpinion(ctx, opinionID)
	if err != nil {
		return nil, storageError("解決策一覧の取得に失敗しました", err)
	}
	return solutions, nil
}

// visibleOpinion は公開中の意見を取得する。非表示の意見は存在しないものとして扱う。
func (s *Service) visibleOpinion(ctx context.Context, opinionID int64) (*model.Opinion, error) {
	opinion, err := s.opinions.FindByID(ctx, opinionID)
	if err != nil {
		return nil, storageError("意見の取得に失敗しました", err)
	}
	if opinion == nil || !opinion.IsVisible {
		return nil, model.NewOpinionNotFoundError(opinionID)
	}
	return opinion, nil
}
