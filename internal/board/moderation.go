package board

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hitoshi/meyasu/internal/model"
	"github.com/hitoshi/meyasu/internal/repository"
	"github.com/hitoshi/meyasu/internal/security"
)

// 削除ログに残すプレビューの最大文字数
const deletionPreviewRunes = 50

const maxDeletionReason = 500

// AdminListOpinions は非表示のものを含む全ての意見を返す。
func (s *Service) AdminListOpinions(ctx context.Context, opts ListOptions) ([]*model.Opinion, error) {
	limit, offset := page(opts.Limit, opts.Offset)
	opinions, err := s.opinions.List(ctx, repository.OpinionFilter{
		CategoryID:    opts.CategoryID,
		IncludeHidden: true,
		Limit:         limit,
		Offset:        offset,
	})
	if err != nil {
		return nil, storageError("意見一覧の取得に失敗しました", err)
	}
	return opinions, nil
}

// SetOpinionVisibility は意見の表示・非表示を切り替える。
func (s *Service) SetOpinionVisibility(ctx context.Context, opinionID int64, visible bool) error {
	found, err := s.opinions.SetVisibility(ctx, opinionID, visible)
	if err != nil {
		return storageError("表示状態の更新に失敗しました", err)
	}
	if !found {
		return model.NewOpinionNotFoundError(opinionID)
	}
	slog.Info("opinion visibility changed",
		slog.Int64("opinion_id", opinionID),
		slog.Bool("visible", visible),
	)
	return nil
}

type opinionPreview struct {
	Preview    string `json:"preview"`
	CategoryID int64  `json:"categoryId"`
}

type solutionPreview struct {
	Preview   string `json:"preview"`
	OpinionID int64  `json:"opinionId"`
}

// DeleteOpinion は削除ログを記録して意見を削除する。
// ログには先頭部分の個人情報を伏せたプレビューのみを残す。
func (s *Service) DeleteOpinion(ctx context.Context, opinionID int64, reason string) error {
	reason, err := s.deletionReason(reason)
	if err != nil {
		return err
	}

	opinion, err := s.opinions.FindByID(ctx, opinionID)
	if err != nil {
		return storageError("意見の取得に失敗しました", err)
	}
	if opinion == nil {
		return model.NewOpinionNotFoundError(opinionID)
	}

	text := opinion.ProblemStatement
	if text == "" {
		text = opinion.SolutionProposal
	}
	content, err := json.Marshal(opinionPreview{
		Preview:    security.ScrubPreview(text, deletionPreviewRunes),
		CategoryID: opinion.CategoryID,
	})
	if err != nil {
		return fmt.Errorf("削除ログの生成に失敗しました: %w", err)
	}

	deleted, err := s.opinions.DeleteWithLog(ctx, opinionID, &model.DeletionLog{
		PostType: model.PostTypeOpinion,
		PostID:   opinionID,
		Content:  string(content),
		Reason:   reason,
	})
	if err != nil {
		return storageError("意見の削除に失敗しました", err)
	}
	if !deleted {
		return model.NewOpinionNotFoundError(opinionID)
	}

	slog.Info("opinion deleted", slog.Int64("opinion_id", opinionID))
	return nil
}

// DeleteSolution は削除ログを記録して解決策を削除する。
func (s *Service) DeleteSolution(ctx context.Context, solutionID int64, reason string) error {
	reason, err := s.deletionReason(reason)
	if err != nil {
		return err
	}

	solution, err := s.solutions.FindByID(ctx, solutionID)
	if err != nil {
		return storageError("解決策の取得に失敗しました", err)
	}
	if solution == nil {
		return model.NewSolutionNotFoundError(solutionID)
	}

	text := solution.Title
	if text == "" {
		text = solution.Description
	}
	content, err := json.Marshal(solutionPreview{
		Preview:   security.ScrubPreview(text, deletionPreviewRunes),
		OpinionID: solution.OpinionID,
	})
	if err != nil {
		return fmt.Errorf("削除ログの生成に失敗しました: %w", err)
	}

	deleted, err := s.solutions.DeleteWithLog(ctx, solutionID, &model.DeletionLog{
		PostType: model.PostTypeSolution,
		PostID:   solutionID,
		Content:  string(content),
		Reason:   reason,
	})
	if err != nil {
		return storageError("解決策の削除に失敗しました", err)
	}
	if !deleted {
		return model.NewSolutionNotFoundError(solutionID)
	}

	slog.Info("solution deleted", slog.Int64("solution_id", solutionID))
	return nil
}

// ListDeletionLogs は削除ログを新しい順に返す。
func (s *Service) ListDeletionLogs(ctx context.Context, limit, offset int) ([]*model.DeletionLog, error) {
	limit, offset = page(limit, offset)
	logs, err := s.deletionLogs.List(ctx, limit, offset)
	if err != nil {
		return nil, storageError("削除ログの取得に失敗しました", err)
	}
	return logs, nil
}

// deletionReason は削除理由をサニタイズして検証する。理由は任意。
func (s *Service) deletionReason(reason string) (string, error) {
	reason = s.sanitizer.Sanitize(reason)
	if err := checkLength("削除理由", reason, 0, maxDeletionReason); err != nil {
		return "", err
	}
	return reason, nil
}
