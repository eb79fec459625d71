package board

import (
	"context"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/hitoshi/meyasu/internal/model"
	"github.com/hitoshi/meyasu/internal/ratelimit"
)

// 入力の文字数制限（サニタイズ後のルーン数）
const (
	maxProblemStatement    = 500
	maxSolutionProposal    = 500
	minSolutionTitle       = 10
	maxSolutionTitle       = 200
	minSolutionDescription = 10
	maxSolutionDescription = 1000
)

// OpinionInput は意見投稿の入力。
type OpinionInput struct {
	CategoryID       int64
	ProblemStatement string // 任意
	SolutionProposal string
}

// SolutionInput は解決策投稿の入力。
type SolutionInput struct {
	OpinionID   int64
	Title       string
	Description string
}

// SubmitOpinion は意見を投稿する。
// 投稿は即時に公開され、問題があれば管理者が後から非表示・削除する。
func (s *Service) SubmitOpinion(ctx context.Context, req Requester, in OpinionInput) (*model.Opinion, error) {
	problem := s.sanitizer.Sanitize(in.ProblemStatement)
	proposal := s.sanitizer.Sanitize(in.SolutionProposal)

	if in.CategoryID <= 0 {
		return nil, model.NewValidationError("カテゴリを選択してください")
	}
	if err := checkLength("課題", problem, 0, maxProblemStatement); err != nil {
		return nil, err
	}
	if err := checkLength("提案", proposal, 1, maxSolutionProposal); err != nil {
		return nil, err
	}

	if err := s.screen(problem, proposal); err != nil {
		return nil, err
	}

	category, err := s.categories.FindByID(ctx, in.CategoryID)
	if err != nil {
		return nil, storageError("カテゴリの取得に失敗しました", err)
	}
	if category == nil {
		return nil, model.NewCategoryNotFoundError(in.CategoryID)
	}

	if err := s.gate(ctx, ratelimit.ClassSubmit, req); err != nil {
		return nil, err
	}
	visitorID, err := s.identify(ctx, req)
	if err != nil {
		return nil, err
	}

	opinion := &model.Opinion{
		VisitorID:        &visitorID,
		CategoryID:       category.ID,
		ProblemStatement: problem,
		SolutionProposal: proposal,
		IsVisible:        true,
	}
	if err := s.opinions.Create(ctx, opinion); err != nil {
		return nil, storageError("意見の保存に失敗しました", err)
	}

	s.metrics.RecordSubmissionAccepted(string(model.PostTypeOpinion))
	slog.Info("opinion submitted",
		slog.Int64("opinion_id", opinion.ID),
		slog.Int64("category_id", opinion.CategoryID),
	)
	return opinion, nil
}

// SubmitSolution は公開中の意見に解決策を投稿する。
func (s *Service) SubmitSolution(ctx context.Context, req Requester, in SolutionInput) (*model.Solution, error) {
	title := s.sanitizer.Sanitize(in.Title)
	description := s.sanitizer.Sanitize(in.Description)

	if err := checkLength("タイトル", title, minSolutionTitle, maxSolutionTitle); err != nil {
		return nil, err
	}
	if err := checkLength("説明", description, minSolutionDescription, maxSolutionDescription); err != nil {
		return nil, err
	}

	if err := s.screen(title, description); err != nil {
		return nil, err
	}

	if _, err := s.visibleOpinion(ctx, in.OpinionID); err != nil {
		return nil, err
	}

	if err := s.gate(ctx, ratelimit.ClassSubmit, req); err != nil {
		return nil, err
	}
	visitorID, err := s.identify(ctx, req)
	if err != nil {
		return nil, err
	}

	solution := &model.Solution{
		OpinionID:   in.OpinionID,
		VisitorID:   &visitorID,
		Title:       title,
		Description: description,
		IsVisible:   true,
	}
	if err := s.solutions.Create(ctx, solution); err != nil {
		return nil, storageError("解決策の保存に失敗しました", err)
	}

	s.metrics.RecordSubmissionAccepted(string(model.PostTypeSolution))
	slog.Info("solution submitted",
		slog.Int64("solution_id", solution.ID),
		slog.Int64("opinion_id", solution.OpinionID),
	)
	return solution, nil
}

// checkLength は文字数が [min, max] の範囲にあるかを検証する。
func checkLength(field, value string, min, max int) error {
	n := utf8.RuneCountInString(value)
	if n < min {
		if min == 1 {
			return model.NewValidationError(fmt.Sprintf("%sを入力してください", field))
		}
		return model.NewValidationError(fmt.Sprintf("%sは%d文字以上で入力してください", field, min))
	}
	if n > max {
		return model.NewValidationError(fmt.Sprintf("%sは%d文字以内で入力してください", field, max))
	}
	return nil
}
