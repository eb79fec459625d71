package board

import (
	"context"
	"log/slog"

	"github.com/hitoshi/meyasu/internal/model"
	"github.com/hitoshi/meyasu/internal/ratelimit"
)

// VoteOpinion は意見に投票し、再集計した票数を返す。
// 同じ訪問者による再投票は前回の投票を上書きする。
func (s *Service) VoteOpinion(ctx context.Context, req Requester, opinionID int64, voteType model.OpinionVoteType) (model.OpinionVoteCounts, error) {
	var counts model.OpinionVoteCounts

	if !voteType.Valid() {
		return counts, model.NewValidationError("投票の種類が正しくありません")
	}
	if _, err := s.visibleOpinion(ctx, opinionID); err != nil {
		return counts, err
	}

	if err := s.gate(ctx, ratelimit.ClassVote, req); err != nil {
		return counts, err
	}
	visitorID, err := s.identify(ctx, req)
	if err != nil {
		return counts, err
	}

	counts, err = s.votes.UpsertOpinionVote(ctx, visitorID, opinionID, voteType)
	if err != nil {
		return counts, storageError("投票の保存に失敗しました", err)
	}

	s.metrics.RecordVote(string(model.PostTypeOpinion))
	slog.Debug("opinion vote recorded",
		slog.Int64("opinion_id", opinionID),
		slog.String("vote_type", string(voteType)),
	)
	return counts, nil
}

// VoteSolution は解決策に投票し、再集計した票数を返す。
func (s *Service) VoteSolution(ctx context.Context, req Requester, solutionID int64, voteType model.SolutionVoteType) (model.SolutionVoteCounts, error) {
	var counts model.SolutionVoteCounts

	if !voteType.Valid() {
		return counts, model.NewValidationError("投票の種類が正しくありません")
	}
	solution, err := s.solutions.FindByID(ctx, solutionID)
	if err != nil {
		return counts, storageError("解決策の取得に失敗しました", err)
	}
	if solution == nil || !solution.IsVisible {
		return counts, model.NewSolutionNotFoundError(solutionID)
	}

	if err := s.gate(ctx, ratelimit.ClassVote, req); err != nil {
		return counts, err
	}
	visitorID, err := s.identify(ctx, req)
	if err != nil {
		return counts, err
	}

	counts, err = s.votes.UpsertSolutionVote(ctx, visitorID, solutionID, voteType)
	if err != nil {
		return counts, storageError("投票の保存に失敗しました", err)
	}

	s.metrics.RecordVote(string(model.PostTypeSolution))
	return counts, nil
}

// MyVote は訪問者が意見に投票済みであればその投票を返す。
// visitorIDが0（未発行）の場合や未投票の場合はnilを返す。
func (s *Service) MyVote(ctx context.Context, visitorID, opinionID int64) (*model.OpinionVote, error) {
	if visitorID == 0 {
		return nil, nil
	}
	vote, err := s.votes.FindOpinionVote(ctx, visitorID, opinionID)
	if err != nil {
		return nil, storageError("投票の取得に失敗しました", err)
	}
	return vote, nil
}
