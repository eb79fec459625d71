// Package board は目安箱の投稿・投票・モデレーションのユースケースを提供する。
//
// 投稿と投票はいずれも次の順で処理し、拒否された時点でストレージへの書き込みを行わずに返す。
//
//	入力のサニタイズ → 入力検証 → コンテンツ検査（投稿のみ） → レート制限 → 匿名IDの解決・発行 → 保存
package board

import (
	"context"
	"fmt"

	"github.com/hitoshi/meyasu/internal/metrics"
	"github.com/hitoshi/meyasu/internal/model"
	"github.com/hitoshi/meyasu/internal/ratelimit"
	"github.com/hitoshi/meyasu/internal/repository"
	"github.com/hitoshi/meyasu/internal/security"
)

// ContentChecker は投稿内容の検査インターフェース。
type ContentChecker interface {
	Check(fields ...string) security.CheckOutcome
}

// RateChecker はレート制限の判定インターフェース。
type RateChecker interface {
	Check(ctx context.Context, class ratelimit.Class, origin, token string) (ratelimit.Decision, error)
}

// Requester は操作を行う訪問者を表す。
type Requester struct {
	Origin string // 接続元のIPアドレス
	Token  string // 匿名トークン。未発行の場合は空

	// Identify は訪問者IDを解決し、未発行であれば発行する。
	// 検査とレート制限を通過した後にのみ呼び出される。
	Identify func(ctx context.Context) (int64, error)
}

// Repositories はServiceが利用するリポジトリ群。
type Repositories struct {
	Categories   repository.CategoryRepository
	Opinions     repository.OpinionRepository
	Solutions    repository.SolutionRepository
	Votes        repository.VoteRepository
	DeletionLogs repository.DeletionLogRepository
}

// Service は目安箱のサービス層。
type Service struct {
	categories   repository.CategoryRepository
	opinions     repository.OpinionRepository
	solutions    repository.SolutionRepository
	votes        repository.VoteRepository
	deletionLogs repository.DeletionLogRepository

	sanitizer security.InputSanitizer
	filter    ContentChecker
	limiter   RateChecker
	metrics   metrics.MetricsCollector
}

// NewService はServiceの新しいインスタンスを生成する。
// collectorがnilの場合はメトリクスを記録しない。
func NewService(
	repos Repositories,
	sanitizer security.InputSanitizer,
	filter ContentChecker,
	limiter RateChecker,
	collector metrics.MetricsCollector,
) *Service {
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &Service{
		categories:   repos.Categories,
		opinions:     repos.Opinions,
		solutions:    repos.Solutions,
		votes:        repos.Votes,
		deletionLogs: repos.DeletionLogs,
		sanitizer:    sanitizer,
		filter:       filter,
		limiter:      limiter,
		metrics:      collector,
	}
}

// screen はコンテンツ検査を行い、拒否された場合は理由に応じたエラーを返す。
func (s *Service) screen(fields ...string) error {
	outcome := s.filter.Check(fields...)
	if outcome.Accepted {
		return nil
	}
	s.metrics.RecordContentRejected(string(outcome.Reason))
	if outcome.Reason == security.RejectPII {
		return model.NewContentPIIError()
	}
	return model.NewContentHarmfulError()
}

// gate はレート制限を判定する。超過時は再試行までの時間を含むエラーを返す。
func (s *Service) gate(ctx context.Context, class ratelimit.Class, req Requester) error {
	decision, err := s.limiter.Check(ctx, class, req.Origin, req.Token)
	if err != nil {
		return fmt.Errorf("レート制限の判定に失敗しました: %w", err)
	}
	if !decision.Allowed {
		s.metrics.RecordRateLimitDenied(string(class))
		return model.NewRateLimitedError(decision.RetryAfter)
	}
	return nil
}

// identify は訪問者IDを解決する。
func (s *Service) identify(ctx context.Context, req Requester) (int64, error) {
	if req.Identify == nil {
		return 0, fmt.Errorf("%w: 訪問者を識別できません", model.ErrStorageUnavailable)
	}
	id, err := req.Identify(ctx)
	if err != nil {
		return 0, fmt.Errorf("匿名IDの解決に失敗しました: %w", err)
	}
	return id, nil
}

// storageError はリポジトリのエラーをストレージ障害としてラップする。
func storageError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", model.ErrStorageUnavailable, op, err)
}
