// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/meyasu/internal/model"
)

// VisitorRepository は匿名訪問者レコードの永続化インターフェース。
type VisitorRepository interface {
	// Create は訪問者レコードを作成し、採番したIDを v.ID に設定する。
	Create(ctx context.Context, v *model.Visitor) error

	// FindActiveByToken はトークンに対応し、now の時点で失効していないレコードを返す。
	// 見つからない場合はnilを返す。
	FindActiveByToken(ctx context.Context, token string, now time.Time) (*model.Visitor, error)

	// TouchLastSeen は最終アクセス時刻を更新する。有効期限は変更しない。
	TouchLastSeen(ctx context.Context, id int64, seenAt time.Time) error

	// DeleteExpired は now の時点で失効したレコードを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// CategoryRepository はカテゴリの参照インターフェース。
type CategoryRepository interface {
	// List は全カテゴリをID順に返す。
	List(ctx context.Context) ([]*model.Category, error)

	// FindByID は指定IDのカテゴリを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.Category, error)
}

// OpinionFilter は意見一覧の絞り込み条件。
type OpinionFilter struct {
	CategoryID      int64 // 0の場合は全カテゴリ
	IncludeHidden   bool  // 非表示の意見を含める（管理者用）
	ExcludeFeedback bool  // サイトへの要望カテゴリを除外する。CategoryID指定時は無視される
	Limit           int
	Offset          int
}

// OpinionRepository は意見の永続化インターフェース。
type OpinionRepository interface {
	// Create は意見を作成し、採番したIDと作成日時を設定する。
	Create(ctx context.Context, o *model.Opinion) error

	// FindByID は指定IDの意見を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.Opinion, error)

	// List は条件に一致する意見を新しい順に返す。
	List(ctx context.Context, filter OpinionFilter) ([]*model.Opinion, error)

	// SetVisibility は意見の表示状態を変更し、モデレーション済みとして記録する。
	// 対象が存在しない場合は false を返す。
	SetVisibility(ctx context.Context, id int64, visible bool) (bool, error)

	// DeleteWithLog は削除ログの記録と意見の削除を同一トランザクションで行う。
	// 対象が存在しない場合は false を返し、ログも記録しない。
	DeleteWithLog(ctx context.Context, id int64, log *model.DeletionLog) (bool, error)
}

// SolutionRepository は解決策の永続化インターフェース。
type SolutionRepository interface {
	// Create は解決策を作成し、採番したIDと作成日時を設定する。
	Create(ctx context.Context, s *model.Solution) error

	// FindByID は指定IDの解決策を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.Solution, error)

	// ListByOpinion は意見に紐づく表示中の解決策を古い順に返す。
	ListByOpinion(ctx context.Context, opinionID int64) ([]*model.Solution, error)

	// DeleteWithLog は削除ログの記録と解決策の削除を同一トランザクションで行う。
	// 対象が存在しない場合は false を返し、ログも記録しない。
	DeleteWithLog(ctx context.Context, id int64, log *model.DeletionLog) (bool, error)
}

// VoteRepository は投票の永続化インターフェース。
// 投票は (訪問者, 対象) の組に対して高々1件で、再投票は種別を上書きする。
type VoteRepository interface {
	// UpsertOpinionVote は意見への投票を登録または更新し、再集計した票数を返す。
	UpsertOpinionVote(ctx context.Context, visitorID, opinionID int64, voteType model.OpinionVoteType) (model.OpinionVoteCounts, error)

	// FindOpinionVote は訪問者の意見への投票を取得する。見つからない場合はnilを返す。
	FindOpinionVote(ctx context.Context, visitorID, opinionID int64) (*model.OpinionVote, error)

	// UpsertSolutionVote は解決策への投票を登録または更新し、再集計した票数を返す。
	UpsertSolutionVote(ctx context.Context, visitorID, solutionID int64, voteType model.SolutionVoteType) (model.SolutionVoteCounts, error)
}

// DeletionLogRepository は削除ログの参照インターフェース。
type DeletionLogRepository interface {
	// List は削除ログを新しい順に返す。
	List(ctx context.Context, limit, offset int) ([]*model.DeletionLog, error)
}
