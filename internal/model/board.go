package model

import "time"

// Category は意見を分類するカテゴリを表す。
type Category struct {
	ID          int64
	Name        string
	Description string
	IsFeedback  bool
	CreatedAt   time.Time
}

// Opinion は匿名訪問者が投稿した意見（課題の提起）を表す。
type Opinion struct {
	ID               int64
	VisitorID        *int64
	CategoryID       int64
	ProblemStatement string
	SolutionProposal string
	IsVisible        bool
	IsModerated      bool
	Counts           OpinionVoteCounts
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Solution は意見に対して提案された解決策を表す。
type Solution struct {
	ID          int64
	OpinionID   int64
	VisitorID   *int64
	Title       string
	Description string
	IsVisible   bool
	Counts      SolutionVoteCounts
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// OpinionVoteType は意見への投票種別。
type OpinionVoteType string

const (
	OpinionVoteAgree    OpinionVoteType = "agree"
	OpinionVoteDisagree OpinionVoteType = "disagree"
	OpinionVotePass     OpinionVoteType = "pass"
)

// Valid は定義済みの投票種別かどうかを返す。
func (t OpinionVoteType) Valid() bool {
	switch t {
	case OpinionVoteAgree, OpinionVoteDisagree, OpinionVotePass:
		return true
	}
	return false
}

// SolutionVoteType は解決策への投票種別。
type SolutionVoteType string

const (
	SolutionVoteSupport SolutionVoteType = "support"
	SolutionVoteOppose  SolutionVoteType = "oppose"
	SolutionVotePass    SolutionVoteType = "pass"
)

// Valid は定義済みの投票種別かどうかを返す。
func (t SolutionVoteType) Valid() bool {
	switch t {
	case SolutionVoteSupport, SolutionVoteOppose, SolutionVotePass:
		return true
	}
	return false
}

// OpinionVoteCounts は意見の投票集計。
type OpinionVoteCounts struct {
	Agree    int
	Disagree int
	Pass     int
}

// SolutionVoteCounts は解決策の投票集計。
type SolutionVoteCounts struct {
	Support int
	Oppose  int
	Pass    int
}

// OpinionVote は訪問者ごとの意見への投票。
// (VisitorID, OpinionID) の組に対して高々1件のみ存在する。
type OpinionVote struct {
	ID        int64
	VisitorID int64
	OpinionID int64
	VoteType  OpinionVoteType
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PostType は削除ログの対象種別。
type PostType string

const (
	PostTypeOpinion  PostType = "opinion"
	PostTypeSolution PostType = "solution"
)

// DeletionLog はモデレーションによる削除の記録。
// Contentには個人情報を伏せたプレビューのみを保存する。
type DeletionLog struct {
	ID        int64
	PostType  PostType
	PostID    int64
	Content   string
	Reason    string
	DeletedAt time.Time
}
