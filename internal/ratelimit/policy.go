// Package ratelimit は操作種別ごとの固定ウィンドウ方式のレート制限を提供する。
//
// キーは接続元と匿名トークンを組み合わせた複合キーで、
// どちらか一方だけを入れ替えても制限を回避できないようにしている。
// カウンタの保持は Store インターフェースに委譲し、
// 既定のインメモリ実装と、複数プロセスで共有するためのRedis実装を提供する。
package ratelimit

import (
	"fmt"
	"time"
)

// Class はレート制限の対象となる操作種別。
type Class string

const (
	ClassSubmit     Class = "submit"
	ClassVote       Class = "vote"
	ClassAdminLogin Class = "admin_login"
	ClassGeneral    Class = "general"
)

// Policy は操作種別ごとのウィンドウ長と上限回数。
type Policy struct {
	Window time.Duration
	Limit  int
}

// Policies は操作種別からPolicyへの対応表。
type Policies map[Class]Policy

// DefaultPolicies はデフォルトのレート制限設定を返す。
//   - 投稿: 60秒に1回
//   - 投票: 60秒に6回
//   - 管理者ログイン: 15分に10回
//   - API全般: 15分に100回
func DefaultPolicies() Policies {
	return Policies{
		ClassSubmit:     {Window: time.Minute, Limit: 1},
		ClassVote:       {Window: time.Minute, Limit: 6},
		ClassAdminLogin: {Window: 15 * time.Minute, Limit: 10},
		ClassGeneral:    {Window: 15 * time.Minute, Limit: 100},
	}
}

// Validate は全てのPolicyが正の値を持つかを検証する。
func (p Policies) Validate() error {
	for class, policy := range p {
		if policy.Window <= 0 {
			return fmt.Errorf("ratelimit: %s: window must be positive", class)
		}
		if policy.Limit <= 0 {
			return fmt.Errorf("ratelimit: %s: limit must be positive", class)
		}
	}
	return nil
}
