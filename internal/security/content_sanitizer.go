// Package security は投稿内容の安全性を確保する機能を提供する。
//
// 自由記述テキストのマークアップ除去、個人情報の検出と伏せ字化、
// 有害表現の検出、監査ログ向けの簡易的な伏せ字処理を含む。
// いずれも呼び出しごとに独立した純粋な処理であり、並行に利用できる。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// maxUnescapeRounds はエンティティで多重に符号化されたタグを剥がす最大回数。
const maxUnescapeRounds = 8

// InputSanitizer は自由記述テキストのサニタイズ機能のインターフェースを定義する。
// 投稿の全テキストフィールドに対し、個人情報・有害表現の検査より前に適用する。
type InputSanitizer interface {
	// Sanitize は全てのタグを除去し、内側のテキストのみを残して前後の空白を取り除く。
	// 閉じられていないタグなど不正なマークアップでも失敗しない。
	Sanitize(text string) string
}

// contentSanitizer はInputSanitizerの実装。
// bluemondayのStrictPolicyを保持し、スレッドセーフにサニタイズ処理を行う。
type contentSanitizer struct {
	policy *bluemonday.Policy
}

// NewContentSanitizer はInputSanitizerの新しいインスタンスを生成する。
func NewContentSanitizer() *contentSanitizer {
	return &contentSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize はタグを除去したプレーンテキストを返す。
// bluemondayは残したテキストをエスケープして返すため、エンティティを戻してから再度除去する。
// 「&lt;script&gt;」のように符号化されたタグもこの繰り返しで取り除かれる。
// 上限回数までに収束しない場合は、エスケープしたままのサニタイズ結果を返す。
func (s *contentSanitizer) Sanitize(text string) string {
	out := text
	for i := 0; i < maxUnescapeRounds; i++ {
		next := html.UnescapeString(s.policy.Sanitize(out))
		if next == out {
			return strings.TrimSpace(out)
		}
		out = next
	}
	return strings.TrimSpace(s.policy.Sanitize(out))
}
