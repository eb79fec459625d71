package security

import (
	"regexp"
	"strings"

	"golang.org/x/text/width"
)

// RejectReason は投稿を拒否した理由。
type RejectReason string

const (
	RejectPII     RejectReason = "pii"
	RejectHarmful RejectReason = "harmful"
)

// CheckOutcome はコンテンツ検査の結果。
// Accepted が false の場合のみ Reason が設定される。
type CheckOutcome struct {
	Accepted bool
	Reason   RejectReason
}

// checkedText は検査対象テキストの各表現。
type checkedText struct {
	raw        string
	folded     string // 全角英数字とダッシュ類を半角に揃えたもの
	normalized string
}

// contentRule は順に評価される検査ルール。
type contentRule struct {
	reason RejectReason
	match  func(t checkedText) bool
}

// 電話番号の区切りとして使われるダッシュ類。
var dashFolder = strings.NewReplacer(
	"\u2010", "-", "\u2011", "-", "\u2012", "-", "\u2013", "-",
	"\u2014", "-", "\u2015", "-", "\u2212", "-", "ー", "-",
)

// foldForPII は全角英数字を半角に揃え、ダッシュ類をハイフンに置き換える。
func foldForPII(text string) string {
	return dashFolder.Replace(width.Fold.String(text))
}

// 投稿時に直接ブロックする個人情報。住所などは誤検知が多いため含めない。
var directPIIMatchers = []matcher{
	emailMatchers[0],
	phoneMatchers[0],
	phoneMatchers[1],
	phoneMatchers[2],
	bareHandleMatcher,
}

// 元のテキストに対して照合する明白な有害表現。
var harmfulDirect = regexp.MustCompile(
	`死ね|氏ね|ぶっ殺|ぶち殺|殺してやる|殺すぞ|殺す` +
		`|刺してやる|殴ってやる|燃やしてやる|爆破してやる` +
		`|強姦|レイプ|犯してやる` +
		`|消えろ`,
)

// 正規化後のテキストに対して照合する有害表現。
var harmfulNormalized = regexp.MustCompile(
	// 死・消滅の命令
	`しね|しんで(?:くれ|しまえ)|きえろ|きえうせろ|死ね|氏ね|ころす|ころしてやる|ぶっころ|ぶちころ` +
		// 暴力の予告
		`|なぐってやる|さしてやる|もやしてやる|ばくはしてやる` +
		// 存在否定・呪い
		`|いきてるかち(?:が)?ない|うまれてこなければ|のろってやる|じごくにおちろ` +
		// 晒し・特定
		`|とくていしてやる|さらしてやる|じゅうしょさらす|晒してやる|特定してやる|住所晒` +
		// 性暴力
		`|れいぷ|ごうかん|強姦|おかしてやる|犯してやる` +
		// 重度の侮辱
		`|きちがい|ごみくず|くずやろう|かすやろう|うじむし` +
		`|killyou|killyourself`,
)

var contentRules = []contentRule{
	{reason: RejectPII, match: func(t checkedText) bool {
		return anyMatch(t.raw, directPIIMatchers) || anyMatch(t.folded, directPIIMatchers)
	}},
	{reason: RejectHarmful, match: func(t checkedText) bool { return harmfulDirect.MatchString(t.raw) }},
	{reason: RejectHarmful, match: func(t checkedText) bool { return harmfulNormalized.MatchString(t.normalized) }},
}

// ContentFilter は投稿前に個人情報と有害表現を検査する。
// 状態を持たないため、複数のgoroutineから同時に利用できる。
type ContentFilter struct {
	rules []contentRule
}

// NewContentFilter はContentFilterを生成する。
func NewContentFilter() *ContentFilter {
	return &ContentFilter{rules: contentRules}
}

// Check は投稿の全テキストフィールドをまとめて検査する。
// 最初に一致したルールの理由で拒否し、個人情報の検査は有害表現より先に行う。
func (f *ContentFilter) Check(fields ...string) CheckOutcome {
	raw := strings.Join(fields, "\n")
	text := checkedText{
		raw:        raw,
		folded:     foldForPII(raw),
		normalized: normalizeForMatching(raw),
	}

	for _, rule := range f.rules {
		if rule.match(text) {
			return CheckOutcome{Accepted: false, Reason: rule.reason}
		}
	}
	return CheckOutcome{Accepted: true}
}
