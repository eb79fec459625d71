package security

import (
	"regexp"
	"unicode/utf8"
)

// scrubRule は削除ログ用プレビューに適用する置換ルール。
type scrubRule struct {
	m           matcher
	placeholder string
}

// 記載順に逐次適用する。前のルールで置換された部分は後続のルールの対象にならない。
var scrubRules = []scrubRule{
	{m: regexMatcher{re: regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)}, placeholder: "[EMAIL]"},
	{m: regexMatcher{re: regexp.MustCompile(`(?:\+81[-\s]?|0\d{1,4}[-\s]?)\d{1,4}[-\s]?\d{3,4}`)}, placeholder: "[PHONE]"},
	{m: digitRunMatcher{min: 10, max: 11}, placeholder: "[PHONE]"},
	{m: regexMatcher{re: regexp.MustCompile(`@[a-zA-Z0-9_.]{3,}`)}, placeholder: "[SNS]"},
	{m: digitRunMatcher{min: 7, max: 12, dotBoundary: true}, placeholder: "[ID]"},
}

// Scrub は監査ログに複製するテキストから個人情報らしき部分を伏せる。
// 一方向かつベストエフォートの処理であり、個人情報の除去を保証するものではない。
// 7〜12桁の数字列は注文番号などの無関係な数値も伏せるが、取りこぼしより過剰な伏せ字を優先する。
func Scrub(text string) string {
	for _, rule := range scrubRules {
		text = replaceAll(text, rule.m, rule.placeholder)
	}
	return text
}

// ScrubPreview は先頭 maxRunes 文字を切り出してから Scrub を適用する。
func ScrubPreview(text string, maxRunes int) string {
	if utf8.RuneCountInString(text) > maxRunes {
		runes := []rune(text)
		text = string(runes[:maxRunes])
	}
	return Scrub(text)
}

func replaceAll(text string, m matcher, placeholder string) string {
	spans := m.FindAll(text)
	if len(spans) == 0 {
		return text
	}
	tagged := make([]taggedSpan, 0, len(spans))
	for _, s := range spans {
		tagged = append(tagged, taggedSpan{start: s[0], end: s[1], placeholder: placeholder})
	}
	return applySpans(text, tagged)
}
