package security

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// 長音記号・波線など、語の間に挟んで検出を回避するために使われる文字。
var elongationMarks = map[rune]bool{
	'ー': true,
	'ｰ': true,
	'〜': true,
	'～': true,
	'~': true,
}

// soundMarks は単独の濁点・半濁点を結合文字に置き換える。
// 半角カナを全角に揃えた後に残る「シ゛」を NFC で「ジ」にまとめるために使う。
var soundMarks = strings.NewReplacer("\u309B", "\u3099", "\u309C", "\u309A")

// normalizeForMatching は有害表現の照合用にテキストを正規化する。
//
// 変換の順序:
//  1. 全角英数字・半角カナを標準幅に揃える
//  2. 濁点・半濁点を結合してNFC正規化
//  3. 大文字小文字の畳み込み
//  4. カタカナをひらがなに変換
//  5. 空白・記号・絵文字・長音記号を除去
func normalizeForMatching(text string) string {
	s := width.Fold.String(text)
	s = soundMarks.Replace(s)
	s = norm.NFC.String(s)
	// cases.Caser はgoroutine安全ではないため呼び出しごとに生成する
	s = cases.Fold().String(s)

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if isFiller(r) {
			continue
		}
		b.WriteRune(toHiragana(r))
	}
	return b.String()
}

// toHiragana はカタカナ（ァ〜ヶ）を対応するひらがなに変換する。
func toHiragana(r rune) rune {
	if r >= 0x30A1 && r <= 0x30F6 {
		return r - 0x60
	}
	return r
}

// isFiller は照合前に取り除く文字かどうかを返す。
func isFiller(r rune) bool {
	if elongationMarks[r] {
		return true
	}
	switch {
	case unicode.IsSpace(r):
		return true
	case unicode.IsPunct(r), unicode.IsSymbol(r):
		return true
	case unicode.Is(unicode.Cf, r), unicode.Is(unicode.Variation_Selector, r):
		return true
	}
	return false
}
