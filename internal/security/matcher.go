package security

import (
	"regexp"
	"sort"
)

// matcher はテキスト中の一致箇所をバイトオフセットの区間として返す。
// 実装はすべて呼び出しごとに独立しており、呼び出しをまたぐ位置状態を持たない。
type matcher interface {
	FindAll(text string) [][]int
}

// regexMatcher は正規表現による matcher。
type regexMatcher struct {
	re *regexp.Regexp
}

func re(expr string) regexMatcher {
	return regexMatcher{re: regexp.MustCompile(expr)}
}

func (m regexMatcher) FindAll(text string) [][]int {
	return m.re.FindAllStringIndex(text, -1)
}

// digitRunRe は連続するASCII数字の最長一致を取り出す。
var digitRunRe = regexp.MustCompile(`[0-9]+`)

// digitRunMatcher は前後に数字が隣接しない数字列のうち、桁数が範囲内のものに一致する。
// RE2は先読み・後読みを持たないため、最長の数字列を取り出してから桁数で絞り込む。
type digitRunMatcher struct {
	min, max    int
	leadingZero bool // 先頭が0のものだけを対象にする
	dotBoundary bool // 小数点が隣接するものを除外する
}

func (m digitRunMatcher) FindAll(text string) [][]int {
	var spans [][]int
	for _, loc := range digitRunRe.FindAllStringIndex(text, -1) {
		n := loc[1] - loc[0]
		if n < m.min || n > m.max {
			continue
		}
		if m.leadingZero && text[loc[0]] != '0' {
			continue
		}
		if m.dotBoundary {
			if loc[0] > 0 && text[loc[0]-1] == '.' {
				continue
			}
			if loc[1] < len(text) && text[loc[1]] == '.' {
				continue
			}
		}
		spans = append(spans, loc)
	}
	return spans
}

// anyMatch はいずれかの matcher が一致するかを返す。
func anyMatch(text string, matchers []matcher) bool {
	for _, m := range matchers {
		if len(m.FindAll(text)) > 0 {
			return true
		}
	}
	return false
}

// collectSpans は複数の matcher の一致区間を開始位置順に並べ、重なりを併合して返す。
func collectSpans(text string, matchers []matcher) [][]int {
	var spans [][]int
	for _, m := range matchers {
		spans = append(spans, m.FindAll(text)...)
	}
	if len(spans) == 0 {
		return nil
	}

	sort.Slice(spans, func(i, j int) bool {
		if spans[i][0] != spans[j][0] {
			return spans[i][0] < spans[j][0]
		}
		return spans[i][1] > spans[j][1]
	})

	merged := [][]int{{spans[0][0], spans[0][1]}}
	for _, s := range spans[1:] {
		last := merged[len(merged)-1]
		if s[0] < last[1] {
			if s[1] > last[1] {
				last[1] = s[1]
			}
			continue
		}
		merged = append(merged, []int{s[0], s[1]})
	}
	return merged
}

// overlaps は区間 s が claimed のいずれかと重なるかを返す。
func overlaps(s []int, claimed []taggedSpan) bool {
	for _, c := range claimed {
		if s[0] < c.end && c.start < s[1] {
			return true
		}
	}
	return false
}

// taggedSpan は置換文字列付きの一致区間。
type taggedSpan struct {
	start, end  int
	placeholder string
}
