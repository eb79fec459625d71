package security

import (
	"html"
	"strings"
	"testing"
)

// TestSanitize_StripsTags は全てのタグが除去され内側のテキストが残ることを検証する。
func TestSanitize_StripsTags(t *testing.T) {
	sanitizer := NewContentSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "pタグ", input: "<p>学食のメニュー</p>", want: "学食のメニュー"},
		{name: "strongとem", input: "<strong>駐輪場</strong>が<em>狭い</em>", want: "駐輪場が狭い"},
		{name: "リンク", input: `<a href="https://example.com">図書館</a>の開館時間`, want: "図書館の開館時間"},
		{name: "ネストしたリスト", input: "<ul><li>項目1</li><li>項目2</li></ul>", want: "項目1項目2"},
		{name: "前後の空白を除去", input: "  <p> 自習室 </p>  ", want: "自習室"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizer.Sanitize(tt.input)
			if got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// TestSanitize_ForbiddenTags はscript, iframe, styleが中身ごと除去されることを検証する。
func TestSanitize_ForbiddenTags(t *testing.T) {
	sanitizer := NewContentSanitizer()

	tests := []struct {
		name       string
		input      string
		wantAbsent []string
	}{
		{name: "scriptタグ", input: "<script>alert('xss')</script>意見", wantAbsent: []string{"<script", "alert"}},
		{name: "iframeタグ", input: `<iframe src="https://evil.example.com"></iframe>意見`, wantAbsent: []string{"<iframe", "evil"}},
		{name: "styleタグ", input: "<style>body{display:none}</style>意見", wantAbsent: []string{"<style", "display"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizer.Sanitize(tt.input)
			for _, absent := range tt.wantAbsent {
				if strings.Contains(got, absent) {
					t.Errorf("Sanitize(%q) = %q, should not contain %q", tt.input, got, absent)
				}
			}
			if !strings.Contains(got, "意見") {
				t.Errorf("Sanitize(%q) = %q, expected to keep text", tt.input, got)
			}
		})
	}
}

// TestSanitize_OnEventAttributes はイベント属性が残らないことを検証する。
func TestSanitize_OnEventAttributes(t *testing.T) {
	sanitizer := NewContentSanitizer()

	input := `<img src="x" onerror="alert(1)">本文<div onclick="steal()">続き</div>`
	got := sanitizer.Sanitize(input)

	for _, absent := range []string{"onerror", "onclick", "<img", "<div"} {
		if strings.Contains(got, absent) {
			t.Errorf("Sanitize(%q) = %q, should not contain %q", input, got, absent)
		}
	}
	if got != "本文続き" {
		t.Errorf("Sanitize(%q) = %q, want %q", input, got, "本文続き")
	}
}

// TestSanitize_MalformedMarkup は閉じられていないタグでも失敗しないことを検証する。
func TestSanitize_MalformedMarkup(t *testing.T) {
	sanitizer := NewContentSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "閉じタグなし", input: "<b>太字のまま", want: "太字のまま"},
		{name: "不等号のみ", input: "1 < 2 かつ 3 > 2", want: "1 < 2 かつ 3 > 2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizer.Sanitize(tt.input)
			if got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// TestSanitize_EncodedTags はエンティティで符号化されたタグも除去されることを検証する。
// 何重に符号化されていても、出力にタグとして解釈される文字列が残らないこと。
func TestSanitize_EncodedTags(t *testing.T) {
	sanitizer := NewContentSanitizer()

	tests := []struct {
		name   string
		levels int
	}{
		{name: "1重", levels: 1},
		{name: "2重", levels: 2},
		{name: "3重", levels: 3},
		{name: "4重", levels: 4},
		{name: "上限を超える10重", levels: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := "<script>alert(1)</script>こんにちは<img src=x onerror=alert(2)>"
			for i := 0; i < tt.levels; i++ {
				input = html.EscapeString(input)
			}

			got := sanitizer.Sanitize(input)

			if strings.ContainsAny(got, "<>") {
				t.Errorf("Sanitize(%q) = %q, should not contain markup", input, got)
			}
			if !strings.Contains(got, "こんにちは") {
				t.Errorf("Sanitize(%q) = %q, expected to contain こんにちは", input, got)
			}
		})
	}
}

// TestSanitize_EntitiesDecoded はエスケープされた文字がそのまま戻ることを検証する。
func TestSanitize_EntitiesDecoded(t *testing.T) {
	sanitizer := NewContentSanitizer()

	input := "カレー & ラーメン"
	if got := sanitizer.Sanitize(input); got != input {
		t.Errorf("Sanitize(%q) = %q, want %q", input, got, input)
	}
}

// TestSanitize_EmptyInput は空文字列に対して空文字列を返すことを検証する。
func TestSanitize_EmptyInput(t *testing.T) {
	sanitizer := NewContentSanitizer()

	if got := sanitizer.Sanitize(""); got != "" {
		t.Errorf("Sanitize(\"\") = %q, want empty string", got)
	}
	if got := sanitizer.Sanitize("   "); got != "" {
		t.Errorf("Sanitize(\"   \") = %q, want empty string", got)
	}
}

// TestSanitize_Idempotent は同一入力に対して常に同一出力を返すことを検証する。
func TestSanitize_Idempotent(t *testing.T) {
	sanitizer := NewContentSanitizer()

	input := "<p>図書館の<strong>座席</strong>を増やしてほしい</p>"
	first := sanitizer.Sanitize(input)
	second := sanitizer.Sanitize(first)

	if first != second {
		t.Errorf("Sanitize is not idempotent: first = %q, second = %q", first, second)
	}
}

// TestContentSanitizerInterface はcontentSanitizerがInputSanitizerを実装していることを検証する。
func TestContentSanitizerInterface(t *testing.T) {
	var _ InputSanitizer = NewContentSanitizer()
}
