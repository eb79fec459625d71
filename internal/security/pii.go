package security

import (
	"sort"
	"strings"
)

// PIIType は検出する個人情報の種別。
type PIIType string

const (
	PIIEmail     PIIType = "email"
	PIIPhone     PIIType = "phone"
	PIISNSID     PIIType = "snsId"
	PIIAddress   PIIType = "address"
	PIIStudentID PIIType = "studentId"
)

// PIIDetectionResult は個人情報検出の結果。
// HasPII は DetectedTypes が空でない場合に限り true になる。
// MaskedText は一致区間以外は入力と同一。
type PIIDetectionResult struct {
	HasPII        bool
	DetectedTypes []PIIType
	MaskedText    string
}

// piiFamily は種別ごとのパターン群と置換文字列。
type piiFamily struct {
	piiType     PIIType
	placeholder string
	matchers    []matcher
}

var (
	emailMatchers = []matcher{
		re(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`),
	}

	phoneMatchers = []matcher{
		re(`0\d{1,4}-\d{1,4}-\d{4}`),
		digitRunMatcher{min: 9, max: 11, leadingZero: true},
		re(`\+\d{1,3}[-\s]?\d{1,4}[-\s]?\d{1,4}[-\s]?\d{4}`),
	}

	bareHandleMatcher = re(`@[a-zA-Z0-9._]{3,30}`)

	snsIDMatchers = []matcher{
		re(`(?i)LINE\s*ID[:：]?\s*@?[a-zA-Z0-9._\-]{3,20}`),
		re(`(?i)Instagram[:：]?\s*@[a-zA-Z0-9._]{1,30}`),
		re(`(?i)(?:Twitter|X)[:：]?\s*@[a-zA-Z0-9_]{1,15}`),
		re(`(?i)Discord[:：]?\s*[a-zA-Z0-9._#]{2,32}`),
		re(`[a-zA-Z0-9._]{2,32}#[0-9]{4}\b`),
		bareHandleMatcher,
		re(`\b(?:ID|id)[:：]\s*[a-zA-Z0-9._\-]{4,20}`),
	}

	addressMatchers = []matcher{
		re(`(?:北海道|青森県|岩手県|宮城県|秋田県|山形県|福島県|茨城県|栃木県|群馬県|埼玉県|千葉県|東京都|神奈川県|新潟県|富山県|石川県|福井県|山梨県|長野県|岐阜県|静岡県|愛知県|三重県|滋賀県|京都府|大阪府|兵庫県|奈良県|和歌山県|鳥取県|島根県|岡山県|広島県|山口県|徳島県|香川県|愛媛県|高知県|福岡県|佐賀県|長崎県|熊本県|大分県|宮崎県|鹿児島県|沖縄県)\S{2,10}(?:市|区|町|村)`),
		re(`[0-9０-９]{1,4}[-－ー][0-9０-９]{1,4}[-－ー][0-9０-９]{1,4}`),
		re(`(?:マンション|アパート|ハイツ|コーポ|ビル|棟)\S{0,20}[0-9０-９]{1,4}(?:号室|号|室)`),
		re(`[0-9０-９]{1,4}番地`),
		re(`[0-9０-９]{1,2}丁目`),
	}

	studentIDMatchers = []matcher{
		re(`(?i)(?:学籍番号|学生番号|student\s*id)[:：]?\s*[A-Z0-9]{7,10}`),
		re(`[A-Z][0-9]{7,10}`),
		re(`[0-9]{7,10}[A-Z]`),
		digitRunMatcher{min: 8, max: 12},
	}
)

// piiFamilies は評価順に並べた種別一覧。
// 先に評価した種別が一致区間を確保し、後続の種別は重なる一致を持てない。
// 住所は学籍番号より先に評価する。
var piiFamilies = []piiFamily{
	{piiType: PIIEmail, placeholder: "[メールアドレス]", matchers: emailMatchers},
	{piiType: PIIPhone, placeholder: "[電話番号]", matchers: phoneMatchers},
	{piiType: PIISNSID, placeholder: "[SNS ID]", matchers: snsIDMatchers},
	{piiType: PIIAddress, placeholder: "[住所]", matchers: addressMatchers},
	{piiType: PIIStudentID, placeholder: "[学籍番号]", matchers: studentIDMatchers},
}

// PIIDetector は自由記述テキストから個人情報を検出し、伏せ字にしたコピーを生成する。
// 状態を持たないため、複数のgoroutineから同時に利用できる。
type PIIDetector struct {
	families []piiFamily
}

// NewPIIDetector はPIIDetectorを生成する。
func NewPIIDetector() *PIIDetector {
	return &PIIDetector{families: piiFamilies}
}

// Detect はテキストを検査し、検出された種別と伏せ字済みテキストを返す。
// 各種別のパターンは常に元のテキストに対して評価する。
// 同じ入力に対しては常に同じ順序の DetectedTypes と同じ MaskedText を返す。
func (d *PIIDetector) Detect(text string) PIIDetectionResult {
	var (
		detected []PIIType
		claimed  []taggedSpan
	)

	for _, f := range d.families {
		var kept []taggedSpan
		for _, s := range collectSpans(text, f.matchers) {
			if overlaps(s, claimed) {
				continue
			}
			kept = append(kept, taggedSpan{start: s[0], end: s[1], placeholder: f.placeholder})
		}
		if len(kept) == 0 {
			continue
		}
		detected = append(detected, f.piiType)
		claimed = append(claimed, kept...)
	}

	return PIIDetectionResult{
		HasPII:        len(detected) > 0,
		DetectedTypes: detected,
		MaskedText:    applySpans(text, claimed),
	}
}

// ContainsPII は個人情報を含むかどうかだけを返す。
func (d *PIIDetector) ContainsPII(text string) bool {
	return d.Detect(text).HasPII
}

// applySpans は互いに重ならない区間を置換文字列に差し替えたテキストを返す。
func applySpans(text string, spans []taggedSpan) string {
	if len(spans) == 0 {
		return text
	}

	sorted := make([]taggedSpan, len(spans))
	copy(sorted, spans)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].start < sorted[j].start })

	var b strings.Builder
	b.Grow(len(text))
	pos := 0
	for _, s := range sorted {
		b.WriteString(text[pos:s.start])
		b.WriteString(s.placeholder)
		pos = s.end
	}
	b.WriteString(text[pos:])
	return b.String()
}
