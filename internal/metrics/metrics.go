// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層・ミドルウェア・ワーカーから利用する。
type MetricsCollector interface {
	RecordContentRejected(reason string)
	RecordRateLimitDenied(class string)
	RecordVisitorCreated()
	RecordSubmissionAccepted(postType string)
	RecordVote(target string)
	RecordVisitorsReaped(count int64)
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	contentRejected    *prometheus.CounterVec
	rateLimitDenied    *prometheus.CounterVec
	visitorsCreated    prometheus.Counter
	submissionAccepted *prometheus.CounterVec
	votes              *prometheus.CounterVec
	visitorsReaped     prometheus.Counter
	httpStatus         *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		contentRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "meyasu_content_rejected_total",
			Help: "コンテンツ検査で拒否された投稿数（理由別）",
		}, []string{"reason"}),
		rateLimitDenied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "meyasu_rate_limit_denied_total",
			Help: "レート制限で拒否されたリクエスト数（操作種別別）",
		}, []string{"class"}),
		visitorsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "meyasu_visitors_created_total",
			Help: "発行された匿名IDの合計数",
		}),
		submissionAccepted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "meyasu_submissions_accepted_total",
			Help: "受理された投稿数（種別別）",
		}, []string{"post_type"}),
		votes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "meyasu_votes_total",
			Help: "記録された投票数（対象別）",
		}, []string{"target"}),
		visitorsReaped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "meyasu_visitors_reaped_total",
			Help: "失効により削除された訪問者レコードの合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "meyasu_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.contentRejected,
		c.rateLimitDenied,
		c.visitorsCreated,
		c.submissionAccepted,
		c.votes,
		c.visitorsReaped,
		c.httpStatus,
	)

	return c
}

// RecordContentRejected はコンテンツ検査による拒否を記録する。
func (c *Collector) RecordContentRejected(reason string) {
	c.contentRejected.WithLabelValues(reason).Inc()
}

// RecordRateLimitDenied はレート制限による拒否を記録する。
func (c *Collector) RecordRateLimitDenied(class string) {
	c.rateLimitDenied.WithLabelValues(class).Inc()
}

// RecordVisitorCreated は匿名IDの発行を記録する。
func (c *Collector) RecordVisitorCreated() {
	c.visitorsCreated.Inc()
}

// RecordSubmissionAccepted は投稿の受理を記録する。
func (c *Collector) RecordSubmissionAccepted(postType string) {
	c.submissionAccepted.WithLabelValues(postType).Inc()
}

// RecordVote は投票を記録する。
func (c *Collector) RecordVote(target string) {
	c.votes.WithLabelValues(target).Inc()
}

// RecordVisitorsReaped は削除した訪問者レコード数を記録する。
func (c *Collector) RecordVisitorsReaped(count int64) {
	c.visitorsReaped.Add(float64(count))
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Nop は何も記録しないMetricsCollector。
type Nop struct{}

func (Nop) RecordContentRejected(string)    {}
func (Nop) RecordRateLimitDenied(string)    {}
func (Nop) RecordVisitorCreated()           {}
func (Nop) RecordSubmissionAccepted(string) {}
func (Nop) RecordVote(string)               {}
func (Nop) RecordVisitorsReaped(int64)      {}
func (Nop) RecordHTTPStatus(int)            {}

var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = Nop{}
)

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
