package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/hitoshi/meyasu/internal/metrics"
	"github.com/hitoshi/meyasu/internal/model"
	"github.com/hitoshi/meyasu/internal/ratelimit"
	"github.com/hitoshi/meyasu/internal/visitor"
)

// RateChecker はレート制限の判定インターフェース。
// ratelimit.Limiterの部分集合として定義する。
type RateChecker interface {
	Check(ctx context.Context, class ratelimit.Class, origin, token string) (ratelimit.Decision, error)
}

// RateLimitConfig はレート制限ミドルウェアの設定。
type RateLimitConfig struct {
	Limiter RateChecker
	Class   ratelimit.Class
	// TrustProxy は接続元IPの判定にプロキシヘッダーを使うかどうか。
	TrustProxy bool
	Metrics    metrics.MetricsCollector
}

// NewRateLimitMiddleware は接続元IPと匿名トークンの複合キーでリクエスト数を制限するミドルウェアを返す。
// 匿名トークンが無いリクエストも接続元IPのみのキーで数える。
// 拒否時は429とRetry-Afterを返し、カウンタの保持先に到達できない場合は503を返す。
func NewRateLimitMiddleware(config RateLimitConfig) func(next http.Handler) http.Handler {
	collector := config.Metrics
	if collector == nil {
		collector = metrics.Nop{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := ClientIP(r, config.TrustProxy)
			token := visitor.TokenFromRequest(r)

			decision, err := config.Limiter.Check(r.Context(), config.Class, origin, token)
			if err != nil {
				WriteError(w, err)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))

			if !decision.Allowed {
				collector.RecordRateLimitDenied(string(config.Class))
				slog.Debug("rate limit exceeded",
					slog.String("class", string(config.Class)),
					slog.String("path", r.URL.Path),
				)
				WriteError(w, model.NewRateLimitedError(decision.RetryAfter))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
