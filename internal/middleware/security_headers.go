package middleware

import "net/http"

// SecurityHeadersConfig はセキュリティヘッダーの設定。
type SecurityHeadersConfig struct {
	// HSTS はStrict-Transport-Securityを付与するかどうか。BASE_URLがhttpsの場合にtrue。
	HSTS bool
	// FrameAncestors は埋め込みを許可するオリジン。空の場合は埋め込みを禁止する。
	FrameAncestors []string
}

// NewSecurityHeadersMiddleware はセキュリティ関連のHTTPレスポンスヘッダーを付与するミドルウェアを返す。
// APIはJSONのみを返すため、Content-Security-Policyはすべてのリソース読み込みを禁止する。
func NewSecurityHeadersMiddleware(config SecurityHeadersConfig) func(next http.Handler) http.Handler {
	csp := "default-src 'none'; frame-ancestors 'none'"
	if len(config.FrameAncestors) > 0 {
		csp = "default-src 'none'; frame-ancestors"
		for _, o := range config.FrameAncestors {
			csp += " " + o
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			if len(config.FrameAncestors) == 0 {
				h.Set("X-Frame-Options", "DENY")
			}
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
			h.Set("Content-Security-Policy", csp)
			if config.HSTS {
				h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}
