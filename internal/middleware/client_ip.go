package middleware

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP はリクエストの接続元IPを返す。
// trustProxy が true の場合はリバースプロキシが付与したX-Forwarded-For（先頭）または
// X-Real-IPを優先する。プロキシを経由しない構成でこれらを信頼すると偽装できるため、
// 既定では接続元アドレスのみを使う。
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
				return ip.String()
			}
		}
		if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
			if ip := net.ParseIP(xri); ip != nil {
				return ip.String()
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
