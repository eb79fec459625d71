// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hitoshi/meyasu/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var (
	// visitorIDContextKey はリクエストコンテキストに訪問者IDを格納するためのキー。
	visitorIDContextKey = contextKey("visitor_id")
	requestIDContextKey = contextKey("request_id")
)

// VisitorResolver は匿名IDの受動的な解決に必要なインターフェース。
// visitor.Managerの部分集合として定義する。
type VisitorResolver interface {
	Resolve(ctx context.Context, r *http.Request) (int64, bool, error)
}

// AdminVerifier は管理者セッションの検証に必要なインターフェース。
type AdminVerifier interface {
	VerifyRequest(r *http.Request) error
}

// NewVisitorMiddleware は匿名IDクッキーから訪問者IDを解決し、
// 見つかった場合はリクエストコンテキストに注入するミドルウェアを返す。
// 訪問者レコードの作成やクッキーの発行は行わない。
// ストレージ障害時は訪問者なしとして扱わず503を返す。
func NewVisitorMiddleware(resolver VisitorResolver) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok, err := resolver.Resolve(r.Context(), r)
			if err != nil {
				slog.Error("failed to resolve visitor",
					slog.String("error", err.Error()),
					slog.String("path", r.URL.Path),
				)
				WriteErrorResponse(w, http.StatusServiceUnavailable, model.NewStorageUnavailableError())
				return
			}
			if ok {
				AnnotateVisitor(r.Context(), id)
				r = r.WithContext(ContextWithVisitorID(r.Context(), id))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// NewAdminSessionMiddleware は管理者セッションクッキーを検証するミドルウェアを返す。
// 検証に失敗したリクエストには401を返す。
func NewAdminSessionMiddleware(verifier AdminVerifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := verifier.VerifyRequest(r); err != nil {
				slog.Debug("admin session rejected",
					slog.String("error", err.Error()),
					slog.String("path", r.URL.Path),
				)
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// VisitorIDFromContext はリクエストコンテキストから訪問者IDを取得する。
// 訪問者ミドルウェアで解決できたリクエストでのみ ok が true になる。
func VisitorIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(visitorIDContextKey).(int64)
	if !ok || id <= 0 {
		return 0, false
	}
	return id, true
}

// ContextWithVisitorID はコンテキストに訪問者IDを注入する。
func ContextWithVisitorID(ctx context.Context, visitorID int64) context.Context {
	return context.WithValue(ctx, visitorIDContextKey, visitorID)
}
