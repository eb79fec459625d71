package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/meyasu/internal/metrics"
	"github.com/hitoshi/meyasu/internal/middleware"
	"github.com/hitoshi/meyasu/internal/ratelimit"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Logger         *slog.Logger
	HealthCheckers []HealthChecker
	Metrics        metrics.MetricsCollector
	MetricsHandler http.Handler // nilの場合は /metrics を公開しない

	// ミドルウェア依存
	CORSAllowedOrigins []string
	FrameAncestors     []string
	CookieDomain       string
	CookieSecure       bool
	TrustProxy         bool
	RateLimiter        middleware.RateChecker
	Visitors           interface {
		middleware.VisitorResolver
		VisitorIssuer
	}
	AdminVerifier middleware.AdminVerifier

	// サービス
	Board      BoardServiceInterface
	AdminAuth  AdminAuthServiceInterface
	Moderation ModerationServiceInterface
	PII        PIIInspector // nilの場合は標準のPIIDetectorを使用する
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → Recovery → Logging → Metrics → SecurityHeaders → CORS
//	  → (/api) CSRF → RateLimit(General) → ルートごとのミドルウェア
//
// /health と /metrics はCSRFとレート制限の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	collector := deps.Metrics
	if collector == nil {
		collector = metrics.Nop{}
	}

	r := chi.NewRouter()
	r.Use(middleware.NewRequestIDMiddleware())
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewMetricsMiddleware(collector))
	r.Use(middleware.NewSecurityHeadersMiddleware(middleware.SecurityHeadersConfig{
		HSTS:           deps.CookieSecure,
		FrameAncestors: deps.FrameAncestors,
	}))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigins))

	csrfConfig := middleware.CSRFConfig{
		CookieSecure: deps.CookieSecure,
		CookieDomain: deps.CookieDomain,
	}
	limit := func(class ratelimit.Class) func(http.Handler) http.Handler {
		return middleware.NewRateLimitMiddleware(middleware.RateLimitConfig{
			Limiter:    deps.RateLimiter,
			Class:      class,
			TrustProxy: deps.TrustProxy,
			Metrics:    collector,
		})
	}

	boardHandler := NewBoardHandler(deps.Board, deps.Visitors, deps.TrustProxy)
	adminHandler := NewAdminHandler(deps.AdminAuth, deps.Moderation, deps.PII, deps.TrustProxy)

	r.Get("/health", NewHealthHandler(deps.HealthCheckers...))
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.NewCSRFMiddleware(csrfConfig))
		r.Use(limit(ratelimit.ClassGeneral))

		r.Get("/csrf-token", middleware.NewCSRFTokenHandler(csrfConfig).ServeHTTP)
		r.Get("/categories", boardHandler.ListCategories)

		// 意見と解決策
		// 投稿・投票の個別レート制限はサービス層で検査の後に適用する
		r.Route("/opinions", func(r chi.Router) {
			r.Get("/", boardHandler.ListOpinions)
			r.Post("/", boardHandler.SubmitOpinion)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", boardHandler.GetOpinion)
				r.Post("/vote", boardHandler.VoteOpinion)
				r.With(middleware.NewVisitorMiddleware(deps.Visitors)).Get("/my-vote", boardHandler.MyVote)
				r.Get("/solutions", boardHandler.ListSolutions)
				r.Post("/solutions", boardHandler.SubmitSolution)
			})
		})
		r.Post("/solutions/{id}/vote", boardHandler.VoteSolution)

		// 管理者
		r.Route("/admin", func(r chi.Router) {
			r.Post("/login", adminHandler.Login)
			r.Post("/logout", adminHandler.Logout)

			r.Group(func(r chi.Router) {
				r.Use(middleware.NewAdminSessionMiddleware(deps.AdminVerifier))

				r.Get("/opinions", adminHandler.ListOpinions)
				r.Put("/opinions/{id}/visibility", adminHandler.SetVisibility)
				r.Delete("/opinions/{id}", adminHandler.DeleteOpinion)
				r.Delete("/solutions/{id}", adminHandler.DeleteSolution)
				r.Get("/deletion-logs", adminHandler.ListDeletionLogs)
			})
		})
	})

	return r
}
